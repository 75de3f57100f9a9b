package fixtures

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// tbWriter routes log output through testing.TB so it only shows for failing or verbose tests.
type tbWriter struct {
	tb testing.TB
}

var _ io.Writer = (*tbWriter)(nil)

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Log(string(p))
	return len(p), nil
}

// NewTestLogger returns a debug level logger writing to tb.
func NewTestLogger(tb testing.TB, opts ...func(*logrus.Logger)) logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(tbWriter{tb: tb})

	for _, opt := range opts {
		opt(l)
	}

	return l
}
