package cloudapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tilinna/clock"

	"github.com/atlassian/ec2discovery/internal/fixtures"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		Region:     "ap-southeast-2",
		AccessKey:  "AKID",
		SecretKey:  "SECRET",
		Endpoint:   server.URL,
		HTTPClient: server.Client(),
		Logger:     fixtures.NewTestLogger(t),
	})
	require.NoError(t, err)
	return c
}

func TestGetSignsSortedQuery(t *testing.T) {
	t.Parallel()
	var gotQuery, gotAuth, gotDate string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotDate = r.Header.Get("X-Amz-Date")
		_, _ = w.Write([]byte("<ok/>"))
	})

	ctx := clock.Context(context.Background(), clock.NewMock(time.Date(2020, 5, 4, 3, 2, 1, 0, time.UTC)))
	body, err := c.Get(ctx, ServiceEC2, Merge(
		Action("DescribeInstances", "2015-10-01"),
		InstanceIDParams([]string{"i-1"}),
	))
	require.NoError(t, err)
	assert.Equal(t, "<ok/>", string(body))
	assert.Equal(t, "Action=DescribeInstances&InstanceId.1=i-1&Version=2015-10-01", gotQuery)
	assert.Equal(t, "20200504T030201Z", gotDate)
	assert.True(t, strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKID/20200504/ap-southeast-2/ec2/aws4_request"), gotAuth)
}

func TestGetAutoscalingSigningName(t *testing.T) {
	t.Parallel()
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	})
	_, err := c.Get(context.Background(), ServiceAutoscaling, Action("DescribeAutoScalingInstances", "2011-01-01"))
	require.NoError(t, err)
	assert.Contains(t, gotAuth, "/ap-southeast-2/autoscaling/aws4_request")
}

func TestGetDecodesEC2Error(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Response><Errors><Error><Code>UnauthorizedOperation</Code><Message>You are not authorized to perform this operation.</Message></Error></Errors><RequestID>req-1</RequestID></Response>`))
	})

	_, err := c.Get(context.Background(), ServiceEC2, Action("DescribeInstances", "2015-10-01"))
	require.Error(t, err)
	reqErr, ok := err.(awserr.RequestFailure)
	require.True(t, ok)
	assert.Equal(t, "UnauthorizedOperation", reqErr.Code())
	assert.Equal(t, "You are not authorized to perform this operation.", reqErr.Message())
	assert.Equal(t, http.StatusForbidden, reqErr.StatusCode())
	assert.Equal(t, "req-1", reqErr.RequestID())
}

func TestGetDecodesQueryError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<ErrorResponse xmlns="http://autoscaling.amazonaws.com/doc/2011-01-01/">
  <Error><Type>Sender</Type><Code>ValidationError</Code><Message>bad token</Message></Error>
  <RequestId>req-2</RequestId>
</ErrorResponse>`))
	})

	_, err := c.Get(context.Background(), ServiceAutoscaling, Action("DescribeAutoScalingInstances", "2011-01-01"))
	require.Error(t, err)
	reqErr, ok := err.(awserr.RequestFailure)
	require.True(t, ok)
	assert.Equal(t, "ValidationError", reqErr.Code())
	assert.Equal(t, "req-2", reqErr.RequestID())
}

func TestGetUndecodableError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("oops"))
	})

	_, err := c.Get(context.Background(), ServiceEC2, Action("DescribeInstances", "2015-10-01"))
	require.Error(t, err)
	reqErr, ok := err.(awserr.RequestFailure)
	require.True(t, ok)
	assert.Equal(t, "UnknownError", reqErr.Code())
	assert.Equal(t, http.StatusServiceUnavailable, reqErr.StatusCode())
}

func TestGetTransportError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := NewClient(Config{AccessKey: "AKID", SecretKey: "SECRET", Endpoint: url, Logger: fixtures.NewTestLogger(t)})
	require.NoError(t, err)
	_, err = c.Get(context.Background(), ServiceEC2, Action("DescribeInstances", "2015-10-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error sending DescribeInstances request")
}
