package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Retry policy flags.  They only apply to the watch mode tracker, a single discovery run never retries.
const (
	ParamRetryInterval = "retry-interval"
	ParamRetryMaxCount = "retry-max-count"
	ParamRetryMaxTime  = "retry-max-time"
	ParamRetryPolicy   = "retry-policy"
)

const (
	policyDisabled    = "disabled"
	policyConstant    = "constant"
	policyExponential = "exponential"

	defaultRetryPolicy   = policyExponential
	defaultRetryInterval = time.Second
	defaultRetryMaxCount = 0
	defaultRetryMaxTime  = 15 * time.Second
)

// BackoffFactory returns the backoff for one failed discovery run.  Each run starts from a fresh one.
type BackoffFactory func() backoff.BackOff

// NewBackoffFactory returns a factory of jittered backoffs starting at interval and growing by multiplier.
// A multiplier of 1 gives a constant delay.  Retrying stops after maxElapsedTime, or after maxRetries
// attempts when maxRetries is not 0.
func NewBackoffFactory(multiplier float64, maxElapsedTime, interval time.Duration, maxRetries uint64) BackoffFactory {
	return func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = interval
		bo.Multiplier = multiplier
		bo.MaxElapsedTime = maxElapsedTime
		bo.Reset() // picks up InitialInterval
		if maxRetries > 0 {
			return backoff.WithMaxRetries(bo, maxRetries)
		}
		return bo
	}
}

// AddRetryFlags adds the retry policy flags to fs.
func AddRetryFlags(fs *pflag.FlagSet) {
	fs.String(ParamRetryPolicy, defaultRetryPolicy, "How a failed discovery run is retried: disabled, constant or exponential")
	fs.Duration(ParamRetryInterval, defaultRetryInterval, "Delay between retries of a failed discovery run with the constant policy")
	fs.Int64(ParamRetryMaxCount, defaultRetryMaxCount, "Retries of a failed discovery run before waiting for the next interval, 0 for no limit")
	fs.Duration(ParamRetryMaxTime, defaultRetryMaxTime, "Time spent retrying a failed discovery run before waiting for the next interval")
}

// GetRetryFromViper validates the retry-* settings in v and returns the matching BackoffFactory.
func GetRetryFromViper(v *viper.Viper) (BackoffFactory, error) {
	v.SetDefault(ParamRetryPolicy, defaultRetryPolicy)
	v.SetDefault(ParamRetryInterval, defaultRetryInterval)
	v.SetDefault(ParamRetryMaxCount, defaultRetryMaxCount)
	v.SetDefault(ParamRetryMaxTime, defaultRetryMaxTime)

	policy := v.GetString(ParamRetryPolicy)
	interval := v.GetDuration(ParamRetryInterval)
	maxCount := v.GetInt64(ParamRetryMaxCount)
	maxTime := v.GetDuration(ParamRetryMaxTime)

	switch {
	case interval <= 0:
		return nil, errors.New(ParamRetryInterval + " must be positive")
	case maxCount < 0:
		return nil, errors.New(ParamRetryMaxCount + " must not be negative")
	case maxTime <= 0:
		return nil, errors.New(ParamRetryMaxTime + " must be positive")
	}

	switch policy {
	case policyDisabled:
		return func() backoff.BackOff { return &backoff.StopBackOff{} }, nil
	case policyConstant:
		return NewBackoffFactory(1, maxTime, interval, uint64(maxCount)), nil
	case policyExponential:
		return NewBackoffFactory(backoff.DefaultMultiplier, maxTime, backoff.DefaultInitialInterval, uint64(maxCount)), nil
	}
	return nil, fmt.Errorf("unknown %s %q, expected %s, %s or %s", ParamRetryPolicy, policy, policyDisabled, policyConstant, policyExponential)
}
