package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSleep records requested delays without waiting.
type fakeSleep struct {
	delays []time.Duration
}

func (f *fakeSleep) sleep(_ context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return nil
}

func newTestRetryer(sleep *fakeSleep) Retryer {
	r := NewRetryer()
	r.Sleep = sleep.sleep
	return r
}

func TestExponentialBackoff(t *testing.T) {
	backoff := ExponentialBackoff(2 * time.Second)
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(2))
	assert.Equal(t, 8*time.Second, backoff(3))
}

func TestRetryer_SucceedsAfterTransientFailures(t *testing.T) {
	sleep := &fakeSleep{}
	r := newTestRetryer(sleep)

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return Classify(429, "rate limited", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleep.delays)
}

func TestRetryer_Exhaustion(t *testing.T) {
	sleep := &fakeSleep{}
	r := newTestRetryer(sleep)

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return Classify(429, "rate limited", nil)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, 3, calls, "three attempts, then give up")
	assert.Len(t, sleep.delays, 2, "no sleep after the final attempt")
}

func TestRetryer_AuthNeverRetried(t *testing.T) {
	sleep := &fakeSleep{}
	r := newTestRetryer(sleep)

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return Classify(401, "invalid api key", nil)
	})

	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleep.delays)
}

func TestRetryer_FatalNotRetried(t *testing.T) {
	r := newTestRetryer(&fakeSleep{})
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return errors.New("malformed response")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		kind    ErrorKind
	}{
		{"unauthorized", 401, "", KindAuth},
		{"forbidden", 403, "", KindAuth},
		{"rate limited", 429, "", KindTransient},
		{"server error", 503, "", KindTransient},
		{"timeout status", 408, "", KindTransient},
		{"bad request", 400, "", KindFatal},
		{"message rate limit", 0, "Rate limit exceeded, retry later", KindTransient},
		{"message quota", 0, "quota exhausted", KindTransient},
		{"message auth", 0, "UNAUTHENTICATED: invalid api key", KindAuth},
		{"message unknown", 0, "something odd", KindFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Classify(tt.status, tt.message, nil).Kind)
		})
	}
}

func TestCaller_PreflightAuthFailure(t *testing.T) {
	client := NewScriptedClient()
	client.PingErr = Classify(401, "invalid api key", nil)

	caller := NewCaller(client)
	err := caller.Preflight(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestCaller_CallRetriesTransient(t *testing.T) {
	client := NewScriptedClient().
		AddError(Classify(429, "rate limited", nil)).
		AddText("done")

	sleep := &fakeSleep{}
	caller := NewCaller(client, func(o *CallerOptions) {
		o.Retryer = newTestRetryer(sleep)
	})

	resp, err := caller.Call(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, TextResponse{Text: "done"}, resp)
	assert.Len(t, sleep.delays, 1)
}

func TestCaller_CallExhaustsRetries(t *testing.T) {
	client := NewScriptedClient()
	for i := 0; i < 4; i++ {
		client.AddError(Classify(429, "rate limited", nil))
	}

	caller := NewCaller(client, func(o *CallerOptions) {
		o.Retryer = newTestRetryer(&fakeSleep{})
	})

	_, err := caller.Call(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
}
