package retry

import (
	"net/http"
	"testing"
	"time"

	"github.com/ikigai-cli/ikigai/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestComputeNonRetryableIsTerminal(t *testing.T) {
	d := Compute(errs.Auth, nil, 0)
	require.True(t, d.Terminal)
}

func TestComputeAttemptCapIsTerminal(t *testing.T) {
	d := Compute(errs.Server, nil, maxAttempt)
	require.True(t, d.Terminal)
}

func TestHeaderDelayPrefersMinimum(t *testing.T) {
	h := http.Header{}
	h.Set("x-ratelimit-reset-requests", "30s")
	h.Set("x-ratelimit-reset-tokens", "60s")
	d := Compute(errs.RateLimit, h, 0)
	require.False(t, d.Terminal)
	require.Equal(t, 30*time.Second, d.Delay)

	h2 := http.Header{}
	h2.Set("x-ratelimit-reset-requests", "60s")
	h2.Set("x-ratelimit-reset-tokens", "30s")
	d2 := Compute(errs.RateLimit, h2, 0)
	require.Equal(t, 30*time.Second, d2.Delay)
}

func TestHeaderDelayComplexDuration(t *testing.T) {
	h := http.Header{}
	h.Set("x-ratelimit-reset-tokens", "1h30m45s")
	d := Compute(errs.RateLimit, h, 0)
	require.Equal(t, 5445*time.Second, d.Delay)
}

func TestHeaderDelayHoursOnly(t *testing.T) {
	got, ok := parseDurationHeader("1h")
	require.True(t, ok)
	require.Equal(t, time.Hour, got)
}

func TestHeaderDelayInvalidDuration(t *testing.T) {
	_, ok := parseDurationHeader("invalid")
	require.False(t, ok)
}

func TestHeaderDelayUnknownUnit(t *testing.T) {
	_, ok := parseDurationHeader("30x")
	require.False(t, ok)
}

func TestHeaderDelayBareNumberInvalid(t *testing.T) {
	_, ok := parseDurationHeader("30")
	require.False(t, ok)
}

func TestHeaderDelayWhitespaceAndCase(t *testing.T) {
	got, ok := parseDurationHeader("   \t  30s")
	require.True(t, ok)
	require.Equal(t, 30*time.Second, got)

	h := http.Header{}
	h.Set("X-Ratelimit-Reset-Requests", "30s")
	d := Compute(errs.RateLimit, h, 0)
	require.Equal(t, 30*time.Second, d.Delay)
}

func TestHeaderDelayEmptyValueIsZero(t *testing.T) {
	got, ok := parseDurationHeader("")
	require.True(t, ok)
	require.Equal(t, time.Duration(0), got)

	got2, ok2 := parseDurationHeader("   \t  ")
	require.True(t, ok2)
	require.Equal(t, time.Duration(0), got2)
}

func TestNoHeadersFallsBackToExponentialBackoff(t *testing.T) {
	d := Compute(errs.RateLimit, nil, 0)
	require.False(t, d.Terminal)
	require.GreaterOrEqual(t, d.Delay, time.Second)
	require.Less(t, d.Delay, 2*time.Second)
}

func TestRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(5 * time.Minute).UTC().Format(http.TimeFormat)
	h := http.Header{}
	h.Set("Retry-After", future)
	d := Compute(errs.Server, h, 0)
	require.False(t, d.Terminal)
	require.Greater(t, d.Delay, 4*time.Minute)
	require.LessOrEqual(t, d.Delay, 5*time.Minute+time.Second)
}
