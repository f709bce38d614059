// Package retry implements the retry scheduler: it turns an error
// category, a set of response headers, and an attempt count into either a
// delay to wait before retrying, or a terminal verdict. It never sleeps
// itself — the event loop installs the resulting delay as a timer.
package retry

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ikigai-cli/ikigai/internal/errs"
)

const (
	baseDelay  = time.Second
	capDelay   = 60 * time.Second
	maxAttempt = 5
)

// Decision is the outcome of a retry computation.
type Decision struct {
	Delay    time.Duration
	Terminal bool // true: do not retry, surface to the agent
}

func jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(baseDelay)))
}

// Compute decides the outcome for a failed request of the given category,
// having made `attempt` previous attempts (0-based), with the HTTP
// response headers from the failing response (may be nil).
func Compute(category errs.Code, headers http.Header, attempt int) Decision {
	if !errs.IsRetryable(category) {
		return Decision{Terminal: true}
	}
	if attempt >= maxAttempt {
		return Decision{Terminal: true}
	}

	if d, ok := headerDelay(headers); ok {
		return Decision{Delay: d}
	}

	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if backoff > capDelay {
		backoff = capDelay
	}
	return Decision{Delay: backoff + jitter()}
}

// headerDelay parses Retry-After and the provider rate-limit reset
// headers, returning the minimum of whichever hints parse successfully.
func headerDelay(headers http.Header) (time.Duration, bool) {
	if headers == nil {
		return 0, false
	}

	var best time.Duration
	found := false

	consider := func(d time.Duration, ok bool) {
		if !ok {
			return
		}
		if !found || d < best {
			best = d
			found = true
		}
	}

	if ra := headers.Get("Retry-After"); ra != "" {
		consider(parseRetryAfter(ra))
	}
	if v := headers.Get("x-ratelimit-reset-requests"); v != "" {
		consider(parseDurationHeader(v))
	}
	if v := headers.Get("x-ratelimit-reset-tokens"); v != "" {
		consider(parseDurationHeader(v))
	}

	return best, found
}

func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// parseDurationHeader parses the `(NUMBER (h|m|s))+` grammar used by
// x-ratelimit-reset-requests / -tokens, case-insensitively. A bare number
// with no unit is invalid. Whitespace around the value is tolerated.
// An empty value (after trimming whitespace) parses as zero, matching the
// original implementation's "empty is zero" edge case rather than an
// error.
func parseDurationHeader(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, true
	}
	lower := strings.ToLower(v)

	var total time.Duration
	i := 0
	sawUnit := false
	for i < len(lower) {
		start := i
		for i < len(lower) && lower[i] >= '0' && lower[i] <= '9' {
			i++
		}
		if i == start {
			return 0, false // no digits where a number was expected
		}
		numStr := lower[start:i]
		if i >= len(lower) {
			return 0, false // number with no unit
		}
		unit := lower[i]
		i++
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, false
		}
		switch unit {
		case 'h':
			total += time.Duration(n) * time.Hour
		case 'm':
			total += time.Duration(n) * time.Minute
		case 's':
			total += time.Duration(n) * time.Second
		default:
			return 0, false
		}
		sawUnit = true
	}
	if !sawUnit {
		return 0, false
	}
	return total, true
}
