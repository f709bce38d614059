package errs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsRetryableMatchesTable(t *testing.T) {
	cases := map[Code]bool{
		Auth:          false,
		InvalidArg:    false,
		NotFound:      false,
		RateLimit:     true,
		Server:        true,
		Timeout:       true,
		Network:       true,
		ContentFilter: false,
		Parse:         false,
		Unknown:       false,
		Code("bogus"): false,
	}
	for code, want := range cases {
		require.Equal(t, want, IsRetryable(code), "code %s", code)
	}
}

func TestUserMessageIncludesSuggestion(t *testing.T) {
	msg := UserMessage("anthropic", Auth, "missing key")
	require.Contains(t, msg, "anthropic")
	require.Contains(t, msg, "AUTH")
	require.Contains(t, msg, "missing key")
	require.Contains(t, msg, "ANTHROPIC_API_KEY")
}

func TestErrorFormatting(t *testing.T) {
	err := New(RateLimit, "quota exceeded").WithDetail("retry in 30s")
	require.Equal(t, "RATE_LIMIT: quota exceeded (retry in 30s)", err.Error())
}

func TestClassifyHTTPErrorStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   Code
	}{
		{401, Auth},
		{403, Auth},
		{429, RateLimit},
		{400, InvalidArg},
		{404, NotFound},
		{408, Timeout},
		{500, Server},
		{502, Server},
		{503, Server},
		{418, Unknown},
	}
	for _, c := range cases {
		body := []byte(`{"error": {"message": "oops", "type": "some_error", "code": "some_code"}}`)
		err := ClassifyHTTPError(c.status, body)
		require.Equal(t, c.want, err.Code, "status %d", c.status)
	}
}

func TestClassifyHTTPErrorContentFilterInCode(t *testing.T) {
	body := []byte(`{"error": {"message": "Content filtered", "type": "invalid_request", "code": "content_filter"}}`)
	err := ClassifyHTTPError(400, body)
	require.Equal(t, ContentFilter, err.Code)
}

func TestClassifyHTTPErrorContentFilterInType(t *testing.T) {
	body := []byte(`{"error": {"message": "Content filtered", "type": "content_filter", "code": "blocked"}}`)
	err := ClassifyHTTPError(400, body)
	require.Equal(t, ContentFilter, err.Code)
}

func TestClassifyHTTPErrorContentFilterSubstringMatch(t *testing.T) {
	body := []byte(`{"error": {"message": "Filtered", "type": "error", "code": "test_content_filter_test"}}`)
	err := ClassifyHTTPError(400, body)
	require.Equal(t, ContentFilter, err.Code)
}

func TestClassifyHTTPErrorNoErrorObjectFallsBackToStatus(t *testing.T) {
	body := []byte(`{"message": "Error without error object"}`)
	err := ClassifyHTTPError(500, body)
	require.Equal(t, Server, err.Code)
}

func TestClassifyHTTPErrorNonObjectErrorFieldFallsBackToStatus(t *testing.T) {
	body := []byte(`{"error": "string not object"}`)
	err := ClassifyHTTPError(500, body)
	require.Equal(t, Server, err.Code)
}

func TestClassifyHTTPErrorMalformedJSONIsParse(t *testing.T) {
	err := ClassifyHTTPError(500, []byte("not valid json"))
	require.Equal(t, Parse, err.Code)
}

func TestClassifyHTTPErrorEmptyBodyFallsBackToStatus(t *testing.T) {
	err := ClassifyHTTPError(503, nil)
	require.Equal(t, Server, err.Code)
}

func TestClassifyHTTPErrorNonStringCodeFallsBackToStatus(t *testing.T) {
	body := []byte(`{"error": {"message": "Test", "type": "error", "code": 123}}`)
	err := ClassifyHTTPError(500, body)
	require.Equal(t, Server, err.Code)
}
