// Package errs implements the provider-agnostic error taxonomy shared by
// every adapter in the core: a closed set of categories, a retryability
// predicate over that set, and user-facing message construction.
package errs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Code classifies a failure into one of the categories the retry scheduler
// and the REPL error surface both key off of.
type Code string

const (
	Auth          Code = "AUTH"
	InvalidArg    Code = "INVALID_ARG"
	NotFound      Code = "NOT_FOUND"
	RateLimit     Code = "RATE_LIMIT"
	Server        Code = "SERVER"
	Timeout       Code = "TIMEOUT"
	Network       Code = "NETWORK"
	ContentFilter Code = "CONTENT_FILTER"
	Parse         Code = "PARSE"
	Unknown       Code = "UNKNOWN"
)

var retryable = map[Code]bool{
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
}

// IsRetryable reports whether an error of the given category should be
// retried by the scheduler. Unknown codes are treated as non-retryable.
func IsRetryable(code Code) bool {
	return retryable[code]
}

// Error is the payload carried by every failing operation in the core.
// It implements the standard error interface so callers can use normal
// Go error handling (%w, errors.As) instead of a hand-rolled Result type.
type Error struct {
	Code    Code
	Message string
	Detail  string
}

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// ClassifyHTTPError turns an HTTP error-response status and body into an
// *Error, inspecting the provider's JSON error envelope (the
// {"error": {"message", "type", "code"}} shape OpenAI, Anthropic, and
// Google all send in some form) before falling back to a pure
// status-code mapping. Grounded on
// providers/openai/error.c's ik_openai_handle_error: a "type" or "code"
// field containing "content_filter" as a substring always wins regardless
// of status, matching the original's content-filter detection tests; an
// envelope that doesn't parse as JSON at all is itself the failure
// (PARSE), per spec.md §4.4 ("a PARSE error is surfaced only when the
// provider's error envelope itself is malformed"); a present-but-empty
// body (no envelope to malform) skips straight to the status mapping.
func ClassifyHTTPError(status int, body []byte) *Error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return classifyStatus(status, "").WithDetail(string(body))
	}

	var root map[string]any
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return New(Parse, "malformed error response: %v", err).WithDetail(string(body))
	}

	message := ""
	if errObj, ok := root["error"].(map[string]any); ok {
		if m, ok := errObj["message"].(string); ok {
			message = m
		}
		typ, _ := errObj["type"].(string)
		code, _ := errObj["code"].(string)
		if strings.Contains(typ, "content_filter") || strings.Contains(code, "content_filter") {
			if message == "" {
				message = "content filtered"
			}
			return New(ContentFilter, "%s", message).WithDetail(string(body))
		}
	}

	e := classifyStatus(status, message)
	return e.WithDetail(string(body))
}

// classifyStatus maps a bare HTTP status to a category when the error
// envelope carries no more specific signal (missing, unparseable as an
// object, or lacking a content-filter marker). 400 maps to INVALID_ARG
// ("malformed request detected locally or by server", spec.md §4.1) —
// distinct from the 4xx-as-UNKNOWN default, which only applies to status
// codes this taxonomy has no specific category for.
func classifyStatus(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	switch {
	case status == 401 || status == 403:
		return New(Auth, "%s", message)
	case status == 400:
		return New(InvalidArg, "%s", message)
	case status == 404:
		return New(NotFound, "%s", message)
	case status == 408:
		return New(Timeout, "%s", message)
	case status == 429:
		return New(RateLimit, "%s", message)
	case status >= 500:
		return New(Server, "%s", message)
	default:
		return New(Unknown, "%s", message)
	}
}

// suggestion gives a one-line, call-site-independent hint for the REPL to
// append to its error line.
func suggestion(provider string, code Code) string {
	switch code {
	case Auth:
		return fmt.Sprintf("check %s_API_KEY or credentials file", normalizedEnvPrefix(provider))
	case RateLimit:
		return "try again shortly"
	case Server:
		return "retrying"
	case Timeout:
		return "retrying"
	case Network:
		return "retrying"
	case ContentFilter:
		return "the provider refused this request on safety grounds"
	case NotFound:
		return "check the model name"
	case Parse:
		return "the provider returned an unexpected response shape"
	default:
		return ""
	}
}

func normalizedEnvPrefix(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC"
	case "openai":
		return "OPENAI"
	case "google":
		return "GOOGLE"
	default:
		return "the provider's"
	}
}

// UserMessage builds the single-line, user-visible error string the REPL
// surfaces: provider name, category, message, and a category-driven
// suggestion. There is no conditional logic at call sites: every call site
// just passes provider/code/detail through.
func UserMessage(provider string, code Code, detail string) string {
	msg := fmt.Sprintf("[%s] %s", provider, code)
	if detail != "" {
		msg += ": " + detail
	}
	if hint := suggestion(provider, code); hint != "" {
		msg += " (" + hint + ")"
	}
	return msg
}
