package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// HTTPError is returned for network failures (StatusCode 0), timeouts and
// non-2xx responses.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%v %v failed: %v", e.Method, e.Path, e.Err)
	}

	return fmt.Sprintf("request failed with status '%v' and body:\n%v", e.StatusCode, string(e.Body))
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) Timeout() bool {
	if e.Err == nil {
		return false
	}

	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Message extracts the server's explanation from a JSON error body. It
// understands a string under message, detail or error, and a list of
// {msg} objects under detail.
func (e *HTTPError) Message() string {
	if len(e.Body) == 0 {
		return ""
	}

	var body map[string]json.RawMessage

	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}

	for _, key := range []string{"message", "detail", "error"} {
		raw, ok := body[key]

		if !ok {
			continue
		}

		var text string

		if err := json.Unmarshal(raw, &text); err == nil && len(text) > 0 {
			return text
		}

		var items []struct {
			Msg string `json:"msg"`
		}

		if err := json.Unmarshal(raw, &items); err == nil {
			msgs := make([]string, 0, len(items))

			for _, item := range items {
				if len(item.Msg) > 0 {
					msgs = append(msgs, item.Msg)
				}
			}

			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	return ""
}

// Describe turns err into a message fit for the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var httpErr *HTTPError

	if !errors.As(err, &httpErr) {
		return err.Error()
	}

	if httpErr.Timeout() {
		return "The server took too long to respond. Try again."
	}

	if httpErr.StatusCode == 0 {
		return "Could not reach the server. Check your connection and the API address."
	}

	if msg := httpErr.Message(); len(msg) > 0 {
		return msg
	}

	switch {
	case httpErr.StatusCode == http.StatusUnauthorized:
		return "Your session has expired. Log in again."
	case httpErr.StatusCode == http.StatusForbidden:
		return "You are not allowed to do that."
	case httpErr.StatusCode == http.StatusNotFound:
		return "Not found."
	case httpErr.StatusCode >= http.StatusInternalServerError:
		return "The server failed to process the request. Try again later."
	}

	return fmt.Sprintf("Request failed with status %d.", httpErr.StatusCode)
}
