package robotapi

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantType    ErrorType
		wantSubtype NetworkErrorSubtype
		wantRetry   bool
	}{
		{
			name:        "timeout",
			err:         timeoutErr{},
			wantType:    ErrTypeTimeout,
			wantSubtype: NetworkErrorTimeout,
			wantRetry:   true,
		},
		{
			name:        "dns",
			err:         &net.DNSError{Name: "robot.local", Err: "no such host"},
			wantType:    ErrTypeDNS,
			wantSubtype: NetworkErrorDNS,
			wantRetry:   false,
		},
		{
			name:        "connection refused",
			err:         &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			wantType:    ErrTypeConnectionRefused,
			wantSubtype: NetworkErrorConnectionRefused,
			wantRetry:   true,
		},
		{
			name:        "host unreachable",
			err:         &net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH},
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorHostUnreachable,
			wantRetry:   true,
		},
		{
			name:        "wrapped in url error",
			err:         &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: syscall.ENETUNREACH}},
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorNetworkUnreachable,
			wantRetry:   true,
		},
		{
			name:        "generic",
			err:         errors.New("connection reset"),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorGeneral,
			wantRetry:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "10.0.0.5:31950")
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.NetworkSubtype != tt.wantSubtype {
				t.Errorf("NetworkSubtype = %v, want %v", got.NetworkSubtype, tt.wantSubtype)
			}
			if got.Retryable != tt.wantRetry {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetry)
			}
		})
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if got := ClassifyNetworkError(nil, ""); got != nil {
		t.Errorf("ClassifyNetworkError(nil) = %v, want nil", got)
	}
}

func TestNewHTTPError_Retryable(t *testing.T) {
	if NewHTTPError(400, "bad").Retryable {
		t.Error("4xx should not be retryable")
	}
	if !NewHTTPError(503, "busy").Retryable {
		t.Error("5xx should be retryable")
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("configure: %w", NewValidationError("SSID cannot be empty"))

	if !IsValidationError(err) {
		t.Error("IsValidationError should unwrap")
	}
	if IsNetworkError(err) || IsHTTPError(err) || IsParseError(err) {
		t.Error("validation error matched another predicate")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestRobotError_Error(t *testing.T) {
	err := NewParseError("failed to parse JSON response", errors.New("unexpected EOF"))
	want := "Parse Error: failed to parse JSON response (caused by: unexpected EOF)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, err.Err) {
		t.Error("Unwrap should expose the cause")
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"timeout", &RobotError{Type: ErrTypeTimeout}, "did not respond in time"},
		{"refused", &RobotError{Type: ErrTypeConnectionRefused}, "31950"},
		{"unreachable", &RobotError{Type: ErrTypeNetwork, NetworkSubtype: NetworkErrorHostUnreachable, Host: "10.0.0.5"}, "ping 10.0.0.5"},
		{"server error", NewHTTPError(500, "boom"), "HTTP 500"},
		{"client error", NewHTTPError(422, "bad"), "HTTP 422"},
		{"plain", errors.New("x"), "unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if hint := GetTroubleshootingHint(tt.err); !strings.Contains(hint, tt.contains) {
				t.Errorf("hint %q does not contain %q", hint, tt.contains)
			}
		})
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	if got := GetShortErrorMessage(&RobotError{Type: ErrTypeTimeout}); got != "Robot not responding (timeout)" {
		t.Errorf("timeout message = %q", got)
	}
	if got := GetShortErrorMessage(&RobotError{Type: ErrTypeHTTP, StatusCode: 502}); got != "Robot error (HTTP 502)" {
		t.Errorf("http message = %q", got)
	}
	if got := GetShortErrorMessage(errors.New("plain")); got != "plain" {
		t.Errorf("plain message = %q", got)
	}
}
