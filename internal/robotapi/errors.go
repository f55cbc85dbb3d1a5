package robotapi

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection reset, unreachable, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates the robot answered with a non-2xx status
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed response body
	ErrTypeParse
	// ErrTypeValidation indicates an invalid request rejected before sending
	ErrTypeValidation
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the robot refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// RobotError represents an error that occurred while talking to a robot
type RobotError struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (if applicable)
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Host           string              // Robot address (for context)
	Retryable      bool                // Whether the error is retryable
}

// Error implements the error interface
func (e *RobotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *RobotError) Unwrap() error {
	return e.Err
}

// socketErrors maps dial failures to their classification. All are retryable.
var socketErrors = []struct {
	errno   syscall.Errno
	errType ErrorType
	subtype NetworkErrorSubtype
	message string
}{
	{syscall.ECONNREFUSED, ErrTypeConnectionRefused, NetworkErrorConnectionRefused, "Robot refused connection"},
	{syscall.EHOSTUNREACH, ErrTypeNetwork, NetworkErrorHostUnreachable, "Host unreachable"},
	{syscall.ENETUNREACH, ErrTypeNetwork, NetworkErrorNetworkUnreachable, "Network unreachable"},
}

// ClassifyNetworkError analyzes an error and returns a more specific error type
func ClassifyNetworkError(err error, host string) *RobotError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &RobotError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Host:           host,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &RobotError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Host:           host,
			Retryable:      false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		for _, c := range socketErrors {
			if errors.Is(opErr.Err, c.errno) {
				return &RobotError{
					Type:           c.errType,
					Message:        c.message,
					Err:            err,
					NetworkSubtype: c.subtype,
					Host:           host,
					Retryable:      true,
				}
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, host)
	}

	return &RobotError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Host:           host,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *RobotError {
	classified := ClassifyNetworkError(err, "")
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &RobotError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *RobotError {
	return &RobotError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *RobotError {
	return &RobotError{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *RobotError {
	return &RobotError{
		Type:      ErrTypeValidation,
		Message:   message,
		Retryable: false,
	}
}

func asRobotError(err error) (*RobotError, bool) {
	var robotErr *RobotError
	if errors.As(err, &robotErr) {
		return robotErr, true
	}
	return nil, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS, etc.)
func IsNetworkError(err error) bool {
	if robotErr, ok := asRobotError(err); ok {
		return robotErr.Type == ErrTypeNetwork ||
			robotErr.Type == ErrTypeTimeout ||
			robotErr.Type == ErrTypeConnectionRefused ||
			robotErr.Type == ErrTypeDNS
	}
	return false
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	if robotErr, ok := asRobotError(err); ok {
		return robotErr.Type == ErrTypeHTTP
	}
	return false
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	if robotErr, ok := asRobotError(err); ok {
		return robotErr.Type == ErrTypeParse
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	if robotErr, ok := asRobotError(err); ok {
		return robotErr.Type == ErrTypeValidation
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if robotErr, ok := asRobotError(err); ok {
		return robotErr.Retryable
	}
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	robotErr, ok := asRobotError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch robotErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The robot did not respond in time.",
			"Troubleshooting:",
			"  • Check that the robot is powered on",
			"  • Joining a new network can take up to a minute, try again shortly",
			"  • Verify your computer is on the same network as the robot",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The robot refused the connection.",
			"Troubleshooting:",
			"  • The robot server may still be starting, wait and retry",
			"  • Verify the port number (default is 31950)",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the robot hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of hostname",
			"  • Run 'robowifi scan' to find the robot's current address",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}

		switch robotErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The robot is not reachable on the network.",
				"Troubleshooting:",
				"  • The robot may have moved to another network after a WiFi change",
				"  • Connect over USB or ethernet and rescan",
				"  • Try pinging the robot: ping "+robotErr.Host)

		case NetworkErrorNetworkUnreachable:
			hint = append(hint, "Your computer cannot reach the robot's network.",
				"Troubleshooting:",
				"  • Check your network adapter settings",
				"  • Verify WiFi is enabled on your computer")

		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the robot is powered on",
				"  • Ensure you're connected to the same network as the robot")
		}

		return strings.Join(hint, "\n")

	case ErrTypeHTTP:
		if robotErr.StatusCode >= 500 {
			return strings.Join([]string{
				fmt.Sprintf("The robot returned an error (HTTP %d).", robotErr.StatusCode),
				"Troubleshooting:",
				"  • Double-check the network credentials",
				"  • Restart the robot and try again",
			}, "\n")
		}
		return fmt.Sprintf("The robot rejected the request (HTTP %d). Check the request parameters.", robotErr.StatusCode)

	case ErrTypeParse:
		return strings.Join([]string{
			"Failed to parse the robot's response.",
			"This may indicate a software version mismatch.",
			"Troubleshooting:",
			"  • Update the robot software",
			"  • Update this tool",
		}, "\n")

	case ErrTypeValidation:
		return "The network settings are invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	robotErr, ok := asRobotError(err)
	if !ok {
		return err.Error()
	}

	switch robotErr.Type {
	case ErrTypeTimeout:
		return "Robot not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Robot refused connection"
	case ErrTypeDNS:
		return "Cannot resolve robot hostname"
	case ErrTypeNetwork:
		switch robotErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Robot unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check WiFi connection"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		if robotErr.Message != "" {
			return robotErr.Message
		}
		return fmt.Sprintf("Robot error (HTTP %d)", robotErr.StatusCode)
	default:
		return robotErr.Message
	}
}
