package robotapi

import (
	"fmt"
	"strings"
)

// SecurityType is the security scheme a robot reports for a wireless network.
// The empty value means the security type is unknown or was not found.
type SecurityType string

const (
	// SecurityNone is an open network; no credentials are needed
	SecurityNone SecurityType = "none"
	// SecurityWPAPSK is a WPA/WPA2 personal network secured by a pre-shared key
	SecurityWPAPSK SecurityType = "wpa-psk"
	// SecurityWPAEAP is a WPA enterprise network authenticated via EAP
	SecurityWPAEAP SecurityType = "wpa-eap"
	// SecurityUnsupported is a network the robot can see but cannot join
	SecurityUnsupported SecurityType = "unsupported"
)

// String returns a human-readable name for the security type
func (s SecurityType) String() string {
	switch s {
	case SecurityNone:
		return "Open"
	case SecurityWPAPSK:
		return "WPA Personal"
	case SecurityWPAEAP:
		return "WPA Enterprise"
	case SecurityUnsupported:
		return "Unsupported"
	case "":
		return "Unknown"
	default:
		return string(s)
	}
}

// WifiNetwork is one network visible to the robot, as returned by GET /wifi/list.
type WifiNetwork struct {
	SSID         string       `json:"ssid"`
	Signal       int          `json:"signal"`
	Active       bool         `json:"active"`
	Security     string       `json:"security"`     // Raw security flags (e.g., "WPA2 802.1X")
	SecurityType SecurityType `json:"securityType"` // Normalized security scheme
}

// WifiListResponse is the body of GET /wifi/list
type WifiListResponse struct {
	List []WifiNetwork `json:"list"`
}

// EapConfig carries the EAP method and its option values.
// The "eapType" key selects the method; remaining keys are method options.
type EapConfig map[string]string

// EapType returns the configured EAP method name
func (c EapConfig) EapType() string {
	return c["eapType"]
}

// ConfigureRequest is the body of POST /wifi/configure
type ConfigureRequest struct {
	SSID         string       `json:"ssid"`
	Hidden       bool         `json:"hidden,omitempty"`
	SecurityType SecurityType `json:"securityType,omitempty"`
	PSK          string       `json:"psk,omitempty"`
	EapConfig    EapConfig    `json:"eapConfig,omitempty"`
}

// Validate checks the request before it is sent to the robot
func (r *ConfigureRequest) Validate() error {
	if r.SSID == "" {
		return NewValidationError("SSID cannot be empty")
	}
	if len(r.SSID) > 32 {
		return NewValidationError(fmt.Sprintf("SSID too long (max 32 chars): %d chars", len(r.SSID)))
	}

	switch r.SecurityType {
	case SecurityWPAPSK:
		if len(r.PSK) < 8 {
			return NewValidationError(fmt.Sprintf("WPA passphrase too short (min 8 chars): %d chars", len(r.PSK)))
		}
		if len(r.PSK) > 63 {
			return NewValidationError(fmt.Sprintf("WPA passphrase too long (max 63 chars): %d chars", len(r.PSK)))
		}
	case SecurityWPAEAP:
		if r.EapConfig.EapType() == "" {
			return NewValidationError("EAP method is required for WPA Enterprise networks")
		}
	case SecurityUnsupported:
		return NewValidationError("the robot does not support this network's security")
	}

	return nil
}

// ConfigureResponse is the body returned by POST /wifi/configure
type ConfigureResponse struct {
	SSID    string `json:"ssid"`
	Message string `json:"message"`
}

// DisconnectRequest is the body of POST /wifi/disconnect
type DisconnectRequest struct {
	SSID string `json:"ssid"`
}

// DisconnectResponse is the body returned by POST /wifi/disconnect
type DisconnectResponse struct {
	Message string `json:"message"`
}

// EapField describes one input an EAP method needs
type EapField struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "password" or "file"
}

// IsFile reports whether the field references an uploaded key file
func (f EapField) IsFile() bool {
	return f.Type == "file"
}

// IsSecret reports whether the field value should be masked on input
func (f EapField) IsSecret() bool {
	return f.Type == "password"
}

// EapOption is one EAP method supported by the robot
type EapOption struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	Options     []EapField `json:"options"`
}

// EapOptionsResponse is the body of GET /wifi/eap-options
type EapOptionsResponse struct {
	Options []EapOption `json:"options"`
}

// FindEapOption returns the option with the given method name, or nil
func FindEapOption(options []EapOption, name string) *EapOption {
	for i := range options {
		if options[i].Name == name {
			return &options[i]
		}
	}
	return nil
}

// WifiKey is a key file previously uploaded to the robot
type WifiKey struct {
	URI  string `json:"uri"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KeysResponse is the body of GET /wifi/keys
type KeysResponse struct {
	Keys []WifiKey `json:"keys"`
}

// Health is the body of GET /health
type Health struct {
	Name          string `json:"name"`
	APIVersion    string `json:"api_version"`
	FWVersion     string `json:"fw_version"`
	SystemVersion string `json:"system_version"`
}

// messageBody is the shape of robot error responses
type messageBody struct {
	Message string `json:"message"`
}

// FormatSignal renders a signal strength (0-100) as a short bar
func FormatSignal(signal int) string {
	switch {
	case signal >= 75:
		return "▂▄▆█"
	case signal >= 50:
		return "▂▄▆ "
	case signal >= 25:
		return "▂▄  "
	case signal > 0:
		return "▂   "
	default:
		return strings.Repeat(" ", 4)
	}
}
