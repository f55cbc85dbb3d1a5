package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/muurk/robowifi/internal/config"
	"github.com/muurk/robowifi/internal/requests"
	"github.com/muurk/robowifi/internal/robotapi"
	"github.com/muurk/robowifi/internal/selectnetwork"
)

var scanned = []selectnetwork.NetworkEntry{
	{SSID: "lab-wpa", Signal: 80, Active: true, SecurityType: robotapi.SecurityWPAPSK},
	{SSID: "guest", Signal: 40, SecurityType: robotapi.SecurityNone},
	{SSID: "corp", Signal: 60, SecurityType: robotapi.SecurityWPAEAP},
}

func TestSecurityFor(t *testing.T) {
	tests := []struct {
		name    string
		ssid    string
		opts    connectOptions
		want    robotapi.SecurityType
		wantErr string
	}{
		{name: "from scan psk", ssid: "lab-wpa", want: robotapi.SecurityWPAPSK},
		{name: "from scan open", ssid: "guest", want: robotapi.SecurityNone},
		{name: "from scan eap", ssid: "corp", want: robotapi.SecurityWPAEAP},
		{name: "flag wins", ssid: "guest", opts: connectOptions{security: "wpa-psk"}, want: robotapi.SecurityWPAPSK},
		{name: "invalid flag", ssid: "guest", opts: connectOptions{security: "wep"}, wantErr: "invalid --security"},
		{name: "not visible", ssid: "lab-hidden", wantErr: "--hidden"},
		{name: "hidden open", ssid: "lab-hidden", opts: connectOptions{hidden: true}, want: robotapi.SecurityNone},
		{name: "hidden psk", ssid: "lab-hidden", opts: connectOptions{hidden: true, psk: "password1"}, want: robotapi.SecurityWPAPSK},
		{name: "hidden eap", ssid: "lab-hidden", opts: connectOptions{hidden: true, eap: map[string]string{"eapType": "peap"}}, want: robotapi.SecurityWPAEAP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := securityFor(tt.ssid, scanned, tt.opts)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("securityFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildConfigureRequest(t *testing.T) {
	opts := connectOptions{
		psk:    "password1",
		eap:    map[string]string{"eapType": "peap", "identity": "me"},
		hidden: true,
	}

	psk := buildConfigureRequest("lab", robotapi.SecurityWPAPSK, opts)
	if psk.PSK != "password1" || psk.EapConfig != nil {
		t.Errorf("psk request = %+v, want only the passphrase", psk)
	}
	if !psk.Hidden {
		t.Error("Hidden should follow the flag")
	}

	eap := buildConfigureRequest("corp", robotapi.SecurityWPAEAP, opts)
	if eap.PSK != "" {
		t.Errorf("eap request carries a passphrase: %+v", eap)
	}
	if eap.EapConfig.EapType() != "peap" || eap.EapConfig["identity"] != "me" {
		t.Errorf("EapConfig = %v", eap.EapConfig)
	}

	// The request must not alias the flag map
	eap.EapConfig["identity"] = "changed"
	if opts.eap["identity"] != "me" {
		t.Error("flag map was modified through the request")
	}

	open := buildConfigureRequest("guest", robotapi.SecurityNone, opts)
	if open.PSK != "" || open.EapConfig != nil {
		t.Errorf("open request carries credentials: %+v", open)
	}
}

func TestCheckEapConfig(t *testing.T) {
	options := []robotapi.EapOption{
		{
			Name:        "peap/mschapv2",
			DisplayName: "PEAP/MS-CHAP v2",
			Options: []robotapi.EapField{
				{Name: "identity", Required: true, Type: "string"},
				{Name: "password", Required: true, Type: "password"},
				{Name: "caCert", Type: "file"},
			},
		},
	}

	tests := []struct {
		name    string
		cfg     robotapi.EapConfig
		wantErr string
	}{
		{name: "complete", cfg: robotapi.EapConfig{"eapType": "peap/mschapv2", "identity": "me", "password": "pw"}},
		{name: "no method", cfg: robotapi.EapConfig{"identity": "me"}, wantErr: "eapType"},
		{name: "unsupported method", cfg: robotapi.EapConfig{"eapType": "tls"}, wantErr: "peap/mschapv2"},
		{name: "missing required", cfg: robotapi.EapConfig{"eapType": "peap/mschapv2", "identity": "me"}, wantErr: "needs password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkEapConfig(options, tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
			if !robotapi.IsValidationError(err) {
				t.Errorf("error %v should be a validation error", err)
			}
		})
	}
}

func TestNetworkTable(t *testing.T) {
	table := networkTable(scanned)

	if table.Active != 0 {
		t.Errorf("Active = %d, want 0", table.Active)
	}
	if len(table.Rows) != len(scanned) {
		t.Fatalf("rows = %d, want %d", len(table.Rows), len(scanned))
	}
	if table.Rows[2][1] != "WPA Enterprise" {
		t.Errorf("security cell = %q, want WPA Enterprise", table.Rows[2][1])
	}
}

func TestDescribeFields(t *testing.T) {
	got := describeFields([]robotapi.EapField{
		{Name: "identity", Required: true},
		{Name: "caCert", Type: "file"},
	})
	if got != "identity*, caCert (file)" {
		t.Errorf("describeFields() = %q", got)
	}
}

func TestLookupRobot(t *testing.T) {
	registry := config.NewRegistry()
	registry.UpdateRobotLastSeen("opentrons-moon-moon", "192.168.1.20", "4.0.0")
	env := &environment{registry: registry}

	tests := []struct {
		name     string
		value    string
		wantName string
		wantIP   string
		wantPort int
		wantErr  bool
	}{
		{name: "known ip", value: "192.168.1.20", wantName: "opentrons-moon-moon", wantIP: "192.168.1.20", wantPort: 31950},
		{name: "unknown ip", value: "10.0.0.5", wantName: "10.0.0.5", wantIP: "10.0.0.5", wantPort: 31950},
		{name: "ip and port", value: "10.0.0.5:8080", wantName: "10.0.0.5", wantIP: "10.0.0.5", wantPort: 8080},
		{name: "known name", value: "opentrons-moon-moon", wantName: "opentrons-moon-moon", wantIP: "192.168.1.20", wantPort: 31950},
		{name: "unknown name", value: "opentrons-other", wantErr: true},
		{name: "bad port", value: "10.0.0.5:http", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			robot, err := env.lookupRobot(tt.value, robotapi.DefaultPort)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %+v", robot)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if robot.Name != tt.wantName || robot.IP != tt.wantIP || robot.Port != tt.wantPort {
				t.Errorf("robot = %s/%s/%d, want %s/%s/%d",
					robot.Name, robot.IP, robot.Port, tt.wantName, tt.wantIP, tt.wantPort)
			}
		})
	}
}

func TestCheckFormat(t *testing.T) {
	defer func(prev string) { outputFormat = prev }(outputFormat)

	for _, format := range []string{formatTable, formatJSON} {
		outputFormat = format
		if err := checkFormat(); err != nil {
			t.Errorf("checkFormat(%q) = %v", format, err)
		}
	}

	outputFormat = "yaml"
	if err := checkFormat(); err == nil {
		t.Error("checkFormat should reject yaml")
	}
}

// stubAPI serves a fixed list and fails the keys fetch with keysErr
type stubAPI struct {
	keysErr error
}

func (a *stubAPI) FetchWifiList(ctx context.Context) ([]robotapi.WifiNetwork, error) {
	return scanned, nil
}

func (a *stubAPI) ConfigureWifi(ctx context.Context, req robotapi.ConfigureRequest) (*robotapi.ConfigureResponse, error) {
	return &robotapi.ConfigureResponse{SSID: req.SSID}, nil
}

func (a *stubAPI) DisconnectWifi(ctx context.Context, ssid string) (*robotapi.DisconnectResponse, error) {
	return &robotapi.DisconnectResponse{}, nil
}

func (a *stubAPI) FetchEapOptions(ctx context.Context) ([]robotapi.EapOption, error) {
	return []robotapi.EapOption{{Name: "peap/mschapv2"}}, nil
}

func (a *stubAPI) FetchKeys(ctx context.Context) ([]robotapi.WifiKey, error) {
	return nil, a.keysErr
}

func (a *stubAPI) AddKey(ctx context.Context, name string, r io.Reader) (*robotapi.WifiKey, error) {
	return &robotapi.WifiKey{Name: name}, nil
}

func TestRobotSessionAwait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	keysErr := robotapi.NewHTTPError(500, "keys unavailable")
	tracker := requests.NewTracker()
	s := &robotSession{
		tracker: tracker,
		ctrl:    selectnetwork.NewController("opentrons-test", &stubAPI{keysErr: keysErr}, tracker),
	}

	refresh := s.ctrl.Refresh()
	if err := s.await(ctx, refresh); err != nil {
		t.Fatalf("await(refresh) error = %v", err)
	}
	if len(s.ctrl.List()) != len(scanned) {
		t.Errorf("List() = %v", s.ctrl.List())
	}
	if _, ok := tracker.Get(refresh); ok {
		t.Error("reconciled refresh should leave the tracker")
	}

	err := s.await(ctx, s.ctrl.FetchCredentialMetadata()...)
	if !errors.Is(err, keysErr) {
		t.Errorf("await(metadata) error = %v, want the keys failure", err)
	}
	if len(s.ctrl.EapOptions()) != 1 {
		t.Errorf("EapOptions() = %v, want the options that did arrive", s.ctrl.EapOptions())
	}
}
