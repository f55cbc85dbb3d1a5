package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func robotEntry(instance, host string, port int, v4, v6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: instance},
		HostName:      host,
		Port:          port,
		AddrIPv4:      v4,
		AddrIPv6:      v6,
		Text:          txt,
	}
}

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantName string
		wantIP   string
		wantPort int
	}{
		{
			name:     "robot with IPv4",
			entry:    robotEntry("opentrons-moon-moon", "moon-moon.local.", 31950, []net.IP{net.ParseIP("192.168.1.20")}, nil),
			wantName: "opentrons-moon-moon",
			wantIP:   "192.168.1.20",
			wantPort: 31950,
		},
		{
			name:     "robot without port defaults to API port",
			entry:    robotEntry("opentrons-dev", "dev.local.", 0, []net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantName: "opentrons-dev",
			wantIP:   "10.0.0.5",
			wantPort: DefaultPort,
		},
		{
			name:     "IPv6 only robot",
			entry:    robotEntry("opentrons-v6", "v6.local.", 31950, nil, []net.IP{net.ParseIP("fe80::1")}),
			wantName: "opentrons-v6",
			wantIP:   "fe80::1",
			wantPort: 31950,
		},
		{
			name:     "prefers IPv4",
			entry:    robotEntry("opentrons-both", "both.local.", 31950, []net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}),
			wantName: "opentrons-both",
			wantIP:   "192.168.1.50",
			wantPort: 31950,
		},
		{
			name:    "other http service",
			entry:   robotEntry("printer", "printer.local.", 80, []net.IP{net.ParseIP("192.168.1.1")}, nil),
			wantNil: true,
		},
		{
			name:    "empty instance",
			entry:   robotEntry("", "x.local.", 80, []net.IP{net.ParseIP("192.168.1.1")}, nil),
			wantNil: true,
		},
		{
			name:    "no address",
			entry:   robotEntry("opentrons-lost", "lost.local.", 31950, nil, nil),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			robot := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if robot != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", robot)
				}
				return
			}

			if robot == nil {
				t.Fatal("parseServiceEntry() = nil, want robot")
			}
			if robot.Name != tt.wantName {
				t.Errorf("robot.Name = %v, want %v", robot.Name, tt.wantName)
			}
			if robot.IP != tt.wantIP {
				t.Errorf("robot.IP = %v, want %v", robot.IP, tt.wantIP)
			}
			if robot.Port != tt.wantPort {
				t.Errorf("robot.Port = %v, want %v", robot.Port, tt.wantPort)
			}
			if robot.Hostname != tt.entry.HostName {
				t.Errorf("robot.Hostname = %v, want %v", robot.Hostname, tt.entry.HostName)
			}
			if time.Since(robot.DiscoveredAt) > time.Second {
				t.Errorf("robot.DiscoveredAt is not recent: %v", robot.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	entry := robotEntry("opentrons-dev", "dev.local.", 31950, []net.IP{net.ParseIP("10.0.0.5")}, nil,
		"api_version=3.17.0", "model=OT-2", "flag")

	robot := NewScanner().parseServiceEntry(entry)
	if robot == nil {
		t.Fatal("parseServiceEntry() = nil, want robot")
	}

	expected := map[string]string{
		"api_version": "3.17.0",
		"model":       "OT-2",
		"flag":        "",
	}
	if len(robot.Metadata) != len(expected) {
		t.Errorf("robot.Metadata has %d entries, want %d", len(robot.Metadata), len(expected))
	}
	for key, want := range expected {
		if got, ok := robot.Metadata[key]; !ok || got != want {
			t.Errorf("robot.Metadata[%q] = %q (present %v), want %q", key, got, ok, want)
		}
	}
}

func TestNamePattern(t *testing.T) {
	tests := []struct {
		instance    string
		shouldMatch bool
	}{
		{"opentrons-dev", true},
		{"opentrons-moon-moon", true},
		{"opentrons-OT2_lab3", true},
		{"opentrons-", false},
		{"Opentrons-dev", false},
		{"my-opentrons-dev", false},
		{"opentrons--dev", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.instance, func(t *testing.T) {
			if got := namePattern.MatchString(tt.instance); got != tt.shouldMatch {
				t.Errorf("namePattern.MatchString(%q) = %v, want %v", tt.instance, got, tt.shouldMatch)
			}
		})
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
	if scanner.OnFound != nil {
		t.Error("scanner.OnFound should be nil by default")
	}
}
