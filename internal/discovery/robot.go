package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Robot represents a discovered robot on the network
type Robot struct {
	// Name is the robot's advertised name (e.g., "opentrons-moon-moon")
	Name string

	// Hostname is the mDNS hostname (e.g., "moon-moon.local.")
	Hostname string

	// IP is the robot address, IPv4 preferred (e.g., "192.168.1.20")
	IP string

	// Port is the robot HTTP API port (typically 31950)
	Port int

	// Metadata contains mDNS TXT record data
	Metadata map[string]string

	// HealthAPIVersion is the API version reported by GET /health.
	// Populated by the caller after probing the robot, empty until then.
	HealthAPIVersion string

	// DiscoveredAt is when the robot was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the robot
func (r *Robot) String() string {
	return fmt.Sprintf("Robot %s (%s) at %s", r.Name, r.Hostname, r.Address())
}

// Address returns host:port, bracketing IPv6 addresses
func (r *Robot) Address() string {
	return net.JoinHostPort(r.IP, strconv.Itoa(r.Port))
}

// BaseURL returns the HTTP base URL for the robot API
func (r *Robot) BaseURL() string {
	return "http://" + r.Address()
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (r *Robot) GetMetadata(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}

// RobotAPIVersion returns the robot's API version: the health-reported version
// if known, otherwise the "api_version" TXT record, otherwise "".
func RobotAPIVersion(r *Robot) string {
	if r == nil {
		return ""
	}
	if r.HealthAPIVersion != "" {
		return r.HealthAPIVersion
	}
	return r.GetMetadata("api_version")
}
