package config

import "time"

const (
	defaultDiscoverTimeout    = 10
	defaultListRefreshSeconds = 15
)

// Registry represents the entire user configuration file.
// It stores feature flags, preferences and what is known about each robot.
type Registry struct {
	Version     int               `yaml:"version"`
	DevInternal *DevInternal      `yaml:"dev_internal,omitempty"`
	Preferences *Preferences      `yaml:"preferences,omitempty"`
	Robots      map[string]*Robot `yaml:"robots,omitempty"` // Keyed by robot name
}

// DevInternal holds feature flags meant for development builds.
type DevInternal struct {
	// EnableWifiDisconnect offers the disconnect option regardless of robot API version
	EnableWifiDisconnect bool `yaml:"enable_wifi_disconnect"`
}

// Robot represents what the tool remembers about a single robot.
// Note: WiFi passphrases and EAP secrets are NEVER stored.
type Robot struct {
	LastIP     string    `yaml:"last_ip,omitempty"`     // Last known IP address
	LastSeen   time.Time `yaml:"last_seen,omitempty"`   // Last discovery/connection time
	APIVersion string    `yaml:"api_version,omitempty"` // Last reported robot API version
	LastSSID   string    `yaml:"last_ssid,omitempty"`   // Last network the robot was configured for
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	ListRefreshSeconds int    `yaml:"list_refresh_seconds"`   // Network list refresh interval
	DiscoverTimeout    int    `yaml:"discover_timeout"`       // mDNS discovery timeout in seconds
	HistoryPath        string `yaml:"history_path,omitempty"` // Operation history database, defaults to the config dir
}

func defaultPreferences() *Preferences {
	return &Preferences{
		ListRefreshSeconds: defaultListRefreshSeconds,
		DiscoverTimeout:    defaultDiscoverTimeout,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		DevInternal: &DevInternal{},
		Preferences: defaultPreferences(),
		Robots:      make(map[string]*Robot),
	}
}

// WifiDisconnectEnabled reports the dev_internal.enable_wifi_disconnect flag.
func (r *Registry) WifiDisconnectEnabled() bool {
	return r.DevInternal != nil && r.DevInternal.EnableWifiDisconnect
}

// ListRefreshInterval returns how often the network list is refreshed.
func (r *Registry) ListRefreshInterval() time.Duration {
	if r.Preferences == nil || r.Preferences.ListRefreshSeconds <= 0 {
		return defaultListRefreshSeconds * time.Second
	}
	return time.Duration(r.Preferences.ListRefreshSeconds) * time.Second
}

// DiscoverTimeout returns the mDNS discovery timeout.
func (r *Registry) DiscoverTimeout() time.Duration {
	if r.Preferences == nil || r.Preferences.DiscoverTimeout <= 0 {
		return defaultDiscoverTimeout * time.Second
	}
	return time.Duration(r.Preferences.DiscoverTimeout) * time.Second
}

// GetRobot retrieves robot metadata by name.
// Returns nil if the robot doesn't exist in the registry.
func (r *Registry) GetRobot(name string) *Robot {
	return r.Robots[name]
}

// EnsureRobot ensures a robot entry exists in the registry.
// Returns the robot entry (existing or newly created).
func (r *Registry) EnsureRobot(name string) *Robot {
	if r.Robots == nil {
		r.Robots = make(map[string]*Robot)
	}

	if robot, exists := r.Robots[name]; exists {
		return robot
	}

	robot := &Robot{}
	r.Robots[name] = robot
	return robot
}

// UpdateRobotLastSeen updates the last seen timestamp and IP for a robot.
// An empty apiVersion leaves the stored version untouched.
func (r *Registry) UpdateRobotLastSeen(name, ip, apiVersion string) {
	robot := r.EnsureRobot(name)
	robot.LastSeen = time.Now()
	robot.LastIP = ip
	if apiVersion != "" {
		robot.APIVersion = apiVersion
	}
}

// SetLastSSID records the network a robot was last configured for.
func (r *Registry) SetLastSSID(name, ssid string) {
	r.EnsureRobot(name).LastSSID = ssid
}

// FindRobotByIP returns the name of the robot last seen at ip, or "".
func (r *Registry) FindRobotByIP(ip string) string {
	for name, robot := range r.Robots {
		if robot.LastIP == ip {
			return name
		}
	}
	return ""
}
