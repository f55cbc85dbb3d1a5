// Package config provides user configuration management for robowifi.
//
// This package manages a YAML-based configuration file holding development
// feature flags, application preferences and the last known address and API
// version of each robot. The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/robowifi/config.yaml or $HOME/.config/robowifi/config.yaml
//   - macOS: $HOME/.config/robowifi/config.yaml
//   - Windows: %LOCALAPPDATA%\robowifi\config.yaml
//
// # Example File
//
//	version: 1
//	dev_internal:
//	  enable_wifi_disconnect: true
//	preferences:
//	  list_refresh_seconds: 15
//	  discover_timeout: 10
//	robots:
//	  opentrons-moon-moon:
//	    last_ip: 192.168.1.20
//	    api_version: 3.17.0
//	    last_ssid: lab-wpa
//
// # Security
//
// This package NEVER stores WiFi passphrases or EAP credentials. They are
// always prompted from the user when needed.
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are protected by a mutex and go through a temporary file.
package config
