package selectnetwork

import (
	"strings"

	"golang.org/x/mod/semver"
)

// ShowWifiDisconnect reports whether the disconnect control should be offered.
// enableFlag is the dev_internal override; apiVersion is the robot's reported
// API version. A version that does not parse never qualifies on its own.
func ShowWifiDisconnect(enableFlag bool, apiVersion string) bool {
	return enableFlag || versionAtLeast(apiVersion, APIMinVersion)
}

func versionAtLeast(version, min string) bool {
	v := canonical(version)
	if !semver.IsValid(v) {
		return false
	}
	return semver.Compare(v, canonical(min)) >= 0
}

// canonical adds the "v" prefix x/mod/semver requires
func canonical(version string) string {
	version = strings.TrimSpace(version)
	if version == "" || strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
