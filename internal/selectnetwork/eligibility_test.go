package selectnetwork

import "testing"

func TestShowWifiDisconnect(t *testing.T) {
	tests := []struct {
		name    string
		flag    bool
		version string
		want    bool
	}{
		{"minimum version", false, "3.17.0-alpha.0", true},
		{"later prerelease", false, "3.17.0-alpha.1", true},
		{"release", false, "3.17.0", true},
		{"newer major", false, "4.0.0", true},
		{"v prefix", false, "v3.18.2", true},
		{"older", false, "3.16.1", false},
		{"older prerelease", false, "3.16.99-beta.0", false},
		{"empty version", false, "", false},
		{"garbage version", false, "not-a-version", false},
		{"flag overrides old version", true, "3.15.0", true},
		{"flag overrides missing version", true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShowWifiDisconnect(tt.flag, tt.version); got != tt.want {
				t.Errorf("ShowWifiDisconnect(%v, %q) = %v, want %v", tt.flag, tt.version, got, tt.want)
			}
		})
	}
}
