package selectnetwork

import (
	"testing"

	"github.com/muurk/robowifi/internal/robotapi"
)

func scenarioList() []NetworkEntry {
	return []NetworkEntry{
		{SSID: "A", Active: true, SecurityType: robotapi.SecurityNone},
		{SSID: "B", SecurityType: robotapi.SecurityWPAPSK},
		{SSID: "C", SecurityType: robotapi.SecurityWPAEAP},
		{SSID: "D", SecurityType: robotapi.SecurityNone},
	}
}

func TestGetActiveSSID(t *testing.T) {
	tests := []struct {
		name string
		list []NetworkEntry
		want string
	}{
		{"one active", scenarioList(), "A"},
		{"none active", []NetworkEntry{{SSID: "A"}, {SSID: "B"}}, ""},
		{"empty", nil, ""},
		{"first active wins", []NetworkEntry{{SSID: "A"}, {SSID: "B", Active: true}, {SSID: "C", Active: true}}, "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetActiveSSID(tt.list); got != tt.want {
				t.Errorf("GetActiveSSID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetSecurityType(t *testing.T) {
	list := scenarioList()

	if got := GetSecurityType(list, "C"); got != robotapi.SecurityWPAEAP {
		t.Errorf("GetSecurityType(C) = %q, want wpa-eap", got)
	}
	if got := GetSecurityType(list, "missing"); got != "" {
		t.Errorf("GetSecurityType(missing) = %q, want empty", got)
	}
	if got := GetSecurityType(list, JoinOtherValue); got != "" {
		t.Errorf("GetSecurityType(sentinel) = %q, want empty", got)
	}
}

func TestNetworkingTypeFor(t *testing.T) {
	tests := map[string]NetworkingType{
		JoinOtherValue:      JoinOther,
		DisconnectWifiValue: Disconnect,
		"A":                 Connect,
		"":                  Connect,
	}
	for value, want := range tests {
		if got := NetworkingTypeFor(value); got != want {
			t.Errorf("NetworkingTypeFor(%q) = %q, want %q", value, got, want)
		}
	}
}

func TestDeriveSelection(t *testing.T) {
	list := scenarioList()
	fromA := State{SSID: "A", NetworkingType: Connect, SecurityType: robotapi.SecurityNone}

	tests := []struct {
		name          string
		value         string
		current       State
		want          State
		wantFetch     bool
		wantConfigure bool
	}{
		{
			name:    "eap network opens modal",
			value:   "C",
			current: fromA,
			want:    State{SSID: "C", PreviousSSID: "A", NetworkingType: Connect, SecurityType: robotapi.SecurityWPAEAP, ModalOpen: true},
		},
		{
			name:    "psk network opens modal",
			value:   "B",
			current: fromA,
			want:    State{SSID: "B", PreviousSSID: "A", NetworkingType: Connect, SecurityType: robotapi.SecurityWPAPSK, ModalOpen: true},
		},
		{
			name:          "open network after open network configures",
			value:         "D",
			current:       fromA,
			want:          State{SSID: "D", PreviousSSID: "A", NetworkingType: Connect, SecurityType: robotapi.SecurityNone},
			wantConfigure: true,
		},
		{
			name:          "open network after psk network configures",
			value:         "D",
			current:       State{SSID: "B", SecurityType: robotapi.SecurityWPAPSK},
			want:          State{SSID: "D", PreviousSSID: "B", NetworkingType: Connect, SecurityType: robotapi.SecurityNone},
			wantConfigure: true,
		},
		{
			name:      "open network after eap network fetches metadata",
			value:     "D",
			current:   State{SSID: "C", SecurityType: robotapi.SecurityWPAEAP},
			want:      State{SSID: "D", PreviousSSID: "C", NetworkingType: Connect, SecurityType: robotapi.SecurityNone},
			wantFetch: true,
		},
		{
			name:      "open network with no previous security fetches metadata",
			value:     "D",
			current:   IdleState(),
			want:      State{SSID: "D", NetworkingType: Connect, SecurityType: robotapi.SecurityNone},
			wantFetch: true,
		},
		{
			name:    "join other",
			value:   JoinOtherValue,
			current: fromA,
			want:    State{SSID: "", PreviousSSID: "A", NetworkingType: JoinOther, ModalOpen: true},
		},
		{
			name:    "disconnect",
			value:   DisconnectWifiValue,
			current: fromA,
			want:    State{SSID: "", PreviousSSID: "A", NetworkingType: Disconnect, ModalOpen: true},
		},
		{
			name:    "unknown network",
			value:   "ghost",
			current: fromA,
			want:    State{SSID: "ghost", PreviousSSID: "A", NetworkingType: Connect, ModalOpen: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveSelection(list, tt.value, tt.current)
			if got.State != tt.want {
				t.Errorf("State = %+v, want %+v", got.State, tt.want)
			}
			if got.FetchCredentialMetadata != tt.wantFetch {
				t.Errorf("FetchCredentialMetadata = %v, want %v", got.FetchCredentialMetadata, tt.wantFetch)
			}
			if got.ConfigureImmediately != tt.wantConfigure {
				t.Errorf("ConfigureImmediately = %v, want %v", got.ConfigureImmediately, tt.wantConfigure)
			}
		})
	}
}

func TestDeriveSelection_ModalOnlyForSecuredNetworks(t *testing.T) {
	list := scenarioList()
	for _, n := range list {
		sel := DeriveSelection(list, n.SSID, IdleState())
		wantOpen := n.SecurityType != robotapi.SecurityNone
		if sel.ModalOpen != wantOpen {
			t.Errorf("%s: ModalOpen = %v, want %v", n.SSID, sel.ModalOpen, wantOpen)
		}
		if sel.ModalOpen && (sel.FetchCredentialMetadata || sel.ConfigureImmediately) {
			t.Errorf("%s: open modal must not dispatch anything", n.SSID)
		}
	}
}

func TestDeriveCancel(t *testing.T) {
	list := scenarioList()

	tests := []struct {
		name     string
		previous string
		want     State
	}{
		{"back to open network", "A", State{SSID: "A", NetworkingType: Connect, SecurityType: robotapi.SecurityNone}},
		{"back to psk network", "B", State{SSID: "B", NetworkingType: Connect, SecurityType: robotapi.SecurityWPAPSK}},
		{"back to nothing", "", State{NetworkingType: Connect}},
		{"network gone from list", "gone", State{SSID: "gone", NetworkingType: Connect}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveCancel(list, tt.previous); got != tt.want {
				t.Errorf("DeriveCancel() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
