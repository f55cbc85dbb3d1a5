package selectnetwork

import "github.com/muurk/robowifi/internal/robotapi"

// NetworkEntry is one network visible to the robot
type NetworkEntry = robotapi.WifiNetwork

// State is the selection state for one robot's network picker.
// Empty strings stand for "no value".
type State struct {
	SSID           string
	PreviousSSID   string
	NetworkingType NetworkingType
	SecurityType   robotapi.SecurityType
	ModalOpen      bool
}

// IdleState is the state after a disconnect completes
func IdleState() State {
	return State{NetworkingType: Connect}
}

// Selection is the outcome of picking a value.
// At most one of the two flags is set, and neither is set when the modal opens.
type Selection struct {
	State

	// FetchCredentialMetadata asks for EAP options and stored keys before configuring
	FetchCredentialMetadata bool

	// ConfigureImmediately asks for the network to be joined right away
	ConfigureImmediately bool
}

// DeriveSelection computes the next state when the user picks chosenValue.
// current is the state held before the pick.
func DeriveSelection(list []NetworkEntry, chosenValue string, current State) Selection {
	ssid := chosenValue
	if chosenValue == JoinOtherValue || chosenValue == DisconnectWifiValue {
		ssid = ""
	}

	securityType := GetSecurityType(list, chosenValue)
	modalOpen := !HasSecurityType(securityType, robotapi.SecurityNone)

	sel := Selection{
		State: State{
			SSID:           ssid,
			PreviousSSID:   current.SSID,
			NetworkingType: NetworkingTypeFor(chosenValue),
			SecurityType:   securityType,
			ModalOpen:      modalOpen,
		},
	}

	if modalOpen {
		return sel
	}

	// Gated on the security type held before this pick, not the new one.
	if HasSecurityType(current.SecurityType, robotapi.SecurityWPAEAP) || current.SecurityType == "" {
		sel.FetchCredentialMetadata = true
	} else {
		sel.ConfigureImmediately = true
	}
	return sel
}

// DeriveCancel restores the selection held before the modal opened
func DeriveCancel(list []NetworkEntry, previousSSID string) State {
	return State{
		SSID:           previousSSID,
		NetworkingType: Connect,
		SecurityType:   GetSecurityType(list, previousSSID),
	}
}

// GetActiveSSID returns the SSID of the first active entry, or "" if none is active
func GetActiveSSID(list []NetworkEntry) string {
	for _, n := range list {
		if n.Active {
			return n.SSID
		}
	}
	return ""
}

// GetSecurityType returns the security type of the first entry named ssid, or ""
func GetSecurityType(list []NetworkEntry, ssid string) robotapi.SecurityType {
	for _, n := range list {
		if n.SSID == ssid {
			return n.SecurityType
		}
	}
	return ""
}

func HasSecurityType(securityType, want robotapi.SecurityType) bool {
	return securityType == want
}
