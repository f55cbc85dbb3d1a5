package selectnetwork

import "time"

const (
	// JoinOtherValue is the picker value for joining a network that is not in the list
	JoinOtherValue = "__join-other-network__"

	// DisconnectWifiValue is the picker value for leaving the current network
	DisconnectWifiValue = "__disconnect-from-wifi__"

	// APIMinVersion is the first robot API version that supports POST /wifi/disconnect
	APIMinVersion = "3.17.0-alpha.0"

	// ListRefresh is how often the host refreshes the visible network list
	ListRefresh = 15 * time.Second
)

// NetworkingType is the operation a selection leads to
type NetworkingType string

const (
	Connect    NetworkingType = "connect"
	JoinOther  NetworkingType = "join-other"
	Disconnect NetworkingType = "disconnect"
)

var networkingTypes = map[string]NetworkingType{
	JoinOtherValue:      JoinOther,
	DisconnectWifiValue: Disconnect,
}

// NetworkingTypeFor maps a picker value to its operation.
// Anything that is not a sentinel is a plain connect.
func NetworkingTypeFor(value string) NetworkingType {
	if t, ok := networkingTypes[value]; ok {
		return t
	}
	return Connect
}
