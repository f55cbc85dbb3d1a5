// Package discovery provides mDNS-based discovery of robots on the local network.
//
// Robots advertise their HTTP API as "_http._tcp" services whose instance
// name starts with "opentrons-". The scanner browses for those services and
// returns one Robot per name with its address, port and TXT metadata.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	robots, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, r := range robots {
//	    fmt.Printf("Found: %s at %s\n", r.Name, r.BaseURL())
//	}
//
// After a robot joins a different network its address may change; Rediscover
// waits for it to reappear and reports the new address through OnFound.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Robots must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
