// Package robotapi provides an HTTP client for a robot's networking API.
//
// The robot exposes its wireless configuration over HTTP on port 31950:
//
//	GET  /health            robot name and API version
//	GET  /wifi/list         visible networks
//	POST /wifi/configure    join a network
//	POST /wifi/disconnect   leave a network
//	GET  /wifi/eap-options  supported EAP methods and their fields
//	GET  /wifi/keys         uploaded key files
//	POST /wifi/keys         upload a key file (multipart, field "key")
//
// # Usage Example
//
//	client := robotapi.NewClient("192.168.1.20", robotapi.DefaultPort)
//
//	networks, err := client.FetchWifiList(ctx)
//	if err != nil {
//	    log.Fatal(robotapi.GetShortErrorMessage(err))
//	}
//
//	_, err = client.ConfigureWifi(ctx, robotapi.ConfigureRequest{
//	    SSID:         "lab-net",
//	    SecurityType: robotapi.SecurityWPAPSK,
//	    PSK:          "correct horse",
//	})
//
// # Error Handling
//
// All failures are returned as *RobotError carrying an ErrorType. GET requests
// are retried with exponential backoff while the error is retryable; POST
// requests change robot state and are sent once.
package robotapi
