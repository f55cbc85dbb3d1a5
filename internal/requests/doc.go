// Package requests tracks fire-and-forget robot API requests.
//
// Dispatch runs the work in the background and hands back an id of the form
// "robotApi_request_N". Callers observe completion through Subscribe, which
// delivers the final State exactly once, or look it up with Get.
//
//	tracker := requests.NewTracker()
//	id := tracker.Dispatch(ctx, "disconnect", func(ctx context.Context) (any, error) {
//		return client.DisconnectWifi(ctx, ssid)
//	})
//	state := <-tracker.Subscribe(id)
package requests
