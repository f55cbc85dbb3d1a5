// Package tui implements the interactive wizard for choosing a robot's Wi-Fi network.
//
// Built on Bubble Tea, it follows the Elm architecture: each screen is a
// Model with Update and View, and AppModel routes messages between them.
//
// # Screens
//
//   - Discovery: browse mDNS for robots or enter an IP manually
//   - Opening: probe the chosen robot while the Backend builds a session
//   - Network: the network picker, credential form and result panels
//
// All screens render inside RenderApplicationContainer, which draws the
// header, the content area and a context-sensitive footer.
//
// # Requests
//
// The network screen never calls the robot itself. It hands picks and form
// submissions to a selectnetwork.Controller, which starts tracked requests
// and returns their ids. For each id the screen waits on the tracker in a
// tea.Cmd and feeds the completion back through Controller.Reconcile, which
// may start follow-up requests. The list is refreshed every
// selectnetwork.ListRefresh unless a join is in progress.
//
// # Usage
//
//	app := tui.NewAppModel(backend, nil)
//	program := tea.NewProgram(app, tea.WithAltScreen())
//	if _, err := program.Run(); err != nil {
//	    return err
//	}
package tui
