// Package selectnetwork decides what happens when a user picks a wireless
// network for a robot.
//
// The pure functions (DeriveSelection, DeriveCancel, GetActiveSSID,
// GetSecurityType) compute the next selection from the visible network list.
// Controller holds that selection for one robot, dispatches the resulting
// robot API requests through a requests.Tracker and folds their outcomes back
// in via Reconcile.
//
// Picking an open network joins it straight away unless the previous
// selection was an enterprise network or had no known security, in which case
// EAP options and stored keys are fetched first. Picking any other network
// opens the credential modal; its submission goes through Configure.
//
// Example:
//
//	c := selectnetwork.NewController(robot.Name, client, tracker)
//	c.SetList(list)
//	ids := c.HandleValueChange("lab-open")
//	if err := c.Await(ctx, ids); err != nil {
//		return err
//	}
package selectnetwork
