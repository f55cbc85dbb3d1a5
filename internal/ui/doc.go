// Package ui provides terminal output components for the robowifi CLI.
//
// Components follow a "run once and exit" pattern: they render styled
// output with Lipgloss but take no interaction beyond simple prompts.
//
//   - Header: command banner showing operation name and parameters
//   - Progress: step list with a bar for multi-step operations
//   - Result: success, failure and warning boxes
//   - Table: column listings of networks, robots and history
//
// A Runner ties these together for operations such as connect, which
// configure the robot, wait for it to come back on the network and then
// refresh its wifi list:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Connect to network",
//	    Command:   "robowifi connect lab-wpa",
//	    StepNames: []string{"Configure", "Rediscover", "Refresh"},
//	})
//	err := runner.Run(ctx, "Could not connect", func(ctx context.Context, onStep ui.StepCallback) (string, []ui.Detail, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ...
//	    return "Connected", nil, nil
//	})
//
// Logging is controlled by ROBOWIFI_LOG_LEVEL. When it is unset zap is
// silent, so this output is the only thing on the terminal.
package ui
