package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/robowifi/internal/discovery"
	"github.com/muurk/robowifi/internal/requests"
	"github.com/muurk/robowifi/internal/robotapi"
	"github.com/muurk/robowifi/internal/selectnetwork"
	"github.com/muurk/robowifi/internal/ui"
	"github.com/muurk/robowifi/internal/wizard/tui"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// Command flags
var (
	robotAddr    string
	robotPort    int
	outputFormat string
	logLevel     string
	logFile      string
	scanTimeout  int
	historyLimit int
)

func init() {
	// Common flags for robot commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&robotAddr, "robot", "", "Robot IP address, ip:port or known robot name (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&robotPort, "port", robotapi.DefaultPort, "Robot HTTP API port")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatTable, "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $ROBOWIFI_LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")

	// Add subcommands directly to root
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(eapOptionsCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(historyCmd)
}

// scanCmd discovers robots on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for robots on the network",
	Long: `Scan for robots using mDNS/DNS-SD discovery.

This command listens for mDNS advertisements from robots and displays
every robot found with its address and reported API version. Robots found
are remembered, so later commands can refer to them by name.`,
	Example: `  # Scan using the configured timeout (10 seconds by default)
  robowifi scan

  # Quick 3-second scan
  robowifi scan --timeout 3

  # JSON output for scripting
  robowifi scan --format json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (defaults to the configured discover_timeout)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	if scanTimeout > 0 {
		env.registry.Preferences.DiscoverTimeout = scanTimeout
	}

	if outputFormat == formatTable {
		fmt.Printf("Scanning for robots (timeout: %s)...\n\n", env.registry.DiscoverTimeout())
	}

	robots, err := env.scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if outputFormat == formatJSON {
		return printJSON(robots)
	}

	p := ui.NewPrinter(os.Stdout)
	if len(robots) == 0 {
		p.PrintWarning("No robots found")
		p.Newline()
		p.Println("Troubleshooting:")
		p.PrintMuted("- Ensure the robot is powered on and has finished booting")
		p.PrintMuted("- Check that this computer is on the same network or USB link as the robot")
		p.PrintMuted("- Try increasing --timeout for slower networks")
		p.PrintMuted("- Use the --robot flag to specify an IP manually if discovery fails")
		return nil
	}

	p.Println(fmt.Sprintf("Found %d robot(s):", len(robots)))
	p.Newline()
	p.PrintTable(robotTable(robots))

	p.PrintMuted("Use 'robowifi list --robot <name>' to see the networks a robot can join")
	p.PrintMuted("Use 'robowifi' for interactive setup")
	return nil
}

func robotTable(robots []*discovery.Robot) *ui.Table {
	table := ui.NewTable("NAME", "ADDRESS", "API VERSION")
	for _, robot := range robots {
		apiVersion := discovery.RobotAPIVersion(robot)
		if apiVersion == "" {
			apiVersion = "unknown"
		}
		table.AddRow(robot.Name, robot.Address(), apiVersion)
	}
	return table
}

// wizardCmd launches the interactive wizard
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive wifi setup wizard",
	Long: `Launch the interactive wizard.

The wizard scans for robots, then shows the networks the selected robot can
see. Picking a network joins it, asking for a passphrase or enterprise
credentials when the network needs them.`,
	Example: `  # Discover robots, then pick one
  robowifi wizard

  # Go straight to a robot
  robowifi wizard --robot 192.168.1.20`,
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	var robot *discovery.Robot
	if robotAddr != "" {
		robot, err = env.lookupRobot(robotAddr, robotPort)
		if err != nil {
			return err
		}
	}

	backend := &wizardBackend{env: env, ctx: cmd.Context()}
	p := tea.NewProgram(tui.NewAppModel(backend, robot), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("wizard error: %w", err)
	}

	return nil
}

// listCmd shows the networks a robot can see
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the wifi networks a robot can see",
	Long: `List the wifi networks visible to a robot.

The network the robot is currently connected to is highlighted.`,
	Example: `  # List networks with auto-discovery
  robowifi list

  # List networks for a specific robot
  robowifi list --robot 192.168.1.20

  # JSON output for scripting
  robowifi list --robot opentrons-moon-moon --format json`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	s, err := openRobotSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.await(cmd.Context(), s.ctrl.Refresh()); err != nil {
		return fmt.Errorf("failed to fetch networks: %w", err)
	}
	list := s.ctrl.List()

	if outputFormat == formatJSON {
		return printJSON(list)
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Wi-Fi Networks", "robowifi list",
		ui.Detail{Key: "Robot", Value: s.robot.Name},
		ui.Detail{Key: "Address", Value: s.robot.Address()},
	)

	if len(list) == 0 {
		p.PrintWarning("The robot does not see any networks")
		return nil
	}
	p.PrintTable(networkTable(list))

	if known := s.env.registry.GetRobot(s.robot.Name); known != nil && known.LastSSID != "" {
		p.PrintMuted("Last configured by this computer: %s", known.LastSSID)
	}
	return nil
}

func networkTable(list []selectnetwork.NetworkEntry) *ui.Table {
	table := ui.NewTable("SSID", "SECURITY", "SIGNAL")
	for i, n := range list {
		if n.Active && table.Active < 0 {
			table.Active = i
		}
		table.AddRow(n.SSID, n.SecurityType.String(), robotapi.FormatSignal(n.Signal)+" "+strconv.Itoa(n.Signal))
	}
	return table
}

// historyCmd shows recorded wifi operations
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past wifi operations",
	Long: `Show the wifi operations this computer has performed, newest first.

Each connect, disconnect and key upload is recorded with its outcome.
Credentials are never recorded.`,
	Example: `  # Everything, newest first
  robowifi history

  # The last 5 operations on one robot
  robowifi history --robot opentrons-moon-moon --limit 5`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of entries to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	robot := robotAddr
	if robot != "" {
		if r, err := env.lookupRobot(robotAddr, robotPort); err == nil {
			robot = r.Name
		}
	}

	events, err := env.store.List(robot, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if outputFormat == formatJSON {
		return printJSON(events)
	}

	p := ui.NewPrinter(os.Stdout)
	if len(events) == 0 {
		p.PrintMuted("No operations recorded yet")
		return nil
	}

	table := ui.NewTable("WHEN", "ROBOT", "ACTION", "NETWORK", "RESULT")
	for _, ev := range events {
		result := string(ev.Status)
		if ev.Message != "" {
			result += ": " + ev.Message
		}
		table.AddRow(ev.At.Local().Format(time.DateTime), ev.Robot, string(ev.Action), ev.SSID, result)
	}
	p.PrintTable(table)
	return nil
}

// robotSession is one probed robot and the controller driving it
type robotSession struct {
	env     *environment
	robot   *discovery.Robot
	tracker *requests.Tracker
	ctrl    *selectnetwork.Controller
}

func openRobotSession(ctx context.Context) (*robotSession, error) {
	env, err := openEnvironment()
	if err != nil {
		return nil, err
	}

	robot, err := env.resolveRobot(ctx, robotAddr, robotPort)
	if err != nil {
		env.Close()
		return nil, err
	}

	client, err := env.probe(ctx, robot)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to reach robot at %s: %w", robot.Address(), err)
	}

	tracker := requests.NewTracker()
	return &robotSession{
		env:     env,
		robot:   robot,
		tracker: tracker,
		ctrl:    env.controller(ctx, robot, client, tracker),
	}, nil
}

func (s *robotSession) Close() error {
	return s.env.Close()
}

// await waits for the requests and their follow-ups, then returns the first
// error among the given ids. Reconciled requests leave the tracker, so each
// outcome is read before it is handed to the controller.
func (s *robotSession) await(ctx context.Context, ids ...string) error {
	var failure error
	for _, id := range ids {
		st, err := s.tracker.Wait(ctx, id)
		if err != nil {
			return err
		}
		if failure == nil {
			failure = st.Error
		}
		if err := s.ctrl.Await(ctx, s.ctrl.Reconcile(id, st)); err != nil {
			return err
		}
	}
	return failure
}

func troubleshoot(err error) []string {
	return ui.HintLines(robotapi.GetTroubleshootingHint(err))
}

func checkFormat() error {
	switch outputFormat {
	case formatTable, formatJSON:
		return nil
	}
	return fmt.Errorf("invalid --format %q (expected %s or %s)", outputFormat, formatTable, formatJSON)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
