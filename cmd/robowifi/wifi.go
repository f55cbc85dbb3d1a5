package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/robowifi/internal/robotapi"
	"github.com/muurk/robowifi/internal/selectnetwork"
	"github.com/muurk/robowifi/internal/ui"
)

// connectOptions are the connect command flags
type connectOptions struct {
	psk      string
	security string
	eap      map[string]string
	hidden   bool
}

var (
	connectOpts connectOptions
	skipConfirm bool
	keysAddName string
)

func init() {
	connectCmd.Flags().StringVar(&connectOpts.psk, "psk", "", "WPA passphrase (prompted when needed and omitted)")
	connectCmd.Flags().StringVar(&connectOpts.security, "security", "", "Security type (none, wpa-psk, wpa-eap); defaults to what the robot reports")
	connectCmd.Flags().StringToStringVar(&connectOpts.eap, "eap", nil, "EAP settings as key=value, including eapType (repeatable)")
	connectCmd.Flags().BoolVar(&connectOpts.hidden, "hidden", false, "Join a network the robot cannot see in its scan")

	disconnectCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Skip the confirmation prompt")

	keysAddCmd.Flags().StringVar(&keysAddName, "name", "", "Name to store the key under (defaults to the file name)")
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysAddCmd)
}

// connectCmd joins a network
var connectCmd = &cobra.Command{
	Use:   "connect <ssid>",
	Short: "Join a wifi network",
	Long: `Ask a robot to join a wifi network.

The security type is taken from the robot's own scan unless --security is
given. WPA Personal networks need a passphrase, which is prompted for when
--psk is omitted. WPA Enterprise networks need an EAP method and its
settings, given with --eap. Run 'robowifi eap-options' to see which methods
and settings the robot supports.

After joining, the robot is rediscovered on its new network and its network
list is fetched again to confirm the connection.`,
	Example: `  # Join an open network
  robowifi connect guest --robot 192.168.1.20

  # Join a WPA Personal network (passphrase prompted)
  robowifi connect lab-wpa --robot opentrons-moon-moon

  # Join a WPA Enterprise network
  robowifi connect corp --eap eapType=peap/mschapv2 --eap identity=me --eap password=secret

  # Join a hidden network
  robowifi connect lab-hidden --hidden --security wpa-psk`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ssid := args[0]

	s, err := openRobotSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.await(ctx, s.ctrl.Refresh()); err != nil {
		return fmt.Errorf("failed to fetch networks: %w", err)
	}

	opts := connectOpts
	secType, err := securityFor(ssid, s.ctrl.List(), opts)
	if err != nil {
		return err
	}
	if secType == robotapi.SecurityWPAPSK && opts.psk == "" {
		if opts.psk, err = promptSecret(fmt.Sprintf("Passphrase for %s: ", ssid)); err != nil {
			return err
		}
	}
	req := buildConfigureRequest(ssid, secType, opts)

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Join Wi-Fi Network",
		Command: "robowifi connect " + ssid,
		Params: []ui.Detail{
			{Key: "Robot", Value: s.robot.Name},
			{Key: "Network", Value: ssid},
			{Key: "Security", Value: secType.String()},
		},
		StepNames: []string{
			"Check credentials",
			"Join " + ssid,
			"Confirm active network",
		},
		Troubleshoot: troubleshoot,
	})

	return runner.Run(ctx, "Could not join "+ssid, func(ctx context.Context, onStep ui.StepCallback) (string, []ui.Detail, error) {
		onStep(1, ui.StepRunning, "")
		if secType == robotapi.SecurityWPAEAP {
			if err := s.await(ctx, s.ctrl.FetchCredentialMetadata()...); err != nil {
				onStep(1, ui.StepFailed, "")
				return "", nil, fmt.Errorf("failed to fetch EAP options: %w", err)
			}
			if err := checkEapConfig(s.ctrl.EapOptions(), req.EapConfig); err != nil {
				onStep(1, ui.StepFailed, "")
				return "", nil, err
			}
		}
		if err := req.Validate(); err != nil {
			onStep(1, ui.StepFailed, "")
			return "", nil, err
		}
		onStep(1, ui.StepComplete, "")

		onStep(2, ui.StepRunning, "this can take up to a minute")
		if err := s.ctrl.Await(ctx, s.ctrl.Configure(req)); err != nil {
			onStep(2, ui.StepFailed, "")
			return "", nil, err
		}
		resp, err := s.ctrl.ConfigResult()
		if err != nil {
			onStep(2, ui.StepFailed, "")
			return "", nil, err
		}
		onStep(2, ui.StepComplete, "")

		details := []ui.Detail{
			{Key: "Robot", Value: s.robot.Name},
			{Key: "Network", Value: ssid},
		}
		if resp != nil && resp.Message != "" {
			details = append(details, ui.Detail{Key: "Message", Value: resp.Message})
		}

		onStep(3, ui.StepRunning, "")
		if selectnetwork.GetActiveSSID(s.ctrl.List()) == ssid {
			onStep(3, ui.StepComplete, "")
		} else {
			onStep(3, ui.StepSkipped, "robot not reachable on its new network from here")
		}

		return fmt.Sprintf("%s joined %s", s.robot.Name, ssid), details, nil
	})
}

// securityFor picks the security type for a connect. An explicit flag wins;
// otherwise the robot's scan decides, and hidden networks are inferred from
// the credentials given.
func securityFor(ssid string, list []selectnetwork.NetworkEntry, opts connectOptions) (robotapi.SecurityType, error) {
	if opts.security != "" {
		secType := robotapi.SecurityType(opts.security)
		switch secType {
		case robotapi.SecurityNone, robotapi.SecurityWPAPSK, robotapi.SecurityWPAEAP:
			return secType, nil
		}
		return "", fmt.Errorf("invalid --security %q (expected none, wpa-psk or wpa-eap)", opts.security)
	}

	if secType := selectnetwork.GetSecurityType(list, ssid); secType != "" {
		return secType, nil
	}

	if !opts.hidden {
		return "", fmt.Errorf("the robot cannot see a network named %q. Use --hidden to join it anyway", ssid)
	}
	switch {
	case len(opts.eap) > 0:
		return robotapi.SecurityWPAEAP, nil
	case opts.psk != "":
		return robotapi.SecurityWPAPSK, nil
	}
	return robotapi.SecurityNone, nil
}

// buildConfigureRequest assembles the request body. Only the credentials the
// security type uses are included.
func buildConfigureRequest(ssid string, secType robotapi.SecurityType, opts connectOptions) robotapi.ConfigureRequest {
	req := robotapi.ConfigureRequest{
		SSID:         ssid,
		Hidden:       opts.hidden,
		SecurityType: secType,
	}

	switch secType {
	case robotapi.SecurityWPAPSK:
		req.PSK = opts.psk
	case robotapi.SecurityWPAEAP:
		req.EapConfig = make(robotapi.EapConfig, len(opts.eap))
		for k, v := range opts.eap {
			req.EapConfig[k] = v
		}
	}
	return req
}

// checkEapConfig verifies the EAP method is one the robot supports and every
// required setting is present
func checkEapConfig(options []robotapi.EapOption, cfg robotapi.EapConfig) error {
	method := cfg.EapType()
	if method == "" {
		return robotapi.NewValidationError("EAP method is required: pass --eap eapType=<method>")
	}

	option := robotapi.FindEapOption(options, method)
	if option == nil {
		names := make([]string, 0, len(options))
		for _, o := range options {
			names = append(names, o.Name)
		}
		return robotapi.NewValidationError(fmt.Sprintf("the robot does not support EAP method %q (supported: %s)", method, strings.Join(names, ", ")))
	}

	var missing []string
	for _, field := range option.Options {
		if field.Required && cfg[field.Name] == "" {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return robotapi.NewValidationError(fmt.Sprintf("%s needs %s", option.DisplayName, strings.Join(missing, ", ")))
	}
	return nil
}

func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("a passphrase is required: pass --psk")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(secret), nil
}

// disconnectCmd leaves the current network
var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect a robot from its wifi network",
	Long: `Ask a robot to leave its current wifi network and forget it.

If wifi is how this computer reaches the robot, the robot becomes
unreachable until it is reconnected over USB or Ethernet. Robots must run
API version 3.17 or newer unless the dev_internal.enable_wifi_disconnect
setting is on.`,
	Example: `  # Disconnect, asking for confirmation
  robowifi disconnect --robot 192.168.1.20

  # Disconnect without confirmation
  robowifi disconnect --robot opentrons-moon-moon --yes`,
	RunE: runDisconnect,
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openRobotSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.env.showDisconnect(s.robot) {
		return fmt.Errorf("%s does not support disconnecting from wifi (needs robot API %s or newer)", s.robot.Name, selectnetwork.APIMinVersion)
	}

	if err := s.await(ctx, s.ctrl.Refresh()); err != nil {
		return fmt.Errorf("failed to fetch networks: %w", err)
	}
	ssid := selectnetwork.GetActiveSSID(s.ctrl.List())
	if ssid == "" {
		return fmt.Errorf("%s is not connected to a wifi network", s.robot.Name)
	}

	s.ctrl.HandleValueChange(selectnetwork.DisconnectWifiValue)
	if !skipConfirm && !ui.ConfirmDisconnect(os.Stdin, os.Stdout, s.robot.Name, ssid) {
		s.ctrl.HandleCancel()
		return nil
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Disconnect From Wi-Fi",
		Command: "robowifi disconnect",
		Params: []ui.Detail{
			{Key: "Robot", Value: s.robot.Name},
			{Key: "Network", Value: ssid},
		},
		StepNames:    []string{"Leave " + ssid},
		Troubleshoot: troubleshoot,
	})

	return runner.Run(ctx, "Could not disconnect from "+ssid, func(ctx context.Context, onStep ui.StepCallback) (string, []ui.Detail, error) {
		onStep(1, ui.StepRunning, "")
		id, ok := s.ctrl.HandleDisconnectWifi()
		if !ok {
			onStep(1, ui.StepFailed, "")
			return "", nil, fmt.Errorf("no network selected to disconnect from")
		}
		if err := s.ctrl.Await(ctx, []string{id}); err != nil {
			onStep(1, ui.StepFailed, "")
			return "", nil, err
		}

		status := s.ctrl.DisconnectStatus()
		if status.Failure {
			onStep(1, ui.StepFailed, "")
			return "", nil, status.Error
		}
		onStep(1, ui.StepComplete, "")

		details := []ui.Detail{{Key: "Robot", Value: s.robot.Name}}
		if status.Response != nil && status.Response.Message != "" {
			details = append(details, ui.Detail{Key: "Message", Value: status.Response.Message})
		}
		return fmt.Sprintf("%s left %s", s.robot.Name, ssid), details, nil
	})
}

// eapOptionsCmd lists the EAP methods a robot supports
var eapOptionsCmd = &cobra.Command{
	Use:   "eap-options",
	Short: "List the EAP methods a robot supports",
	Long: `List the WPA Enterprise (EAP) methods a robot supports and the settings
each one needs. Required settings are marked with *. File settings take the
id of a key uploaded with 'robowifi keys add'.`,
	Example: `  robowifi eap-options --robot 192.168.1.20`,
	RunE:    runEapOptions,
}

func runEapOptions(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	s, err := openRobotSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.await(cmd.Context(), s.ctrl.FetchCredentialMetadata()...); err != nil {
		return fmt.Errorf("failed to fetch EAP options: %w", err)
	}
	options := s.ctrl.EapOptions()

	if outputFormat == formatJSON {
		return printJSON(options)
	}

	p := ui.NewPrinter(os.Stdout)
	if len(options) == 0 {
		p.PrintWarning("The robot reports no EAP methods")
		return nil
	}

	table := ui.NewTable("METHOD", "NAME", "SETTINGS")
	for _, option := range options {
		table.AddRow(option.Name, option.DisplayName, describeFields(option.Options))
	}
	p.PrintTable(table)
	p.PrintMuted("* required")
	return nil
}

func describeFields(fields []robotapi.EapField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		part := f.Name
		if f.Required {
			part += "*"
		}
		if f.IsFile() {
			part += " (file)"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// keysCmd groups key file commands
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage key files stored on a robot",
	Long: `Manage the certificate and key files a robot stores for WPA Enterprise
authentication.`,
}

var keysListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List key files on a robot",
	Example: `  robowifi keys list --robot 192.168.1.20`,
	RunE:    runKeysList,
}

var keysAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Upload a key file to a robot",
	Long: `Upload a certificate or private key to a robot. The id printed on success
is what EAP file settings refer to.`,
	Example: `  # Upload a CA certificate
  robowifi keys add ca.pem --robot 192.168.1.20

  # Then use it
  robowifi connect corp --eap eapType=tls --eap caCert=<id> ...`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysAdd,
}

func runKeysList(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	s, err := openRobotSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.await(cmd.Context(), s.ctrl.FetchCredentialMetadata()...); err != nil {
		return fmt.Errorf("failed to fetch keys: %w", err)
	}
	keys := s.ctrl.Keys()

	if outputFormat == formatJSON {
		return printJSON(keys)
	}

	p := ui.NewPrinter(os.Stdout)
	if len(keys) == 0 {
		p.PrintMuted("No key files on %s", s.robot.Name)
		return nil
	}

	table := ui.NewTable("ID", "NAME", "URI")
	for _, k := range keys {
		table.AddRow(k.ID, k.Name, k.URI)
	}
	p.PrintTable(table)
	return nil
}

func runKeysAdd(cmd *cobra.Command, args []string) error {
	path := args[0]
	name := keysAddName
	if name == "" {
		name = filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	defer f.Close()

	s, err := openRobotSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Upload Key File",
		Command: "robowifi keys add " + path,
		Params: []ui.Detail{
			{Key: "Robot", Value: s.robot.Name},
			{Key: "File", Value: name},
		},
		StepNames:    []string{"Upload " + name},
		Troubleshoot: troubleshoot,
	})

	return runner.Run(cmd.Context(), "Could not upload "+name, func(ctx context.Context, onStep ui.StepCallback) (string, []ui.Detail, error) {
		onStep(1, ui.StepRunning, "")
		if err := s.await(ctx, s.ctrl.AddKey(name, f)...); err != nil {
			onStep(1, ui.StepFailed, "")
			return "", nil, err
		}
		onStep(1, ui.StepComplete, "")

		details := []ui.Detail{{Key: "Robot", Value: s.robot.Name}}
		if keys := s.ctrl.Keys(); len(keys) > 0 {
			key := keys[len(keys)-1]
			details = append(details, ui.Detail{Key: "Key ID", Value: key.ID})
		}
		return "Key file uploaded", details, nil
	})
}
