package tui

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/robowifi/internal/discovery"
)

// ScanFunc finds robots on the local network
type ScanFunc func(ctx context.Context) ([]*discovery.Robot, error)

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	robots []*discovery.Robot
	err    error
}

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// manualModeKeyMap defines key bindings for manual IP entry mode
type manualModeKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (m manualModeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Confirm, m.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (m manualModeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.Confirm, m.Cancel}}
}

// robotItem wraps a Robot for use with bubbles/list
type robotItem struct {
	robot *discovery.Robot
}

func (r robotItem) FilterValue() string {
	return r.robot.Name + " " + r.robot.IP + " " + r.robot.Hostname
}

func (r robotItem) Title() string {
	return r.robot.Name
}

func (r robotItem) Description() string {
	return fmt.Sprintf("%s • API %s", r.robot.Address(), versionOrUnknown(discovery.RobotAPIVersion(r.robot)))
}

// robotDelegate renders robots as cards
type robotDelegate struct {
	width int
}

func (d robotDelegate) Height() int { return 7 }

func (d robotDelegate) Spacing() int { return 1 }

func (d robotDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d robotDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(robotItem)
	if !ok {
		return
	}
	robot := ri.robot
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + robot.Name))
	} else {
		content.WriteString("  " + robot.Name)
	}
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("  Address:  %s\n", robot.Address()))
	content.WriteString(fmt.Sprintf("  API:      %s", versionOrUnknown(discovery.RobotAPIVersion(robot))))

	cardWidth := d.width - 6
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(1, 2).
		MarginLeft(2).
		Width(cardWidth)
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	_, _ = fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel represents the robot discovery screen state
type DiscoveryModel struct {
	scan        ScanFunc
	scanTimeout time.Duration

	// Discovery state
	Scanning  bool
	RobotList list.Model
	Selected  bool
	Err       error

	// Manual IP entry state
	ManualMode bool
	IPInput    textinput.Model
	manualErr  string

	// UI state
	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	ManualKeys    manualModeKeyMap
}

// NewDiscoveryModel creates a new discovery screen model
func NewDiscoveryModel(scan ScanFunc, scanTimeout time.Duration) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ipInput := textinput.New()
	ipInput.Placeholder = "192.168.1.20"
	ipInput.CharLimit = 45
	ipInput.Width = 30

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	robotList := list.New([]list.Item{}, robotDelegate{width: MinTerminalWidth}, 0, 0)
	robotList.Title = "Discovered Robots"
	robotList.SetShowStatusBar(false)
	robotList.SetFilteringEnabled(true)
	robotList.Styles.Title = TitleStyle

	if scanTimeout <= 0 {
		scanTimeout = discovery.DefaultScanTimeout
	}

	return DiscoveryModel{
		scan:        scan,
		scanTimeout: scanTimeout,
		RobotList:   robotList,
		IPInput:     ipInput,
		Spinner:     s,
		ProgressBar: progressBar,
		Help:        help.New(),
		Keys: discoveryKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
			Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
			Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "manual IP")),
			Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		},
		ManualKeys: manualModeKeyMap{
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
}

// Init starts scanning immediately
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m DiscoveryModel) startScan() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanRobots(m.scan),
		m.Spinner.Tick,
	)
}

// scanRobots is a command that performs robot discovery
func scanRobots(scan ScanFunc) tea.Cmd {
	return func() tea.Msg {
		robots, err := scan(context.Background())
		return scanCompleteMsg{robots: robots, err: err}
	}
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		if m.Scanning {
			if msg.String() == "m" {
				m.enterManualMode()
			}
			return m, nil
		}
		if handled, next, c := m.updateNormalMode(msg); handled {
			return next, c
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.RobotList.SetDelegate(robotDelegate{width: msg.Width})
		m.RobotList.SetWidth(msg.Width - 4)
		m.RobotList.SetHeight(msg.Height - 10)

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, 0, len(msg.robots)+len(m.RobotList.Items()))
		// Manual entries survive a rescan
		for _, item := range m.RobotList.Items() {
			if ri, ok := item.(robotItem); ok && ri.robot.Hostname == "" {
				items = append(items, ri)
			}
		}
		for _, robot := range msg.robots {
			items = append(items, robotItem{robot: robot})
		}
		m.RobotList.SetItems(items)

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if !m.ManualMode && !m.Scanning {
		m.RobotList, cmd = m.RobotList.Update(msg)
	}

	return m, cmd
}

// updateNormalMode handles keys that are not list navigation
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	if m.RobotList.FilterState() == list.Filtering {
		return false, m, nil
	}

	switch msg.String() {
	case "enter":
		if m.RobotList.SelectedItem() != nil {
			m.Selected = true
		}
		return true, m, nil

	case "r":
		m.Err = nil
		return true, m, m.startScan()

	case "m":
		m.enterManualMode()
		return true, m, textinput.Blink
	}

	return false, m, nil
}

func (m *DiscoveryModel) enterManualMode() {
	m.ManualMode = true
	m.manualErr = ""
	m.IPInput.SetValue("")
	m.IPInput.Focus()
}

// updateManualMode handles keyboard input in manual IP entry mode
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		m.ManualMode = false
		m.IPInput.Blur()
		return m, nil

	case "enter":
		robot, err := manualRobot(m.IPInput.Value())
		if err != nil {
			m.manualErr = err.Error()
			return m, nil
		}
		items := append([]list.Item{robotItem{robot: robot}}, m.RobotList.Items()...)
		m.RobotList.SetItems(items)
		m.RobotList.Select(0)
		m.ManualMode = false
		m.IPInput.Blur()
		return m, nil
	}

	m.IPInput, cmd = m.IPInput.Update(msg)
	return m, cmd
}

// manualRobot builds a robot from a typed address, "host" or "host:port"
func manualRobot(value string) (*discovery.Robot, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("enter an IP address")
	}

	host, port := value, discovery.DefaultPort
	if h, p, err := net.SplitHostPort(value); err == nil {
		var parsed int
		if _, err := fmt.Sscanf(p, "%d", &parsed); err != nil || parsed <= 0 || parsed > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		host, port = h, parsed
	}
	if net.ParseIP(host) == nil {
		return nil, fmt.Errorf("invalid IP address %q", host)
	}

	return &discovery.Robot{
		Name:         host,
		IP:           host,
		Port:         port,
		DiscoveredAt: time.Now(),
	}, nil
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var content, helpText string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning(width)
		helpText = "m: manual IP • ctrl+c: quit"
	default:
		content = m.renderRobotResults()
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderScanning renders a centered scanning progress display
func (m DiscoveryModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStartTime)
	percent := elapsed.Seconds() / m.scanTimeout.Seconds()
	if percent > 1 {
		percent = 1
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(fmt.Sprintf("%s SEARCHING FOR ROBOTS", m.Spinner.View())),
		"",
		SubtitleStyle.Render("Browsing mDNS for robots on your network..."),
		"",
		m.ProgressBar.ViewAs(percent),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
		"",
	)

	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderRobotResults renders the robot list or "no robots found" message
func (m DiscoveryModel) renderRobotResults() string {
	var b strings.Builder
	b.WriteString("\n")

	if len(m.RobotList.Items()) > 0 {
		b.WriteString(m.RobotList.View())
		return b.String()
	}

	if m.Err != nil {
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
	} else {
		b.WriteString("  ")
		b.WriteString(lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render("⚠ No robots found on your network"))
	}
	b.WriteString("\n\n")
	b.WriteString("  Troubleshooting:\n")
	b.WriteString("    • Ensure the robot is powered on and finished booting\n")
	b.WriteString("    • Make sure this computer is on the same network or USB link\n")
	b.WriteString("    • mDNS may be blocked; press 'm' to enter the IP directly\n")

	return b.String()
}

// renderManualEntry renders the manual IP entry dialog
func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder

	b.WriteString(RenderSubtitle("Enter robot IP address"))
	b.WriteString("\n\n")
	b.WriteString("  IP Address: ")
	b.WriteString(m.IPInput.View())
	b.WriteString("\n\n")
	if m.manualErr != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(ErrorColor).Render("  ✗ " + m.manualErr))
		b.WriteString("\n")
	}

	return b.String()
}

// GetSelectedRobot returns the selected robot (if any)
func (m DiscoveryModel) GetSelectedRobot() *discovery.Robot {
	if !m.Selected {
		return nil
	}
	if item, ok := m.RobotList.SelectedItem().(robotItem); ok {
		return item.robot
	}
	return nil
}
