package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/robowifi/internal/discovery"
	"github.com/muurk/robowifi/internal/requests"
	"github.com/muurk/robowifi/internal/robotapi"
	"github.com/muurk/robowifi/internal/selectnetwork"
)

// Messages for async operations
type requestDoneMsg struct {
	id    string
	state requests.State
}

type refreshTickMsg struct{}

// networkKeyMap defines key bindings for the network list
type networkKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Refresh key.Binding
	Back    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k networkKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Refresh, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k networkKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Refresh, k.Back, k.Quit},
	}
}

// modalKeyMap defines key bindings shared by the credential and confirm modals
type modalKeyMap struct {
	Next    key.Binding
	Change  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k modalKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Change, k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k modalKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Change, k.Confirm, k.Cancel}}
}

// pickerItem is one row of the network picker
type pickerItem struct {
	value   string
	network *selectnetwork.NetworkEntry
}

// NetworkModel is the network picker for one robot. It drives a
// selectnetwork.Controller and feeds request completions back into it.
type NetworkModel struct {
	Robot *discovery.Robot

	ctrl           *selectnetwork.Controller
	tracker        *requests.Tracker
	showDisconnect bool
	refreshEvery   time.Duration

	cursor  int
	form    *credentialForm
	loaded  bool
	lastErr string

	// UI state
	Width   int
	Height  int
	Spinner spinner.Model

	BackRequested bool

	// Help
	Help      help.Model
	Keys      networkKeyMap
	ModalKeys modalKeyMap
}

// NewNetworkModel creates the picker for an opened session
func NewNetworkModel(s *Session) NetworkModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	refreshEvery := s.RefreshEvery
	if refreshEvery <= 0 {
		refreshEvery = selectnetwork.ListRefresh
	}

	return NetworkModel{
		Robot:          s.Robot,
		ctrl:           s.Controller,
		tracker:        s.Tracker,
		showDisconnect: s.ShowDisconnect,
		refreshEvery:   refreshEvery,
		Spinner:        sp,
		Help:           help.New(),
		Keys: networkKeyMap{
			Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
			Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
			Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
			Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
			Back:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "robots")),
			Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
		ModalKeys: modalKeyMap{
			Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
			Change:  key.NewBinding(key.WithKeys("left", "right"), key.WithHelp("←/→", "change")),
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
}

// Init fetches the network list and starts the refresh timer
func (m NetworkModel) Init() tea.Cmd {
	return tea.Batch(
		m.track(m.ctrl.Refresh()),
		m.scheduleRefresh(),
		m.Spinner.Tick,
	)
}

// waitForRequest delivers the outcome of id as a requestDoneMsg
func waitForRequest(tracker *requests.Tracker, id string) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-tracker.Subscribe(id)
		if !ok {
			return nil
		}
		return requestDoneMsg{id: id, state: st}
	}
}

func (m NetworkModel) track(ids ...string) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, waitForRequest(m.tracker, id))
	}
	return tea.Batch(cmds...)
}

func (m NetworkModel) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refreshEvery, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// Update handles messages and updates the model
func (m NetworkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case requestDoneMsg:
		follow := m.ctrl.Reconcile(msg.id, msg.state)
		if msg.state.Status == requests.StatusSuccess {
			m.lastErr = ""
			if m.ctrl.List() != nil {
				m.loaded = true
			}
		} else if msg.state.Error != nil {
			m.lastErr = robotapi.GetShortErrorMessage(msg.state.Error)
		}
		if m.form != nil {
			m.form.SetMetadata(m.ctrl.EapOptions(), m.ctrl.Keys())
		}
		m.cursor = clampIndex(m.cursor, len(m.items()))
		return m, m.track(follow...)

	case refreshTickMsg:
		// Skip while joining; the configure chain refreshes the list itself.
		if m.ctrl.ConnectingTo() != "" {
			return m, m.scheduleRefresh()
		}
		return m, tea.Batch(m.track(m.ctrl.Refresh()), m.scheduleRefresh())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m NetworkModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ctrl.ShowConfig() {
		switch msg.String() {
		case "enter", "esc", " ":
			m.ctrl.Close()
		}
		return m, nil
	}

	if ds := m.ctrl.DisconnectStatus(); ds.Failure || ds.Response != nil {
		switch msg.String() {
		case "enter", "esc", " ":
			m.ctrl.Close()
		}
		return m, nil
	}

	state := m.ctrl.State()
	if state.ModalOpen {
		if state.NetworkingType == selectnetwork.Disconnect {
			return m.handleConfirmDisconnectKeys(msg)
		}
		return m.handleFormKeys(msg)
	}

	return m.handleListKeys(msg)
}

func (m NetworkModel) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.items()

	switch {
	case key.Matches(msg, m.Keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.Keys.Down):
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.Keys.Refresh):
		return m, m.track(m.ctrl.Refresh())
	case key.Matches(msg, m.Keys.Back):
		if m.ctrl.ConnectingTo() == "" {
			m.BackRequested = true
		}
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Select):
		if m.cursor >= len(items) {
			return m, nil
		}
		return m.pick(items[m.cursor].value)
	}

	return m, nil
}

// pick hands a picker value to the controller and opens the modal it asks for
func (m NetworkModel) pick(value string) (tea.Model, tea.Cmd) {
	ids := m.ctrl.HandleValueChange(value)

	state := m.ctrl.State()
	if state.ModalOpen {
		switch state.NetworkingType {
		case selectnetwork.JoinOther:
			m.form = newJoinOtherForm(m.ctrl.EapOptions(), m.ctrl.Keys())
			ids = append(ids, m.ctrl.FetchCredentialMetadata()...)
		case selectnetwork.Connect:
			m.form = newConnectForm(state.SSID, state.SecurityType, m.ctrl.EapOptions(), m.ctrl.Keys())
			if selectnetwork.HasSecurityType(state.SecurityType, robotapi.SecurityWPAEAP) {
				ids = append(ids, m.ctrl.FetchCredentialMetadata()...)
			}
		}
	}

	return m, m.track(ids...)
}

func (m NetworkModel) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		// Opened without a form, e.g. by a pick made before the list loaded
		state := m.ctrl.State()
		m.form = newConnectForm(state.SSID, state.SecurityType, m.ctrl.EapOptions(), m.ctrl.Keys())
	}

	switch msg.String() {
	case "esc":
		m.ctrl.HandleCancel()
		m.form = nil
		return m, nil

	case "enter":
		req, err := m.form.Request()
		if err != nil {
			m.form.err = robotapi.GetShortErrorMessage(err)
			return m, nil
		}
		m.form = nil
		return m, m.track(m.ctrl.Configure(req)...)
	}

	return m, m.form.Update(msg)
}

func (m NetworkModel) handleConfirmDisconnectKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		if id, ok := m.ctrl.HandleDisconnectWifi(); ok {
			return m, m.track(id)
		}
		m.ctrl.HandleCancel()
	case "esc", "n":
		m.ctrl.HandleCancel()
	}
	return m, nil
}

// items lists the picker rows: visible networks, then join-other, then
// disconnect when the robot supports it and is on a network.
func (m NetworkModel) items() []pickerItem {
	list := m.ctrl.List()
	items := make([]pickerItem, 0, len(list)+2)
	for i := range list {
		if list[i].SSID == "" {
			continue
		}
		items = append(items, pickerItem{value: list[i].SSID, network: &list[i]})
	}

	items = append(items, pickerItem{value: selectnetwork.JoinOtherValue})
	if m.showDisconnect && selectnetwork.GetActiveSSID(list) != "" {
		items = append(items, pickerItem{value: selectnetwork.DisconnectWifiValue})
	}
	return items
}

// IsBackRequested reports whether the user asked to return to discovery
func (m NetworkModel) IsBackRequested() bool {
	return m.BackRequested
}

// View renders the network screen
func (m NetworkModel) View() string {
	if m.ctrl.ShowConfig() {
		return RenderModal("", m.renderConfigResult(), m.Width, m.Height)
	}
	if ds := m.ctrl.DisconnectStatus(); ds.Failure || ds.Response != nil {
		return RenderModal("", m.renderDisconnectResult(ds), m.Width, m.Height)
	}

	state := m.ctrl.State()
	if state.ModalOpen {
		if state.NetworkingType == selectnetwork.Disconnect {
			return RenderModal("", m.renderConfirmDisconnect(state.PreviousSSID), m.Width, m.Height)
		}
		if m.form != nil {
			return RenderModal("", m.renderForm(), m.Width, m.Height)
		}
	}

	return RenderApplicationContainer(m.renderList(), m.Help.View(m.Keys), m.Width, m.Height)
}

func (m NetworkModel) renderList() string {
	var b strings.Builder

	b.WriteString(RenderTitle(fmt.Sprintf("Wi-Fi networks on %s", m.Robot.Name)))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle(fmt.Sprintf("  %s  •  API %s", m.Robot.Address(), versionOrUnknown(discovery.RobotAPIVersion(m.Robot)))))
	b.WriteString("\n\n")

	if ssid := m.ctrl.ConnectingTo(); ssid != "" {
		b.WriteString(SpinnerStyle.Render(fmt.Sprintf("  %s Joining %s...", m.Spinner.View(), ssid)))
		b.WriteString("\n\n")
	} else if ds := m.ctrl.DisconnectStatus(); ds.Pending {
		b.WriteString(SpinnerStyle.Render(fmt.Sprintf("  %s Disconnecting...", m.Spinner.View())))
		b.WriteString("\n\n")
	}

	if !m.loaded && m.ctrl.List() == nil {
		b.WriteString(SpinnerStyle.Render(fmt.Sprintf("  %s Loading networks...", m.Spinner.View())))
		b.WriteString("\n")
	}

	for i, item := range m.items() {
		b.WriteString(m.renderItem(item, i == m.cursor))
		b.WriteString("\n")
	}

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(ErrorColor).Render("  ✗ " + m.lastErr))
		b.WriteString("\n")
	}

	return b.String()
}

func (m NetworkModel) renderItem(item pickerItem, selected bool) string {
	var text string
	switch item.value {
	case selectnetwork.JoinOtherValue:
		text = "Join other network..."
	case selectnetwork.DisconnectWifiValue:
		text = "Disconnect from Wi-Fi"
	default:
		n := item.network
		marker := "  "
		if n.Active {
			marker = ActiveNetworkStyle.Render("● ")
		}
		text = fmt.Sprintf("%s%-32s %s  %s", marker, n.SSID, robotapi.FormatSignal(n.Signal), SubtitleStyle.Render(n.SecurityType.String()))
	}

	if selected {
		return SelectedMenuItemStyle.Render("→ " + text)
	}
	return MenuItemStyle.Render(text)
}

func (m NetworkModel) renderForm() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true).Render(m.form.Title()),
		"",
		m.form.View(),
		"",
		m.Help.View(m.ModalKeys),
	)
	return modalStyle(PrimaryColor, m.Width).Render(content)
}

func (m NetworkModel) renderConfirmDisconnect(ssid string) string {
	warning := lipgloss.NewStyle().Foreground(TextColor)
	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render("⚠ DISCONNECT FROM WI-FI"),
		"",
		warning.Render(fmt.Sprintf("  %s will leave %q.", m.Robot.Name, ssid)),
		warning.Render("  If this is how you reach the robot, it will become unreachable."),
		"",
		SubtitleStyle.Render("  enter/y: disconnect  •  esc/n: cancel"),
	)
	return modalStyle(WarningColor, m.Width).Render(content)
}

func (m NetworkModel) renderConfigResult() string {
	req := m.ctrl.ConfigRequest()
	resp, err := m.ctrl.ConfigResult()

	var lines []string
	color := SecondaryColor
	if err != nil {
		color = ErrorColor
		lines = append(lines,
			lipgloss.NewStyle().Foreground(ErrorColor).Bold(true).Render(fmt.Sprintf("✗ Could not join %s", req.SSID)),
			"",
			"  "+robotapi.GetShortErrorMessage(err),
		)
		if hint := robotapi.GetTroubleshootingHint(err); hint != "" {
			lines = append(lines, "", SubtitleStyle.Render(hint))
		}
	} else {
		lines = append(lines, SuccessBoxStyle.Render(fmt.Sprintf("✓ %s joined %s", m.Robot.Name, req.SSID)))
		if resp != nil && resp.Message != "" {
			lines = append(lines, "", "  "+resp.Message)
		}
	}
	lines = append(lines, "", SubtitleStyle.Render("  enter: close"))

	return modalStyle(color, m.Width).Render(strings.Join(lines, "\n"))
}

func (m NetworkModel) renderDisconnectResult(ds selectnetwork.DisconnectStatus) string {
	var lines []string
	color := SecondaryColor
	if ds.Failure {
		color = ErrorColor
		lines = append(lines,
			lipgloss.NewStyle().Foreground(ErrorColor).Bold(true).Render("✗ Disconnect failed"),
			"",
			"  "+robotapi.GetShortErrorMessage(ds.Error),
		)
	} else {
		lines = append(lines, SuccessBoxStyle.Render(fmt.Sprintf("✓ %s left the network", m.Robot.Name)))
		if ds.Response.Message != "" {
			lines = append(lines, "", "  "+ds.Response.Message)
		}
	}
	lines = append(lines, "", SubtitleStyle.Render("  enter: close"))

	return modalStyle(color, m.Width).Render(strings.Join(lines, "\n"))
}

func modalStyle(border lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2).
		Width(SafeModalWidth(70, width))
}

func versionOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
