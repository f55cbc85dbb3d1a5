package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/robowifi/internal/discovery"
	"github.com/muurk/robowifi/internal/requests"
	"github.com/muurk/robowifi/internal/robotapi"
	"github.com/muurk/robowifi/internal/selectnetwork"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenOpening   Screen = "opening"
	ScreenNetwork   Screen = "network"
)

// Session is everything the network screen needs for one robot
type Session struct {
	Robot          *discovery.Robot
	Controller     *selectnetwork.Controller
	Tracker        *requests.Tracker
	ShowDisconnect bool
	RefreshEvery   time.Duration
}

// Backend supplies the robot-facing pieces of the wizard.
// Open probes the robot and builds its controller; it may block.
type Backend interface {
	Scan(ctx context.Context) ([]*discovery.Robot, error)
	ScanTimeout() time.Duration
	Open(ctx context.Context, robot *discovery.Robot) (*Session, error)
}

type sessionOpenedMsg struct {
	session *Session
	err     error
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	backend Backend

	CurrentScreen Screen

	DiscoveryModel DiscoveryModel
	NetworkModel   NetworkModel

	SelectedRobot *discovery.Robot
	LastError     error

	Width   int
	Height  int
	Spinner spinner.Model
}

// NewAppModel creates the wizard. With a robot it skips discovery and
// opens that robot directly.
func NewAppModel(backend Backend, robot *discovery.Robot) AppModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	m := AppModel{
		backend:        backend,
		CurrentScreen:  ScreenDiscovery,
		DiscoveryModel: NewDiscoveryModel(backend.Scan, backend.ScanTimeout()),
		SelectedRobot:  robot,
		Spinner:        sp,
	}
	if robot != nil {
		m.CurrentScreen = ScreenOpening
	}
	return m
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	if m.CurrentScreen == ScreenOpening {
		return tea.Batch(openSession(m.backend, m.SelectedRobot), m.Spinner.Tick)
	}
	return m.DiscoveryModel.Init()
}

func openSession(backend Backend, robot *discovery.Robot) tea.Cmd {
	return func() tea.Msg {
		s, err := backend.Open(context.Background(), robot)
		return sessionOpenedMsg{session: s, err: err}
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		d, _ := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = d.(DiscoveryModel)
		m.NetworkModel.Width = msg.Width
		m.NetworkModel.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case sessionOpenedMsg:
		if msg.err != nil {
			m.LastError = msg.err
			return m.transitionTo(ScreenDiscovery)
		}
		m.LastError = nil
		m.NetworkModel = NewNetworkModel(msg.session)
		m.NetworkModel.Width = m.Width
		m.NetworkModel.Height = m.Height
		m.CurrentScreen = ScreenNetwork
		return m, m.NetworkModel.Init()
	}

	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.CurrentScreen {
	case ScreenDiscovery:
		if _, ok := msg.(tea.KeyMsg); ok && m.LastError != nil {
			m.LastError = nil
			return m, nil
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && m.canQuitDiscovery() {
			if keyMsg.String() == "q" || keyMsg.String() == "esc" {
				return m, tea.Quit
			}
		}

		updated, c := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)
		cmd = c

		if robot := m.DiscoveryModel.GetSelectedRobot(); robot != nil {
			m.DiscoveryModel.Selected = false
			m.SelectedRobot = robot
			return m.transitionTo(ScreenOpening)
		}

	case ScreenOpening:
		if tick, ok := msg.(spinner.TickMsg); ok {
			m.Spinner, cmd = m.Spinner.Update(tick)
		}

	case ScreenNetwork:
		updated, c := m.NetworkModel.Update(msg)
		m.NetworkModel = updated.(NetworkModel)
		cmd = c

		if m.NetworkModel.IsBackRequested() {
			return m.transitionTo(ScreenDiscovery)
		}
	}

	return m, cmd
}

func (m AppModel) canQuitDiscovery() bool {
	d := m.DiscoveryModel
	return !d.Scanning && !d.ManualMode && d.RobotList.FilterState() != list.Filtering
}

// transitionTo transitions to a new screen
func (m AppModel) transitionTo(screen Screen) (tea.Model, tea.Cmd) {
	m.CurrentScreen = screen

	switch screen {
	case ScreenDiscovery:
		// Keep the robots already found; a rescan is one key away
		m.DiscoveryModel.Selected = false
		return m, nil

	case ScreenOpening:
		return m, tea.Batch(openSession(m.backend, m.SelectedRobot), m.Spinner.Tick)
	}

	return m, nil
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		view := m.DiscoveryModel.View()
		if m.LastError != nil {
			return RenderModal("", m.renderOpenError(), m.Width, m.Height)
		}
		return view
	case ScreenOpening:
		return RenderApplicationContainer(m.renderOpening(), "ctrl+c: quit", m.Width, m.Height)
	case ScreenNetwork:
		return m.NetworkModel.View()
	default:
		return "Unknown screen"
	}
}

func (m AppModel) renderOpening() string {
	name := ""
	if m.SelectedRobot != nil {
		name = m.SelectedRobot.Name
	}
	return "\n" + SpinnerStyle.Render(fmt.Sprintf("  %s Contacting %s...", m.Spinner.View(), name))
}

func (m AppModel) renderOpenError() string {
	var b strings.Builder
	b.WriteString(RenderError("Could not open robot"))
	b.WriteString("\n\n  ")
	b.WriteString(robotapi.GetShortErrorMessage(m.LastError))
	if hint := robotapi.GetTroubleshootingHint(m.LastError); hint != "" {
		b.WriteString("\n\n")
		b.WriteString(SubtitleStyle.Render(hint))
	}
	b.WriteString("\n\n")
	b.WriteString(SubtitleStyle.Render("  press any key"))
	return modalStyle(ErrorColor, m.Width).Render(b.String())
}
