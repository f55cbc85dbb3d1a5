package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/robowifi/internal/config"
	"github.com/muurk/robowifi/internal/discovery"
	"github.com/muurk/robowifi/internal/history"
	"github.com/muurk/robowifi/internal/logging"
	"github.com/muurk/robowifi/internal/requests"
	"github.com/muurk/robowifi/internal/robotapi"
	"github.com/muurk/robowifi/internal/selectnetwork"
	"github.com/muurk/robowifi/internal/wizard/tui"
)

// environment is the local state every robot operation shares: the config
// registry and the operation history.
type environment struct {
	mu       sync.Mutex
	registry *config.Registry
	store    history.Store
}

func openEnvironment() (*environment, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	path, err := registry.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate history: %w", err)
	}
	store, err := history.NewBoltStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	return &environment{registry: registry, store: store}, nil
}

func (e *environment) Close() error {
	return e.store.Close()
}

// seen records a robot sighting and persists the registry
func (e *environment) seen(robot *discovery.Robot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.UpdateRobotLastSeen(robot.Name, robot.IP, discovery.RobotAPIVersion(robot))
	e.saveLocked()
}

func (e *environment) saveLocked() {
	if err := e.registry.Save(); err != nil {
		logging.Warn("Failed to save config", zap.Error(err))
	}
}

func (e *environment) scanner() *discovery.Scanner {
	s := discovery.NewScanner()
	s.Timeout = e.registry.DiscoverTimeout()
	return s
}

// scan runs mDNS discovery and remembers every robot found
func (e *environment) scan(ctx context.Context) ([]*discovery.Robot, error) {
	robots, err := e.scanner().Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, robot := range robots {
		e.seen(robot)
	}
	return robots, nil
}

// probe checks the robot answers and learns its name and API version
func (e *environment) probe(ctx context.Context, robot *discovery.Robot) (*robotapi.Client, error) {
	client := robotapi.NewClient(robot.IP, robot.Port)

	health, err := client.Health(ctx)
	if err != nil {
		return nil, err
	}

	// Manually entered robots are named after their address until the robot says otherwise
	if robot.Hostname == "" && health.Name != "" {
		robot.Name = health.Name
	}
	robot.HealthAPIVersion = health.APIVersion

	logging.Debug("Robot probed",
		zap.String("name", robot.Name),
		zap.String("address", robot.Address()),
		zap.String("api_version", health.APIVersion),
	)

	e.seen(robot)
	return client, nil
}

// controller builds the network selection controller for a probed robot.
// Outcomes go to the history store; after a configure the robot is
// rediscovered and its new address remembered.
func (e *environment) controller(ctx context.Context, robot *discovery.Robot, api selectnetwork.API, tracker *requests.Tracker) *selectnetwork.Controller {
	rediscover := e.scanner()
	rediscover.OnFound = e.seen

	return selectnetwork.NewController(robot.Name, api, tracker,
		selectnetwork.WithContext(ctx),
		selectnetwork.WithRecorder(&journal{env: e}),
		selectnetwork.WithRediscoverer(rediscover),
	)
}

// showDisconnect reports whether the robot should be offered the disconnect option
func (e *environment) showDisconnect(robot *discovery.Robot) bool {
	return selectnetwork.ShowWifiDisconnect(e.registry.WifiDisconnectEnabled(), discovery.RobotAPIVersion(robot))
}

// resolveRobot turns the --robot flag into a robot. The flag takes an IP
// address, ip:port or the name of a robot seen before. Without it, the
// network is scanned and exactly one robot must answer.
func (e *environment) resolveRobot(ctx context.Context, value string, port int) (*discovery.Robot, error) {
	if value != "" {
		return e.lookupRobot(value, port)
	}

	fmt.Fprintln(os.Stderr, "No robot specified, attempting auto-discovery...")
	robots, err := e.scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	switch len(robots) {
	case 0:
		return nil, fmt.Errorf("no robots found. Use --robot to specify an IP address")
	case 1:
		fmt.Fprintf(os.Stderr, "Found robot: %s (%s)\n\n", robots[0].Name, robots[0].IP)
		return robots[0], nil
	}

	fmt.Fprintf(os.Stderr, "Found %d robots:\n", len(robots))
	for i, robot := range robots {
		fmt.Fprintf(os.Stderr, "%d. %s (%s)\n", i+1, robot.Name, robot.IP)
	}
	return nil, fmt.Errorf("multiple robots found. Use --robot to specify which one")
}

func (e *environment) lookupRobot(value string, port int) (*discovery.Robot, error) {
	host := value
	if h, p, err := net.SplitHostPort(value); err == nil {
		if _, err := fmt.Sscanf(p, "%d", &port); err != nil {
			return nil, fmt.Errorf("invalid port in %q", value)
		}
		host = h
	}

	if net.ParseIP(host) != nil {
		name := e.registry.FindRobotByIP(host)
		if name == "" {
			name = host
		}
		return &discovery.Robot{Name: name, IP: host, Port: port, DiscoveredAt: time.Now()}, nil
	}

	known := e.registry.GetRobot(host)
	if known == nil || known.LastIP == "" {
		return nil, fmt.Errorf("unknown robot %q. Use an IP address or run 'robowifi scan' first", host)
	}
	return &discovery.Robot{
		Name:             host,
		Hostname:         host,
		IP:               known.LastIP,
		Port:             port,
		HealthAPIVersion: known.APIVersion,
		DiscoveredAt:     known.LastSeen,
	}, nil
}

// journal records controller outcomes and remembers the last network each
// robot joined.
type journal struct {
	env *environment
}

func (j *journal) Record(ev history.Event) error {
	if err := j.env.store.Record(ev); err != nil {
		logging.Warn("Failed to record history", zap.Error(err))
		return err
	}

	if ev.Action == history.ActionConfigure && ev.Status == history.StatusSuccess {
		j.env.mu.Lock()
		j.env.registry.SetLastSSID(ev.Robot, ev.SSID)
		j.env.saveLocked()
		j.env.mu.Unlock()
	}
	return nil
}

// wizardBackend adapts the environment to the wizard
type wizardBackend struct {
	env *environment
	ctx context.Context
}

func (b *wizardBackend) Scan(ctx context.Context) ([]*discovery.Robot, error) {
	return b.env.scan(ctx)
}

func (b *wizardBackend) ScanTimeout() time.Duration {
	return b.env.registry.DiscoverTimeout()
}

func (b *wizardBackend) Open(ctx context.Context, robot *discovery.Robot) (*tui.Session, error) {
	client, err := b.env.probe(ctx, robot)
	if err != nil {
		return nil, err
	}

	tracker := requests.NewTracker()
	return &tui.Session{
		Robot:          robot,
		Controller:     b.env.controller(b.ctx, robot, client, tracker),
		Tracker:        tracker,
		ShowDisconnect: b.env.showDisconnect(robot),
		RefreshEvery:   b.env.registry.ListRefreshInterval(),
	}, nil
}

// wizardLogPath is where log output goes while the wizard owns the terminal
func wizardLogPath() (string, error) {
	if logFile != "" {
		return logFile, nil
	}
	return config.LogPath()
}
