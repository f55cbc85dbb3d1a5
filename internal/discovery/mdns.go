package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/robowifi/internal/logging"
)

const (
	// ServiceType is the mDNS service type robots advertise
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for robot discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the default robot API port
	DefaultPort = 31950
)

// namePattern matches robot service instance names (e.g., "opentrons-moon-moon")
var namePattern = regexp.MustCompile(`^opentrons-[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Scanner handles mDNS robot discovery
type Scanner struct {
	// Timeout is the maximum time to wait for robot discovery
	Timeout time.Duration

	// OnFound, if set, is called for each robot located by Rediscover
	OnFound func(*Robot)
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all robots on the local network until the timeout elapses.
// Robots advertising on several interfaces are reported once.
func (s *Scanner) Scan(ctx context.Context) ([]*Robot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu     sync.Mutex
		robots []*Robot
		seen   = make(map[string]bool)
		done   = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			robot := s.parseServiceEntry(entry)
			if robot == nil {
				continue
			}
			mu.Lock()
			if !seen[robot.Name] {
				seen[robot.Name] = true
				robots = append(robots, robot)
				logging.Debug("Robot discovered", zap.String("name", robot.Name), zap.String("ip", robot.IP))
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once browsing stops.
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Robot(nil), robots...), nil
}

// WaitForRobot waits for a specific robot by name.
// Returns the robot or an error if it is not seen within the timeout.
func (s *Scanner) WaitForRobot(ctx context.Context, name string) (*Robot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Robot, 1)

	go func() {
		for entry := range entries {
			robot := s.parseServiceEntry(entry)
			if robot != nil && robot.Name == name {
				select {
				case found <- robot:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case robot := <-found:
		return robot, nil
	case <-ctx.Done():
		select {
		case robot := <-found:
			return robot, nil
		default:
		}
		return nil, fmt.Errorf("robot %s not found within timeout", name)
	}
}

// Rediscover looks the robot up again, typically after it has joined a new
// network, and reports it through OnFound.
func (s *Scanner) Rediscover(ctx context.Context, name string) error {
	robot, err := s.WaitForRobot(ctx, name)
	if err != nil {
		return err
	}

	logging.Info("Robot rediscovered",
		zap.String("name", robot.Name),
		zap.String("ip", robot.IP),
	)

	if s.OnFound != nil {
		s.OnFound(robot)
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Robot.
// Returns nil if the entry is not a robot.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Robot {
	name := entry.Instance
	if !namePattern.MatchString(name) {
		return nil
	}

	// Prefer IPv4
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Robot{
		Name:         name,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan(ctx context.Context) ([]*Robot, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.Scan(ctx)
}
