package selectnetwork

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/muurk/robowifi/internal/history"
	"github.com/muurk/robowifi/internal/logging"
	"github.com/muurk/robowifi/internal/requests"
	"github.com/muurk/robowifi/internal/robotapi"
)

// API is the subset of the robot client the controller drives.
// *robotapi.Client satisfies it.
type API interface {
	FetchWifiList(ctx context.Context) ([]robotapi.WifiNetwork, error)
	ConfigureWifi(ctx context.Context, req robotapi.ConfigureRequest) (*robotapi.ConfigureResponse, error)
	DisconnectWifi(ctx context.Context, ssid string) (*robotapi.DisconnectResponse, error)
	FetchEapOptions(ctx context.Context) ([]robotapi.EapOption, error)
	FetchKeys(ctx context.Context) ([]robotapi.WifiKey, error)
	AddKey(ctx context.Context, name string, r io.Reader) (*robotapi.WifiKey, error)
}

// Rediscoverer looks a robot up again after it changes networks
type Rediscoverer interface {
	Rediscover(ctx context.Context, name string) error
}

type requestKind string

const (
	kindList       requestKind = "wifi-list"
	kindConfigure  requestKind = "configure"
	kindDisconnect requestKind = "disconnect"
	kindEapOptions requestKind = "eap-options"
	kindKeys       requestKind = "keys"
	kindAddKey     requestKind = "add-key"
)

// configureResult is the response of the configure chain
type configureResult struct {
	Response *robotapi.ConfigureResponse
	List     []NetworkEntry
}

// DisconnectStatus is the presentation view of the latest disconnect request
type DisconnectStatus struct {
	Pending  bool
	Failure  bool
	Response *robotapi.DisconnectResponse
	Error    error
}

// Option configures a Controller
type Option func(*Controller)

// WithRecorder journals configure, disconnect and key upload outcomes
func WithRecorder(r history.Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithRediscoverer runs discovery for the robot after each configure
func WithRediscoverer(r Rediscoverer) Option {
	return func(c *Controller) { c.rediscoverer = r }
}

// WithLogger overrides the package-global logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithContext sets the context every dispatched request runs under
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

// Controller owns the selection state for one robot and the requests it issues.
// It is not safe for concurrent use: call it from a single event loop and feed
// request completions back through Reconcile.
type Controller struct {
	robot        string
	api          API
	tracker      *requests.Tracker
	recorder     history.Recorder
	rediscoverer Rediscoverer
	logger       *zap.Logger
	ctx          context.Context

	initialized bool
	state       State
	list        []NetworkEntry
	eapOptions  []robotapi.EapOption
	keys        []robotapi.WifiKey

	connectingTo   string
	configRequest  *robotapi.ConfigureRequest
	configResponse *robotapi.ConfigureResponse
	configError    error

	disconnectID   string
	disconnectSSID string

	pending       map[string]requestKind
	metadataIDs   map[string]bool
	deferredSetup *robotapi.ConfigureRequest
}

// NewController creates a controller for the named robot
func NewController(robot string, api API, tracker *requests.Tracker, opts ...Option) *Controller {
	c := &Controller{
		robot:       robot,
		api:         api,
		tracker:     tracker,
		ctx:         context.Background(),
		state:       IdleState(),
		pending:     make(map[string]requestKind),
		metadataIDs: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.GetLogger()
	}
	c.logger = c.logger.With(zap.String("robot", robot))
	return c
}

// SetList stores the latest network list. The first list seeds the selection
// from the active network.
func (c *Controller) SetList(list []NetworkEntry) {
	c.list = list
	if c.initialized {
		return
	}
	c.initialized = true

	active := GetActiveSSID(list)
	c.state = State{
		SSID:           active,
		NetworkingType: Connect,
		SecurityType:   GetSecurityType(list, active),
	}
	c.logger.Debug("Selection initialized", zap.String("active_ssid", active))
}

// Refresh dispatches a network list fetch
func (c *Controller) Refresh() string {
	return c.dispatch(kindList, func(ctx context.Context) (any, error) {
		return c.api.FetchWifiList(ctx)
	})
}

// HandleValueChange applies a pick from the network picker and returns the ids
// of any requests it started. Picks are ignored while a connection is underway.
func (c *Controller) HandleValueChange(value string) []string {
	if c.connectingTo != "" {
		c.logger.Debug("Ignoring selection while connecting", zap.String("connecting_to", c.connectingTo))
		return nil
	}
	c.dropDeferred()

	sel := DeriveSelection(c.list, value, c.state)
	c.state = sel.State

	c.logger.Debug("Network selected",
		zap.String("value", value),
		zap.String("previous_ssid", sel.PreviousSSID),
		zap.String("networking_type", string(sel.NetworkingType)),
		zap.String("security_type", string(sel.SecurityType)),
		zap.Bool("modal_open", sel.ModalOpen),
	)

	req := robotapi.ConfigureRequest{SSID: value, SecurityType: robotapi.SecurityNone}
	switch {
	case sel.ConfigureImmediately:
		return c.configure(req)
	case sel.FetchCredentialMetadata:
		c.deferredSetup = &req
		return c.FetchCredentialMetadata()
	}
	return nil
}

// HandleCancel closes the modal and restores the previous selection
func (c *Controller) HandleCancel() {
	c.dropDeferred()
	c.state = DeriveCancel(c.list, c.state.PreviousSSID)
}

// HandleDisconnectWifi asks the robot to leave the previously selected network.
// It does nothing when there is no previous network.
func (c *Controller) HandleDisconnectWifi() (string, bool) {
	ssid := c.state.PreviousSSID
	if ssid == "" {
		return "", false
	}
	c.dropDeferred()

	id := c.dispatch(kindDisconnect, func(ctx context.Context) (any, error) {
		return c.api.DisconnectWifi(ctx, ssid)
	})
	c.disconnectID = id
	c.disconnectSSID = ssid
	c.state.ModalOpen = false
	return id, true
}

// Configure submits credentials collected by the modal
func (c *Controller) Configure(req robotapi.ConfigureRequest) []string {
	c.dropDeferred()
	c.state.ModalOpen = false
	return c.configure(req)
}

// AddKey uploads a key file for EAP authentication
func (c *Controller) AddKey(name string, r io.Reader) []string {
	id := c.dispatch(kindAddKey, func(ctx context.Context) (any, error) {
		return c.api.AddKey(ctx, name, r)
	})
	return []string{id}
}

// FetchCredentialMetadata loads EAP options and stored keys
func (c *Controller) FetchCredentialMetadata() []string {
	eapID := c.dispatch(kindEapOptions, func(ctx context.Context) (any, error) {
		return c.api.FetchEapOptions(ctx)
	})
	keysID := c.dispatch(kindKeys, func(ctx context.Context) (any, error) {
		return c.api.FetchKeys(ctx)
	})
	c.metadataIDs[eapID] = true
	c.metadataIDs[keysID] = true
	return []string{eapID, keysID}
}

// Reconcile applies the outcome of a request this controller started and
// returns the ids of any follow-up requests. Unknown ids are ignored.
func (c *Controller) Reconcile(id string, st requests.State) []string {
	kind, ok := c.pending[id]
	if !ok || !st.Done() {
		return nil
	}
	delete(c.pending, id)

	// The latest disconnect stays tracked until Close; DisconnectStatus reads it
	if kind != kindDisconnect || id != c.disconnectID {
		c.tracker.Dismiss(id)
	}

	if st.Error != nil {
		c.logger.Warn("Request failed",
			zap.String("request_id", id),
			zap.String("kind", string(kind)),
			zap.String("reason", robotapi.GetShortErrorMessage(st.Error)),
		)
	}

	switch kind {
	case kindList:
		if list, ok := st.Response.([]NetworkEntry); ok {
			c.SetList(list)
		}

	case kindConfigure:
		c.connectingTo = ""
		if st.Status == requests.StatusFailure {
			c.configError = st.Error
			c.record(history.ActionConfigure, c.configSSID(), st)
			break
		}
		if res, ok := st.Response.(*configureResult); ok {
			c.configResponse = res.Response
			if res.List != nil {
				c.SetList(res.List)
			}
		}
		if c.state.SSID == c.configSSID() {
			c.state.PreviousSSID = ""
		}
		c.record(history.ActionConfigure, c.configSSID(), st)

	case kindDisconnect:
		if id != c.disconnectID {
			// superseded by a newer disconnect
			return nil
		}
		if st.Status == requests.StatusSuccess {
			c.state = IdleState()
		}
		c.record(history.ActionDisconnect, c.disconnectSSID, st)

	case kindEapOptions:
		if opts, ok := st.Response.([]robotapi.EapOption); ok {
			c.eapOptions = opts
		}
		return c.metadataResolved(id)

	case kindKeys:
		if keys, ok := st.Response.([]robotapi.WifiKey); ok {
			c.keys = keys
		}
		return c.metadataResolved(id)

	case kindAddKey:
		if key, ok := st.Response.(*robotapi.WifiKey); ok && key != nil {
			c.keys = append(c.keys, *key)
		}
		c.record(history.ActionAddKey, "", st)
	}

	return nil
}

// Close dismisses whatever the modal is showing: the configure result if
// there is one, otherwise the latest disconnect request.
func (c *Controller) Close() {
	if c.ShowConfig() {
		c.configRequest = nil
		c.configResponse = nil
		c.configError = nil
		return
	}
	if c.disconnectID != "" {
		c.tracker.Dismiss(c.disconnectID)
	}
}

// Await blocks until every id and any follow-up requests have been reconciled
func (c *Controller) Await(ctx context.Context, ids []string) error {
	queue := append([]string(nil), ids...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		st, err := c.tracker.Wait(ctx, id)
		if err != nil {
			return err
		}
		queue = append(queue, c.Reconcile(id, st)...)
	}
	return nil
}

// State returns the current selection
func (c *Controller) State() State {
	return c.state
}

// List returns the latest network list
func (c *Controller) List() []NetworkEntry {
	return c.list
}

func (c *Controller) EapOptions() []robotapi.EapOption {
	return c.eapOptions
}

func (c *Controller) Keys() []robotapi.WifiKey {
	return c.keys
}

// ConnectingTo returns the SSID of an in-flight configure, or ""
func (c *Controller) ConnectingTo() string {
	return c.connectingTo
}

// ConfigRequest returns the last submitted configure request, or nil
func (c *Controller) ConfigRequest() *robotapi.ConfigureRequest {
	return c.configRequest
}

func (c *Controller) Robot() string {
	return c.robot
}

// ConfigResult returns the last configure response and error
func (c *Controller) ConfigResult() (*robotapi.ConfigureResponse, error) {
	return c.configResponse, c.configError
}

// ShowConfig reports whether a finished configure result is waiting to be shown
func (c *Controller) ShowConfig() bool {
	return c.configRequest != nil && (c.configError != nil || c.configResponse != nil)
}

// DisconnectStatus reports on the latest disconnect request
func (c *Controller) DisconnectStatus() DisconnectStatus {
	if c.disconnectID == "" {
		return DisconnectStatus{}
	}
	st, ok := c.tracker.Get(c.disconnectID)
	if !ok {
		return DisconnectStatus{}
	}

	status := DisconnectStatus{
		Pending: st.Status == requests.StatusPending,
		Failure: st.Status == requests.StatusFailure,
		Error:   st.Error,
	}
	if resp, ok := st.Response.(*robotapi.DisconnectResponse); ok {
		status.Response = resp
	}
	return status
}

// configure validates and dispatches the configure chain:
// join the network, rediscover the robot, then refresh the list.
func (c *Controller) configure(req robotapi.ConfigureRequest) []string {
	c.configRequest = &req
	c.configResponse = nil
	c.configError = nil

	if err := req.Validate(); err != nil {
		c.configError = err
		return nil
	}

	c.connectingTo = req.SSID
	id := c.dispatch(kindConfigure, func(ctx context.Context) (any, error) {
		resp, err := c.api.ConfigureWifi(ctx, req)
		if err != nil {
			return nil, err
		}

		if c.rediscoverer != nil {
			if err := c.rediscoverer.Rediscover(ctx, c.robot); err != nil {
				c.logger.Warn("Rediscovery after configure failed", zap.Error(err))
			}
		}

		list, err := c.api.FetchWifiList(ctx)
		if err != nil {
			c.logger.Warn("List refresh after configure failed", zap.Error(err))
			list = nil
		}
		return &configureResult{Response: resp, List: list}, nil
	})
	return []string{id}
}

// metadataResolved runs the deferred configure once every metadata fetch is back
func (c *Controller) metadataResolved(id string) []string {
	delete(c.metadataIDs, id)
	if len(c.metadataIDs) > 0 || c.deferredSetup == nil {
		return nil
	}
	req := *c.deferredSetup
	c.deferredSetup = nil
	return c.configure(req)
}

// dropDeferred abandons a configure still waiting on metadata. Outstanding
// metadata fetches still store their results when they land.
func (c *Controller) dropDeferred() {
	if c.deferredSetup != nil {
		c.logger.Debug("Dropping deferred configure", zap.String("ssid", c.deferredSetup.SSID))
	}
	c.deferredSetup = nil
	clear(c.metadataIDs)
}

func (c *Controller) dispatch(kind requestKind, fn requests.Func) string {
	id := c.tracker.Dispatch(c.ctx, string(kind), fn)
	c.pending[id] = kind
	return id
}

func (c *Controller) configSSID() string {
	if c.configRequest == nil {
		return ""
	}
	return c.configRequest.SSID
}

func (c *Controller) record(action history.Action, ssid string, st requests.State) {
	if c.recorder == nil {
		return
	}

	ev := history.Event{
		Robot:  c.robot,
		SSID:   ssid,
		Action: action,
		Status: history.StatusSuccess,
	}
	if st.Status == requests.StatusFailure {
		ev.Status = history.StatusFailure
		if st.Error != nil {
			ev.Message = robotapi.GetShortErrorMessage(st.Error)
		}
	} else {
		switch resp := st.Response.(type) {
		case *configureResult:
			if resp.Response != nil {
				ev.Message = resp.Response.Message
			}
		case *robotapi.DisconnectResponse:
			if resp != nil {
				ev.Message = resp.Message
			}
		case *robotapi.WifiKey:
			if resp != nil {
				ev.Message = resp.Name
			}
		}
	}

	if err := c.recorder.Record(ev); err != nil {
		c.logger.Warn("Failed to record history", zap.Error(err))
	}
}
