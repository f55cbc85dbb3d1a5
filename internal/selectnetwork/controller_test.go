package selectnetwork

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/robowifi/internal/history"
	"github.com/muurk/robowifi/internal/requests"
	"github.com/muurk/robowifi/internal/robotapi"
)

type fakeAPI struct {
	mu sync.Mutex

	list          []NetworkEntry
	configureErr  error
	disconnectErr error
	gate          chan struct{}

	listCalls      int
	configured     []robotapi.ConfigureRequest
	disconnected   []string
	eapCalls       int
	keysCalls      int
	uploaded       map[string]string
	metadataBefore bool
}

func (f *fakeAPI) wait() {
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeAPI) FetchWifiList(ctx context.Context) ([]robotapi.WifiNetwork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.list, nil
}

func (f *fakeAPI) ConfigureWifi(ctx context.Context, req robotapi.ConfigureRequest) (*robotapi.ConfigureResponse, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configured = append(f.configured, req)
	f.metadataBefore = f.eapCalls > 0 && f.keysCalls > 0
	if f.configureErr != nil {
		return nil, f.configureErr
	}
	return &robotapi.ConfigureResponse{SSID: req.SSID, Message: "Successfully connected to " + req.SSID}, nil
}

func (f *fakeAPI) DisconnectWifi(ctx context.Context, ssid string) (*robotapi.DisconnectResponse, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, ssid)
	if f.disconnectErr != nil {
		return nil, f.disconnectErr
	}
	return &robotapi.DisconnectResponse{Message: ssid + " disconnected"}, nil
}

func (f *fakeAPI) FetchEapOptions(ctx context.Context) ([]robotapi.EapOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eapCalls++
	return []robotapi.EapOption{{Name: "peap/mschapv2", DisplayName: "PEAP/MSCHAP v2"}}, nil
}

func (f *fakeAPI) FetchKeys(ctx context.Context) ([]robotapi.WifiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keysCalls++
	return []robotapi.WifiKey{{ID: "k1", Name: "ca.pem"}}, nil
}

func (f *fakeAPI) AddKey(ctx context.Context, name string, r io.Reader) (*robotapi.WifiKey, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploaded == nil {
		f.uploaded = make(map[string]string)
	}
	f.uploaded[name] = string(data)
	return &robotapi.WifiKey{ID: "k2", Name: name}, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []history.Event
}

func (r *fakeRecorder) Record(ev history.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type fakeRediscoverer struct {
	mu    sync.Mutex
	names []string
}

func (r *fakeRediscoverer) Rediscover(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return nil
}

func newTestController(t *testing.T, api *fakeAPI, opts ...Option) *Controller {
	t.Helper()
	return NewController("opentrons-test", api, requests.NewTracker(), opts...)
}

func await(t *testing.T, c *Controller, ids []string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Await(ctx, ids); err != nil {
		t.Fatalf("Await() error = %v", err)
	}
}

func TestController_InitializesFromActiveNetwork(t *testing.T) {
	c := newTestController(t, &fakeAPI{})

	if got := c.State(); got != IdleState() {
		t.Errorf("state before list = %+v, want idle", got)
	}

	c.SetList(scenarioList())
	want := State{SSID: "A", NetworkingType: Connect, SecurityType: robotapi.SecurityNone}
	if got := c.State(); got != want {
		t.Errorf("State() = %+v, want %+v", got, want)
	}

	// Later lists do not reset the selection
	c.HandleValueChange("B")
	c.SetList([]NetworkEntry{{SSID: "Z", Active: true, SecurityType: robotapi.SecurityWPAPSK}})
	if got := c.State().SSID; got != "B" {
		t.Errorf("SSID after refresh = %q, want B", got)
	}
}

func TestController_SelectAndCancel(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(t, api)
	c.SetList(scenarioList())

	ids := c.HandleValueChange("C")
	if len(ids) != 0 {
		t.Errorf("selecting a secured network dispatched %v", ids)
	}

	want := State{SSID: "C", PreviousSSID: "A", NetworkingType: Connect, SecurityType: robotapi.SecurityWPAEAP, ModalOpen: true}
	if got := c.State(); got != want {
		t.Errorf("after select = %+v, want %+v", got, want)
	}

	c.HandleCancel()
	want = State{SSID: "A", NetworkingType: Connect, SecurityType: robotapi.SecurityNone}
	if got := c.State(); got != want {
		t.Errorf("after cancel = %+v, want %+v", got, want)
	}
}

func TestController_ConfigureImmediately(t *testing.T) {
	api := &fakeAPI{list: scenarioList()}
	recorder := &fakeRecorder{}
	rediscoverer := &fakeRediscoverer{}
	c := newTestController(t, api, WithRecorder(recorder), WithRediscoverer(rediscoverer))
	c.SetList(scenarioList())

	ids := c.HandleValueChange("D")
	if len(ids) != 1 {
		t.Fatalf("ids = %v, want one configure request", ids)
	}
	if c.ConnectingTo() != "D" {
		t.Errorf("ConnectingTo() = %q, want D", c.ConnectingTo())
	}

	await(t, c, ids)

	if len(api.configured) != 1 || api.configured[0].SSID != "D" || api.configured[0].SecurityType != robotapi.SecurityNone {
		t.Errorf("configured = %+v", api.configured)
	}
	if api.eapCalls != 0 {
		t.Errorf("metadata should not be fetched when configuring immediately")
	}
	if api.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1 refresh after configure", api.listCalls)
	}
	if len(rediscoverer.names) != 1 || rediscoverer.names[0] != "opentrons-test" {
		t.Errorf("rediscovered = %v", rediscoverer.names)
	}
	if c.ConnectingTo() != "" {
		t.Errorf("ConnectingTo() = %q after completion, want empty", c.ConnectingTo())
	}
	if !c.ShowConfig() {
		t.Fatal("ShowConfig() should be true after configure completes")
	}
	resp, err := c.ConfigResult()
	if err != nil || resp == nil || resp.SSID != "D" {
		t.Errorf("ConfigResult() = %+v, %v", resp, err)
	}

	if len(recorder.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(recorder.events))
	}
	ev := recorder.events[0]
	if ev.Action != history.ActionConfigure || ev.Status != history.StatusSuccess || ev.SSID != "D" {
		t.Errorf("event = %+v", ev)
	}

	c.Close()
	if c.ShowConfig() {
		t.Error("Close() should clear the configure result")
	}
}

func TestController_FetchMetadataBeforeConfiguring(t *testing.T) {
	api := &fakeAPI{list: scenarioList()}
	c := newTestController(t, api)
	c.SetList([]NetworkEntry{{SSID: "D", SecurityType: robotapi.SecurityNone}})

	ids := c.HandleValueChange("D")
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want eap options and keys requests", ids)
	}
	if c.ConnectingTo() != "" {
		t.Error("configure should wait for metadata")
	}

	await(t, c, ids)

	if len(api.configured) != 1 || api.configured[0].SSID != "D" {
		t.Fatalf("configured = %+v, want one configure for D", api.configured)
	}
	if !api.metadataBefore {
		t.Error("metadata should be fetched before configuring")
	}
	if len(c.EapOptions()) != 1 || len(c.Keys()) != 1 {
		t.Errorf("EapOptions() = %v, Keys() = %v", c.EapOptions(), c.Keys())
	}
}

func TestController_IgnoresPicksWhileConnecting(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	c := newTestController(t, api)
	c.SetList(scenarioList())

	ids := c.HandleValueChange("D")
	before := c.State()

	if got := c.HandleValueChange("B"); got != nil {
		t.Errorf("pick while connecting dispatched %v", got)
	}
	if c.State() != before {
		t.Errorf("state changed while connecting: %+v", c.State())
	}

	close(api.gate)
	await(t, c, ids)
}

func TestController_ConfigureValidation(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(t, api)
	c.SetList(scenarioList())
	c.HandleValueChange("B")

	ids := c.Configure(robotapi.ConfigureRequest{SSID: "B", SecurityType: robotapi.SecurityWPAPSK, PSK: "short"})
	if len(ids) != 0 {
		t.Errorf("invalid configure dispatched %v", ids)
	}
	if c.State().ModalOpen {
		t.Error("submitting should close the credential form")
	}
	if !c.ShowConfig() {
		t.Fatal("validation failure should be shown")
	}
	if _, err := c.ConfigResult(); !robotapi.IsValidationError(err) {
		t.Errorf("ConfigResult() error = %v, want validation error", err)
	}
}

func TestController_ConfigureFailure(t *testing.T) {
	api := &fakeAPI{configureErr: robotapi.NewHTTPError(401, "Invalid password")}
	recorder := &fakeRecorder{}
	c := newTestController(t, api, WithRecorder(recorder))
	c.SetList(scenarioList())
	c.HandleValueChange("B")

	ids := c.Configure(robotapi.ConfigureRequest{SSID: "B", SecurityType: robotapi.SecurityWPAPSK, PSK: "wrongpassword"})
	await(t, c, ids)

	if _, err := c.ConfigResult(); !robotapi.IsHTTPError(err) {
		t.Errorf("ConfigResult() error = %v, want HTTP error", err)
	}
	if !c.ShowConfig() {
		t.Error("ShowConfig() should be true after failure")
	}
	if len(recorder.events) != 1 || recorder.events[0].Status != history.StatusFailure || recorder.events[0].Message != "Invalid password" {
		t.Errorf("events = %+v", recorder.events)
	}
}

func TestController_DisconnectWithoutPrevious(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(t, api)
	c.SetList([]NetworkEntry{{SSID: "B", SecurityType: robotapi.SecurityWPAPSK}})

	c.HandleValueChange(DisconnectWifiValue)
	if !c.State().ModalOpen {
		t.Fatal("disconnect pick should open the modal")
	}

	if _, ok := c.HandleDisconnectWifi(); ok {
		t.Error("HandleDisconnectWifi() should be a no-op without a previous network")
	}
	if !c.State().ModalOpen {
		t.Error("ModalOpen should be unchanged")
	}
	if len(api.disconnected) != 0 {
		t.Errorf("disconnected = %v, want none", api.disconnected)
	}
}

func TestController_DisconnectSuccess(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	recorder := &fakeRecorder{}
	c := newTestController(t, api, WithRecorder(recorder))
	c.SetList(scenarioList())
	c.HandleValueChange(DisconnectWifiValue)

	id, ok := c.HandleDisconnectWifi()
	if !ok {
		t.Fatal("HandleDisconnectWifi() should dispatch")
	}
	if !strings.HasPrefix(id, requests.IDPrefix) {
		t.Errorf("id = %q", id)
	}
	if c.State().ModalOpen {
		t.Error("modal should close before the request completes")
	}
	if !c.DisconnectStatus().Pending {
		t.Error("DisconnectStatus().Pending should be true while in flight")
	}

	close(api.gate)
	await(t, c, []string{id})

	if len(api.disconnected) != 1 || api.disconnected[0] != "A" {
		t.Errorf("disconnected = %v, want [A]", api.disconnected)
	}
	if got := c.State(); got != IdleState() {
		t.Errorf("State() = %+v, want idle", got)
	}
	status := c.DisconnectStatus()
	if status.Pending || status.Failure || status.Response == nil {
		t.Errorf("DisconnectStatus() = %+v", status)
	}
	if len(recorder.events) != 1 || recorder.events[0].Action != history.ActionDisconnect || recorder.events[0].SSID != "A" {
		t.Errorf("events = %+v", recorder.events)
	}
}

func TestController_DisconnectFailure(t *testing.T) {
	api := &fakeAPI{disconnectErr: errors.New("robot busy")}
	c := newTestController(t, api)
	c.SetList(scenarioList())
	c.HandleValueChange(DisconnectWifiValue)
	before := c.State()

	id, _ := c.HandleDisconnectWifi()
	await(t, c, []string{id})

	want := before
	want.ModalOpen = false
	if got := c.State(); got != want {
		t.Errorf("State() = %+v, want %+v", got, want)
	}
	status := c.DisconnectStatus()
	if !status.Failure || status.Error == nil {
		t.Errorf("DisconnectStatus() = %+v, want failure", status)
	}
	if len(api.disconnected) != 1 {
		t.Errorf("disconnect attempts = %d, want 1", len(api.disconnected))
	}

	c.Close()
	if c.DisconnectStatus() != (DisconnectStatus{}) {
		t.Errorf("Close() should dismiss the disconnect request")
	}
}

func TestController_NewerDisconnectSupersedes(t *testing.T) {
	api := &fakeAPI{}
	tracker := requests.NewTracker()
	c := NewController("opentrons-test", api, tracker)
	c.SetList(scenarioList())
	c.HandleValueChange(DisconnectWifiValue)

	first, _ := c.HandleDisconnectWifi()
	second, _ := c.HandleDisconnectWifi()

	st, err := tracker.Wait(context.Background(), first)
	if err != nil {
		t.Fatal(err)
	}
	c.Reconcile(first, st)
	if c.State().PreviousSSID != "A" {
		t.Error("an abandoned disconnect must not reset the selection")
	}

	await(t, c, []string{second})
	if c.State() != IdleState() {
		t.Errorf("State() = %+v, want idle", c.State())
	}
}

func TestController_AddKey(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(t, api)

	await(t, c, c.FetchCredentialMetadata())
	await(t, c, c.AddKey("client.pem", strings.NewReader("PEM")))

	if api.uploaded["client.pem"] != "PEM" {
		t.Errorf("uploaded = %v", api.uploaded)
	}
	keys := c.Keys()
	if len(keys) != 2 || keys[1].Name != "client.pem" {
		t.Errorf("Keys() = %+v", keys)
	}
}

func TestController_Refresh(t *testing.T) {
	api := &fakeAPI{list: scenarioList()}
	c := newTestController(t, api)

	await(t, c, []string{c.Refresh()})

	if len(c.List()) != 4 {
		t.Errorf("len(List()) = %d, want 4", len(c.List()))
	}
	if c.State().SSID != "A" {
		t.Errorf("first refreshed list should seed the selection, got %+v", c.State())
	}
}

func TestController_ReconcileUnknownID(t *testing.T) {
	c := newTestController(t, &fakeAPI{})
	c.SetList(scenarioList())
	before := c.State()

	ids := c.Reconcile("robotApi_request_404", requests.State{Status: requests.StatusSuccess})
	if ids != nil {
		t.Errorf("Reconcile(unknown) = %v", ids)
	}
	if c.State() != before {
		t.Error("unknown id changed state")
	}
}

func TestController_AbandonedPickDoesNotConfigure(t *testing.T) {
	list := []NetworkEntry{
		{SSID: "E", Active: true, SecurityType: robotapi.SecurityWPAEAP},
		{SSID: "A", SecurityType: robotapi.SecurityNone},
		{SSID: "W", SecurityType: robotapi.SecurityWPAPSK},
	}

	tests := []struct {
		name    string
		abandon func(c *Controller)
		want    State
	}{
		{
			name:    "newer pick",
			abandon: func(c *Controller) { c.HandleValueChange("W") },
			want:    State{SSID: "W", PreviousSSID: "A", NetworkingType: Connect, SecurityType: robotapi.SecurityWPAPSK, ModalOpen: true},
		},
		{
			name:    "cancel",
			abandon: func(c *Controller) { c.HandleCancel() },
			want:    State{SSID: "E", NetworkingType: Connect, SecurityType: robotapi.SecurityWPAEAP},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{list: list}
			c := newTestController(t, api)
			c.SetList(list)

			ids := c.HandleValueChange("A")
			if len(ids) != 2 {
				t.Fatalf("ids = %v, want eap options and keys requests", ids)
			}
			tt.abandon(c)
			await(t, c, ids)

			if len(api.configured) != 0 {
				t.Errorf("configured = %+v, want none", api.configured)
			}
			if c.ConnectingTo() != "" {
				t.Errorf("ConnectingTo() = %q, want empty", c.ConnectingTo())
			}
			if got := c.State(); got != tt.want {
				t.Errorf("State() = %+v, want %+v", got, tt.want)
			}
			if len(c.EapOptions()) != 1 || len(c.Keys()) != 1 {
				t.Errorf("metadata should still be stored: EapOptions() = %v, Keys() = %v", c.EapOptions(), c.Keys())
			}
		})
	}
}

func TestController_ConfirmedConfigureClearsPrevious(t *testing.T) {
	api := &fakeAPI{list: scenarioList()}
	c := newTestController(t, api)
	c.SetList(scenarioList())

	c.HandleValueChange("B")
	if c.State().PreviousSSID != "A" {
		t.Fatalf("PreviousSSID = %q before submit, want A", c.State().PreviousSSID)
	}

	await(t, c, c.Configure(robotapi.ConfigureRequest{SSID: "B", SecurityType: robotapi.SecurityWPAPSK, PSK: "password123"}))

	want := State{SSID: "B", NetworkingType: Connect, SecurityType: robotapi.SecurityWPAPSK}
	if got := c.State(); got != want {
		t.Errorf("State() = %+v, want %+v", got, want)
	}
}

func TestController_ReconciledRequestsLeaveTracker(t *testing.T) {
	api := &fakeAPI{list: scenarioList()}
	tracker := requests.NewTracker()
	c := NewController("opentrons-test", api, tracker)

	refresh := c.Refresh()
	metadata := c.FetchCredentialMetadata()
	await(t, c, append([]string{refresh}, metadata...))

	configure := c.HandleValueChange("D")
	await(t, c, configure)
	c.Close()

	for _, id := range append(append([]string{refresh}, metadata...), configure...) {
		if _, ok := tracker.Get(id); ok {
			t.Errorf("%s still tracked after reconcile", id)
		}
	}

	c.HandleValueChange(DisconnectWifiValue)
	id, _ := c.HandleDisconnectWifi()
	await(t, c, []string{id})
	if _, ok := tracker.Get(id); !ok {
		t.Fatal("latest disconnect should stay tracked until Close")
	}
	c.Close()
	if _, ok := tracker.Get(id); ok {
		t.Error("Close() should dismiss the disconnect")
	}
}
