package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"brink_bridge/internal/api"
	"brink_bridge/internal/mapper"
	"brink_bridge/internal/snapshot"
	"brink_bridge/internal/types"
)

func ptr(s string) *string { return &s }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams(vent, mode string) map[string]*types.Parameter {
	return map[string]*types.Parameter{
		types.RoleVentilation: {
			Name: "Ventilation power", ValueID: "v1", Value: ptr(vent),
			Values: []types.ParameterValue{
				{Value: "0", Text: "Stufe 0"}, {Value: "1", Text: "Stufe 1"},
				{Value: "2", Text: "Stufe 2"}, {Value: "3", Text: "Stufe 3"},
			},
		},
		types.RoleMode: {
			Name: "Operating mode", ValueID: "m1", Value: ptr(mode),
			Values: []types.ParameterValue{{Value: "0", Text: "Automatic"}, {Value: "1", Text: "Manual"}},
		},
		types.RoleFiltersNeedChange: nil,
	}
}

type fakeClient struct {
	mu sync.Mutex

	authenticated bool
	loginErr      error
	systemsErr    error
	descErr       error
	writeErr      error

	logins      int
	writes      int
	vent, mode  string
	lastSel     mapper.Selection
	writeResult *types.WriteResult
}

func (f *fakeClient) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *fakeClient) Login(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginErr != nil {
		return f.loginErr
	}
	f.authenticated = true
	return nil
}

func (f *fakeClient) GetSystems(ctx context.Context) ([]types.System, error) {
	if f.systemsErr != nil {
		return nil, f.systemsErr
	}
	return []types.System{{SystemID: "1", GatewayID: "2", Name: "Flat"}}, nil
}

func (f *fakeClient) GetDescription(ctx context.Context, systemID, gatewayID string) (map[string]*types.Parameter, error) {
	if f.descErr != nil {
		return nil, f.descErr
	}
	return testParams(f.vent, f.mode), nil
}

func (f *fakeClient) SetVentilationValue(ctx context.Context, systemID, gatewayID string, mode, ventilation *types.Parameter, sel mapper.Selection) (*types.WriteResult, error) {
	if mode == nil || ventilation == nil {
		return nil, api.ErrMissingParameter
	}
	return f.write(ventilation, sel)
}

func (f *fakeClient) SetModeValue(ctx context.Context, systemID, gatewayID string, mode, ventilation *types.Parameter, sel mapper.Selection) (*types.WriteResult, error) {
	if mode == nil {
		return nil, api.ErrMissingParameter
	}
	return f.write(mode, sel)
}

func (f *fakeClient) write(p *types.Parameter, sel mapper.Selection) (*types.WriteResult, error) {
	if _, ok := sel.Resolve(p.Values); !ok {
		return nil, api.ErrUnresolvedSelection
	}
	f.writes++
	f.lastSel = sel
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	return f.writeResult, nil
}

type recordingObserver struct {
	calls int
	last  error
}

func (o *recordingObserver) ObserveRefresh(d time.Duration, err error) {
	o.calls++
	o.last = err
}

func TestRefresh(t *testing.T) {
	client := &fakeClient{vent: "2", mode: "0"}
	store := snapshot.New()
	c := New(client, store, testLogger())
	obs := &recordingObserver{}
	c.SetObserver(obs)

	var notified []types.System
	c.Subscribe(func(s []types.System) { notified = s })

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if client.logins != 1 {
		t.Errorf("logins = %d, want 1", client.logins)
	}
	sys, ok := store.System("1", "2")
	if !ok {
		t.Fatal("system not in snapshot")
	}
	if v := sys.Parameter(types.RoleVentilation).CurrentValue(); v != "2" {
		t.Errorf("ventilation = %q, want 2", v)
	}
	if len(notified) != 1 {
		t.Errorf("listener got %d systems, want 1", len(notified))
	}
	if obs.calls != 1 || obs.last != nil {
		t.Errorf("observer calls = %d, last = %v", obs.calls, obs.last)
	}
	if c.LastSuccess().IsZero() {
		t.Error("LastSuccess() should be set")
	}

	// Already authenticated: no second login.
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if client.logins != 1 {
		t.Errorf("logins = %d, want 1", client.logins)
	}
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	client := &fakeClient{vent: "2", mode: "0"}
	store := snapshot.New()
	c := New(client, store, testLogger())
	obs := &recordingObserver{}
	c.SetObserver(obs)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	client.vent = "3"
	client.descErr = &api.ParseError{Op: "get description", Err: mapper.ErrMissingField}

	err := c.Refresh(context.Background())
	var parseErr *api.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Refresh() error = %v, want ParseError", err)
	}
	if obs.last == nil {
		t.Error("observer should see the error")
	}

	sys, _ := store.System("1", "2")
	if v := sys.Parameter(types.RoleVentilation).CurrentValue(); v != "2" {
		t.Errorf("ventilation = %q, want previous value 2", v)
	}
}

func TestRefresh_LoginFailure(t *testing.T) {
	client := &fakeClient{loginErr: &api.AuthError{Op: "login", Status: 401}}
	c := New(client, snapshot.New(), testLogger())

	err := c.Refresh(context.Background())

	var authErr *api.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("Refresh() error = %v, want AuthError", err)
	}
	if !c.LastSuccess().IsZero() {
		t.Error("LastSuccess() should stay zero")
	}
}

func TestWrite_Ventilation(t *testing.T) {
	client := &fakeClient{vent: "1", mode: "0", writeResult: &types.WriteResult{VentilationValue: ptr("3"), ModeValue: ptr("1")}}
	store := snapshot.New()
	c := New(client, store, testLogger())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	notified := 0
	c.Subscribe(func([]types.System) { notified++ })

	res, err := c.Write(context.Background(), "1", "2", types.RoleVentilation, "Stufe 3")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if *res.VentilationValue != "3" {
		t.Errorf("VentilationValue = %s, want 3", *res.VentilationValue)
	}

	sys, _ := store.System("1", "2")
	if v := sys.Parameter(types.RoleVentilation).CurrentValue(); v != "3" {
		t.Errorf("snapshot ventilation = %q, want 3", v)
	}
	if v := sys.Parameter(types.RoleMode).CurrentValue(); v != "1" {
		t.Errorf("snapshot mode = %q, want 1", v)
	}
	if notified != 1 {
		t.Errorf("notified = %d, want 1", notified)
	}
}

func TestWrite_EchoOnlyPatchesEchoed(t *testing.T) {
	client := &fakeClient{vent: "1", mode: "0", writeResult: &types.WriteResult{ModeValue: ptr("1")}}
	store := snapshot.New()
	c := New(client, store, testLogger())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if _, err := c.SetMode(context.Background(), "1", "2", mapper.SelectText("manual")); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}

	sys, _ := store.System("1", "2")
	if v := sys.Parameter(types.RoleVentilation).CurrentValue(); v != "1" {
		t.Errorf("snapshot ventilation = %q, want unchanged 1", v)
	}
	if v := sys.Parameter(types.RoleMode).CurrentValue(); v != "1" {
		t.Errorf("snapshot mode = %q, want 1", v)
	}
}

func TestWrite_Errors(t *testing.T) {
	client := &fakeClient{vent: "1", mode: "0", writeResult: &types.WriteResult{}}
	c := New(client, snapshot.New(), testLogger())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	tests := []struct {
		name   string
		system string
		role   string
		target string
		want   error
	}{
		{"unknown system", "9", types.RoleVentilation, "1", ErrUnknownSystem},
		{"unsupported role", "1", types.RoleFiltersNeedChange, "1", ErrUnsupportedRole},
		{"unresolved ventilation", "1", types.RoleVentilation, "Stufe 9", api.ErrUnresolvedSelection},
		{"unresolved mode", "1", types.RoleMode, "Party", api.ErrUnresolvedSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Write(context.Background(), tt.system, "2", tt.role, tt.target)
			if !errors.Is(err, tt.want) {
				t.Errorf("Write() error = %v, want %v", err, tt.want)
			}
		})
	}

	if client.writes != 0 {
		t.Errorf("writes = %d, want 0", client.writes)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	client := &fakeClient{vent: "1", mode: "0"}
	c := New(client, snapshot.New(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.LastSuccess().IsZero() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.LastSuccess().IsZero() {
		t.Error("Run() should refresh immediately")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestRefresh_BlockedListenerDoesNotHoldLock(t *testing.T) {
	client := &fakeClient{vent: "1", mode: "0", writeResult: &types.WriteResult{}}
	c := New(client, snapshot.New(), testLogger())

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	c.Subscribe(func([]types.System) {
		once.Do(func() {
			close(entered)
			<-release
		})
	})
	defer close(release)

	refreshed := make(chan error, 1)
	go func() { refreshed <- c.Refresh(context.Background()) }()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not called")
	}

	written := make(chan error, 1)
	go func() {
		_, err := c.SetMode(context.Background(), "1", "2", mapper.SelectText("Manual"))
		written <- err
	}()

	select {
	case err := <-written:
		if err != nil {
			t.Errorf("SetMode() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SetMode() blocked while a listener was running")
	}

	if c.LastSuccess().IsZero() {
		t.Error("LastSuccess() should be set before listeners run")
	}
}
