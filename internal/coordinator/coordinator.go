// Package coordinator drives the periodic refresh of the account snapshot and
// routes write intents to the cloud client.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"brink_bridge/internal/api"
	"brink_bridge/internal/mapper"
	"brink_bridge/internal/snapshot"
	"brink_bridge/internal/types"
)

var (
	// ErrUnknownSystem is returned for writes to a system not in the snapshot.
	ErrUnknownSystem = errors.New("unknown system")

	// ErrUnsupportedRole is returned for writes to a role that is not writable.
	ErrUnsupportedRole = errors.New("role is not writable")

	// ErrMissingParameter is returned when the system lacks a parameter the write needs.
	ErrMissingParameter = api.ErrMissingParameter
)

// Client is the subset of the cloud client the coordinator uses.
type Client interface {
	Authenticated() bool
	Login(ctx context.Context) error
	GetSystems(ctx context.Context) ([]types.System, error)
	GetDescription(ctx context.Context, systemID, gatewayID string) (map[string]*types.Parameter, error)
	SetVentilationValue(ctx context.Context, systemID, gatewayID string, mode, ventilation *types.Parameter, sel mapper.Selection) (*types.WriteResult, error)
	SetModeValue(ctx context.Context, systemID, gatewayID string, mode, ventilation *types.Parameter, sel mapper.Selection) (*types.WriteResult, error)
}

// Observer is told about every refresh cycle.
type Observer interface {
	ObserveRefresh(duration time.Duration, err error)
}

// Listener receives the snapshot after every refresh or write.
type Listener func(systems []types.System)

// Coordinator owns the refresh cycle of one account.
type Coordinator struct {
	client Client
	store  *snapshot.Store
	logger *slog.Logger

	// mu serializes refreshes and writes against the vendor session.
	mu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []Listener
	observer    Observer

	lastSuccess atomic.Int64
}

// New creates a coordinator writing into store.
func New(client Client, store *snapshot.Store, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		client: client,
		store:  store,
		logger: logger,
	}
}

// SetObserver registers the refresh observer. It must be called before Run.
func (c *Coordinator) SetObserver(o Observer) {
	c.observer = o
}

// Subscribe registers a listener for snapshot updates.
func (c *Coordinator) Subscribe(l Listener) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, l)
	c.listenersMu.Unlock()
}

// Systems returns a copy of the current snapshot.
func (c *Coordinator) Systems() []types.System {
	return c.store.Systems()
}

// LastSuccess returns the time of the last successful refresh, or zero.
func (c *Coordinator) LastSuccess() time.Time {
	n := c.lastSuccess.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logRefresh(c.Refresh(ctx))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Refresh loop stopped")
			return
		case <-ticker.C:
			c.logRefresh(c.Refresh(ctx))
		}
	}
}

func (c *Coordinator) logRefresh(err error) {
	if err == nil {
		return
	}
	var authErr *api.AuthError
	if errors.As(err, &authErr) {
		c.logger.Error("Refresh failed, credentials need to be re-entered", "error", err)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	c.logger.Warn("Refresh failed, keeping previous snapshot", "error", err)
}

// Refresh logs in if needed, fetches every system and its description and
// replaces the snapshot wholesale. On failure the previous snapshot is kept.
// Listeners run after the session lock is released.
func (c *Coordinator) Refresh(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRefresh(time.Since(start), err)
		}
	}()

	if err := c.refresh(ctx); err != nil {
		return err
	}
	c.logger.Debug("Refresh complete", "duration", time.Since(start).Round(time.Millisecond))

	c.notify()
	return nil
}

func (c *Coordinator) refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.client.Authenticated() {
		if err := c.client.Login(ctx); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	systems, err := c.client.GetSystems(ctx)
	if err != nil {
		return fmt.Errorf("get systems: %w", err)
	}

	for i := range systems {
		sys := &systems[i]
		params, err := c.client.GetDescription(ctx, sys.SystemID, sys.GatewayID)
		if err != nil {
			return fmt.Errorf("get description of system %s: %w", sys.SystemID, err)
		}
		sys.Parameters = params
	}

	c.store.Replace(systems)
	c.lastSuccess.Store(time.Now().UnixNano())
	return nil
}

// Write applies a write intent. role is "ventilation" or "mode"; target is
// matched against the option texts, then raw values, then option indices.
func (c *Coordinator) Write(ctx context.Context, systemID, gatewayID, role, target string) (*types.WriteResult, error) {
	switch role {
	case types.RoleVentilation:
		return c.SetVentilation(ctx, systemID, gatewayID, mapper.SelectAny(target))
	case types.RoleMode:
		return c.SetMode(ctx, systemID, gatewayID, mapper.SelectAny(target))
	default:
		return nil, fmt.Errorf("write %q: %w", role, ErrUnsupportedRole)
	}
}

// SetVentilation sets the ventilation level of a system. The unit switches
// to manual mode as part of the same write.
func (c *Coordinator) SetVentilation(ctx context.Context, systemID, gatewayID string, sel mapper.Selection) (*types.WriteResult, error) {
	result, err := c.write(systemID, gatewayID, func(sys types.System) (*types.WriteResult, error) {
		return c.client.SetVentilationValue(ctx, systemID, gatewayID,
			sys.Parameter(types.RoleMode), sys.Parameter(types.RoleVentilation), sel)
	})
	if err != nil {
		return nil, fmt.Errorf("set ventilation %s/%s: %w", gatewayID, systemID, err)
	}
	c.logger.Info("Ventilation set", "system_id", systemID, "selection", sel.String())
	return result, nil
}

// SetMode sets the operating mode of a system.
func (c *Coordinator) SetMode(ctx context.Context, systemID, gatewayID string, sel mapper.Selection) (*types.WriteResult, error) {
	result, err := c.write(systemID, gatewayID, func(sys types.System) (*types.WriteResult, error) {
		return c.client.SetModeValue(ctx, systemID, gatewayID,
			sys.Parameter(types.RoleMode), sys.Parameter(types.RoleVentilation), sel)
	})
	if err != nil {
		return nil, fmt.Errorf("set mode %s/%s: %w", gatewayID, systemID, err)
	}
	c.logger.Info("Mode set", "system_id", systemID, "selection", sel.String())
	return result, nil
}

// write runs do under the session lock, patches the echoed values into the
// snapshot and notifies listeners once the lock is released.
func (c *Coordinator) write(systemID, gatewayID string, do func(sys types.System) (*types.WriteResult, error)) (*types.WriteResult, error) {
	c.mu.Lock()
	sys, ok := c.store.System(systemID, gatewayID)
	if !ok {
		c.mu.Unlock()
		return nil, ErrUnknownSystem
	}
	result, err := do(sys)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	changed := (result.ModeValue != nil || result.VentilationValue != nil) &&
		c.store.ApplyWrite(systemID, gatewayID, *result)
	c.mu.Unlock()

	if changed {
		c.notify()
	}
	return result, nil
}

func (c *Coordinator) notify() {
	c.listenersMu.RLock()
	listeners := append([]Listener(nil), c.listeners...)
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		l(c.store.Systems())
	}
}
