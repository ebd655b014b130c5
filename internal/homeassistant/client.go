// Package homeassistant publishes Brink systems to Home Assistant over MQTT
// discovery and routes command topics back into write intents.
package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"brink_bridge/internal/mapper"
	"brink_bridge/internal/types"
)

const (
	payloadOn  = "ON"
	payloadOff = "OFF"

	// defaultOnPercentage is used when the fan is switched on without a speed.
	defaultOnPercentage = 33
)

// ErrTimeout is returned when the broker does not complete a publish or
// subscribe within the bridge timeout.
var ErrTimeout = errors.New("mqtt operation timed out")

var deviceClasses = map[string]string{
	types.KindCO2:         "carbon_dioxide",
	types.KindTemperature: "temperature",
	types.KindHumidity:    "humidity",
}

// MQTT is the subset of mqtt.Client the bridge needs.
type MQTT interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Controller applies write intents coming from command topics.
type Controller interface {
	SetVentilation(ctx context.Context, systemID, gatewayID string, sel mapper.Selection) (*types.WriteResult, error)
	SetMode(ctx context.Context, systemID, gatewayID string, sel mapper.Selection) (*types.WriteResult, error)
}

// Bridge mirrors the account snapshot into Home Assistant.
type Bridge struct {
	mqtt            MQTT
	controller      Controller
	topicPrefix     string
	discoveryPrefix string
	timeout         time.Duration
	logger          *slog.Logger

	mu         sync.Mutex
	registered map[string]string // unit key to discovery fingerprint
	subscribed map[string]bool
}

// NewBridge creates a bridge. timeout bounds each broker operation and each
// write triggered by a command.
func NewBridge(client MQTT, controller Controller, topicPrefix, discoveryPrefix string, timeout time.Duration, logger *slog.Logger) *Bridge {
	return &Bridge{
		mqtt:            client,
		controller:      controller,
		topicPrefix:     topicPrefix,
		discoveryPrefix: discoveryPrefix,
		timeout:         timeout,
		logger:          logger,
		registered:      make(map[string]string),
		subscribed:      make(map[string]bool),
	}
}

// Update registers unseen or changed systems and publishes the state of all
// of them.
// It is meant to be subscribed to the coordinator.
func (b *Bridge) Update(systems []types.System) {
	for i := range systems {
		sys := &systems[i]
		if err := b.ensureRegistered(sys); err != nil {
			b.logger.Error("Home Assistant registration failed", "system_id", sys.SystemID, "error", err)
			continue
		}
		if err := b.PublishState(sys); err != nil {
			b.logger.Warn("MQTT publishing failed", "system_id", sys.SystemID, "error", err)
		}
	}
}

// Reset forgets registered systems so the next Update republishes discovery
// and resubscribes. Call it after the broker connection was re-established.
func (b *Bridge) Reset() {
	b.mu.Lock()
	b.registered = make(map[string]string)
	b.subscribed = make(map[string]bool)
	b.mu.Unlock()
}

func (b *Bridge) ensureRegistered(sys *types.System) error {
	key := unitKey(sys)
	fp := fingerprint(sys)

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.subscribed[key] {
		if err := b.Subscribe(sys); err != nil {
			return err
		}
		b.subscribed[key] = true
	}
	if prev, ok := b.registered[key]; ok && prev == fp {
		return nil
	}
	if err := b.Register(sys); err != nil {
		return err
	}
	b.registered[key] = fp
	return nil
}

// fingerprint identifies the discovery-relevant shape of a system: its name,
// the roles it exposes and their option texts.
func fingerprint(sys *types.System) string {
	roles := make([]string, 0, len(sys.Parameters))
	for role, p := range sys.Parameters {
		if p != nil {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)

	var sb strings.Builder
	sb.WriteString(sys.Name)
	for _, role := range roles {
		p := sys.Parameters[role]
		sb.WriteString("\n" + role + "=" + p.Name + "|" + p.Kind)
		for _, text := range mapper.OptionTexts(p) {
			sb.WriteString("|" + text)
		}
	}
	return sb.String()
}

// Register publishes retained discovery configurations for a system.
func (b *Bridge) Register(sys *types.System) error {
	dev := b.device(sys)
	key := unitKey(sys)

	if vent := sys.Parameter(types.RoleVentilation); vent != nil {
		if err := b.publishConfig("fan", key+"_fan", fanConfiguration{
			UniqueId:               "brink_" + key + "_fan",
			Name:                   dev.Name,
			StateTopic:             b.topic(sys, "fan/state"),
			CommandTopic:           b.topic(sys, "fan/cmd"),
			PercentageStateTopic:   b.topic(sys, "fan/percentage/state"),
			PercentageCommandTopic: b.topic(sys, "fan/percentage/cmd"),
			PresetModeStateTopic:   b.topic(sys, "fan/preset/state"),
			PresetModeCommandTopic: b.topic(sys, "fan/preset/cmd"),
			PresetModes:            mapper.OptionTexts(vent),
			SpeedRangeMin:          mapper.SpeedMin,
			SpeedRangeMax:          mapper.SpeedMax,
			Device:                 dev,
		}); err != nil {
			return err
		}
	}

	if mode := sys.Parameter(types.RoleMode); mode != nil {
		if err := b.publishConfig("select", key+"_mode", selectConfiguration{
			UniqueId:     "brink_" + key + "_mode",
			Name:         fmt.Sprintf("%s %s", dev.Name, mode.Name),
			StateTopic:   b.topic(sys, "mode/state"),
			CommandTopic: b.topic(sys, "mode/cmd"),
			Options:      mapper.OptionTexts(mode),
			Icon:         "mdi:hvac",
			Device:       dev,
		}); err != nil {
			return err
		}
	}

	if filter := sys.Parameter(types.RoleFiltersNeedChange); filter != nil {
		if err := b.publishConfig("binary_sensor", key+"_filter", binarySensorConfiguration{
			UniqueId:    "brink_" + key + "_filter",
			Name:        fmt.Sprintf("%s %s", dev.Name, filter.Name),
			DeviceClass: "problem",
			StateTopic:  b.topic(sys, "filter/state"),
			Device:      dev,
		}); err != nil {
			return err
		}
	}

	for _, role := range mapper.SensorRoles(sys.Parameters) {
		p := sys.Parameters[role]
		id := key + "_" + slug(role)
		if err := b.publishConfig("sensor", id, sensorConfiguration{
			UniqueId:          "brink_" + id,
			Name:              fmt.Sprintf("%s %s", dev.Name, p.Name),
			DeviceClass:       deviceClasses[p.Kind],
			StateClass:        "measurement",
			StateTopic:        b.sensorTopic(sys, role),
			UnitOfMeasurement: mapper.SensorUnit(p.Kind),
			Device:            dev,
		}); err != nil {
			return err
		}
		b.logger.Debug("Registered sensor", "system_id", sys.SystemID, "sensor", role)
	}

	b.logger.Info("Registered system with Home Assistant", "system_id", sys.SystemID, "gateway_id", sys.GatewayID)
	return nil
}

// PublishState publishes the current values of a system.
func (b *Bridge) PublishState(sys *types.System) error {
	if vent := sys.Parameter(types.RoleVentilation); vent != nil {
		if level, ok := mapper.VentilationLevel(vent); ok {
			state := payloadOn
			if level == 0 {
				state = payloadOff
			}
			if err := b.publish(b.topic(sys, "fan/state"), state); err != nil {
				return err
			}
			if err := b.publish(b.topic(sys, "fan/percentage/state"), strconv.Itoa(mapper.LevelToPercentage(level))); err != nil {
				return err
			}
		}
		if text, ok := vent.CurrentText(); ok {
			if err := b.publish(b.topic(sys, "fan/preset/state"), text); err != nil {
				return err
			}
		}
	}

	if text, ok := sys.Parameter(types.RoleMode).CurrentText(); ok {
		if err := b.publish(b.topic(sys, "mode/state"), text); err != nil {
			return err
		}
	}

	if change, ok := mapper.FiltersNeedChange(sys.Parameter(types.RoleFiltersNeedChange)); ok {
		state := payloadOff
		if change {
			state = payloadOn
		}
		if err := b.publish(b.topic(sys, "filter/state"), state); err != nil {
			return err
		}
	}

	for _, role := range mapper.SensorRoles(sys.Parameters) {
		p := sys.Parameters[role]
		if p.Value == nil {
			continue
		}
		if err := b.publish(b.sensorTopic(sys, role), *p.Value); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe routes the command topics of a system into the controller.
func (b *Bridge) Subscribe(sys *types.System) error {
	systemID, gatewayID := sys.SystemID, sys.GatewayID

	handlers := map[string]func(payload string) error{
		"fan/cmd": func(payload string) error {
			pct := defaultOnPercentage
			if strings.EqualFold(payload, payloadOff) {
				pct = 0
			}
			return b.setPercentage(systemID, gatewayID, pct)
		},
		"fan/percentage/cmd": func(payload string) error {
			pct, err := strconv.Atoi(payload)
			if err != nil {
				return fmt.Errorf("parse percentage %q: %w", payload, err)
			}
			return b.setPercentage(systemID, gatewayID, pct)
		},
		"fan/preset/cmd": func(payload string) error {
			ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
			defer cancel()
			_, err := b.controller.SetVentilation(ctx, systemID, gatewayID, mapper.SelectText(payload))
			return err
		},
		"mode/cmd": func(payload string) error {
			ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
			defer cancel()
			_, err := b.controller.SetMode(ctx, systemID, gatewayID, mapper.SelectText(payload))
			return err
		},
	}

	for suffix, handle := range handlers {
		if err := b.subscribe(b.topic(sys, suffix), handle); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bridge) subscribe(topic string, handle func(payload string) error) error {
	t := b.mqtt.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		payload := strings.TrimSpace(string(msg.Payload()))
		b.logger.Debug("MQTT command", "topic", msg.Topic(), "payload", payload)
		if err := handle(payload); err != nil {
			b.logger.Error("MQTT command failed", "topic", msg.Topic(), "payload", payload, "error", err)
		}
	})
	if err := b.wait(t); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (b *Bridge) setPercentage(systemID, gatewayID string, pct int) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	_, err := b.controller.SetVentilation(ctx, systemID, gatewayID, mapper.SelectIndex(mapper.PercentageToLevel(pct)))
	return err
}

func (b *Bridge) publishConfig(component, objectID string, cfg any) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal %s config: %w", component, err)
	}
	topic := fmt.Sprintf("%v/%v/%v/config", b.discoveryPrefix, component, objectID)
	if err := b.wait(b.mqtt.Publish(topic, 0, true, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (b *Bridge) publish(topic, payload string) error {
	if err := b.wait(b.mqtt.Publish(topic, 0, true, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// wait blocks until t completes or the bridge timeout elapses. A publish made
// while the client is still connecting may never complete.
func (b *Bridge) wait(t mqtt.Token) error {
	if !t.WaitTimeout(b.timeout) {
		return ErrTimeout
	}
	return t.Error()
}

func (b *Bridge) topic(sys *types.System, suffix string) string {
	return fmt.Sprintf("%v/%v/%v", b.topicPrefix, unitKey(sys), suffix)
}

func (b *Bridge) sensorTopic(sys *types.System, role string) string {
	return b.topic(sys, "sensor/"+slug(role)+"/state")
}

func (b *Bridge) device(sys *types.System) device {
	return device{
		Identifiers:  []string{"brink_" + unitKey(sys)},
		Name:         mapper.Safe(sys.Name, "Brink "+sys.SystemID),
		Manufacturer: "Brink",
		Model:        "Zone",
	}
}

func unitKey(sys *types.System) string {
	return slug(sys.GatewayID) + "_" + slug(sys.SystemID)
}

// slug lowercases s and replaces everything but letters and digits with '_'.
func slug(s string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(sb.String(), "_")
}
