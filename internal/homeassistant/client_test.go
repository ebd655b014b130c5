package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"brink_bridge/internal/mapper"
	"brink_bridge/internal/types"
)

func ptr(s string) *string { return &s }

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool { return true }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

// pendingToken never completes, like a publish queued while connecting.
type pendingToken struct{ done chan struct{} }

func (t *pendingToken) Wait() bool {
	<-t.done
	return true
}

func (t *pendingToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *pendingToken) Done() <-chan struct{} { return t.done }
func (t *pendingToken) Error() error { return nil }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool { return false }
func (m *fakeMessage) Qos() byte { return 0 }
func (m *fakeMessage) Retained() bool { return false }
func (m *fakeMessage) Topic() string { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte { return m.payload }
func (m *fakeMessage) Ack() {}

type fakeMQTT struct {
	mu        sync.Mutex
	published map[string]string
	retained  map[string]bool
	handlers  map[string]mqtt.MessageHandler
	pending   bool
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{
		published: make(map[string]string),
		retained:  make(map[string]bool),
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch p := payload.(type) {
	case string:
		f.published[topic] = p
	case []byte:
		f.published[topic] = string(p)
	}
	f.retained[topic] = retained
	if f.pending {
		return &pendingToken{done: make(chan struct{})}
	}
	return &fakeToken{}
}

func (f *fakeMQTT) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = callback
	if f.pending {
		return &pendingToken{done: make(chan struct{})}
	}
	return &fakeToken{}
}

func (f *fakeMQTT) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	f.mu.Lock()
	h, ok := f.handlers[topic]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %s", topic)
	}
	h(nil, &fakeMessage{topic: topic, payload: []byte(payload)})
}

type call struct {
	role string
	sel  string
}

type fakeController struct {
	calls []call
}

func (c *fakeController) SetVentilation(ctx context.Context, systemID, gatewayID string, sel mapper.Selection) (*types.WriteResult, error) {
	c.calls = append(c.calls, call{types.RoleVentilation, sel.String()})
	return &types.WriteResult{}, nil
}

func (c *fakeController) SetMode(ctx context.Context, systemID, gatewayID string, sel mapper.Selection) (*types.WriteResult, error) {
	c.calls = append(c.calls, call{types.RoleMode, sel.String()})
	return &types.WriteResult{}, nil
}

func testSystem() types.System {
	return types.System{
		SystemID:  "1",
		GatewayID: "2",
		Name:      "Flat",
		Parameters: map[string]*types.Parameter{
			types.RoleVentilation: {
				Name: "Ventilation power", ValueID: "v1", Value: ptr("2"),
				Values: []types.ParameterValue{
					{Value: "0", Text: "Stufe 0"}, {Value: "1", Text: "Stufe 1"},
					{Value: "2", Text: "Stufe 2"}, {Value: "3", Text: "Stufe 3"},
				},
			},
			types.RoleMode: {
				Name: "Operating mode", ValueID: "m1", Value: ptr("1"),
				Values: []types.ParameterValue{{Value: "0", Text: "Automatic"}, {Value: "1", Text: "Manual"}},
			},
			types.RoleFiltersNeedChange: {Name: "Filter status", ValueID: "f1", Value: ptr("0")},
			"Raumfeuchte":               {Name: "Room humidity", ValueID: "s1", Value: ptr("48"), Kind: types.KindHumidity},
		},
	}
}

func newTestBridge() (*Bridge, *fakeMQTT, *fakeController) {
	client := newFakeMQTT()
	controller := &fakeController{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBridge(client, controller, "brink", "homeassistant", time.Second, logger), client, controller
}

func TestUpdate_Discovery(t *testing.T) {
	b, client, _ := newTestBridge()

	b.Update([]types.System{testSystem()})

	raw, ok := client.published["homeassistant/fan/2_1_fan/config"]
	if !ok {
		t.Fatal("fan config not published")
	}
	if !client.retained["homeassistant/fan/2_1_fan/config"] {
		t.Error("fan config should be retained")
	}

	var fan fanConfiguration
	if err := json.Unmarshal([]byte(raw), &fan); err != nil {
		t.Fatalf("unmarshal fan config: %v", err)
	}
	if fan.UniqueId != "brink_2_1_fan" {
		t.Errorf("UniqueId = %q", fan.UniqueId)
	}
	if fan.PercentageCommandTopic != "brink/2_1/fan/percentage/cmd" {
		t.Errorf("PercentageCommandTopic = %q", fan.PercentageCommandTopic)
	}
	if len(fan.PresetModes) != 4 || fan.PresetModes[3] != "Stufe 3" {
		t.Errorf("PresetModes = %v", fan.PresetModes)
	}
	if fan.Device.Manufacturer != "Brink" || fan.Device.Model != "Zone" || fan.Device.Name != "Flat" {
		t.Errorf("Device = %+v", fan.Device)
	}

	var sel selectConfiguration
	if err := json.Unmarshal([]byte(client.published["homeassistant/select/2_1_mode/config"]), &sel); err != nil {
		t.Fatalf("unmarshal select config: %v", err)
	}
	if len(sel.Options) != 2 || sel.Options[1] != "Manual" {
		t.Errorf("Options = %v", sel.Options)
	}

	if _, ok := client.published["homeassistant/binary_sensor/2_1_filter/config"]; !ok {
		t.Error("filter config not published")
	}

	var sensor sensorConfiguration
	if err := json.Unmarshal([]byte(client.published["homeassistant/sensor/2_1_raumfeuchte/config"]), &sensor); err != nil {
		t.Fatalf("unmarshal sensor config: %v", err)
	}
	if sensor.DeviceClass != "humidity" || sensor.UnitOfMeasurement != "%" {
		t.Errorf("sensor = %+v", sensor)
	}
}

func TestUpdate_State(t *testing.T) {
	b, client, _ := newTestBridge()

	b.Update([]types.System{testSystem()})

	tests := map[string]string{
		"brink/2_1/fan/state":                "ON",
		"brink/2_1/fan/percentage/state":     "66",
		"brink/2_1/fan/preset/state":         "Stufe 2",
		"brink/2_1/mode/state":               "Manual",
		"brink/2_1/filter/state":             "OFF",
		"brink/2_1/sensor/raumfeuchte/state": "48",
	}
	for topic, want := range tests {
		if got := client.published[topic]; got != want {
			t.Errorf("%s = %q, want %q", topic, got, want)
		}
	}
}

func TestUpdate_MissingParameters(t *testing.T) {
	b, client, _ := newTestBridge()

	b.Update([]types.System{{
		SystemID:  "1",
		GatewayID: "2",
		Parameters: map[string]*types.Parameter{
			types.RoleVentilation:       nil,
			types.RoleMode:              nil,
			types.RoleFiltersNeedChange: nil,
		},
	}})

	if len(client.published) != 0 {
		t.Errorf("published = %v, want nothing", client.published)
	}
}

func TestCommands(t *testing.T) {
	b, client, controller := newTestBridge()
	b.Update([]types.System{testSystem()})

	client.deliver(t, "brink/2_1/fan/percentage/cmd", "100")
	client.deliver(t, "brink/2_1/fan/cmd", "OFF")
	client.deliver(t, "brink/2_1/fan/cmd", "ON")
	client.deliver(t, "brink/2_1/fan/preset/cmd", "Stufe 1")
	client.deliver(t, "brink/2_1/mode/cmd", "Automatic")
	client.deliver(t, "brink/2_1/fan/percentage/cmd", "fast")

	want := []call{
		{types.RoleVentilation, mapper.SelectIndex(3).String()},
		{types.RoleVentilation, mapper.SelectIndex(0).String()},
		{types.RoleVentilation, mapper.SelectIndex(1).String()},
		{types.RoleVentilation, mapper.SelectText("Stufe 1").String()},
		{types.RoleMode, mapper.SelectText("Automatic").String()},
	}
	if len(controller.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", controller.calls, want)
	}
	for i := range want {
		if controller.calls[i] != want[i] {
			t.Errorf("calls[%d] = %v, want %v", i, controller.calls[i], want[i])
		}
	}
}

func TestUpdate_RegistersOnce(t *testing.T) {
	b, client, _ := newTestBridge()
	b.Update([]types.System{testSystem()})

	delete(client.published, "homeassistant/fan/2_1_fan/config")
	b.Update([]types.System{testSystem()})

	if _, ok := client.published["homeassistant/fan/2_1_fan/config"]; ok {
		t.Error("fan config republished on second update")
	}

	b.Reset()
	b.Update([]types.System{testSystem()})
	if _, ok := client.published["homeassistant/fan/2_1_fan/config"]; !ok {
		t.Error("fan config not republished after Reset")
	}
}

func TestUpdate_RegistersLateParameters(t *testing.T) {
	b, client, _ := newTestBridge()

	empty := testSystem()
	empty.Parameters = map[string]*types.Parameter{}
	b.Update([]types.System{empty})

	if _, ok := client.published["homeassistant/fan/2_1_fan/config"]; ok {
		t.Fatal("fan config published without a ventilation parameter")
	}

	b.Update([]types.System{testSystem()})

	for _, topic := range []string{
		"homeassistant/fan/2_1_fan/config",
		"homeassistant/select/2_1_mode/config",
		"homeassistant/binary_sensor/2_1_filter/config",
		"homeassistant/sensor/2_1_raumfeuchte/config",
	} {
		if _, ok := client.published[topic]; !ok {
			t.Errorf("%s not published after the parameter appeared", topic)
		}
	}

	sys := testSystem()
	sys.Parameters["Frischlufttemperatur"] = &types.Parameter{Name: "Fresh air temperature", ValueID: "s2", Value: ptr("12"), Kind: types.KindTemperature}
	b.Update([]types.System{sys})

	if _, ok := client.published["homeassistant/sensor/2_1_frischlufttemperatur/config"]; !ok {
		t.Error("config of a sensor discovered later not published")
	}
}

func TestUpdate_PendingTokenTimesOut(t *testing.T) {
	client := newFakeMQTT()
	client.pending = true
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := NewBridge(client, &fakeController{}, "brink", "homeassistant", 20*time.Millisecond, logger)

	done := make(chan struct{})
	go func() {
		b.Update([]types.System{testSystem()})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Update() blocked on a token that never completes")
	}

	if err := b.publish("brink/test", "x"); !errors.Is(err, ErrTimeout) {
		t.Errorf("publish() error = %v, want ErrTimeout", err)
	}

	client.mu.Lock()
	client.pending = false
	client.mu.Unlock()
	b.Update([]types.System{testSystem()})

	if _, ok := client.published["homeassistant/fan/2_1_fan/config"]; !ok {
		t.Error("registration not retried after the broker recovered")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Raumfeuchte", "raumfeuchte"},
		{"PPM eBus CO2-sensor 1", "ppm_ebus_co2_sensor_1"},
		{"  Außen Temperatur ", "außen_temperatur"},
		{"42", "42"},
	}

	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnitKey(t *testing.T) {
	sys := types.System{SystemID: "10", GatewayID: "GW-1"}
	if got := unitKey(&sys); !strings.HasPrefix(got, "gw_1_") || !strings.HasSuffix(got, "10") {
		t.Errorf("unitKey() = %q", got)
	}
}
