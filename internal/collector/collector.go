// Package collector implements the Prometheus collector interface for Brink ventilation systems.
package collector

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"brink_bridge/internal/mapper"
	"brink_bridge/internal/snapshot"
	"brink_bridge/internal/types"
)

// BrinkCollector implements prometheus.Collector over the account snapshot.
// Collect never calls the portal; the coordinator keeps the snapshot fresh.
type BrinkCollector struct {
	store   *snapshot.Store
	logger  *slog.Logger
	metrics *MetricSet
}

// NewBrinkCollector creates a new collector reading from store.
func NewBrinkCollector(store *snapshot.Store, logger *slog.Logger) *BrinkCollector {
	return &BrinkCollector{
		store:   store,
		logger:  logger,
		metrics: newMetricSet(),
	}
}

// ObserveRefresh records the outcome of a refresh cycle.
func (c *BrinkCollector) ObserveRefresh(duration time.Duration, err error) {
	c.metrics.refreshDuration.Observe(duration.Seconds())
	if err != nil {
		c.metrics.refreshErrors.Inc()
		return
	}
	c.metrics.lastSuccess.Set(float64(time.Now().Unix()))
}

// Describe implements prometheus.Collector.
func (c *BrinkCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.metrics.systemInfo
	ch <- c.metrics.ventilationLevel
	ch <- c.metrics.operatingMode
	ch <- c.metrics.operatingModeAvail
	ch <- c.metrics.filtersNeedChange
	ch <- c.metrics.sensorValue

	c.metrics.refreshErrors.Describe(ch)
	c.metrics.refreshDuration.Describe(ch)
	c.metrics.lastSuccess.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *BrinkCollector) Collect(ch chan<- prometheus.Metric) {
	systems := c.store.Systems()
	if len(systems) == 0 {
		c.logger.Debug("No systems in snapshot")
	}

	for _, sys := range systems {
		c.collectSystem(ch, sys)
	}

	c.metrics.refreshErrors.Collect(ch)
	c.metrics.refreshDuration.Collect(ch)
	c.metrics.lastSuccess.Collect(ch)
}

// collectSystem emits all metrics of a single system.
func (c *BrinkCollector) collectSystem(ch chan<- prometheus.Metric, sys types.System) {
	labels := []string{
		sys.SystemID,
		sys.GatewayID,
		mapper.Safe(sys.Name, sys.SystemID),
	}

	ch <- prometheus.MustNewConstMetric(c.metrics.systemInfo, prometheus.GaugeValue, 1, labels...)

	if level, ok := mapper.VentilationLevel(sys.Parameter(types.RoleVentilation)); ok {
		ch <- prometheus.MustNewConstMetric(c.metrics.ventilationLevel, prometheus.GaugeValue, float64(level), labels...)
	}

	c.emitModeMetrics(ch, labels, sys.Parameter(types.RoleMode))

	if change, ok := mapper.FiltersNeedChange(sys.Parameter(types.RoleFiltersNeedChange)); ok {
		value := 0.0
		if change {
			value = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.metrics.filtersNeedChange, prometheus.GaugeValue, value, labels...)
	}

	c.emitSensorMetrics(ch, labels, sys.Parameters)
}

// emitModeMetrics emits the available modes and the current one, one-hot.
func (c *BrinkCollector) emitModeMetrics(ch chan<- prometheus.Metric, labels []string, mode *types.Parameter) {
	if mode == nil {
		return
	}

	current, _ := mode.CurrentText()
	seen := make(map[string]bool, len(mode.Values))
	for _, text := range mapper.OptionTexts(mode) {
		if seen[text] {
			continue
		}
		seen[text] = true

		labelsWithMode := append(labels[:len(labels):len(labels)], text)
		ch <- prometheus.MustNewConstMetric(c.metrics.operatingModeAvail, prometheus.GaugeValue, 1, labelsWithMode...)

		value := 0.0
		if text == current {
			value = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.metrics.operatingMode, prometheus.GaugeValue, value, labelsWithMode...)
	}
}

// emitSensorMetrics emits one reading per discovered sensor.
func (c *BrinkCollector) emitSensorMetrics(ch chan<- prometheus.Metric, labels []string, params map[string]*types.Parameter) {
	for _, role := range mapper.SensorRoles(params) {
		p := params[role]
		value, ok := mapper.NumericValue(p)
		if !ok {
			c.logger.Debug("Skipping non-numeric sensor", "sensor", role, "value", p.CurrentValue())
			continue
		}
		labelsWithSensor := append(labels[:len(labels):len(labels)], role, p.Kind)
		ch <- prometheus.MustNewConstMetric(c.metrics.sensorValue, prometheus.GaugeValue, value, labelsWithSensor...)
	}
}
