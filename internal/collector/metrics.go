package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"brink_bridge/internal/mapper"
)

// MetricSet holds all Prometheus metric descriptors for the Brink bridge.
type MetricSet struct {
	// System metrics
	systemInfo *prometheus.Desc

	// Ventilation metrics
	ventilationLevel *prometheus.Desc

	// Mode metrics
	operatingMode      *prometheus.Desc
	operatingModeAvail *prometheus.Desc

	// Filter metrics
	filtersNeedChange *prometheus.Desc

	// Sensor metrics
	sensorValue *prometheus.Desc

	// Refresh metrics
	refreshErrors   prometheus.Counter
	refreshDuration prometheus.Histogram
	lastSuccess     prometheus.Gauge
}

// newMetricSet creates all metric descriptors.
func newMetricSet() *MetricSet {
	labels := []string{mapper.LabelSystemID, mapper.LabelGatewayID, mapper.LabelSystemName}
	labelsWithMode := append(labels[:len(labels):len(labels)], mapper.LabelMode)
	labelsWithSensor := append(labels[:len(labels):len(labels)], mapper.LabelSensor, mapper.LabelKind)

	return &MetricSet{
		systemInfo: prometheus.NewDesc(
			"brink_system_info",
			"Ventilation system discovered on the account (always 1)",
			labels, nil,
		),

		ventilationLevel: prometheus.NewDesc(
			"brink_ventilation_level",
			"Current ventilation level (0 = off)",
			labels, nil,
		),

		operatingMode: prometheus.NewDesc(
			"brink_operating_mode",
			"Operating mode one-hot (1 for current, 0 for others)",
			labelsWithMode, nil,
		),
		operatingModeAvail: prometheus.NewDesc(
			"brink_operating_mode_available",
			"Available operating modes (1)",
			labelsWithMode, nil,
		),

		filtersNeedChange: prometheus.NewDesc(
			"brink_filters_need_change",
			"Filters need to be changed (1) / ok (0)",
			labels, nil,
		),

		sensorValue: prometheus.NewDesc(
			"brink_sensor_value",
			"Sensor reading (ppm, °C or % depending on kind)",
			labelsWithSensor, nil,
		),

		refreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "brink_refresh_errors_total",
			Help: "Total number of failed refresh cycles",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "brink_refresh_duration_seconds",
			Help:    "Time spent refreshing from the Brink Home portal",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "brink_last_refresh_success_timestamp_seconds",
			Help: "Unix time of the last successful refresh",
		}),
	}
}
