// Package metrics provides Prometheus metrics exposition and OTLP push for
// the traceability server.
package metrics

import "fmt"

// InfoProvider provides deployment information for metrics labels.
type InfoProvider interface {
	GetDeploymentName() string
	GetDeploymentType() string
	GetVersion() string
}

// StatsProvider provides ledger statistics. Implemented by the database
// layer.
type StatsProvider interface {
	RegisteredContainerCount() (int, error)
	FingerprintCounts() (map[string]int, error)
}

// Collector collects metrics and formats them for Prometheus.
type Collector struct {
	infoProvider   InfoProvider
	deploymentUUID string
	stats          StatsProvider
	counters       *Counters
}

// NewCollector creates a metrics collector. stats and counters may be nil.
func NewCollector(infoProvider InfoProvider, deploymentUUID string, stats StatsProvider, counters *Counters) *Collector {
	return &Collector{
		infoProvider:   infoProvider,
		deploymentUUID: deploymentUUID,
		stats:          stats,
		counters:       counters,
	}
}

// Collect generates structured metrics data.
func (c *Collector) Collect() (*MetricsData, error) {
	data := &MetricsData{
		Families: []MetricFamily{c.collectDeploymentMetric()},
	}

	if c.stats != nil {
		registered, err := c.collectRegisteredContainers()
		if err != nil {
			return nil, err
		}
		data.Families = append(data.Families, registered)

		fingerprints, err := c.collectFingerprints()
		if err != nil {
			return nil, err
		}
		data.Families = append(data.Families, fingerprints)
	}

	if c.counters != nil {
		data.Families = append(data.Families, c.collectCounters()...)
	}

	return data, nil
}

// collectDeploymentMetric generates the deploytrace_deployment info gauge.
func (c *Collector) collectDeploymentMetric() MetricFamily {
	return MetricFamily{
		Name: "deploytrace_deployment",
		Help: "Deploytrace deployment information",
		Type: "gauge",
		Metrics: []MetricPoint{
			{
				Labels: map[string]string{
					"deployment_uuid":     c.deploymentUUID,
					"deployment_name":     c.infoProvider.GetDeploymentName(),
					"deployment_type":     c.infoProvider.GetDeploymentType(),
					"deploytrace_version": c.infoProvider.GetVersion(),
				},
				Value: 1,
			},
		},
	}
}

func (c *Collector) collectRegisteredContainers() (MetricFamily, error) {
	count, err := c.stats.RegisteredContainerCount()
	if err != nil {
		return MetricFamily{}, fmt.Errorf("failed to count registered containers: %w", err)
	}
	return MetricFamily{
		Name: "deploytrace_registered_containers",
		Help: "Number of containers in the registry",
		Type: "gauge",
		Metrics: []MetricPoint{
			{
				Labels: map[string]string{"deployment_uuid": c.deploymentUUID},
				Value:  float64(count),
			},
		},
	}, nil
}

func (c *Collector) collectFingerprints() (MetricFamily, error) {
	counts, err := c.stats.FingerprintCounts()
	if err != nil {
		return MetricFamily{}, fmt.Errorf("failed to count fingerprints: %w", err)
	}

	points := make([]MetricPoint, 0, len(counts))
	for kind, count := range counts {
		points = append(points, MetricPoint{
			Labels: map[string]string{
				"deployment_uuid": c.deploymentUUID,
				"kind":            kind,
			},
			Value: float64(count),
		})
	}
	return MetricFamily{
		Name:    "deploytrace_fingerprints",
		Help:    "Number of stored fingerprints by kind",
		Type:    "gauge",
		Metrics: points,
	}, nil
}

func (c *Collector) collectCounters() []MetricFamily {
	uuidLabel := map[string]string{"deployment_uuid": c.deploymentUUID}
	return []MetricFamily{
		{
			Name:    "deploytrace_reports_ingested_total",
			Help:    "Reports ingested since process start",
			Type:    "counter",
			Metrics: []MetricPoint{{Labels: uuidLabel, Value: float64(c.counters.ReportsIngested())}},
		},
		{
			Name:    "deploytrace_reports_dropped_total",
			Help:    "Reports dropped since process start",
			Type:    "counter",
			Metrics: []MetricPoint{{Labels: uuidLabel, Value: float64(c.counters.ReportsDropped())}},
		},
		{
			Name:    "deploytrace_queries_total",
			Help:    "History queries served since process start",
			Type:    "counter",
			Metrics: []MetricPoint{{Labels: uuidLabel, Value: float64(c.counters.Queries())}},
		},
	}
}
