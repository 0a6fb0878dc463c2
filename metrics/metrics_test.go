package metrics

import (
	"strings"
	"testing"
)

type testInfo struct{}

func (testInfo) GetDeploymentName() string { return "node-1" }
func (testInfo) GetDeploymentType() string { return "server" }
func (testInfo) GetVersion() string        { return "test" }

type testStats struct {
	containers int
	counts     map[string]int
}

func (s *testStats) RegisteredContainerCount() (int, error) { return s.containers, nil }
func (s *testStats) FingerprintCounts() (map[string]int, error) {
	return s.counts, nil
}

func TestCollect(t *testing.T) {
	counters := NewCounters()
	counters.ReportIngested()
	counters.ReportIngested()
	counters.ReportDropped()
	counters.Query()

	stats := &testStats{containers: 3, counts: map[string]int{"container": 3, "image": 1}}
	collector := NewCollector(testInfo{}, "uuid-1", stats, counters)

	data, err := collector.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	byName := make(map[string]MetricFamily)
	for _, f := range data.Families {
		byName[f.Name] = f
	}

	dep, ok := byName["deploytrace_deployment"]
	if !ok {
		t.Fatal("missing deployment family")
	}
	if dep.Metrics[0].Labels["deployment_name"] != "node-1" {
		t.Errorf("unexpected deployment labels: %v", dep.Metrics[0].Labels)
	}

	if f := byName["deploytrace_registered_containers"]; len(f.Metrics) != 1 || f.Metrics[0].Value != 3 {
		t.Errorf("unexpected registered containers: %+v", f)
	}
	if f := byName["deploytrace_fingerprints"]; len(f.Metrics) != 2 {
		t.Errorf("expected 2 fingerprint points, got %+v", f)
	}
	if f := byName["deploytrace_reports_ingested_total"]; f.Metrics[0].Value != 2 {
		t.Errorf("expected 2 ingested, got %+v", f)
	}
	if f := byName["deploytrace_reports_dropped_total"]; f.Metrics[0].Value != 1 {
		t.Errorf("expected 1 dropped, got %+v", f)
	}
	if f := byName["deploytrace_queries_total"]; f.Metrics[0].Value != 1 {
		t.Errorf("expected 1 query, got %+v", f)
	}
}

func TestFormatPrometheus(t *testing.T) {
	data := &MetricsData{
		Families: []MetricFamily{
			{
				Name: "deploytrace_registered_containers",
				Help: "Number of containers in the registry",
				Type: "gauge",
				Metrics: []MetricPoint{
					{Labels: map[string]string{"deployment_uuid": "uuid-1"}, Value: 5},
				},
			},
		},
	}

	output := FormatPrometheus(data)

	if !strings.Contains(output, "# HELP deploytrace_registered_containers Number of containers in the registry\n") {
		t.Errorf("missing HELP line:\n%s", output)
	}
	if !strings.Contains(output, "# TYPE deploytrace_registered_containers gauge\n") {
		t.Errorf("missing TYPE line:\n%s", output)
	}
	if !strings.Contains(output, `deploytrace_registered_containers{deployment_uuid="uuid-1"} 5`) {
		t.Errorf("missing metric line:\n%s", output)
	}
}

func TestFormatLabelsSortedAndEscaped(t *testing.T) {
	labels := map[string]string{
		"zeta":  "z",
		"alpha": "with \"quotes\"",
	}
	got := formatLabels(labels)
	expected := `alpha="with \"quotes\"",zeta="z"`
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestNilCountersAreSafe(t *testing.T) {
	var c *Counters
	c.ReportIngested()
	c.ReportDropped()
	c.Query()
	if c.ReportsIngested() != 0 || c.ReportsDropped() != 0 || c.Queries() != 0 {
		t.Error("nil counters should read zero")
	}
}
