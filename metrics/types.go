package metrics

// MetricPoint is a single observation with its labels.
type MetricPoint struct {
	Labels map[string]string
	Value  float64
}

// MetricFamily groups the points sharing one metric name.
type MetricFamily struct {
	Name    string
	Help    string
	Type    string
	Metrics []MetricPoint
}

// MetricsData holds all families produced by one collection pass.
type MetricsData struct {
	Families []MetricFamily
}
