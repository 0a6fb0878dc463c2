package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormatPrometheus converts structured metrics data to Prometheus text
// format.
func FormatPrometheus(data *MetricsData) string {
	var output strings.Builder

	for _, family := range data.Families {
		output.WriteString(fmt.Sprintf("# HELP %s %s\n", family.Name, family.Help))
		output.WriteString(fmt.Sprintf("# TYPE %s %s\n", family.Name, family.Type))

		for _, metric := range family.Metrics {
			value := strconv.FormatFloat(metric.Value, 'g', -1, 64)
			if labels := formatLabels(metric.Labels); labels != "" {
				output.WriteString(fmt.Sprintf("%s{%s} %s\n", family.Name, labels, value))
			} else {
				output.WriteString(fmt.Sprintf("%s %s\n", family.Name, value))
			}
		}
	}

	return output.String()
}

// formatLabels converts a label map to Prometheus label string format.
// Labels are sorted alphabetically for consistent output.
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, escapeLabelValue(labels[k])))
	}
	return strings.Join(parts, ",")
}

// escapeLabelValue escapes backslash, newline and double quote.
func escapeLabelValue(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}
