package fingerprint

import (
	"strings"

	"deploytrace/model"
)

// Record is one stored, time-ordered snapshot of a report within a
// container's deployment history. Records are immutable once added.
type Record struct {
	Report *model.Report `json:"report"`
}

// NewRecord wraps a report in a deployment record.
func NewRecord(r *model.Report) *Record {
	return &Record{Report: r}
}

// Time returns the event timestamp in unix seconds.
func (r *Record) Time() int64 {
	return r.Report.EventTime()
}

// Status returns the raw status string of the event, or "" when absent.
func (r *Record) Status() string {
	if r.Report.Event == nil {
		return ""
	}
	return r.Report.Event.Status
}

// ContainerID returns the container identifier from the report's snapshot,
// or "" when the report carries none.
func (r *Record) ContainerID() string {
	if r.Report.Container == nil {
		return ""
	}
	return r.Report.Container.ID
}

// ContainerHash derives the storage key for the record's container.
func (r *Record) ContainerHash() (string, error) {
	return Hash(r.ContainerID())
}

// ImageHash derives the storage key for the record's resolved image.
func (r *Record) ImageHash() (string, error) {
	return Hash(r.Report.ResolveImageID())
}

// Less orders records by event time ascending, with the raw status string
// as a lexicographic tie-break.
func (r *Record) Less(other *Record) bool {
	if r.Time() != other.Time() {
		return r.Time() < other.Time()
	}
	return strings.Compare(r.Status(), other.Status()) < 0
}

// Equal compares two records by full value equality of the wrapped report.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Report.Equal(other.Report)
}
