package fingerprint

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"deploytrace/model"
)

// UnknownStatus is reported when a history has no usable status entries.
const UnknownStatus = "UNKNOWN"

// DeploymentHistory is the per-container facet holding an ordered,
// deduplicated set of deployment records. All methods are safe for
// concurrent use; the lock is scoped to this one facet so operations on
// different identities never contend.
type DeploymentHistory struct {
	mu      sync.Mutex
	records []*Record
}

// Add inserts a record maintaining sort order. Returns false without
// modifying the history when an equal record already exists.
func (h *DeploymentHistory) Add(rec *Record) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.records {
		if existing.Equal(rec) {
			return false
		}
	}

	idx := sort.Search(len(h.records), func(n int) bool {
		return rec.Less(h.records[n])
	})
	h.records = append(h.records, nil)
	copy(h.records[idx+1:], h.records[idx:])
	h.records[idx] = rec
	return true
}

// Records returns a snapshot copy in time order.
func (h *DeploymentHistory) Records() []*Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Record, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of stored records.
func (h *DeploymentHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Latest returns the most recent record, or nil when the history is empty.
func (h *DeploymentHistory) Latest() *Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == 0 {
		return nil
	}
	return h.records[len(h.records)-1]
}

// LastStatus returns the most recent status in time order, upper-cased.
// Entries classified as the synthetic NONE event are skipped; the default
// is UNKNOWN when nothing survives.
func (h *DeploymentHistory) LastStatus() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := UnknownStatus
	for _, rec := range h.records {
		raw := rec.Status()
		if model.ParseEventType(raw) == model.EventNone {
			continue
		}
		if raw != "" {
			status = strings.ToUpper(raw)
		}
	}
	return status
}

// ResolvedImageID returns the first image identifier found scanning the
// history in ascending time order. This recovers image linkage for late
// events, such as a DIE arriving after the image was deleted.
func (h *DeploymentHistory) ResolvedImageID() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, rec := range h.records {
		if id := rec.Report.ResolveImageID(); id != "" {
			return id
		}
	}
	return ""
}

// MarshalJSON serializes the record list.
func (h *DeploymentHistory) MarshalJSON() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.records)
}

// UnmarshalJSON restores the record list, re-sorting to repair any
// out-of-order persisted data.
func (h *DeploymentHistory) UnmarshalJSON(data []byte) error {
	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	sort.SliceStable(records, func(a, b int) bool {
		return records[a].Less(records[b])
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = records
	return nil
}
