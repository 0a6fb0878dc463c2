package fingerprint

import (
	"encoding/json"
	"sync"
)

// DeploymentRefs is the per-image facet tracking which containers were
// deployed from the image. The set grows monotonically and preserves
// insertion order.
type DeploymentRefs struct {
	mu   sync.Mutex
	ids  []string
	seen map[string]bool
}

// Add records a container identifier. Returns false when it was already
// present.
func (r *DeploymentRefs) Add(containerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	if r.seen[containerID] {
		return false
	}
	r.seen[containerID] = true
	r.ids = append(r.ids, containerID)
	return true
}

// Contains reports whether a container identifier is in the set.
func (r *DeploymentRefs) Contains(containerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[containerID]
}

// IDs returns a snapshot copy in insertion order.
func (r *DeploymentRefs) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of referenced containers.
func (r *DeploymentRefs) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *DeploymentRefs) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.ids)
}

func (r *DeploymentRefs) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = ids
	r.seen = seen
	return nil
}
