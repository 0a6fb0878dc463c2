package fingerprint

import (
	"encoding/json"
	"sync"

	"deploytrace/model"
)

// ImageInspection is the per-image facet caching the most recent inspection
// snapshot. Snapshot updates are monotonic by report time; the image name
// is always overwritten.
type ImageInspection struct {
	mu        sync.Mutex
	timestamp int64
	name      string
	snapshot  *model.ImageInfo
}

// Update applies a new observation. The snapshot and timestamp are replaced
// only when ts is strictly greater than the stored timestamp; the name is
// taken from every call. Returns true when the snapshot was replaced.
func (c *ImageInspection) Update(ts int64, name string, snapshot *model.ImageInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.name = name
	if ts <= c.timestamp && c.snapshot != nil {
		return false
	}
	c.timestamp = ts
	c.snapshot = snapshot
	return true
}

// Snapshot returns the cached observation. The snapshot is nil when no
// inspection has been recorded.
func (c *ImageInspection) Snapshot() (ts int64, name string, snapshot *model.ImageInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timestamp, c.name, c.snapshot
}

type imageInspectionJSON struct {
	Time      int64            `json:"time"`
	ImageName string           `json:"imageName,omitempty"`
	Image     *model.ImageInfo `json:"image,omitempty"`
}

func (c *ImageInspection) MarshalJSON() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.Marshal(imageInspectionJSON{
		Time:      c.timestamp,
		ImageName: c.name,
		Image:     c.snapshot,
	})
}

func (c *ImageInspection) UnmarshalJSON(data []byte) error {
	var v imageInspectionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timestamp = v.Time
	c.name = v.ImageName
	c.snapshot = v.Image
	return nil
}
