package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event is one lifecycle event as reported by a host.
type Event struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	From   string `json:"from"`
	Time   int64  `json:"time"`
}

// Type classifies the event's raw status string.
func (e *Event) Type() EventType {
	return ParseEventType(e.Status)
}

// HostInfo identifies the host that produced a report.
type HostInfo struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`
}

// ContainerInfo is an opaque container inspection snapshot. The raw JSON is
// retained and re-emitted byte-for-byte; only the fields needed for
// correlation are decoded out of it.
type ContainerInfo struct {
	Raw   json.RawMessage
	ID    string
	Name  string
	Image string
}

// NewContainerInfo parses a raw container inspection payload.
func NewContainerInfo(raw []byte) (*ContainerInfo, error) {
	c := &ContainerInfo{}
	if err := c.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return c, nil
}

// UnmarshalJSON keeps the full payload and extracts Id, Name and Image.
func (c *ContainerInfo) UnmarshalJSON(data []byte) error {
	var probe struct {
		ID    string `json:"Id"`
		Name  string `json:"Name"`
		Image string `json:"Image"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("malformed container snapshot: %w", err)
	}
	c.Raw = append(json.RawMessage(nil), data...)
	c.ID = probe.ID
	c.Name = probe.Name
	c.Image = probe.Image
	return nil
}

// MarshalJSON re-emits the original payload unchanged.
func (c *ContainerInfo) MarshalJSON() ([]byte, error) {
	if c.Raw == nil {
		return []byte("null"), nil
	}
	return c.Raw, nil
}

// ImageInfo is an opaque image inspection snapshot, handled like
// ContainerInfo.
type ImageInfo struct {
	Raw    json.RawMessage
	ID     string
	Parent string
}

// NewImageInfo parses a raw image inspection payload.
func NewImageInfo(raw []byte) (*ImageInfo, error) {
	i := &ImageInfo{}
	if err := i.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *ImageInfo) UnmarshalJSON(data []byte) error {
	var probe struct {
		ID     string `json:"Id"`
		Parent string `json:"Parent"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("malformed image snapshot: %w", err)
	}
	i.Raw = append(json.RawMessage(nil), data...)
	i.ID = probe.ID
	i.Parent = probe.Parent
	return nil
}

func (i *ImageInfo) MarshalJSON() ([]byte, error) {
	if i.Raw == nil {
		return []byte("null"), nil
	}
	return i.Raw, nil
}

// Report is the canonical incoming unit of traceability data: one event plus
// optional container/image inspection snapshots, host info, an optional
// parent-image chain and an optional environment tag. Reports are constructed
// once at the ingestion boundary and never mutated afterwards.
type Report struct {
	Event       *Event         `json:"event,omitempty"`
	HostInfo    *HostInfo      `json:"hostInfo,omitempty"`
	Container   *ContainerInfo `json:"container,omitempty"`
	Image       *ImageInfo     `json:"image,omitempty"`
	ImageID     string         `json:"imageId,omitempty"`
	ImageName   string         `json:"imageName,omitempty"`
	Environment string         `json:"environment,omitempty"`
	Parents     []*ImageInfo   `json:"parents,omitempty"`
}

// ParseReport deserializes one report and validates that the required
// sections are present.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("malformed report: %w", err)
	}
	if r.Event == nil {
		return nil, fmt.Errorf("malformed report: missing event")
	}
	if r.HostInfo == nil {
		return nil, fmt.Errorf("malformed report: missing hostInfo")
	}
	return &r, nil
}

// ResolveImageID returns the image identifier using the precedence
// explicit field, then image snapshot, then container snapshot.
// Empty when none of the three carries one.
func (r *Report) ResolveImageID() string {
	if r.ImageID != "" {
		return r.ImageID
	}
	if r.Image != nil && r.Image.ID != "" {
		return r.Image.ID
	}
	if r.Container != nil {
		return r.Container.Image
	}
	return ""
}

// EventTime returns the event timestamp in unix seconds, or 0 when the
// report carries no event.
func (r *Report) EventTime() int64 {
	if r.Event == nil {
		return 0
	}
	return r.Event.Time
}

// Equal compares two reports by value, including byte equality of the
// opaque snapshots. Used to deduplicate retried submissions.
func (r *Report) Equal(other *Report) bool {
	if r == nil || other == nil {
		return r == other
	}
	if !eventEqual(r.Event, other.Event) || !hostInfoEqual(r.HostInfo, other.HostInfo) {
		return false
	}
	if r.ImageID != other.ImageID || r.ImageName != other.ImageName || r.Environment != other.Environment {
		return false
	}
	if !rawEqual(containerRaw(r.Container), containerRaw(other.Container)) {
		return false
	}
	if !rawEqual(imageRaw(r.Image), imageRaw(other.Image)) {
		return false
	}
	if len(r.Parents) != len(other.Parents) {
		return false
	}
	for n := range r.Parents {
		if !rawEqual(imageRaw(r.Parents[n]), imageRaw(other.Parents[n])) {
			return false
		}
	}
	return true
}

func eventEqual(a, b *Event) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func hostInfoEqual(a, b *HostInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func containerRaw(c *ContainerInfo) []byte {
	if c == nil {
		return nil
	}
	return c.Raw
}

func imageRaw(i *ImageInfo) []byte {
	if i == nil {
		return nil
	}
	return i.Raw
}

func rawEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}
