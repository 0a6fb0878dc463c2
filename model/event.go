// Package model defines the wire-level types exchanged between reporting
// hosts and the traceability server.
package model

import "strings"

// EventType categorizes the raw status string carried by a lifecycle event.
type EventType string

const (
	// Container lifecycle events
	EventCreate           EventType = "CREATE"
	EventStart            EventType = "START"
	EventDie              EventType = "DIE"
	EventInspectContainer EventType = "INSPECT_CONTAINER"
	EventDestroy          EventType = "DESTROY"
	EventExport           EventType = "EXPORT"
	EventKill             EventType = "KILL"
	EventPause            EventType = "PAUSE"
	EventRestart          EventType = "RESTART"
	EventStop             EventType = "STOP"
	EventUnpause          EventType = "UNPAUSE"

	// Image lifecycle events
	EventUntag  EventType = "UNTAG"
	EventDelete EventType = "DELETE"

	// EventNone is a synthetic no-op event used to refresh a container's
	// status without implying a lifecycle transition.
	EventNone EventType = "NONE"

	// EventUnknown is the fallback for unrecognized status strings.
	EventUnknown EventType = "UNKNOWN"
)

var knownEventTypes = map[EventType]bool{
	EventCreate:           true,
	EventStart:            true,
	EventDie:              true,
	EventInspectContainer: true,
	EventDestroy:          true,
	EventExport:           true,
	EventKill:             true,
	EventPause:            true,
	EventRestart:          true,
	EventStop:             true,
	EventUnpause:          true,
	EventUntag:            true,
	EventDelete:           true,
	EventNone:             true,
}

// ParseEventType maps a raw status string to an EventType.
// Matching is case-insensitive; unrecognized strings map to EventUnknown.
func ParseEventType(status string) EventType {
	t := EventType(strings.ToUpper(strings.TrimSpace(status)))
	if knownEventTypes[t] {
		return t
	}
	return EventUnknown
}

// IsContainerEvent reports whether the event concerns a container.
// Every category except the image-only UNTAG and DELETE qualifies.
func (t EventType) IsContainerEvent() bool {
	return t != EventUntag && t != EventDelete
}

// IsImageEvent reports whether the event may concern an image.
func (t EventType) IsImageEvent() bool {
	switch t {
	case EventUntag, EventDelete, EventUnknown, EventNone:
		return true
	}
	return false
}
