package model

import "testing"

func TestParseEventType(t *testing.T) {
	tests := []struct {
		input    string
		expected EventType
	}{
		{"create", EventCreate},
		{"START", EventStart},
		{"Die", EventDie},
		{"inspect_container", EventInspectContainer},
		{"untag", EventUntag},
		{"delete", EventDelete},
		{"none", EventNone},
		{"  stop  ", EventStop},
		{"somethingelse", EventUnknown},
		{"", EventUnknown},
	}

	for _, tt := range tests {
		if got := ParseEventType(tt.input); got != tt.expected {
			t.Errorf("ParseEventType(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestEventClassification(t *testing.T) {
	// Image-only events are not container events
	for _, et := range []EventType{EventUntag, EventDelete} {
		if et.IsContainerEvent() {
			t.Errorf("%v should not be a container event", et)
		}
		if !et.IsImageEvent() {
			t.Errorf("%v should be an image event", et)
		}
	}

	// Lifecycle events are container events only
	for _, et := range []EventType{EventCreate, EventStart, EventDie, EventStop, EventKill} {
		if !et.IsContainerEvent() {
			t.Errorf("%v should be a container event", et)
		}
		if et.IsImageEvent() {
			t.Errorf("%v should not be an image event", et)
		}
	}

	// NONE and UNKNOWN count as both
	for _, et := range []EventType{EventNone, EventUnknown} {
		if !et.IsContainerEvent() {
			t.Errorf("%v should be a container event", et)
		}
		if !et.IsImageEvent() {
			t.Errorf("%v should be an image event", et)
		}
	}
}
