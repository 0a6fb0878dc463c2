package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"deploytrace/fingerprint"
	"deploytrace/model"
)

// ErrNotFound is returned when a query targets an identity with no stored
// history.
var ErrNotFound = errors.New("not found")

// QueryMode selects the projection applied to each surviving record.
type QueryMode string

const (
	ModeAll              QueryMode = "all"
	ModeEvents           QueryMode = "events"
	ModeInspectContainer QueryMode = "inspectContainer"
	ModeInspectImage     QueryMode = "inspectImage"
	ModeHostInfo         QueryMode = "hostInfo"
)

// ParseQueryMode validates a mode string. The empty string selects the
// default inspectContainer mode.
func ParseQueryMode(s string) (QueryMode, error) {
	switch QueryMode(s) {
	case "":
		return ModeInspectContainer, nil
	case ModeAll, ModeEvents, ModeInspectContainer, ModeInspectImage, ModeHostInfo:
		return QueryMode(s), nil
	}
	return "", fmt.Errorf("unknown query mode %q", s)
}

// QueryContainer returns the projected, time-filtered history of one
// container. since and until are inclusive unix-second bounds; a value of
// 0 disables that bound. Output preserves the history's time ordering.
func (e *Engine) QueryContainer(containerID string, mode QueryMode, since, until int64) ([]any, error) {
	e.counters.Query()

	hash, err := fingerprint.Hash(containerID)
	if err != nil {
		return nil, err
	}
	fp, err := e.store.Get(hash)
	if err != nil {
		return nil, err
	}
	if fp == nil || fp.History.Len() == 0 {
		return nil, fmt.Errorf("%w: no deployment history for container %s", ErrNotFound, containerID)
	}

	results := make([]any, 0)
	for _, rec := range fp.History.Records() {
		t := rec.Time()
		if since > 0 && t < since {
			continue
		}
		if until > 0 && t > until {
			continue
		}

		switch mode {
		case ModeAll:
			results = append(results, rec.Report)
		case ModeEvents:
			results = append(results, rec.Report.Event)
		case ModeInspectContainer:
			if rec.Report.Container != nil {
				results = append(results, rec.Report.Container)
			}
		case ModeInspectImage:
			if rec.Report.Image != nil {
				results = append(results, rec.Report.Image)
			}
		case ModeHostInfo:
			results = append(results, rec.Report.HostInfo)
		default:
			return nil, fmt.Errorf("unknown query mode %q", mode)
		}
	}
	return results, nil
}

// LastReport returns the most recent report for a container.
func (e *Engine) LastReport(containerID string) (*model.Report, error) {
	hash, err := fingerprint.Hash(containerID)
	if err != nil {
		return nil, err
	}
	fp, err := e.store.Get(hash)
	if err != nil {
		return nil, err
	}
	if fp == nil {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, containerID)
	}
	latest := fp.History.Latest()
	if latest == nil {
		return nil, fmt.Errorf("%w: container %s has no history", ErrNotFound, containerID)
	}
	return latest.Report, nil
}

// ContainerRaw returns the most recent raw container inspection payload.
func (e *Engine) ContainerRaw(containerID string) (json.RawMessage, error) {
	hash, err := fingerprint.Hash(containerID)
	if err != nil {
		return nil, err
	}
	fp, err := e.store.Get(hash)
	if err != nil {
		return nil, err
	}
	if fp == nil {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, containerID)
	}

	records := fp.History.Records()
	for n := len(records) - 1; n >= 0; n-- {
		if c := records[n].Report.Container; c != nil {
			return c.Raw, nil
		}
	}
	return nil, fmt.Errorf("%w: no inspection data for container %s", ErrNotFound, containerID)
}

// ImageRaw returns the cached raw image inspection payload.
func (e *Engine) ImageRaw(imageID string) (json.RawMessage, error) {
	hash, err := fingerprint.Hash(imageID)
	if err != nil {
		return nil, err
	}
	fp, err := e.store.Get(hash)
	if err != nil {
		return nil, err
	}
	if fp == nil {
		return nil, fmt.Errorf("%w: image %s", ErrNotFound, imageID)
	}

	_, _, snapshot := fp.Inspection.Snapshot()
	if snapshot == nil {
		return nil, fmt.Errorf("%w: no inspection data for image %s", ErrNotFound, imageID)
	}
	return snapshot.Raw, nil
}
