package engine

import (
	"log"

	"deploytrace/fingerprint"
	"deploytrace/metrics"
	"deploytrace/model"
)

// Config holds ingestion behavior flags.
type Config struct {
	// AutoCreateImages creates an image fingerprint on first sight instead
	// of requiring prior registration. Off by default; reports for
	// unregistered images are then dropped silently.
	AutoCreateImages bool
}

// Engine orchestrates ingestion and queries against the identity store.
type Engine struct {
	store    fingerprint.Store
	bus      *Bus
	cfg      Config
	counters *metrics.Counters
}

// New creates an engine. counters may be nil.
func New(store fingerprint.Store, bus *Bus, cfg Config, counters *metrics.Counters) *Engine {
	return &Engine{
		store:    store,
		bus:      bus,
		cfg:      cfg,
		counters: counters,
	}
}

// Ingest processes one report. Ingestion is fire-and-forget: every failure
// is logged and swallowed so a malformed or late report never disrupts the
// reporting host.
func (e *Engine) Ingest(report *model.Report) {
	imageID := report.ResolveImageID()
	if imageID == "" && report.Container != nil {
		imageID = e.recoverImageID(report.Container.ID)
	}

	var imageFP *fingerprint.Fingerprint
	if imageID != "" {
		var err error
		imageFP, err = e.imageFingerprint(imageID, report)
		if err != nil {
			log.Printf("Ingestion aborted for image %s: %v", imageID, err)
			e.counters.ReportDropped()
			return
		}
		if imageFP == nil {
			// The common case when image fingerprints are not
			// auto-created and the image was never registered.
			log.Printf("No fingerprint for image %s, dropping report", imageID)
			e.counters.ReportDropped()
			return
		}
	}

	if report.Container != nil {
		if err := e.recordDeployment(report, imageFP); err != nil {
			log.Printf("Failed to record deployment: %v", err)
			e.counters.ReportDropped()
			return
		}
	}

	if report.Image != nil && imageFP != nil {
		e.updateInspection(imageFP, report)
	}

	e.counters.ReportIngested()
	e.bus.FireReport(report)
}

// recoverImageID looks up the container's existing history to recover
// image linkage for a late event that omits it.
func (e *Engine) recoverImageID(containerID string) string {
	hash, err := fingerprint.Hash(containerID)
	if err != nil {
		return ""
	}
	fp, err := e.store.Get(hash)
	if err != nil {
		log.Printf("Image recovery lookup failed for %s: %v", containerID, err)
		return ""
	}
	if fp == nil {
		return ""
	}
	return fp.History.ResolvedImageID()
}

// imageFingerprint fetches the image identity, creating it when configured
// to. Returns (nil, nil) when the image is unregistered and auto-creation
// is off.
func (e *Engine) imageFingerprint(imageID string, report *model.Report) (*fingerprint.Fingerprint, error) {
	hash, err := fingerprint.Hash(imageID)
	if err != nil {
		return nil, err
	}

	fp, err := e.store.Get(hash)
	if err != nil {
		return nil, err
	}
	if fp == nil && e.cfg.AutoCreateImages {
		fp, err = e.store.GetOrCreate(hash, fingerprint.Seed{
			ID:      imageID,
			Name:    report.ImageName,
			Kind:    fingerprint.KindImage,
			Created: report.EventTime(),
		})
		if err != nil {
			return nil, err
		}
	}
	return fp, nil
}

// recordDeployment appends the report to the container's history, links the
// container into the image's reference set and fires the deployment
// notification.
func (e *Engine) recordDeployment(report *model.Report, imageFP *fingerprint.Fingerprint) error {
	containerID := report.Container.ID
	hash, err := fingerprint.Hash(containerID)
	if err != nil {
		return err
	}

	fp, err := e.store.GetOrCreate(hash, fingerprint.Seed{
		ID:      containerID,
		Name:    report.Container.Name,
		Kind:    fingerprint.KindContainer,
		Created: report.EventTime(),
	})
	if err != nil {
		return err
	}

	if fp.History.Add(fingerprint.NewRecord(report)) {
		if err := e.store.Save(fp); err != nil {
			return err
		}
	}

	if imageFP != nil && imageFP.Refs.Add(containerID) {
		if err := e.store.Save(imageFP); err != nil {
			return err
		}
	}

	e.bus.FireNewDeployment(containerID)
	return nil
}

// updateInspection refreshes the image's inspection cache. The snapshot is
// replaced only for strictly newer observations; the name follows every
// report.
func (e *Engine) updateInspection(imageFP *fingerprint.Fingerprint, report *model.Report) {
	imageFP.Inspection.Update(report.EventTime(), report.ImageName, report.Image)
	if err := e.store.Save(imageFP); err != nil {
		log.Printf("Failed to save inspection for image %s: %v", imageFP.ID, err)
	}
}
