package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"deploytrace/engine"
	"deploytrace/fingerprint"
	"deploytrace/model"
	"deploytrace/registry"
)

// Traceability serves the report ingestion and query API.
type Traceability struct {
	engine   *engine.Engine
	registry *registry.Registry
}

// RegisterTraceabilityHandlers registers the /api endpoints on the
// provided mux.
func RegisterTraceabilityHandlers(mux *http.ServeMux, eng *engine.Engine, reg *registry.Registry) {
	t := &Traceability{engine: eng, registry: reg}
	mux.HandleFunc("/api/report", t.SubmitReport)
	mux.HandleFunc("/api/container-status", t.SubmitContainerStatus)
	mux.HandleFunc("/api/query", t.QueryContainer)
	mux.HandleFunc("/api/containers", t.ListContainers)
	mux.HandleFunc("/api/records", t.LastRecords)
	mux.HandleFunc("/api/container/raw", t.ContainerRaw)
	mux.HandleFunc("/api/image/raw", t.ImageRaw)
	mux.HandleFunc("/api/container", t.RemoveContainer)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// SubmitReport ingests one serialized report.
// POST /api/report
func (t *Traceability) SubmitReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	report, err := model.ParseReport(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t.engine.Ingest(report)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Report accepted"})
}

// SubmitContainerStatus ingests one synthetic report per container
// snapshot in the submitted array.
// POST /api/container-status with form fields inspectData (required),
// hostId, hostName, status, time, environment, imageName.
func (t *Traceability) SubmitContainerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	inspectData := r.FormValue("inspectData")
	if inspectData == "" {
		http.Error(w, "Missing inspectData", http.StatusBadRequest)
		return
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal([]byte(inspectData), &payloads); err != nil {
		http.Error(w, "Malformed inspectData: expected a JSON array", http.StatusBadRequest)
		return
	}

	hostID := r.FormValue("hostId")
	if hostID == "" {
		hostID = "unknown"
	}
	hostName := r.FormValue("hostName")
	if hostName == "" {
		hostName = "unknown"
	}
	status := r.FormValue("status")
	if status == "" {
		status = string(model.EventNone)
	}

	eventTime := time.Now().Unix()
	if v := r.FormValue("time"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Malformed time", http.StatusBadRequest)
			return
		}
		if parsed > 0 {
			eventTime = parsed
		}
	}

	environment := r.FormValue("environment")
	imageName := r.FormValue("imageName")

	// Parse everything before ingesting anything, so a malformed element
	// rejects the whole submission.
	containers := make([]*model.ContainerInfo, 0, len(payloads))
	for _, payload := range payloads {
		container, err := model.NewContainerInfo(payload)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		containers = append(containers, container)
	}

	for _, container := range containers {
		report := &model.Report{
			Event: &model.Event{
				Status: status,
				ID:     container.ID,
				Time:   eventTime,
			},
			HostInfo:    &model.HostInfo{ID: hostID, Name: hostName},
			Container:   container,
			ImageName:   imageName,
			Environment: environment,
		}
		t.engine.Ingest(report)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Container status accepted",
		"received": len(containers),
	})
}

// QueryContainer serves time- and mode-filtered deployment history.
// GET /api/query?id=&mode=&since=&until=
func (t *Traceability) QueryContainer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id", http.StatusBadRequest)
		return
	}

	mode, err := engine.ParseQueryMode(r.URL.Query().Get("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	since, err := parseTimeParam(r.URL.Query().Get("since"))
	if err != nil {
		http.Error(w, "Malformed since", http.StatusBadRequest)
		return
	}
	until, err := parseTimeParam(r.URL.Query().Get("until"))
	if err != nil {
		http.Error(w, "Malformed until", http.StatusBadRequest)
		return
	}

	results, err := t.engine.QueryContainer(id, mode, since, until)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func parseTimeParam(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, fingerprint.ErrInvalidID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Query error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// ListContainers returns the registered container identifiers.
// GET /api/containers
func (t *Traceability) ListContainers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, t.registry.List())
}

// LastRecords returns the most recent report for each registered
// container. Containers without stored history are skipped.
// GET /api/records
func (t *Traceability) LastRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reports := make([]*model.Report, 0)
	for _, id := range t.registry.List() {
		report, err := t.engine.LastReport(id)
		if err != nil {
			if !errors.Is(err, engine.ErrNotFound) {
				log.Printf("Failed to load last report for %s: %v", id, err)
			}
			continue
		}
		reports = append(reports, report)
	}
	writeJSON(w, http.StatusOK, reports)
}

// ContainerRaw returns the latest raw container inspection payload.
// GET /api/container/raw?id=
func (t *Traceability) ContainerRaw(w http.ResponseWriter, r *http.Request) {
	t.rawHandler(w, r, t.engine.ContainerRaw)
}

// ImageRaw returns the cached raw image inspection payload.
// GET /api/image/raw?id=
func (t *Traceability) ImageRaw(w http.ResponseWriter, r *http.Request) {
	t.rawHandler(w, r, t.engine.ImageRaw)
}

func (t *Traceability) rawHandler(w http.ResponseWriter, r *http.Request, lookup func(string) (json.RawMessage, error)) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id", http.StatusBadRequest)
		return
	}

	raw, err := lookup(id)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		log.Printf("Error writing raw payload: %v", err)
	}
}

// RemoveContainer deletes a container from the registry.
// DELETE /api/container?id=
func (t *Traceability) RemoveContainer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id", http.StatusBadRequest)
		return
	}

	if err := t.registry.Remove(id); err != nil {
		log.Printf("Failed to remove container %s: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Container removed"})
}
