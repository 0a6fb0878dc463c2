package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"deploytrace/engine"
	"deploytrace/fingerprint"
	"deploytrace/metrics"
	"deploytrace/model"
	"deploytrace/registry"
)

// registryStore keeps registered ids in memory for handler tests.
type registryStore struct {
	ids []string
}

func (s *registryStore) LoadContainerIDs() ([]string, error) {
	return s.ids, nil
}

func (s *registryStore) InsertContainerID(id string) error {
	s.ids = append(s.ids, id)
	return nil
}

func (s *registryStore) DeleteContainerID(id string) error {
	for n, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:n], s.ids[n+1:]...)
			break
		}
	}
	return nil
}

func testID(c byte) string {
	return strings.Repeat(string(c), 64)
}

func newTestMux(t *testing.T) (*http.ServeMux, *engine.Engine, *registry.Registry) {
	t.Helper()

	store := fingerprint.NewMemoryStore()
	bus := engine.NewBus()
	reg, err := registry.New(&registryStore{})
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}
	bus.Register(reg)
	eng := engine.New(store, bus, engine.Config{AutoCreateImages: true}, metrics.NewCounters())

	mux := http.NewServeMux()
	RegisterTraceabilityHandlers(mux, eng, reg)
	return mux, eng, reg
}

func doRequest(mux *http.ServeMux, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func reportBody(containerID, imageID, status string, ts int64) string {
	return `{
		"event": {"status": "` + status + `", "id": "` + containerID + `", "time": ` + jsonInt(ts) + `},
		"hostInfo": {"ID": "host-1", "Name": "node-1"},
		"container": {"Id": "` + containerID + `", "Name": "/app", "Image": "` + imageID + `"},
		"imageId": "` + imageID + `"
	}`
}

func jsonInt(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func TestSubmitReport(t *testing.T) {
	mux, _, reg := newTestMux(t)
	cid := testID('a')

	w := doRequest(mux, http.MethodPost, "/api/report", "application/json",
		reportBody(cid, testID('b'), "start", 100))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if response["message"] != "Report accepted" {
		t.Errorf("unexpected message %q", response["message"])
	}
	if !reg.Contains(cid) {
		t.Error("ingested container should land in the registry")
	}
}

func TestSubmitReportRejectsMalformed(t *testing.T) {
	mux, _, _ := newTestMux(t)

	w := doRequest(mux, http.MethodPost, "/api/report", "application/json", `{"event": null}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for incomplete report, got %d", w.Code)
	}

	w = doRequest(mux, http.MethodPost, "/api/report", "application/json", "not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", w.Code)
	}
}

func TestSubmitReportMethodNotAllowed(t *testing.T) {
	mux, _, _ := newTestMux(t)

	w := doRequest(mux, http.MethodGet, "/api/report", "", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestSubmitContainerStatus(t *testing.T) {
	mux, eng, reg := newTestMux(t)
	cidA := testID('a')
	cidB := testID('b')

	inspectData := `[{"Id":"` + cidA + `","Name":"/web"},{"Id":"` + cidB + `","Name":"/db"}]`
	form := url.Values{}
	form.Set("inspectData", inspectData)
	form.Set("hostId", "host-1")
	form.Set("hostName", "node-1")
	form.Set("time", "500")
	form.Set("environment", "prod")

	w := doRequest(mux, http.MethodPost, "/api/container-status",
		"application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if received, ok := response["received"].(float64); !ok || received != 2 {
		t.Errorf("expected 2 received, got %v", response["received"])
	}

	if !reg.Contains(cidA) || !reg.Contains(cidB) {
		t.Error("both containers should be registered")
	}

	// Synthetic reports carry the shared form fields
	last, err := eng.LastReport(cidA)
	if err != nil {
		t.Fatalf("LastReport failed: %v", err)
	}
	if last.Event.Status != string(model.EventNone) {
		t.Errorf("expected default status NONE, got %q", last.Event.Status)
	}
	if last.Event.Time != 500 {
		t.Errorf("expected time 500, got %d", last.Event.Time)
	}
	if last.Environment != "prod" {
		t.Errorf("expected environment prod, got %q", last.Environment)
	}
	if last.HostInfo.Name != "node-1" {
		t.Errorf("expected host name node-1, got %q", last.HostInfo.Name)
	}
}

func TestSubmitContainerStatusRejectsBadInput(t *testing.T) {
	mux, eng, _ := newTestMux(t)

	// Missing inspectData
	w := doRequest(mux, http.MethodPost, "/api/container-status",
		"application/x-www-form-urlencoded", "hostId=host-1")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing inspectData, got %d", w.Code)
	}

	// Not a JSON array
	form := url.Values{}
	form.Set("inspectData", `{"Id":"x"}`)
	w = doRequest(mux, http.MethodPost, "/api/container-status",
		"application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-array inspectData, got %d", w.Code)
	}

	// Malformed time rejects the submission before anything is ingested
	form = url.Values{}
	form.Set("inspectData", `[{"Id":"`+testID('a')+`"}]`)
	form.Set("time", "not-a-number")
	w = doRequest(mux, http.MethodPost, "/api/container-status",
		"application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed time, got %d", w.Code)
	}
	if _, err := eng.LastReport(testID('a')); err == nil {
		t.Error("rejected submission must not ingest anything")
	}
}

func TestQueryContainerEndpoint(t *testing.T) {
	mux, _, _ := newTestMux(t)
	cid := testID('a')

	for _, spec := range []struct {
		status string
		ts     int64
	}{{"create", 10}, {"start", 20}, {"die", 30}} {
		w := doRequest(mux, http.MethodPost, "/api/report", "application/json",
			reportBody(cid, testID('b'), spec.status, spec.ts))
		if w.Code != http.StatusOK {
			t.Fatalf("seeding report failed: %d", w.Code)
		}
	}

	// Default mode returns container snapshots
	w := doRequest(mux, http.MethodGet, "/api/query?id="+cid, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var snapshots []json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&snapshots); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if len(snapshots) != 3 {
		t.Errorf("expected 3 snapshots, got %d", len(snapshots))
	}

	// Events mode with a time window
	w = doRequest(mux, http.MethodGet, "/api/query?id="+cid+"&mode=events&since=15&until=25", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var events []model.Event
	if err := json.NewDecoder(w.Body).Decode(&events); err != nil {
		t.Fatalf("Failed to decode events: %v", err)
	}
	if len(events) != 1 || events[0].Time != 20 {
		t.Errorf("expected only the time-20 event, got %+v", events)
	}
}

func TestQueryContainerErrors(t *testing.T) {
	mux, _, _ := newTestMux(t)

	w := doRequest(mux, http.MethodGet, "/api/query", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing id, got %d", w.Code)
	}

	w = doRequest(mux, http.MethodGet, "/api/query?id=short", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid id, got %d", w.Code)
	}

	w = doRequest(mux, http.MethodGet, "/api/query?id="+testID('f'), "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown container, got %d", w.Code)
	}

	w = doRequest(mux, http.MethodGet, "/api/query?id="+testID('f')+"&mode=bogus", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown mode, got %d", w.Code)
	}

	w = doRequest(mux, http.MethodGet, "/api/query?id="+testID('f')+"&since=abc", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed since, got %d", w.Code)
	}
}

func TestListContainersAndRecords(t *testing.T) {
	mux, _, _ := newTestMux(t)
	cidA := testID('a')
	cidB := testID('b')

	doRequest(mux, http.MethodPost, "/api/report", "application/json",
		reportBody(cidA, testID('c'), "start", 100))
	doRequest(mux, http.MethodPost, "/api/report", "application/json",
		reportBody(cidB, testID('c'), "create", 200))

	w := doRequest(mux, http.MethodGet, "/api/containers", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var ids []string
	if err := json.NewDecoder(w.Body).Decode(&ids); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 registered containers, got %v", ids)
	}

	w = doRequest(mux, http.MethodGet, "/api/records", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var reports []*model.Report
	if err := json.NewDecoder(w.Body).Decode(&reports); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("expected 2 records, got %d", len(reports))
	}
}

func TestRawEndpoints(t *testing.T) {
	mux, _, _ := newTestMux(t)
	cid := testID('a')

	doRequest(mux, http.MethodPost, "/api/report", "application/json",
		reportBody(cid, testID('b'), "start", 100))

	w := doRequest(mux, http.MethodGet, "/api/container/raw?id="+cid, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var probe struct {
		ID string `json:"Id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&probe); err != nil {
		t.Fatalf("Failed to decode raw payload: %v", err)
	}
	if probe.ID != cid {
		t.Errorf("raw payload does not match container, got %q", probe.ID)
	}

	w = doRequest(mux, http.MethodGet, "/api/container/raw?id="+testID('f'), "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown container, got %d", w.Code)
	}

	w = doRequest(mux, http.MethodGet, "/api/image/raw?id="+testID('f'), "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown image, got %d", w.Code)
	}
}

func TestRemoveContainer(t *testing.T) {
	mux, _, reg := newTestMux(t)
	cid := testID('a')

	doRequest(mux, http.MethodPost, "/api/report", "application/json",
		reportBody(cid, testID('b'), "start", 100))
	if !reg.Contains(cid) {
		t.Fatal("container not registered")
	}

	w := doRequest(mux, http.MethodDelete, "/api/container?id="+cid, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if reg.Contains(cid) {
		t.Error("container should be removed from the registry")
	}

	w = doRequest(mux, http.MethodGet, "/api/container?id="+cid, "", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", w.Code)
	}
}
