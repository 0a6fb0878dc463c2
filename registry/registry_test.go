package registry

import (
	"errors"
	"testing"
)

// memStore records mutations so tests can verify write-on-change behavior.
type memStore struct {
	ids     []string
	inserts int
	deletes int
	failAll bool
}

func (s *memStore) LoadContainerIDs() ([]string, error) {
	return s.ids, nil
}

func (s *memStore) InsertContainerID(id string) error {
	if s.failAll {
		return errors.New("store unavailable")
	}
	s.inserts++
	s.ids = append(s.ids, id)
	return nil
}

func (s *memStore) DeleteContainerID(id string) error {
	if s.failAll {
		return errors.New("store unavailable")
	}
	s.deletes++
	for n, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:n], s.ids[n+1:]...)
			break
		}
	}
	return nil
}

func TestRegistryCRUD(t *testing.T) {
	store := &memStore{}
	r, err := New(store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := r.Add("A"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add("B"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add("B"); err != nil {
		t.Fatalf("repeat Add failed: %v", err)
	}
	if r.Size() != 2 {
		t.Errorf("expected size 2, got %d", r.Size())
	}
	if store.inserts != 2 {
		t.Errorf("repeat add must not write: %d inserts", store.inserts)
	}

	// Removing an absent id changes nothing and writes nothing
	if err := r.Remove("C"); err != nil {
		t.Fatalf("Remove of absent id failed: %v", err)
	}
	if r.Size() != 2 || store.deletes != 0 {
		t.Errorf("absent remove should be a no-op: size=%d deletes=%d", r.Size(), store.deletes)
	}

	if err := r.Remove("A"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if r.Size() != 1 || !r.Contains("B") {
		t.Errorf("expected only B to survive")
	}

	// Reload from the same store yields the surviving set
	r2, err := New(store)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	list := r2.List()
	if len(list) != 1 || list[0] != "B" {
		t.Errorf("expected reloaded set [B], got %v", list)
	}
}

func TestRegistryStoreFailureLeavesMembershipUnchanged(t *testing.T) {
	store := &memStore{}
	r, err := New(store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	store.failAll = true
	if err := r.Add("A"); err == nil {
		t.Fatal("expected error from failing store")
	}
	if r.Contains("A") {
		t.Error("failed persist must not leave the id in memory")
	}
}

func TestRegistryOnNewDeployment(t *testing.T) {
	r, err := New(&memStore{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := r.OnNewDeployment("container-x"); err != nil {
		t.Fatalf("OnNewDeployment failed: %v", err)
	}
	if !r.Contains("container-x") {
		t.Error("listener should register the container")
	}
}
