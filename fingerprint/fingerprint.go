package fingerprint

import "sync"

// Kind distinguishes container identities from image identities.
type Kind string

const (
	KindContainer Kind = "container"
	KindImage     Kind = "image"
)

// Seed carries the initial values for a newly created fingerprint.
type Seed struct {
	ID      string
	Name    string
	Kind    Kind
	Created int64
}

// Fingerprint is one durable identity record. Every fingerprint carries all
// three facets as fixed fields; which ones see use depends on the kind.
// Each facet guards itself, so concurrent ingestions touching different
// identities never serialize on a shared lock.
type Fingerprint struct {
	Hash    string
	ID      string
	Name    string
	Kind    Kind
	Created int64

	History    *DeploymentHistory
	Refs       *DeploymentRefs
	Inspection *ImageInspection
}

// New allocates a fingerprint with empty facets.
func New(hash string, seed Seed) *Fingerprint {
	return &Fingerprint{
		Hash:       hash,
		ID:         seed.ID,
		Name:       seed.Name,
		Kind:       seed.Kind,
		Created:    seed.Created,
		History:    &DeploymentHistory{},
		Refs:       &DeploymentRefs{},
		Inspection: &ImageInspection{},
	}
}

// Store is the identity store consumed by the ingestion and query paths.
// Implementations must hand out one shared handle per hash so that facet
// locks serialize concurrent access to the same identity.
type Store interface {
	// Get returns the fingerprint for a hash, or (nil, nil) when absent.
	Get(hash string) (*Fingerprint, error)

	// GetOrCreate returns the existing fingerprint for a hash, creating
	// and persisting a new one from the seed when absent.
	GetOrCreate(hash string, seed Seed) (*Fingerprint, error)

	// Save persists the fingerprint's current state.
	Save(fp *Fingerprint) error
}

// MemoryStore is a Store backed by a process-local map. It is used by
// tests and is safe for concurrent use.
type MemoryStore struct {
	mu  sync.Mutex
	fps map[string]*Fingerprint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fps: make(map[string]*Fingerprint)}
}

func (s *MemoryStore) Get(hash string) (*Fingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps[hash], nil
}

func (s *MemoryStore) GetOrCreate(hash string, seed Seed) (*Fingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fp, ok := s.fps[hash]; ok {
		if fp.Name == "" && seed.Name != "" {
			fp.Name = seed.Name
		}
		return fp, nil
	}
	fp := New(hash, seed)
	s.fps[hash] = fp
	return fp, nil
}

func (s *MemoryStore) Save(fp *Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fps[fp.Hash] = fp
	return nil
}
