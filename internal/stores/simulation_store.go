package stores

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrAlreadyExists is matched by the error Insert returns on an id conflict.
var ErrAlreadyExists = errors.New("simulation already exists")

// Simulation is a named holodeck program. Identity is the ID alone.
type Simulation struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Outcome reports what a mutating store operation did.
type Outcome int

const (
	Created Outcome = iota + 1
	Replaced
	Removed
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Replaced:
		return "replaced"
	case Removed:
		return "removed"
	case NotFound:
		return "not found"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ExistsError carries the record that blocked an insert.
type ExistsError struct {
	Existing Simulation
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("simulation #%d already exists under the name %s", e.Existing.ID, e.Existing.Name)
}

func (e *ExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// SimulationStore is the in-memory, concurrency-safe set of simulations.
type SimulationStore struct {
	mu   sync.RWMutex
	sims map[uint64]Simulation
}

func NewSimulationStore() *SimulationStore {
	return &SimulationStore{
		sims: make(map[uint64]Simulation),
	}
}

// List returns a copy of every simulation ordered by id, or only the one
// matching filter when filter is non-nil. A filter that matches nothing
// yields an empty, non-nil slice.
func (s *SimulationStore) List(filter *uint64) []Simulation {
	s.mu.RLock()
	if filter != nil {
		sim, ok := s.sims[*filter]
		s.mu.RUnlock()
		if !ok {
			return []Simulation{}
		}
		return []Simulation{sim}
	}
	result := make([]Simulation, 0, len(s.sims))
	for _, sim := range s.sims {
		result = append(result, sim)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Insert adds sim unless its id is taken, in which case it returns an
// *ExistsError describing the stored record and leaves the store untouched.
func (s *SimulationStore) Insert(sim Simulation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sims[sim.ID]; ok {
		return &ExistsError{Existing: existing}
	}
	s.sims[sim.ID] = sim
	return nil
}

// Upsert stores {id, name}, replacing any record with the same id.
func (s *SimulationStore) Upsert(id uint64, name string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.sims[id]
	s.sims[id] = Simulation{ID: id, Name: name}
	if exists {
		return Replaced
	}
	return Created
}

func (s *SimulationStore) Remove(id uint64) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sims[id]; !exists {
		return NotFound
	}
	delete(s.sims, id)
	return Removed
}

func (s *SimulationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sims)
}
