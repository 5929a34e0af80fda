// Package store is the persistent-document layer for Macros and Profiles:
// pretty-printed JSON arrays, loaded once at startup and rewritten whole
// after every mutation.
package store

import (
	"sync"
	"time"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/google/uuid"
)

// Profile is a named, reusable port configuration a client can save and
// later apply via POST /connect by profileId instead of a literal config.
type Profile struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Config    channel.PortConfig `json:"config"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ProfileStore holds every saved Profile in memory, backed by a single
// JSON array file rewritten whole after each mutation.
type ProfileStore struct {
	path string

	mu       sync.Mutex
	profiles []Profile
}

// NewProfileStore loads (or creates) the profile document at path.
func NewProfileStore(path string) (*ProfileStore, error) {
	s := &ProfileStore{path: path}
	if err := loadJSONArray(path, &s.profiles); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ProfileStore) saveLocked() error {
	return saveJSONArray(s.path, s.profiles)
}

// List returns every stored profile.
func (s *ProfileStore) List() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Get returns the profile identified by id.
func (s *ProfileStore) Get(id string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return Profile{}, channel.NewError("ProfileStore.Get", channel.KindNotFound, nil)
}

// Create assigns an id and timestamps, persists, and returns the stored
// Profile.
func (s *ProfileStore) Create(name string, cfg channel.PortConfig) (Profile, error) {
	now := time.Now()
	p := Profile{ID: uuid.NewString(), Name: name, Config: cfg, CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, p)
	if err := s.saveLocked(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Update replaces the name/config of the profile identified by id.
func (s *ProfileStore) Update(id string, name string, cfg channel.PortConfig) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.profiles {
		if p.ID != id {
			continue
		}
		p.Name = name
		p.Config = cfg
		p.UpdatedAt = time.Now()
		s.profiles[i] = p
		if err := s.saveLocked(); err != nil {
			return Profile{}, err
		}
		return p, nil
	}
	return Profile{}, channel.NewError("ProfileStore.Update", channel.KindNotFound, nil)
}

// Delete removes the profile identified by id.
func (s *ProfileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.profiles {
		if p.ID != id {
			continue
		}
		s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
		return s.saveLocked()
	}
	return channel.NewError("ProfileStore.Delete", channel.KindNotFound, nil)
}
