package store

import (
	"sync"
	"time"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/Shoaibashk/serialmonitor/internal/macro"
)

// MacroStore holds every saved Macro in memory, backed by a single JSON
// array file rewritten whole after each mutation.
type MacroStore struct {
	path string

	mu     sync.Mutex
	macros []macro.Macro
}

// NewMacroStore loads (or creates) the macro document at path.
func NewMacroStore(path string) (*MacroStore, error) {
	s := &MacroStore{path: path}
	if err := loadJSONArray(path, &s.macros); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MacroStore) saveLocked() error {
	return saveJSONArray(s.path, s.macros)
}

// List returns every stored macro.
func (s *MacroStore) List() []macro.Macro {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]macro.Macro, len(s.macros))
	copy(out, s.macros)
	return out
}

// Get returns the macro identified by id.
func (s *MacroStore) Get(id string) (macro.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.macros {
		if m.ID == id {
			return m, nil
		}
	}
	return macro.Macro{}, channel.NewError("MacroStore.Get", channel.KindNotFound, nil)
}

// Create assigns an id and timestamps, persists, and returns the stored
// Macro.
func (s *MacroStore) Create(name string, commands []macro.Command, repeatCount int, params []string) (macro.Macro, error) {
	m := macro.New(name, commands, repeatCount, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.macros = append(s.macros, m)
	if err := s.saveLocked(); err != nil {
		return macro.Macro{}, err
	}
	return m, nil
}

// Update replaces every mutable field of the macro identified by id.
func (s *MacroStore) Update(id string, name string, commands []macro.Command, repeatCount int, params []string) (macro.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.macros {
		if m.ID != id {
			continue
		}
		m.Name = name
		m.Commands = commands
		if repeatCount < 1 {
			repeatCount = 1
		}
		m.RepeatCount = repeatCount
		m.Params = params
		m.UpdatedAt = time.Now()
		s.macros[i] = m
		if err := s.saveLocked(); err != nil {
			return macro.Macro{}, err
		}
		return m, nil
	}
	return macro.Macro{}, channel.NewError("MacroStore.Update", channel.KindNotFound, nil)
}

// Delete removes the macro identified by id.
func (s *MacroStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.macros {
		if m.ID != id {
			continue
		}
		s.macros = append(s.macros[:i], s.macros[i+1:]...)
		return s.saveLocked()
	}
	return channel.NewError("MacroStore.Delete", channel.KindNotFound, nil)
}
