package fakestore

import (
	"errors"
	"sync"

	"github.com/BharatiPatra/fi-dashboard/session"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is an in-memory session.Store that records how it was used.
type FakeStore struct {
	lock    sync.RWMutex
	record  *session.Triple
	saves   []session.Triple
	clears  int
	SaveErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// NewFakeStoreWith returns a store already holding t.
func NewFakeStoreWith(t session.Triple) *FakeStore {
	return &FakeStore{record: &t}
}

func (s *FakeStore) Load() (session.Triple, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.record == nil {
		return session.Triple{}, false
	}
	return *s.record, true
}

func (s *FakeStore) Save(t session.Triple) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}
	if !t.IsComplete() {
		return errors.New("incomplete session")
	}
	s.record = &t
	s.saves = append(s.saves, t)
	return nil
}

func (s *FakeStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.record = nil
	s.clears++
	return nil
}

// Saves returns every triple written so far, oldest first.
func (s *FakeStore) Saves() []session.Triple {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]session.Triple(nil), s.saves...)
}

func (s *FakeStore) Clears() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.clears
}
