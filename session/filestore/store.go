// Package filestore persists the session triple as a single JSON document in
// the user's config directory.
package filestore

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BharatiPatra/fi-dashboard/internal/errors"
	"github.com/BharatiPatra/fi-dashboard/session"
	"github.com/rs/zerolog/log"
)

// RecordKey names the persisted record.
const RecordKey = "userSession"

// Codec transforms the serialized record on its way to and from disk.
// A Decode failure is treated as a corrupt record.
type Codec interface {
	Encode(plain []byte) ([]byte, error)
	Decode(stored []byte) ([]byte, error)
}

type Option func(*Store)

// WithCodec sets the codec applied to the JSON record.
func WithCodec(c Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

var _ session.Store = (*Store)(nil)

// Store is a session.Store backed by one file. Writes are atomic: the record
// is written to a temp file in the same directory and renamed into place.
type Store struct {
	mu    sync.Mutex
	file  string
	codec Codec
}

func New(file string, opts ...Option) *Store {
	s := &Store{file: file}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the record.
func (s *Store) Path() string {
	return s.file
}

func (s *Store) Load() (session.Triple, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.file)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug().Err(err).Str("file", s.file).Msg("session record unreadable")
		}
		return session.Triple{}, false
	}

	t, err := s.decode(raw)
	if err != nil {
		log.Debug().Err(err).Str("file", s.file).Msg("discarding corrupt session record")
		if err := os.Remove(s.file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Debug().Err(err).Str("file", s.file).Msg("unable to remove corrupt session record")
		}
		return session.Triple{}, false
	}
	return t, true
}

func (s *Store) Save(t session.Triple) error {
	if !t.IsComplete() {
		return errors.Wrapf(errors.ErrIncompleteSession, "[filestore Save]")
	}

	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("[filestore Save] unable to encode session: %w", err)
	}
	if s.codec != nil {
		if raw, err = s.codec.Encode(raw); err != nil {
			return fmt.Errorf("[filestore Save] unable to seal session: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.file, raw)
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[filestore Clear] unable to remove session record: %w", err)
	}
	return nil
}

// decode parses a stored record. Records that parse but are not complete
// are corrupt too.
func (s *Store) decode(raw []byte) (session.Triple, error) {
	if s.codec != nil {
		var err error
		if raw, err = s.codec.Decode(raw); err != nil {
			return session.Triple{}, errors.Wrapf(errors.ErrCorruptRecord, "%v", err)
		}
	}

	var t session.Triple
	if err := json.Unmarshal(raw, &t); err != nil {
		return session.Triple{}, errors.Wrapf(errors.ErrCorruptRecord, "%v", err)
	}
	if !t.IsComplete() {
		return session.Triple{}, errors.Wrapf(errors.ErrCorruptRecord, "record is incomplete")
	}
	return t, nil
}

func writeAtomic(file string, raw []byte) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[filestore Save] unable to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+RecordKey+"-*.tmp")
	if err != nil {
		return fmt.Errorf("[filestore Save] unable to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore Save] unable to write session record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore Save] unable to sync session record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestore Save] unable to close session record: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("[filestore Save] unable to set session record mode: %w", err)
	}
	if err := os.Rename(tmpName, file); err != nil {
		return fmt.Errorf("[filestore Save] unable to replace session record: %w", err)
	}
	return nil
}
