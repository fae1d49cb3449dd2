// Package sealedstore encrypts the persisted session record with
// nacl/secretbox so the identifiers are not readable at rest.
package sealedstore

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/BharatiPatra/fi-dashboard/session/filestore"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	KeySize   = 32
	NonceSize = 24
)

var _ filestore.Codec = (*Box)(nil)

// Box seals records with a fixed key. The nonce is stored in the first
// NonceSize bytes of the sealed record.
type Box struct {
	key *[KeySize]byte
}

func NewBox(key *[KeySize]byte) *Box {
	return &Box{key: key}
}

// New returns a file store whose record is sealed with key.
func New(file string, key *[KeySize]byte) *filestore.Store {
	return filestore.New(file, filestore.WithCodec(NewBox(key)))
}

// Open returns a sealed store when key is set and a plain one otherwise.
func Open(file string, key *[KeySize]byte) *filestore.Store {
	if key == nil {
		return filestore.New(file)
	}
	return New(file, key)
}

// GenerateKey returns a random key suitable for FIDASH_SESSION_KEY.
func GenerateKey() (*[KeySize]byte, error) {
	var key [KeySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("unable to generate key: %w", err)
	}
	return &key, nil
}

func (b *Box) Encode(plain []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("unable to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, b.key), nil
}

func (b *Box) Decode(stored []byte) ([]byte, error) {
	if len(stored) < NonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("wrong length of sealed record")
	}

	var nonce [NonceSize]byte
	copy(nonce[:], stored[:NonceSize])
	plain, ok := secretbox.Open(nil, stored[NonceSize:], &nonce, b.key)
	if !ok {
		return nil, fmt.Errorf("unable to open sealed record")
	}
	return plain, nil
}
