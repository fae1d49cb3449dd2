package session

// Store persists the last known complete Triple across process restarts.
type Store interface {
	// Load returns the persisted triple. A missing or corrupt record yields
	// false; a corrupt record is removed as a side effect. Load never fails.
	Load() (Triple, bool)

	// Save overwrites the record. Only complete triples are accepted.
	Save(t Triple) error

	// Clear removes the record unconditionally.
	Clear() error
}
