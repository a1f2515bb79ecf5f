package account

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// StoreVersion is the current on-disk store schema version.
const StoreVersion = 2

// Store is the whole persisted account state.
type Store struct {
	Version    int       `json:"version"`
	UpdatedAt  int64     `json:"updated_at"` // epoch milliseconds, stamped on save
	ActiveUUID *string   `json:"active_uuid"`
	Accounts   []Account `json:"accounts"`
}

// NewStore returns an empty v2 store.
func NewStore() *Store {
	return &Store{
		Version:   StoreVersion,
		UpdatedAt: time.Now().UnixMilli(),
		Accounts:  make([]Account, 0),
	}
}

// rawStore mirrors the untrusted on-disk shape. Accounts entries are kept
// raw so one malformed entry cannot abort the whole load, and the legacy
// single-account field is preserved for migration.
type rawStore struct {
	Version    int               `json:"version"`
	ActiveUUID *string           `json:"active_uuid"`
	Accounts   []json.RawMessage `json:"accounts"`
	Account    json.RawMessage   `json:"account"` // legacy pre-v2 shape
}

// NormalizeStore reduces untrusted store bytes to a valid v2 Store. Any
// shape it cannot make sense of (non-object input, unknown version)
// degrades to an empty store rather than an error. Individual malformed
// account entries are dropped; the active pointer is recomputed so it
// always names a surviving account or is null.
//
// The one hard failure is a legacy single-account file whose account does
// not normalize: there is nothing salvageable in such a file, so the error
// is surfaced and the caller treats the whole store as corrupt.
func NormalizeStore(data []byte) (*Store, error) {
	store := NewStore()

	var raw rawStore
	if err := json.Unmarshal(data, &raw); err != nil {
		return store, nil
	}

	// Migration from the legacy single-account format.
	if len(raw.Account) > 0 && string(raw.Account) != "null" {
		single, err := normalizeRaw(raw.Account)
		if err != nil {
			return nil, fmt.Errorf("migrating legacy account: %w", err)
		}
		store.Accounts = append(store.Accounts, *single)
		store.setActive(single.UUID)
		return store, nil
	}

	if raw.Version != StoreVersion || raw.Accounts == nil {
		return store, nil
	}

	index := make(map[string]int)
	for _, entry := range raw.Accounts {
		acct, err := normalizeRaw(entry)
		if err != nil {
			slog.Warn("ignoring invalid account entry", "error", err)
			continue
		}
		// Later duplicates replace earlier ones, same as an upsert.
		if i, ok := index[acct.UUID]; ok {
			store.Accounts[i] = *acct
			continue
		}
		index[acct.UUID] = len(store.Accounts)
		store.Accounts = append(store.Accounts, *acct)
	}

	if raw.ActiveUUID != nil && store.Find(*raw.ActiveUUID) != nil {
		store.ActiveUUID = raw.ActiveUUID
	} else if len(store.Accounts) > 0 {
		store.setActive(store.Accounts[0].UUID)
	}

	return store, nil
}

func normalizeRaw(data json.RawMessage) (*Account, error) {
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return Normalize(&raw)
}

// Find returns the account with the given uuid, or nil.
func (s *Store) Find(uuid string) *Account {
	for i := range s.Accounts {
		if s.Accounts[i].UUID == uuid {
			return &s.Accounts[i]
		}
	}
	return nil
}

// Active returns the account named by the active pointer, falling back to
// the first account when the pointer is stale, or nil for an empty store.
func (s *Store) Active() *Account {
	if len(s.Accounts) == 0 {
		return nil
	}
	if s.ActiveUUID != nil {
		if acct := s.Find(*s.ActiveUUID); acct != nil {
			return acct
		}
	}
	return &s.Accounts[0]
}

// Upsert inserts or replaces the account by uuid. The account becomes
// active when setActive is true or when no account is active yet.
func (s *Store) Upsert(acct *Account, setActive bool) {
	replaced := false
	for i := range s.Accounts {
		if s.Accounts[i].UUID == acct.UUID {
			s.Accounts[i] = *acct
			replaced = true
			break
		}
	}
	if !replaced {
		s.Accounts = append(s.Accounts, *acct)
	}
	if setActive || s.ActiveUUID == nil {
		s.setActive(acct.UUID)
	}
}

// Remove deletes the account by uuid and reports whether it was present.
// If the removed account was active, activity falls to the first remaining
// account.
func (s *Store) Remove(uuid string) bool {
	kept := s.Accounts[:0]
	removed := false
	for _, acct := range s.Accounts {
		if acct.UUID == uuid {
			removed = true
			continue
		}
		kept = append(kept, acct)
	}
	if !removed {
		return false
	}
	s.Accounts = kept
	if s.ActiveUUID != nil && *s.ActiveUUID == uuid {
		if len(s.Accounts) > 0 {
			s.setActive(s.Accounts[0].UUID)
		} else {
			s.ActiveUUID = nil
		}
	}
	return true
}

// setActive points the active pointer at a copy of the uuid so it cannot
// alias an account slice element.
func (s *Store) setActive(uuid string) {
	s.ActiveUUID = &uuid
}
