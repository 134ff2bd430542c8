// Package users stores registered account records: identifiers,
// display names, an opaque pre-hashed credential, role, and aggregate
// play stats. Store/MemStore split mirrors internal/savestore's —
// the core defines the interface and tolerates a purely in-process
// implementation, per spec §1.
package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/auth"
)

// Stats is the per-user aggregate spec §3 names: games played and
// return percentages across completed sessions.
type Stats struct {
	GamesPlayed   int     `json:"gamesPlayed" bson:"games_played"`
	BestReturn    float64 `json:"bestReturn" bson:"best_return"`
	AverageReturn float64 `json:"averageReturn" bson:"average_return"`
}

// User is a registered account. PasswordHash is opaque to this
// package: hashing is an external collaborator's responsibility per
// spec §1 ("Non-goals... password hashing/storage policy is an
// external collaborator's concern") — this package never calls a
// hashing function, only stores and compares the string it's given.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Identifier   string    `json:"identifier" bson:"identifier"`
	DisplayName  string    `json:"displayName" bson:"display_name"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         auth.Role `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	Stats        Stats     `json:"stats" bson:"stats"`
}

// Store is the persistence interface for accounts.
type Store interface {
	Create(ctx context.Context, identifier, displayName, passwordHash string, role auth.Role) (User, error)
	FindByIdentifier(ctx context.Context, identifier string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	RecordSessionResult(ctx context.Context, id string, returnPct float64) error
}

// MemStore is a sync.Mutex-guarded in-process Store, the reference
// backend this core must tolerate per spec §1.
type MemStore struct {
	mu         sync.Mutex
	byID       map[string]*User
	identifier map[string]string // identifier -> id
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		byID:       make(map[string]*User),
		identifier: make(map[string]string),
	}
}

// Create registers a new account. Returns apperr.Conflict if identifier
// is already taken.
func (m *MemStore) Create(ctx context.Context, identifier, displayName, passwordHash string, role auth.Role) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.identifier[identifier]; exists {
		return User{}, apperr.New(apperr.Conflict, "identifier %q already registered", identifier)
	}

	u := &User{
		ID:           uuid.NewString(),
		Identifier:   identifier,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	m.byID[u.ID] = u
	m.identifier[identifier] = u.ID
	return *u, nil
}

// FindByIdentifier looks an account up by its login identifier
// (username or email).
func (m *MemStore) FindByIdentifier(ctx context.Context, identifier string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.identifier[identifier]
	if !ok {
		return User{}, apperr.New(apperr.NotFound, "no account for identifier %q", identifier)
	}
	return *m.byID[id], nil
}

// FindByID looks an account up by its stable id.
func (m *MemStore) FindByID(ctx context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return User{}, apperr.New(apperr.NotFound, "no account %q", id)
	}
	return *u, nil
}

// RecordSessionResult folds a completed session's return percentage
// into the account's running stats: games played increments, best and
// average return update accordingly.
func (m *MemStore) RecordSessionResult(ctx context.Context, id string, returnPct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return apperr.New(apperr.NotFound, "no account %q", id)
	}

	total := u.Stats.AverageReturn * float64(u.Stats.GamesPlayed)
	u.Stats.GamesPlayed++
	u.Stats.AverageReturn = (total + returnPct) / float64(u.Stats.GamesPlayed)
	if u.Stats.GamesPlayed == 1 || returnPct > u.Stats.BestReturn {
		u.Stats.BestReturn = returnPct
	}
	return nil
}

// SeedAccount creates the account identified by identifier/password at
// role if it doesn't already exist, for the admin/tester accounts
// config.Load's ADMIN_IDENTIFIER/TESTER_IDENTIFIER env vars name.
// passwordHash is the caller's already-hashed (or, in dev, plaintext)
// credential — this function never hashes anything itself.
func SeedAccount(ctx context.Context, store Store, identifier, passwordHash string, role auth.Role) error {
	if identifier == "" {
		return nil
	}
	_, err := store.FindByIdentifier(ctx, identifier)
	if err == nil {
		return nil
	}
	if !apperr.Is(err, apperr.NotFound) {
		return err
	}
	_, err = store.Create(ctx, identifier, identifier, passwordHash, role)
	return err
}
