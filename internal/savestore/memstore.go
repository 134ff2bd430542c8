package savestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/marketsim/core/internal/apperr"
)

// PresetMeta is a preset slot's metadata without its snapshot body,
// per spec §4.7's get() contract ("not snapshot bodies").
type PresetMeta struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SaveRecord is a SaveCode's full record, per spec §3.
type SaveRecord struct {
	Code          string       `json:"code"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	ActivePreset  string       `json:"activePreset"`
	Presets       []PresetMeta `json:"presets"`
}

// Store is the persistence interface the core defines and tolerates a
// purely in-process implementation of, per spec §1.
type Store interface {
	CreateCode(ctx context.Context) (string, error)
	Put(ctx context.Context, code, presetName string, snap Snapshot) error
	Get(ctx context.Context, code string) (SaveRecord, error)
	GetPreset(ctx context.Context, code, presetName string) (Snapshot, error)
	DeletePreset(ctx context.Context, code, presetName string) error
}

type presetSlot struct {
	snapshot  Snapshot
	createdAt time.Time
	updatedAt time.Time
}

type codeEntry struct {
	code         string
	createdAt    time.Time
	updatedAt    time.Time
	activePreset string
	presets      map[string]*presetSlot
}

// MemStore is a sync.Mutex-guarded in-process Store, the reference
// persistence backend the core must tolerate per spec §1. Grounded in
// the teacher's per-code-mutex discipline (spec §5 describes a
// per-SaveCode mutex or a single map mutex "for the in-process
// reference") — this uses the latter, the simpler of the two options
// the spec explicitly sanctions.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*codeEntry
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*codeEntry)}
}

// CreateCode mints a fresh 9-char code, retrying up to 100 times on
// collision, per spec §4.7/§8.
func (m *MemStore) CreateCode(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < maxCollisionRetries; i++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, exists := m.records[code]; exists {
			continue
		}
		now := time.Now()
		m.records[code] = &codeEntry{
			code:      code,
			createdAt: now,
			updatedAt: now,
			presets:   make(map[string]*presetSlot),
		}
		return code, nil
	}
	return "", apperr.New(apperr.Transient, "save code generation exhausted %d collision retries", maxCollisionRetries)
}

// Put upserts a preset slot and sets it active, per spec §4.7.
func (m *MemStore) Put(ctx context.Context, code, presetName string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.records[code]
	if !ok {
		return apperr.New(apperr.NotFound, "save code %q not found", code)
	}

	now := time.Now()
	slot, exists := entry.presets[presetName]
	if !exists {
		slot = &presetSlot{createdAt: now}
		entry.presets[presetName] = slot
	}
	slot.snapshot = snap
	slot.updatedAt = now

	entry.activePreset = presetName
	entry.updatedAt = now
	return nil
}

// Get returns the full record including preset metadata, never
// snapshot bodies, per spec §4.7.
func (m *MemStore) Get(ctx context.Context, code string) (SaveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.records[code]
	if !ok {
		return SaveRecord{}, apperr.New(apperr.NotFound, "save code %q not found", code)
	}

	presets := make([]PresetMeta, 0, len(entry.presets))
	for name, slot := range entry.presets {
		presets = append(presets, PresetMeta{Name: name, CreatedAt: slot.createdAt, UpdatedAt: slot.updatedAt})
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })

	return SaveRecord{
		Code:         entry.code,
		CreatedAt:    entry.createdAt,
		UpdatedAt:    entry.updatedAt,
		ActivePreset: entry.activePreset,
		Presets:      presets,
	}, nil
}

// GetPreset returns a single preset's snapshot body, per spec §4.7.
func (m *MemStore) GetPreset(ctx context.Context, code, presetName string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.records[code]
	if !ok {
		return Snapshot{}, apperr.New(apperr.NotFound, "save code %q not found", code)
	}
	slot, ok := entry.presets[presetName]
	if !ok {
		return Snapshot{}, apperr.New(apperr.NotFound, "preset %q not found for code %q", presetName, code)
	}
	return slot.snapshot, nil
}

// DeletePreset removes a preset slot. If it was active, the new active
// preset is the lexicographically smallest remaining one, or empty,
// per spec §4.7. A second call for the same preset returns NotFound
// (spec §8's idempotence law).
func (m *MemStore) DeletePreset(ctx context.Context, code, presetName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.records[code]
	if !ok {
		return apperr.New(apperr.NotFound, "save code %q not found", code)
	}
	if _, ok := entry.presets[presetName]; !ok {
		return apperr.New(apperr.NotFound, "preset %q not found for code %q", presetName, code)
	}
	delete(entry.presets, presetName)
	entry.updatedAt = time.Now()

	if entry.activePreset == presetName {
		entry.activePreset = ""
		names := make([]string, 0, len(entry.presets))
		for name := range entry.presets {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 0 {
			entry.activePreset = names[0]
		}
	}
	return nil
}
