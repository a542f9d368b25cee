package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"authvault/internal/common"
	"authvault/internal/locks"
)

const indexLockName = "records:index"

// RecordStore performs locked CRUD over user credential records.
//
// Locking discipline: every mutating operation on a given id acquires the
// exclusive "record:<id>" lock, and every index mutation (and listing /
// clearing) acquires the global index lock, before touching storage.
// Locks are released unconditionally on all exit paths. Waiters queue
// FIFO; there is no wait timeout.
type RecordStore struct {
	kv     KV
	locks  *locks.Registry
	prefix string
	now    func() time.Time
}

// NewRecordStore returns a store writing under the given key prefix
// (logical keys "<prefix>:users_index" and "<prefix>:user_<id>").
func NewRecordStore(kv KV, registry *locks.Registry, prefix string) *RecordStore {
	if prefix == "" {
		prefix = "authvault"
	}
	return &RecordStore{kv: kv, locks: registry, prefix: prefix, now: time.Now}
}

func (s *RecordStore) indexKey() string {
	return s.prefix + ":users_index"
}

func (s *RecordStore) recordKey(id string) string {
	return s.prefix + ":user_" + id
}

func recordLockName(id string) string {
	return "record:" + id
}

// Create generates a fresh UUID, persists the record, and appends its id
// to the index. With no explicit permissions the default set is granted.
func (s *RecordStore) Create(ctx context.Context, tokenHash string, role Role, permissions ...string) (*UserRecord, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("role %q: %w", role, common.ErrValidation)
	}
	if permissions == nil {
		permissions = append([]string(nil), DefaultPermissions...)
	}

	now := s.now()
	rec := &UserRecord{
		ID:           uuid.NewString(),
		TokenHash:    tokenHash,
		Secrets:      []SecretEntry{},
		CreatedAt:    now,
		LastAccessAt: now,
		Role:         role,
		Permissions:  permissions,
	}

	release, err := s.locks.Acquire(ctx, recordLockName(rec.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.put(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.indexAdd(ctx, rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the record for id, or nil when absent. A syntactically
// invalid UUID is a caller bug and fails with common.ErrValidation.
func (s *RecordStore) Get(ctx context.Context, id string) (*UserRecord, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := s.kv.Get(ctx, s.recordKey(id))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rec := &UserRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

// FindByTokenHash scans the index for the first record whose TokenHash
// matches exactly. O(n) over a small single-tenant store; first match
// wins if duplicates ever exist.
func (s *RecordStore) FindByTokenHash(ctx context.Context, tokenHash string) (*UserRecord, error) {
	ids, err := s.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil && rec.TokenHash == tokenHash {
			return rec, nil
		}
	}
	return nil, nil
}

// Update stamps LastAccessAt and re-persists the record under its id.
func (s *RecordStore) Update(ctx context.Context, rec *UserRecord) error {
	if err := validateID(rec.ID); err != nil {
		return err
	}

	release, err := s.locks.Acquire(ctx, recordLockName(rec.ID))
	if err != nil {
		return err
	}
	defer release()

	rec.LastAccessAt = s.now()
	return s.put(ctx, rec)
}

// Delete removes the record and its index entry. Deleting an absent
// record is a no-op and still reports true.
func (s *RecordStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	release, err := s.locks.Acquire(ctx, recordLockName(id))
	if err != nil {
		return false, err
	}
	defer release()

	if err := s.kv.Delete(ctx, s.recordKey(id)); err != nil {
		return false, err
	}
	if err := s.indexRemove(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// Mutate loads the record for id, applies fn, stamps LastAccessAt and
// re-persists, holding the record's exclusive lock across the whole
// read-modify-write. Returns common.ErrNotFound when the record is absent.
func (s *RecordStore) Mutate(ctx context.Context, id string, fn func(*UserRecord) error) (*UserRecord, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, recordLockName(id))
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	rec.LastAccessAt = s.now()
	if err := s.put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListAll returns every record sorted by CreatedAt descending.
func (s *RecordStore) ListAll(ctx context.Context) ([]*UserRecord, error) {
	release, err := s.locks.Acquire(ctx, indexLockName)
	if err != nil {
		return nil, err
	}
	defer release()

	ids, err := s.readIndexLocked(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*UserRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// ClearAll removes every record and the index. Administrative/testing
// escape hatch.
func (s *RecordStore) ClearAll(ctx context.Context) error {
	release, err := s.locks.Acquire(ctx, indexLockName)
	if err != nil {
		return err
	}
	defer release()

	ids, err := s.readIndexLocked(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.kv.Delete(ctx, s.recordKey(id)); err != nil {
			return err
		}
	}
	return s.kv.Delete(ctx, s.indexKey())
}

func (s *RecordStore) put(ctx context.Context, rec *UserRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return s.kv.Set(ctx, s.recordKey(rec.ID), data)
}

// readIndex takes the index lock for the duration of the read.
func (s *RecordStore) readIndex(ctx context.Context) ([]string, error) {
	release, err := s.locks.Acquire(ctx, indexLockName)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.readIndexLocked(ctx)
}

// readIndexLocked expects the caller to hold the index lock.
func (s *RecordStore) readIndexLocked(ctx context.Context) ([]string, error) {
	data, err := s.kv.Get(ctx, s.indexKey())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return ids, nil
}

func (s *RecordStore) writeIndexLocked(ctx context.Context, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.indexKey(), data)
}

func (s *RecordStore) indexAdd(ctx context.Context, id string) error {
	release, err := s.locks.Acquire(ctx, indexLockName)
	if err != nil {
		return err
	}
	defer release()

	ids, err := s.readIndexLocked(ctx)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return s.writeIndexLocked(ctx, append(ids, id))
}

func (s *RecordStore) indexRemove(ctx context.Context, id string) error {
	release, err := s.locks.Acquire(ctx, indexLockName)
	if err != nil {
		return err
	}
	defer release()

	ids, err := s.readIndexLocked(ctx)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	return s.writeIndexLocked(ctx, kept)
}
