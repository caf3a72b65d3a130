package resumes

import (
	"context"
	"encoding/json"
	"fmt"

	"resumind-backend/internal/shared/storage/kv"
)

const recordKeyPrefix = "resume:"

// Repo persists records as JSON text in the key-value store. Serialization
// lives here, not in the store.
type Repo struct {
	KV kv.Store
}

// NewRepo constructs a Repo over the given key-value store.
func NewRepo(store kv.Store) *Repo {
	return &Repo{KV: store}
}

// Get loads a record by id.
func (r *Repo) Get(ctx context.Context, id string) (Record, error) {
	raw, ok, err := r.KV.Get(ctx, recordKeyPrefix+id)
	if err != nil {
		return Record{}, fmt.Errorf("load record %s: %w", id, err)
	}
	if !ok {
		return Record{}, ErrNotFound
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

// Save writes the record, replacing any existing one. Last write wins.
func (r *Repo) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	if err := r.KV.Set(ctx, recordKeyPrefix+rec.ID, string(payload)); err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	return nil
}
