package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/quarrylabs/stratum/pkg/types"
)

// BadgerChunkStore implements ChunkStore on an embedded Badger
// key-value database. Keys are "chunk/<tenant>/<chunk id>" so one
// database serves every tenant while keeping per-tenant deletion a
// prefix scan.
type BadgerChunkStore struct {
	db *badger.DB
}

// NewBadgerChunkStore opens (or creates) a Badger database at dir. An
// empty dir opens an in-memory database, used by tests.
func NewBadgerChunkStore(dir string) (*BadgerChunkStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	// Badger logs at INFO by default, which is noisy at open time.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerChunkStore{db: db}, nil
}

// GetChunks implements ChunkStore. Missing ids are skipped; request
// order is preserved.
func (b *BadgerChunkStore) GetChunks(ctx context.Context, tenantKey string, ids []string) ([]types.ChunkRecord, error) {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return nil, err
	}

	out := make([]types.ChunkRecord, 0, len(ids))
	err = b.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := txn.Get(chunkKey(key, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read chunk %q: %w", id, err)
			}
			var record storedChunk
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return fmt.Errorf("failed to decode chunk %q: %w", id, err)
			}
			out = append(out, record.ChunkRecord)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutChunks writes chunk records under the tenant, overwriting existing
// ids.
func (b *BadgerChunkStore) PutChunks(ctx context.Context, tenantKey string, chunks []types.ChunkRecord) error {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return err
	}

	batch := b.db.NewWriteBatch()
	defer batch.Cancel()

	for _, c := range chunks {
		if c.ID == "" {
			return types.ErrEmptyChunkID
		}
		// Persist embeddings too, so filtered retrieval can score
		// without re-embedding. The json:"-" tag on Embedding keeps it
		// out of API responses, so the stored form carries it
		// separately.
		value, err := json.Marshal(storedChunk{
			ChunkRecord: c,
			Embedding:   c.Embedding,
		})
		if err != nil {
			return fmt.Errorf("failed to encode chunk %q: %w", c.ID, err)
		}
		if err := batch.Set(chunkKey(key, c.ID), value); err != nil {
			return fmt.Errorf("failed to write chunk %q: %w", c.ID, err)
		}
	}
	return batch.Flush()
}

// DeleteTenant removes every chunk stored under the tenant.
func (b *BadgerChunkStore) DeleteTenant(ctx context.Context, tenantKey string) error {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return err
	}
	prefix := []byte("chunk/" + key + "/")

	return b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("failed to delete chunk key %q: %w", k, err)
			}
		}
		return nil
	})
}

// Close releases the database.
func (b *BadgerChunkStore) Close(ctx context.Context) error {
	return b.db.Close()
}

// storedChunk is the on-disk form of a ChunkRecord. ChunkRecord hides
// Embedding from JSON; the persistent store needs it back.
type storedChunk struct {
	types.ChunkRecord
	Embedding []float32 `json:"embedding,omitempty"`
}

// UnmarshalJSON restores the embedding into the embedded record.
func (s *storedChunk) UnmarshalJSON(data []byte) error {
	type alias storedChunk
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = storedChunk(a)
	s.ChunkRecord.Embedding = s.Embedding
	return nil
}

func chunkKey(tenantKey, chunkID string) []byte {
	return []byte("chunk/" + tenantKey + "/" + chunkID)
}

var _ ChunkStore = (*BadgerChunkStore)(nil)
