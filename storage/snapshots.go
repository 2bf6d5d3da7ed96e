package storage

import (
	"bytes"
	"context"
	"fmt"

	"legaldraft-backend/rag"
)

const defaultSnapshotKey = "index/snapshot.json"

// SnapshotStore persists index snapshots through a Storage backend
type SnapshotStore struct {
	storage Storage
	key     string
}

// NewSnapshotStore creates a snapshot store writing to the given storage backend
func NewSnapshotStore(storage Storage, key string) *SnapshotStore {
	if key == "" {
		key = defaultSnapshotKey
	}
	return &SnapshotStore{storage: storage, key: key}
}

// Save writes the snapshot to the backend
func (s *SnapshotStore) Save(ctx context.Context, snap *rag.Snapshot) error {
	var buf bytes.Buffer
	if err := rag.WriteSnapshot(&buf, snap); err != nil {
		return err
	}

	if err := s.storage.Put(ctx, s.key, &buf); err != nil {
		return fmt.Errorf("failed to save index snapshot: %w", err)
	}

	return nil
}

// Load reads the snapshot from the backend
func (s *SnapshotStore) Load(ctx context.Context) (*rag.Snapshot, error) {
	reader, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load index snapshot: %w", err)
	}
	defer reader.Close()

	return rag.ReadSnapshot(reader)
}
