package rag

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"legaldraft-backend/models"
)

// SnapshotEntry is one persisted index entry: the clause, the hash of the
// text that was embedded, and the embedding itself.
type SnapshotEntry struct {
	Clause   models.Clause `json:"clause"`
	TextHash string        `json:"text_hash"`
	Vector   []float64     `json:"vector"`
}

// Snapshot is the persisted form of a built index. The provider ID is kept
// alongside the vectors so a restart can reload without recomputing
// embeddings, and so a provider change forces a full rebuild.
type Snapshot struct {
	ProviderID string          `json:"provider_id"`
	Dimension  int             `json:"dimension"`
	BuiltAt    time.Time       `json:"built_at"`
	Entries    []SnapshotEntry `json:"entries"`
}

// Snapshot captures the active index generation for persistence.
func (ix *VectorIndex) Snapshot() (*Snapshot, error) {
	gen := ix.current.Load()
	if gen == nil {
		return nil, ErrEmptyIndex
	}
	entries := make([]SnapshotEntry, 0, len(gen.entries))
	for _, e := range gen.entries {
		entries = append(entries, SnapshotEntry{Clause: e.clause, TextHash: e.textHash, Vector: e.vector})
	}
	return &Snapshot{
		ProviderID: gen.providerID,
		Dimension:  gen.dimension,
		BuiltAt:    gen.builtAt,
		Entries:    entries,
	}, nil
}

// Restore atomically replaces the active index with a persisted snapshot.
// A snapshot built with a different embedding provider is rejected with
// ErrProviderMismatch; the caller must rebuild instead.
func (ix *VectorIndex) Restore(snap *Snapshot) error {
	if snap == nil || len(snap.Entries) == 0 {
		return fmt.Errorf("%w: snapshot has no entries", ErrIndexBuild)
	}
	if snap.ProviderID != ix.provider.ID() {
		return fmt.Errorf("%w: snapshot built with %q, current provider is %q",
			ErrProviderMismatch, snap.ProviderID, ix.provider.ID())
	}
	if snap.Dimension != ix.provider.Dimension() {
		return fmt.Errorf("%w: snapshot dimension %d, provider dimension %d",
			ErrProviderMismatch, snap.Dimension, ix.provider.Dimension())
	}
	entries := make([]indexEntry, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		if len(e.Vector) != snap.Dimension {
			return fmt.Errorf("%w: clause %s vector has dimension %d, expected %d",
				ErrIndexBuild, e.Clause.ID, len(e.Vector), snap.Dimension)
		}
		entries = append(entries, indexEntry{clause: e.Clause, textHash: e.TextHash, vector: e.Vector})
	}
	ix.current.Store(&indexGeneration{
		providerID: snap.ProviderID,
		dimension:  snap.Dimension,
		builtAt:    snap.BuiltAt,
		entries:    entries,
	})
	return nil
}

// WriteSnapshot serializes a snapshot as JSON.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode index snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot deserializes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode index snapshot: %w", err)
	}
	return &snap, nil
}
