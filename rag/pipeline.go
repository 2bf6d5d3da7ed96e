package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"legaldraft-backend/embedding"
	"legaldraft-backend/models"
)

// State is the lifecycle state of the pipeline's underlying index.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateBuilding      State = "building"
	StateReady         State = "ready"
	StateRefreshing    State = "refreshing"
)

// ClauseSource provides read access to the clause corpus with enough change
// tracking to drive incremental refreshes.
type ClauseSource interface {
	ListAll(ctx context.Context) ([]models.Clause, error)
	ListChangedSince(ctx context.Context, since time.Time) ([]models.Clause, error)
}

// SnapshotStore persists built index snapshots across restarts.
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// Pipeline owns the end-to-end retrieval-augmented generation flow: index
// lifecycle, retrieval and context assembly. Any number of concurrent
// GenerateContext calls may run; index writes are serialized and swap
// atomically, so readers always see a complete index.
type Pipeline struct {
	provider  embedding.Provider
	source    ClauseSource
	index     *VectorIndex
	retriever *Retriever
	assembler *Assembler
	snapshots SnapshotStore
	maxLength int

	mu        sync.Mutex
	state     State
	building  bool
	lastBuild time.Time
}

// PipelineOption is a functional option for Pipeline
type PipelineOption func(*Pipeline)

// WithSnapshotStore sets the snapshot store used to persist the index
func WithSnapshotStore(store SnapshotStore) PipelineOption {
	return func(p *Pipeline) {
		p.snapshots = store
	}
}

// WithMaxContextLength sets the default context length budget in characters
func WithMaxContextLength(n int) PipelineOption {
	return func(p *Pipeline) {
		p.maxLength = n
	}
}

// DefaultMaxContextLength bounds the assembled context when no explicit
// budget is configured, roughly matching the generation model's input limit.
const DefaultMaxContextLength = 24000

// NewPipeline creates a pipeline over the given embedding provider and
// clause source.
func NewPipeline(provider embedding.Provider, source ClauseSource, opts ...PipelineOption) *Pipeline {
	index := NewVectorIndex(provider)
	p := &Pipeline{
		provider:  provider,
		source:    source,
		index:     index,
		retriever: NewRetriever(provider, index),
		assembler: NewAssembler(),
		maxLength: DefaultMaxContextLength,
		state:     StateUninitialized,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Status describes the pipeline for diagnostics endpoints.
type Status struct {
	State      State     `json:"state"`
	IndexSize  int       `json:"index_size"`
	ProviderID string    `json:"provider_id"`
	LastBuild  time.Time `json:"last_build,omitempty"`
}

// Status returns the current state, index size and provider identity.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		State:      p.state,
		IndexSize:  p.index.Size(),
		ProviderID: p.provider.ID(),
		LastBuild:  p.lastBuild,
	}
}

// beginBuild claims the single build slot, transitioning to next. It fails
// with ErrBuildInProgress when another build or refresh is running.
func (p *Pipeline) beginBuild(next State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.building {
		return ErrBuildInProgress
	}
	p.building = true
	p.state = next
	return nil
}

// endBuild releases the build slot. On success the pipeline is Ready; on
// failure it returns to the state implied by the retained index.
func (p *Pipeline) endBuild(succeeded bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.building = false
	if succeeded {
		p.state = StateReady
		p.lastBuild = time.Now().UTC()
		return
	}
	if p.index.Size() > 0 {
		p.state = StateReady
	} else {
		p.state = StateUninitialized
	}
}

// BuildIndex loads the full clause corpus, embeds it and swaps in a fresh
// index. Concurrent builds are rejected; readers keep using the previous
// index until the swap. A build failure leaves the previous index intact.
func (p *Pipeline) BuildIndex(ctx context.Context) error {
	if err := p.beginBuild(StateBuilding); err != nil {
		return err
	}
	succeeded := false
	defer func() { p.endBuild(succeeded) }()

	clauses, err := p.source.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading clause store: %v", ErrIndexBuild, err)
	}
	if err := p.index.Build(ctx, clauses); err != nil {
		return err
	}
	succeeded = true
	p.saveSnapshot(ctx)
	return nil
}

// RefreshIndex re-embeds only clauses changed since the last build and
// swaps in the updated index. Without a prior build it falls back to a
// full build.
func (p *Pipeline) RefreshIndex(ctx context.Context) error {
	if p.index.Size() == 0 {
		return p.BuildIndex(ctx)
	}
	if err := p.beginBuild(StateRefreshing); err != nil {
		return err
	}
	succeeded := false
	defer func() { p.endBuild(succeeded) }()

	p.mu.Lock()
	since := p.lastBuild
	p.mu.Unlock()

	changed, err := p.source.ListChangedSince(ctx, since)
	if err != nil {
		return fmt.Errorf("%w: loading changed clauses: %v", ErrIndexBuild, err)
	}
	if len(changed) == 0 {
		succeeded = true
		return nil
	}

	// Merge changed clauses over the indexed snapshot. Build reuses the
	// vectors of clauses whose text is unchanged, so only the merged-in
	// clauses are re-embedded.
	merged := p.index.Clauses()
	byID := make(map[string]int, len(merged))
	for i, c := range merged {
		byID[c.ID] = i
	}
	for _, c := range changed {
		if i, ok := byID[c.ID]; ok {
			merged[i] = c
		} else {
			merged = append(merged, c)
		}
	}
	if err := p.index.Build(ctx, merged); err != nil {
		return err
	}
	succeeded = true
	p.saveSnapshot(ctx)
	return nil
}

// LoadSnapshot restores a persisted index, skipping embedding recomputation.
// A snapshot built with a different provider is rejected with
// ErrProviderMismatch; the caller should fall back to BuildIndex.
func (p *Pipeline) LoadSnapshot(ctx context.Context) error {
	if p.snapshots == nil {
		return errors.New("no snapshot store configured")
	}
	snap, err := p.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	if err := p.index.Restore(snap); err != nil {
		return err
	}
	p.mu.Lock()
	p.state = StateReady
	p.lastBuild = snap.BuiltAt
	p.mu.Unlock()
	return nil
}

// saveSnapshot persists the freshly built index. Persistence failures are
// logged, not fatal: the in-memory index is already serving.
func (p *Pipeline) saveSnapshot(ctx context.Context) {
	if p.snapshots == nil {
		return
	}
	snap, err := p.index.Snapshot()
	if err != nil {
		return
	}
	if err := p.snapshots.Save(ctx, snap); err != nil {
		log.Printf("Warning: failed to persist index snapshot: %v", err)
	}
}

// ContextRequest is a single drafting request to the pipeline.
type ContextRequest struct {
	Query     models.RetrievalQuery
	Variables map[string]string
	MaxLength int // 0 uses the pipeline default
}

// GenerateContext retrieves relevant clauses and assembles them with the
// request variables into a bounded context block. Valid only when the
// pipeline is Ready. Retrieval failures degrade gracefully: the returned
// context holds only the variable summary and Degraded is set, so document
// generation can still be attempted without grounding.
func (p *Pipeline) GenerateContext(ctx context.Context, req ContextRequest) (*AssembledContext, error) {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()
	if state != StateReady && state != StateRefreshing && state != StateBuilding {
		return nil, ErrPipelineNotReady
	}
	if p.index.Size() == 0 {
		return nil, ErrPipelineNotReady
	}

	maxLength := req.MaxLength
	if maxLength == 0 {
		maxLength = p.maxLength
	}

	result, err := p.retriever.Retrieve(ctx, req.Query)
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return nil, err
		}
		// A canceled caller gets the cancellation, not a degraded context
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Printf("Warning: retrieval failed, generating degraded context: %v", err)
		degraded := p.assembler.Assemble(nil, req.Variables, maxLength)
		degraded.Diagnostics.Degraded = true
		return degraded, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.assembler.Assemble(result, req.Variables, maxLength), nil
}
