package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"legaldraft-backend/models"
)

// fakeClauseSource serves an in-memory corpus and records changed clauses
// for refresh tests.
type fakeClauseSource struct {
	mu      sync.Mutex
	clauses []models.Clause
	changed []models.Clause
	listErr error

	// entered is closed when ListAll is first called; release blocks
	// ListAll until closed. Both are optional.
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *fakeClauseSource) ListAll(ctx context.Context) ([]models.Clause, error) {
	if s.entered != nil {
		s.once.Do(func() { close(s.entered) })
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Clause, len(s.clauses))
	copy(out, s.clauses)
	return out, nil
}

func (s *fakeClauseSource) ListChangedSince(ctx context.Context, since time.Time) ([]models.Clause, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Clause, len(s.changed))
	copy(out, s.changed)
	return out, nil
}

func (s *fakeClauseSource) setChanged(clauses ...models.Clause) {
	s.mu.Lock()
	s.changed = clauses
	s.mu.Unlock()
}

// memorySnapshotStore keeps the latest snapshot in memory
type memorySnapshotStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

func (m *memorySnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
	return nil
}

func (m *memorySnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, errors.New("no snapshot saved")
	}
	return m.snap, nil
}

func pipelineCorpus() []models.Clause {
	return []models.Clause{
		{ID: "c1", Title: "Indemnity", Text: "indemnity clause", Jurisdiction: models.JurisdictionIN},
		{ID: "c2", Title: "Termination", Text: "termination clause", Jurisdiction: models.JurisdictionIN},
	}
}

func TestPipelineLifecycle(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	pipeline := NewPipeline(provider, source)
	ctx := context.Background()

	if got := pipeline.State(); got != StateUninitialized {
		t.Errorf("initial state = %s, want %s", got, StateUninitialized)
	}

	_, err := pipeline.GenerateContext(ctx, ContextRequest{
		Query: models.RetrievalQuery{Text: "indemnity", TopK: 3},
	})
	if !errors.Is(err, ErrPipelineNotReady) {
		t.Errorf("GenerateContext before build error = %v, want ErrPipelineNotReady", err)
	}

	if err := pipeline.BuildIndex(ctx); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	if got := pipeline.State(); got != StateReady {
		t.Errorf("state after build = %s, want %s", got, StateReady)
	}

	status := pipeline.Status()
	if status.IndexSize != 2 {
		t.Errorf("IndexSize = %d, want 2", status.IndexSize)
	}
	if status.ProviderID != "fake:v1" {
		t.Errorf("ProviderID = %s, want fake:v1", status.ProviderID)
	}
	if status.LastBuild.IsZero() {
		t.Error("LastBuild not recorded")
	}
}

func TestPipelineBuildFailureRevertsState(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{listErr: errors.New("store unavailable")}
	pipeline := NewPipeline(provider, source)
	ctx := context.Background()

	if err := pipeline.BuildIndex(ctx); !errors.Is(err, ErrIndexBuild) {
		t.Fatalf("BuildIndex error = %v, want ErrIndexBuild", err)
	}
	if got := pipeline.State(); got != StateUninitialized {
		t.Errorf("state after failed first build = %s, want %s", got, StateUninitialized)
	}

	// Once a corpus is indexed, a later failed build leaves the pipeline Ready
	source.mu.Lock()
	source.listErr = nil
	source.clauses = pipelineCorpus()
	source.mu.Unlock()
	if err := pipeline.BuildIndex(ctx); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	source.mu.Lock()
	source.listErr = errors.New("store unavailable")
	source.mu.Unlock()
	if err := pipeline.BuildIndex(ctx); !errors.Is(err, ErrIndexBuild) {
		t.Fatalf("BuildIndex error = %v, want ErrIndexBuild", err)
	}
	if got := pipeline.State(); got != StateReady {
		t.Errorf("state after failed rebuild = %s, want %s", got, StateReady)
	}
}

func TestPipelineRejectsConcurrentBuilds(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{
		clauses: pipelineCorpus(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	pipeline := NewPipeline(provider, source)

	done := make(chan error, 1)
	go func() {
		done <- pipeline.BuildIndex(context.Background())
	}()

	<-source.entered
	if err := pipeline.BuildIndex(context.Background()); !errors.Is(err, ErrBuildInProgress) {
		t.Errorf("concurrent BuildIndex error = %v, want ErrBuildInProgress", err)
	}
	if got := pipeline.State(); got != StateBuilding {
		t.Errorf("state during build = %s, want %s", got, StateBuilding)
	}

	close(source.release)
	if err := <-done; err != nil {
		t.Fatalf("first BuildIndex failed: %v", err)
	}
	if got := pipeline.State(); got != StateReady {
		t.Errorf("state after build = %s, want %s", got, StateReady)
	}
}

func TestGenerateContextHappyPath(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	pipeline := NewPipeline(provider, source)
	ctx := context.Background()

	if err := pipeline.BuildIndex(ctx); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	out, err := pipeline.GenerateContext(ctx, ContextRequest{
		Query:     models.RetrievalQuery{Text: "indemnity", TopK: 1},
		Variables: map[string]string{"party": "Acme"},
	})
	if err != nil {
		t.Fatalf("GenerateContext failed: %v", err)
	}
	if out.Diagnostics.Degraded {
		t.Error("Degraded = true on healthy path")
	}
	if out.Diagnostics.ClausesIncluded != 1 {
		t.Errorf("included %d clauses, want 1", out.Diagnostics.ClausesIncluded)
	}
	text := out.Text()
	if !strings.Contains(text, "- party: Acme") {
		t.Errorf("context missing variables: %q", text)
	}
	if !strings.Contains(text, "indemnity clause") {
		t.Errorf("context missing clause text: %q", text)
	}
}

func TestGenerateContextDegradesOnRetrievalFailure(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	pipeline := NewPipeline(provider, source)
	ctx := context.Background()

	if err := pipeline.BuildIndex(ctx); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	provider.setErr(errors.New("provider down"))
	out, err := pipeline.GenerateContext(ctx, ContextRequest{
		Query:     models.RetrievalQuery{Text: "indemnity", TopK: 3},
		Variables: map[string]string{"party": "Acme"},
	})
	if err != nil {
		t.Fatalf("GenerateContext with failing provider returned error: %v", err)
	}
	if !out.Diagnostics.Degraded {
		t.Error("Degraded = false, want true")
	}
	if out.Diagnostics.ClausesIncluded != 0 {
		t.Errorf("degraded context includes %d clauses, want 0", out.Diagnostics.ClausesIncluded)
	}
	if !strings.Contains(out.Text(), "- party: Acme") {
		t.Errorf("degraded context missing variables: %q", out.Text())
	}
}

func TestGenerateContextCanceledDoesNotDegrade(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	pipeline := NewPipeline(provider, source)

	if err := pipeline.BuildIndex(context.Background()); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider.setErr(context.Canceled)

	out, err := pipeline.GenerateContext(ctx, ContextRequest{
		Query: models.RetrievalQuery{Text: "indemnity", TopK: 3},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if out != nil {
		t.Errorf("canceled request returned a context: %+v", out)
	}
}

func TestGenerateContextInvalidArgument(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	pipeline := NewPipeline(provider, source)
	ctx := context.Background()

	if err := pipeline.BuildIndex(ctx); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	_, err := pipeline.GenerateContext(ctx, ContextRequest{
		Query: models.RetrievalQuery{Text: "indemnity", TopK: 0},
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("GenerateContext error = %v, want ErrInvalidArgument", err)
	}
}

func TestRefreshWithoutIndexFallsBackToBuild(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	pipeline := NewPipeline(provider, source)

	if err := pipeline.RefreshIndex(context.Background()); err != nil {
		t.Fatalf("RefreshIndex failed: %v", err)
	}
	if got := pipeline.Status().IndexSize; got != 2 {
		t.Errorf("IndexSize after refresh-as-build = %d, want 2", got)
	}
}

func TestRefreshMergesChangedClauses(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination", "liability")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	pipeline := NewPipeline(provider, source)
	ctx := context.Background()

	if err := pipeline.BuildIndex(ctx); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	baseline := provider.embedCalls()

	updated := models.Clause{ID: "c1", Title: "Indemnity", Text: "liability and indemnity clause", Jurisdiction: models.JurisdictionIN}
	added := models.Clause{ID: "c3", Title: "Liability", Text: "liability cap clause", Jurisdiction: models.JurisdictionIN}
	source.setChanged(updated, added)

	if err := pipeline.RefreshIndex(ctx); err != nil {
		t.Fatalf("RefreshIndex failed: %v", err)
	}
	if got := pipeline.Status().IndexSize; got != 3 {
		t.Errorf("IndexSize after refresh = %d, want 3", got)
	}
	if got := provider.embedCalls() - baseline; got != 2 {
		t.Errorf("refresh made %d embed calls, want 2 (changed clauses only)", got)
	}
	if got := pipeline.State(); got != StateReady {
		t.Errorf("state after refresh = %s, want %s", got, StateReady)
	}
}

func TestRefreshWithNoChangesSkipsRebuild(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	pipeline := NewPipeline(provider, source)
	ctx := context.Background()

	if err := pipeline.BuildIndex(ctx); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	baseline := provider.embedCalls()

	if err := pipeline.RefreshIndex(ctx); err != nil {
		t.Fatalf("RefreshIndex failed: %v", err)
	}
	if got := provider.embedCalls(); got != baseline {
		t.Errorf("no-op refresh made %d embed calls", got-baseline)
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	store := &memorySnapshotStore{}
	pipeline := NewPipeline(provider, source, WithSnapshotStore(store))
	ctx := context.Background()

	if err := pipeline.BuildIndex(ctx); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	// A fresh pipeline restores the snapshot without re-embedding the corpus
	restoredProvider := newFakeProvider("fake:v1", "indemnity", "termination")
	restored := NewPipeline(restoredProvider, source, WithSnapshotStore(store))
	if err := restored.LoadSnapshot(ctx); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if got := restored.State(); got != StateReady {
		t.Errorf("state after restore = %s, want %s", got, StateReady)
	}
	if got := restored.Status().IndexSize; got != 2 {
		t.Errorf("IndexSize after restore = %d, want 2", got)
	}
	if got := restoredProvider.embedCalls(); got != 0 {
		t.Errorf("restore made %d embed calls, want 0", got)
	}

	out, err := restored.GenerateContext(ctx, ContextRequest{
		Query: models.RetrievalQuery{Text: "indemnity", TopK: 1},
	})
	if err != nil {
		t.Fatalf("GenerateContext after restore failed: %v", err)
	}
	if !strings.Contains(out.Text(), "indemnity clause") {
		t.Errorf("restored index missing clause: %q", out.Text())
	}
}

func TestSnapshotProviderMismatch(t *testing.T) {
	provider := newFakeProvider("fake:v1", "indemnity", "termination")
	source := &fakeClauseSource{clauses: pipelineCorpus()}
	store := &memorySnapshotStore{}
	pipeline := NewPipeline(provider, source, WithSnapshotStore(store))
	ctx := context.Background()

	if err := pipeline.BuildIndex(ctx); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	other := newFakeProvider("fake:v2", "indemnity", "termination")
	restored := NewPipeline(other, source, WithSnapshotStore(store))
	if err := restored.LoadSnapshot(ctx); !errors.Is(err, ErrProviderMismatch) {
		t.Errorf("LoadSnapshot with different provider error = %v, want ErrProviderMismatch", err)
	}
	if got := restored.State(); got != StateUninitialized {
		t.Errorf("state after rejected restore = %s, want %s", got, StateUninitialized)
	}
}
