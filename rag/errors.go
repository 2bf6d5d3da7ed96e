package rag

import "errors"

var (
	// ErrInvalidArgument reports bad caller input. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyIndex reports a search against an index that has never been
	// built. The caller must build the index first.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrPipelineNotReady reports a generation request against a pipeline
	// whose index is not in the Ready state.
	ErrPipelineNotReady = errors.New("pipeline not ready: index has not been built")

	// ErrIndexBuild reports a corpus/embedding inconsistency during a
	// build. The previous index generation is retained.
	ErrIndexBuild = errors.New("index build failed")

	// ErrBuildInProgress reports a build or refresh attempted while
	// another one is running.
	ErrBuildInProgress = errors.New("index build already in progress")

	// ErrRetrieval reports a transient failure of the embedding provider
	// during retrieval. Retry policy belongs to the caller; the pipeline
	// degrades gracefully instead of failing the drafting request.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrUpstreamTimeout reports a provider call that exceeded the
	// caller's deadline. Safe to retry: retrieval and embedding are pure
	// functions of their input.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrProviderMismatch reports a persisted index built with a
	// different embedding provider. A full rebuild is required.
	ErrProviderMismatch = errors.New("embedding provider mismatch")
)
