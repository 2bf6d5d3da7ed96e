package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"legaldraft-backend/embedding"
	"legaldraft-backend/rag"
	"legaldraft-backend/repository"
	"legaldraft-backend/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// build-index ingests clause files into Postgres (when configured), embeds
// the full corpus and persists an index snapshot for the server to restore
// at boot.
func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	ctx := context.Background()

	clauseDir := os.Getenv("CLAUSE_DIR")
	if clauseDir == "" {
		clauseDir = "./data/clauses"
	}
	fileStore := repository.NewClauseFileStore(clauseDir)

	provider, err := embedding.NewProviderFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize embedding provider: %v", err)
	}
	log.Printf("✓ Embedding provider: %s", provider.ID())

	var source rag.ClauseSource = fileStore

	// When a database is configured, sync the clause files into it and
	// index from there.
	connString := os.Getenv("DATABASE_URL")
	if connString != "" {
		pool, err := pgxpool.New(ctx, connString)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		repo := repository.NewClauseRepository(pool)
		if err := ingestClauses(ctx, fileStore, repo); err != nil {
			log.Fatalf("Failed to ingest clauses: %v", err)
		}
		source = repo
	} else {
		log.Printf("DATABASE_URL not set, indexing clause files from %s", clauseDir)
	}

	blobStorage, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	snapshotStore := storage.NewSnapshotStore(blobStorage, os.Getenv("INDEX_SNAPSHOT_KEY"))

	pipeline := rag.NewPipeline(provider, source,
		rag.WithSnapshotStore(snapshotStore),
	)

	if err := pipeline.BuildIndex(ctx); err != nil {
		log.Fatalf("Failed to build index: %v", err)
	}

	status := pipeline.Status()
	fmt.Println("\n✅ Index built successfully!")
	fmt.Printf("   Clauses indexed: %d\n", status.IndexSize)
	fmt.Printf("   Provider: %s\n", status.ProviderID)
}

// ingestClauses upserts every clause from the file store into Postgres
func ingestClauses(ctx context.Context, fileStore *repository.ClauseFileStore, repo *repository.ClauseRepository) error {
	clauses, err := fileStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load clause files: %w", err)
	}

	for i := range clauses {
		if err := repo.Upsert(ctx, &clauses[i]); err != nil {
			return fmt.Errorf("failed to upsert clause %s: %w", clauses[i].ID, err)
		}
	}

	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	log.Printf("✓ Ingested %d clauses (%d total in database)", len(clauses), count)
	return nil
}
