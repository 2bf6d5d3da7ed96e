package main

import (
	"context"
	"log"
	"os"

	"legaldraft-backend/embedding"
	"legaldraft-backend/handlers"
	"legaldraft-backend/rag"
	"legaldraft-backend/repository"
	"legaldraft-backend/service"
	"legaldraft-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	ctx := context.Background()

	// Initialize embedding provider
	provider, err := embedding.NewProviderFromEnv()
	if err != nil {
		log.Fatal("Failed to initialize embedding provider:", err)
	}
	log.Printf("Embedding provider: %s", provider.ID())

	// Initialize clause source: Postgres when configured, clause files otherwise
	source, closeSource, err := initClauseSource(ctx)
	if err != nil {
		log.Fatal("Failed to initialize clause source:", err)
	}
	defer closeSource()

	// Initialize snapshot storage
	blobStorage, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	snapshotStore := storage.NewSnapshotStore(blobStorage, os.Getenv("INDEX_SNAPSHOT_KEY"))
	log.Println("Storage initialized")

	// Initialize pipeline
	pipeline := rag.NewPipeline(provider, source,
		rag.WithSnapshotStore(snapshotStore),
	)

	// Restore the persisted index if one matches the provider; otherwise
	// build from the clause source.
	if err := pipeline.LoadSnapshot(ctx); err != nil {
		log.Printf("No usable index snapshot (%v), building index", err)
		if err := pipeline.BuildIndex(ctx); err != nil {
			log.Fatalf("Failed to build index: %v", err)
		}
	}
	status := pipeline.Status()
	log.Printf("Index ready: %d clauses, provider %s", status.IndexSize, status.ProviderID)

	// Initialize Gemini client
	geminiClient, err := initGemini()
	if err != nil {
		log.Fatal("Failed to initialize Gemini:", err)
	}
	defer geminiClient.Close()

	// Initialize services
	draftService := service.NewDraftService(
		service.DraftWithPipeline(pipeline),
		service.DraftWithGeminiClient(geminiClient),
		service.DraftWithModel(generationModel()),
	)

	// Initialize handlers
	draftHandler := handlers.NewDraftHandler(draftService)
	indexHandler := handlers.NewIndexHandler(pipeline)

	// Setup Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Drafting endpoints
		api.POST("/draft-document", draftHandler.DraftDocument)
		api.GET("/document-types", draftHandler.GetDocumentTypes)
		api.POST("/validate-prompt", draftHandler.ValidatePrompt)

		// Index lifecycle endpoints
		api.POST("/index/build", indexHandler.BuildIndex)
		api.POST("/index/refresh", indexHandler.RefreshIndex)
		api.GET("/index/status", indexHandler.GetIndexStatus)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// initClauseSource picks the clause corpus backend. DATABASE_URL selects the
// Postgres repository; without it clauses are loaded from JSON files.
func initClauseSource(ctx context.Context) (rag.ClauseSource, func(), error) {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		dir := os.Getenv("CLAUSE_DIR")
		if dir == "" {
			dir = "./data/clauses"
		}
		log.Printf("DATABASE_URL not set, loading clauses from %s", dir)
		return repository.NewClauseFileStore(dir), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	log.Println("Postgres connection established")
	return repository.NewClauseRepository(pool), pool.Close, nil
}

func initGemini() (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	log.Println("Gemini client initialized")
	return client, nil
}

func generationModel() string {
	if model := os.Getenv("GENERATION_MODEL"); model != "" {
		return model
	}
	return "gemini-1.5-pro"
}
