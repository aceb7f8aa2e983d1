package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/leadline-ai/engine/internal/agent/graph"
	"github.com/leadline-ai/engine/internal/agent/graph/observers"
	"github.com/leadline-ai/engine/internal/agent/model"
	"github.com/leadline-ai/engine/internal/agent/repo"
	"github.com/leadline-ai/engine/internal/core"
	logx "github.com/leadline-ai/engine/pkg/logger"
	pkgpostgres "github.com/leadline-ai/engine/pkg/postgres"
	pkgredis "github.com/leadline-ai/engine/pkg/redis"
)

// AppConfig defines all configurable parameters for the engine example,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis     pkgredis.Config
	Postgres  pkgpostgres.Config
	Embedding repo.EmbeddingConfig

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Engine configs
	Extraction   model.ExtractionModelConfig
	Response     model.ResponseModelConfig
	Prompt       model.ResponsePromptConfig
	Conversation model.ConversationConfig
	Router       model.RouterConfig
	Scoring      model.ScoringConfig
	Retrieval    model.RetrievalConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	pool, err := envCfg.Postgres.New(ctx)
	if err != nil {
		log.Fatalf("Failed to initialise Postgres pool: %v", err)
	}
	defer pool.Close()

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CHECKPOINT_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	store := repo.NewPostgresStore(pool)

	engine, err := graph.BuildEngine(ctx, graph.Config{
		APIKey:          envCfg.APIKey,
		BaseURL:         envCfg.BaseURL,
		ExtractionModel: envCfg.Extraction,
		ResponseModel:   envCfg.Response,
		ResponsePrompt:  envCfg.Prompt,
		Conversation:    envCfg.Conversation,
		Router:          envCfg.Router,
		Scoring:         envCfg.Scoring,
		Retrieval:       envCfg.Retrieval,
		Checkpoints:     repo.NewRedisCheckpointStore(rdb, ttl),
		Qualifications:  store,
		ToolLog:         store,
		Searcher:        store,
		Embedder:        repo.NewEmbeddingClient(envCfg.Embedding),
		Calendar:        repo.NewStaticCalendar(),
		Observer:        observers.NewLogObserver(),
	})
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	testMessages := []struct {
		description string
		text        string
	}{
		{
			description: "Initial application",
			text:        "Hi, I'd like to apply for the senior backend engineer role I saw on your site.",
		},
		{
			description: "Background details",
			text:        "I'm Maya Okafor, I've spent 6 years building Go services and Postgres-backed APIs, and I've led a small team for the last two.",
		},
		{
			description: "Company question",
			text:        "Before we go further, what's your remote work policy?",
		},
		{
			description: "Scheduling",
			text:        "Sounds good. Could we schedule an interview sometime next week?",
		},
	}

	threadID := "demo-thread-1001"

	for i, test := range testMessages {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Candidate: %q\n", test.text)

		reply, cp, err := engine.Step(ctx, model.IncomingMessage{
			ThreadID:      threadID,
			SenderID:      "candidate-42",
			Text:          test.text,
			Timestamp:     time.Now().UTC(),
			ChannelSource: "webchat",
		})
		if err != nil {
			log.Fatalf("Failed to run step %d: %v", i+1, err)
		}

		fmt.Printf("Reply %d (seq %d, escalate=%v): %s\n", i+1, cp.Sequence, reply.Escalate, reply.ReplyText)
		fmt.Printf("Tokens so far: %d (cost $%.6f)\n", cp.State.TotalTokensUsed, cp.State.TotalCostUSD)
		fmt.Println("────────────────────────────────────────────")

		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("All engine steps completed successfully!")
}
