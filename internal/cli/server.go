package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"bonk-blitz/internal/config"
	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
	"bonk-blitz/internal/infra/memory"
	pginfra "bonk-blitz/internal/infra/postgres"
	redisinfra "bonk-blitz/internal/infra/redis"
	transport "bonk-blitz/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the round service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
	}

	questionsTTL := config.Duration(cfg.Questions.TTL, 10*time.Minute)
	var questions game.QuestionSource
	if redisClient != nil {
		questions = redisinfra.NewQuestionBank(redisClient, loader, questionsTTL)
	} else {
		questions = memory.NewQuestionBank(loader, questionsTTL)
	}

	var store game.RoundStore
	if redisClient != nil {
		store = redisinfra.NewRoundStore(redisClient, redisTTL)
	} else {
		store = memory.NewRoundStore()
	}

	var history *pginfra.RoundHistory
	var archiver game.RoundArchiver
	if pool != nil {
		history = pginfra.NewRoundHistory(pool)
		archiver = history
	}

	lifecycle := game.NewLifecycle(store, questions, archiver)
	timerCfg := game.TimerConfig{
		RevealDelay: config.Duration(cfg.Game.RevealDelay, 2*time.Second),
	}
	wsHandler := transport.NewWSHandler(store, lifecycle, timerCfg)
	adminHandler := transport.NewAdminHandler(lifecycle, history, cfg.Admin.Token)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Get("/ws", wsHandler.ServeWS)
	router.Mount("/admin", adminHandler.Routes())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting round service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds a small bank so the service works without Postgres.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "Which chain does BONK live on?", Options: []string{"Ethereum", "Solana", "Polygon", "Avalanche"}, Correct: 1, Category: "blockchain"},
		{ID: "q2", Text: "What does AMM stand for?", Options: []string{"Automated Market Maker", "Asset Management Module", "Active Mining Machine", "Annual Market Metric"}, Correct: 0, Category: "defi"},
		{ID: "q3", Text: "What is a liquidity pool?", Options: []string{"A staking wallet", "A pot of paired tokens for swaps", "A mining rig", "An NFT vault"}, Correct: 1, Category: "defi"},
		{ID: "q4", Text: "NFT stands for?", Options: []string{"New Financial Token", "Non-Fungible Token", "Network File Transfer", "Node Function Table"}, Correct: 1, Category: "nft"},
		{ID: "q5", Text: "Which marketplace is known for NFTs?", Options: []string{"Uniswap", "OpenSea", "Aave", "Curve"}, Correct: 1, Category: "nft"},
		{ID: "q6", Text: "Dogecoin started as a?", Options: []string{"Bank", "Joke", "DAO", "Stablecoin"}, Correct: 1, Category: "meme"},
		{ID: "q7", Text: "Which dog breed fronts BONK?", Options: []string{"Corgi", "Shiba Inu", "Pug", "Husky"}, Correct: 1, Category: "meme"},
		{ID: "q8", Text: "Who published the Bitcoin whitepaper?", Options: []string{"Vitalik Buterin", "Satoshi Nakamoto", "Hal Finney", "Nick Szabo"}, Correct: 1, Category: "history"},
		{ID: "q9", Text: "In what year did Bitcoin launch?", Options: []string{"2007", "2009", "2011", "2013"}, Correct: 1, Category: "history"},
		{ID: "q10", Text: "What is proof of stake?", Options: []string{"A consensus by locked tokens", "A mining puzzle", "A wallet backup", "An exchange audit"}, Correct: 0, Category: "blockchain"},
		{ID: "q11", Text: "Which token standard powers most Solana tokens?", Options: []string{"ERC-20", "SPL", "BEP-2", "TRC-10"}, Correct: 1, Category: "blockchain"},
		{ID: "q12", Text: "Play-to-earn games reward players with?", Options: []string{"Gift cards", "Tokens or NFTs", "Cash only", "Nothing"}, Correct: 1, Category: "gaming"},
	}
}
