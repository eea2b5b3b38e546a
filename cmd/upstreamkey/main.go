package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"promptvault/internal/infra"
	"promptvault/internal/infra/credentials"
)

func main() {
	var (
		keyFlag     string
		baseURLFlag string
		modelFlag   string
	)
	flag.StringVar(&keyFlag, "key", "", "image API key (falls back to IMAGE_API_KEY)")
	flag.StringVar(&baseURLFlag, "base-url", "", "image API base URL to record with the key")
	flag.StringVar(&modelFlag, "model", "", "image model to record with the key")
	flag.Parse()

	infra.LoadDotEnv()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("IMAGE_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "image API key is required via -key or IMAGE_API_KEY")
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "").With().Str("cmd", "upstreamkey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if err := store.SetImageAPIKey(ctx, key, baseURLFlag, modelFlag); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist image api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("image API key stored successfully")
}
