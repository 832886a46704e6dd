package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"imagesvc/internal/infra"
	"imagesvc/internal/infra/credentials"
)

// Environment variables consulted when -key is not given.
var envKeys = map[string]string{
	credentials.ProviderUnsplash: "UNSPLASH_API_KEY",
	credentials.ProviderPexels:   "PEXELS_API_KEY",
	credentials.ProviderPixabay:  "PIXABAY_API_KEY",
	credentials.ProviderBrave:    "BRAVE_SEARCH_API_KEY",
	credentials.ProviderOpenAI:   "OPENAI_API_KEY",
	credentials.ProviderGemini:   "GEMINI_API_KEY",
}

func main() {
	var (
		keyFlag      string
		providerFlag string
		listFlag     bool
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (falls back to the environment)")
	flag.StringVar(&providerFlag, "provider", "", "provider to configure: "+strings.Join(credentials.KnownProviders, ", "))
	flag.BoolVar(&listFlag, "list", false, "list providers with a stored key and exit")
	flag.Parse()

	_ = godotenv.Load(".env", ".env.local")

	if listFlag {
		listProviders()
		return
	}

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if !credentials.IsKnownProvider(provider) {
		fmt.Fprintf(os.Stderr, "unsupported provider %q (want one of %s)\n", providerFlag, strings.Join(credentials.KnownProviders, ", "))
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(envKeys[provider]))
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "%s API key is required via -key or %s\n", strings.ToUpper(provider), envKeys[provider])
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, closeStore := openStore(ctx, provider)
	defer closeStore()
	if err := store.SetToken(ctx, provider, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s api key: %v\n", provider, err)
		os.Exit(1)
	}

	fmt.Printf("%s API key stored successfully\n", strings.ToUpper(provider))
}

func listProviders() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, closeStore := openStore(ctx, "")
	defer closeStore()
	statuses, err := store.Providers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list providers: %v\n", err)
		os.Exit(1)
	}
	for _, st := range statuses {
		fmt.Printf("%-10s %s\n", st.Provider, st.UpdatedAt.Format(time.RFC3339))
	}
}

func openStore(ctx context.Context, provider string) (*credentials.Store, func()) {
	cfg := &infra.Config{DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL"))}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "providerkey").Str("provider", provider).Logger()
	return credentials.NewStore(infra.NewSQLRunner(pool, logger)), pool.Close
}
