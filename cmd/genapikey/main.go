package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/auth"
	"github.com/origincert/partner-gateway/internal/domain/partner"
	"github.com/origincert/partner-gateway/internal/storage/postgres"
)

// Administrative key generation. This deliberately lives outside the gated
// HTTP surface: it runs as an operator command, with no rate limiting.
func main() {
	partnerLabel := flag.String("partner", "", "Partner name or label the key is issued for")
	persist := flag.Bool("persist", false, "Store the key hash in the Postgres registry (requires DATABASE_URL)")
	flag.Parse()

	if *partnerLabel == "" {
		log.Fatal("-partner is required")
	}

	fullKey, err := auth.GenerateAPIKey(*partnerLabel)
	if err != nil {
		log.Fatalf("Failed to generate API key: %v", err)
	}

	partnerID := partner.DerivePartnerID(fullKey)
	keyHash := auth.HashAPIKey(fullKey)

	fmt.Printf("Generated API Key (SAVE THIS securely, it is not stored in the clear!):\n%s\n\n", fullKey)
	fmt.Printf("Partner: %s\n", *partnerLabel)
	fmt.Printf("Derived partner ID: %s\n", partnerID)
	fmt.Printf("Key Hash: %s\n", keyHash)

	if !*persist {
		return
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required with -persist")
	}

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := postgres.NewPartnerKeyRepository(pool, logger)

	newKeyRecord := &partner.Key{
		KeyHash:   keyHash,
		PartnerID: partnerID,
		IsEnabled: true,
	}

	keyID, err := repo.Create(context.Background(), newKeyRecord)
	if err != nil {
		log.Fatalf("Failed to save API key to database: %v", err)
	}

	fmt.Printf("\nAPI Key saved to registry with ID: %s\n", keyID)
}
