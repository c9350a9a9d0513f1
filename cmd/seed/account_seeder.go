package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/fundmesh/transfer-service/configs"
	"github.com/fundmesh/transfer-service/pkg"
	"github.com/fundmesh/transfer-service/pkg/currency"
	"github.com/fundmesh/transfer-service/pkg/database"
	"github.com/fundmesh/transfer-service/pkg/models"
	"github.com/fundmesh/transfer-service/pkg/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// main seeds demo owners and their accounts into the database.
// It initializes logging, loads config, connects to the database, runs migrations,
// and performs inserts inside a single transaction. Each owner gets one account
// per supported currency so cross-currency transfers work out of the box.
func main() {
	noOfOwners := flag.Int("noOfOwners", 100, "Number of owners to seed")
	minBalance := flag.Float64("minBalance", 100.0, "Min opening balance")
	maxBalance := flag.Float64("maxBalance", 1000.0, "Max opening balance")

	flag.Parse()

	// Initialize logger
	pkg.InitLogger()
	logger := pkg.Logger
	defer logger.Sync()

	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Initialize postgres db
	dbConfig := database.Config{
		PrimaryDSN:  cfg.PrimaryDbAddr,
		ReplicaDSNs: []string{cfg.ReplicaDbAddr},
		MaxConns:    cfg.MaxDbCons,
		MinConns:    cfg.MinDbCons,
	}

	ctx := context.Background()
	db, closer, err := database.New(ctx, logger, dbConfig)
	if err != nil {
		logger.Fatal("failed_to_init_DB", zap.Error(err))
	}
	defer closer()

	// Initialize db migrations
	err = database.RunMigrations(logger, cfg.PrimaryDbAddr)
	if err != nil {
		logger.Fatal("failed_to_run_database_migrations", zap.Error(err))
	}

	converter, err := currency.NewConverter(currency.DefaultRates())
	if err != nil {
		logger.Fatal("failed_to_build_converter", zap.Error(err))
	}

	accountRepo := repositories.NewAccountRepository()

	minBal := *minBalance
	maxBal := *maxBalance
	if minBal > maxBal {
		// swap to be safe
		minBal, maxBal = maxBal, minBal
	}

	// Seed data within a transaction to ensure atomicity.
	err = db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for i := 1; i <= *noOfOwners; i++ {
			ownerID := int64(i)
			logger.Info("creating_owner_accounts", zap.Int64("owner_id", ownerID))

			for _, code := range converter.Codes() {
				bal := minBal + rand.Float64()*(maxBal-minBal)
				balance := currency.Quantize(decimal.NewFromFloat(bal))

				_, err := accountRepo.Create(ctx, tx, models.Account{
					ID:           uuid.New(),
					OwnerID:      ownerID,
					OwnerName:    fmt.Sprintf("owner_%d", i),
					OwnerAddress: fmt.Sprintf("%d Demo Street", i),
					Currency:     code,
					Balance:      balance,
					CreatedAt:    time.Now(),
					UpdatedAt:    time.Now(),
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	})

	if err != nil {
		logger.Fatal("failed_to_seed_data", zap.Error(err))
	}
	logger.Info("data_seeded_successfully", zap.Int("owners", *noOfOwners))
}
