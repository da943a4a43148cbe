package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/controller"
	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/router"
	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/repository/memory"
	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/repository/postgres"
	"github.com/api-sage/vault-ledger-engine/src/internal/config"
	"github.com/api-sage/vault-ledger-engine/src/internal/domain"
	"github.com/api-sage/vault-ledger-engine/src/internal/notifications"
	"github.com/api-sage/vault-ledger-engine/src/internal/usecase/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		vaultRepo       domain.VaultRepository
		approverRepo    domain.VaultApproverRepository
		accountRepo     domain.AccountRepository
		transactionRepo domain.TransactionRepository
		approvalRepo    domain.ApprovalRepository
	)

	switch cfg.StorageDriver {
	case "memory":
		vaultRepo = memory.NewVaultRepository()
		approverRepo = memory.NewVaultApproverRepository()
		accounts := memory.NewAccountRepository()
		accountRepo = accounts
		transactionRepo = memory.NewTransactionRepository(accounts)
		approvalRepo = memory.NewApprovalRepository()
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := postgres.RunMigrations(ctx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
			cancel()
			log.Fatalf("run migrations: %v", err)
		}

		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		cancel()
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()

		vaultRepo = postgres.NewVaultRepository(db)
		approverRepo = postgres.NewVaultApproverRepository(db)
		accountRepo = postgres.NewAccountRepository(db)
		transactionRepo = postgres.NewTransactionRepository(db)
		approvalRepo = postgres.NewApprovalRepository(db)
	}

	var notifier notifications.Notifier = notifications.NewLogNotifier()
	if cfg.WebhookURL != "" {
		notifier = notifications.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookSecret)
	}

	transactionService := services.NewTransactionService(transactionRepo, accountRepo, vaultRepo, notifier)
	vaultService := services.NewVaultService(vaultRepo, approverRepo, accountRepo)
	accountService := services.NewAccountService(accountRepo, vaultRepo, transactionService)
	approvalService := services.NewApprovalService(approvalRepo, approverRepo, transactionRepo, accountRepo, vaultRepo, transactionService)

	authMiddleware := middleware.BasicAuth(cfg.ChannelID, cfg.ChannelKey)

	mux := router.New(
		controller.NewVaultController(vaultService),
		controller.NewAccountController(accountService),
		controller.NewTransactionController(transactionService),
		controller.NewApprovalController(approvalService),
		authMiddleware,
	)

	log.Printf("vault ledger engine listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatalf("serve http: %v", err)
	}
}
