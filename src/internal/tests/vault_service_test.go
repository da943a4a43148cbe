package services_test

import (
	"context"
	"testing"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
)

func TestCreateVaultValidationError(t *testing.T) {
	e := newEngine()

	_, err := e.vaults.CreateVault(context.Background(), models.CreateVaultRequest{})
	if err == nil {
		t.Fatal("expected validation error for empty create vault request")
	}
}

func TestCreateVaultRegistersApprovers(t *testing.T) {
	e := newEngine()

	resp, err := e.vaults.CreateVault(context.Background(), models.CreateVaultRequest{
		OwnerID:           "owner-1",
		Name:              "Treasury",
		RequiresApproval:  true,
		ApprovalThreshold: 2,
		Approvers: []models.VaultApproverInput{
			{ApproverID: "alice", Pin: testPin},
			{ApproverID: "bob", Pin: testPin},
		},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(resp.Data.Approvers) != 2 {
		t.Fatalf("expected 2 approvers, got %d", len(resp.Data.Approvers))
	}

	registered, err := e.approverRepo.ListByVault(context.Background(), resp.Data.ID)
	if err != nil {
		t.Fatalf("list approvers: %v", err)
	}
	if len(registered) != 2 {
		t.Fatalf("expected 2 stored approvers, got %d", len(registered))
	}
	for _, approver := range registered {
		if approver.PinHash == testPin {
			t.Fatal("expected pin to be stored hashed, found plaintext")
		}
	}
}

func TestCreateVaultRequiresEnoughApprovers(t *testing.T) {
	e := newEngine()

	_, err := e.vaults.CreateVault(context.Background(), models.CreateVaultRequest{
		OwnerID:           "owner-1",
		Name:              "Treasury",
		RequiresApproval:  true,
		ApprovalThreshold: 2,
		Approvers: []models.VaultApproverInput{
			{ApproverID: "alice", Pin: testPin},
		},
	})
	if err == nil {
		t.Fatal("expected validation error when approvers fall short of the threshold")
	}
}

func TestRegisterApproverVaultNotFound(t *testing.T) {
	e := newEngine()

	_, err := e.vaults.RegisterApprover(context.Background(), models.RegisterApproverRequest{
		VaultID:    "missing",
		ApproverID: "alice",
		Pin:        testPin,
	})
	if err == nil {
		t.Fatal("expected error for unknown vault")
	}
}

func TestBalanceSummaryAggregatesByCurrency(t *testing.T) {
	e := newEngine()
	vaultID := e.createVault(t, true, 1, "alice")

	firstID := e.createAccount(t, vaultID, "1000")
	e.createAccount(t, vaultID, "500")

	if _, err := e.accounts.CreateAccount(context.Background(), models.CreateAccountRequest{
		VaultID:        vaultID,
		Name:           "Euro Desk",
		Currency:       "EUR",
		AccountType:    "SETTLEMENT",
		InitialBalance: "200",
	}); err != nil {
		t.Fatalf("create euro account: %v", err)
	}

	// A pending withdrawal should surface as reserved in the summary.
	if _, err := e.submitWithdrawal(t, firstID, "300"); err != nil {
		t.Fatalf("submit withdrawal: %v", err)
	}

	resp, err := e.vaults.GetBalanceSummary(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(resp.Data.Currencies) != 2 {
		t.Fatalf("expected USD and EUR buckets, got %d", len(resp.Data.Currencies))
	}

	byCurrency := map[string]models.CurrencyBalanceSummary{}
	for _, summary := range resp.Data.Currencies {
		byCurrency[summary.Currency] = summary
	}

	usd := byCurrency["USD"]
	if usd.TotalBalance != "1500.00" {
		t.Fatalf("expected USD total 1500.00, got %s", usd.TotalBalance)
	}
	if usd.ReservedBalance != "300.00" {
		t.Fatalf("expected USD reserved 300.00, got %s", usd.ReservedBalance)
	}
	if usd.AvailableBalance != "1200.00" {
		t.Fatalf("expected USD available 1200.00, got %s", usd.AvailableBalance)
	}
	if usd.AccountCount != 2 {
		t.Fatalf("expected 2 USD accounts, got %d", usd.AccountCount)
	}

	eur := byCurrency["EUR"]
	if eur.TotalBalance != "200.00" || eur.AccountCount != 1 {
		t.Fatalf("expected EUR 200.00 across 1 account, got %s across %d", eur.TotalBalance, eur.AccountCount)
	}
}

func TestBalanceSummaryRequiresOwner(t *testing.T) {
	e := newEngine()

	_, err := e.vaults.GetBalanceSummary(context.Background(), "  ")
	if err == nil {
		t.Fatal("expected validation error for missing ownerId")
	}
}
