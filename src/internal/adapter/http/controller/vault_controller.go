package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/usecase/service_interfaces"
)

type VaultController struct {
	service service_interfaces.VaultService
}

func NewVaultController(service service_interfaces.VaultService) *VaultController {
	return &VaultController{service: service}
}

func (c *VaultController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(h)
		}
		return h
	}

	mux.Handle("/vaults", wrap(c.createVault))
	mux.Handle("/vaults/approvers", wrap(c.registerApprover))
	mux.Handle("/vaults/balance-summary", wrap(c.balanceSummary))
}

func (c *VaultController) createVault(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.CreateVaultResponse]("method not allowed"))
		return
	}

	var req models.CreateVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.CreateVaultResponse]("invalid request body", err.Error()))
		return
	}
	logRequest(r, req)

	response, err := c.service.CreateVault(r.Context(), req)
	if err != nil {
		status := errorStatus(err)
		logError(r, err, nil)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *VaultController) registerApprover(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.RegisterApproverResponse]("method not allowed"))
		return
	}

	var req models.RegisterApproverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.RegisterApproverResponse]("invalid request body", err.Error()))
		return
	}
	logRequest(r, req)

	response, err := c.service.RegisterApprover(r.Context(), req)
	if err != nil {
		status := errorStatus(err)
		logError(r, err, nil)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *VaultController) balanceSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.BalanceSummaryResponse]("method not allowed"))
		return
	}

	response, err := c.service.GetBalanceSummary(r.Context(), r.URL.Query().Get("ownerId"))
	if err != nil {
		status := errorStatus(err)
		logError(r, err, nil)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
