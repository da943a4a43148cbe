package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/usecase/service_interfaces"
)

type TransactionController struct {
	service service_interfaces.TransactionService
}

func NewTransactionController(service service_interfaces.TransactionService) *TransactionController {
	return &TransactionController{service: service}
}

func (c *TransactionController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(h)
		}
		return h
	}

	mux.Handle("/transactions", wrap(c.transactions))
	mux.Handle("/transactions/cancel", wrap(c.cancel))
	mux.Handle("/transactions/expire", wrap(c.expire))
}

func (c *TransactionController) transactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		c.submit(w, r)
	case http.MethodGet:
		c.list(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.TransactionResponse]("method not allowed"))
	}
}

func (c *TransactionController) submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.SubmitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error()))
		return
	}
	logRequest(r, req)

	response, err := c.service.SubmitTransaction(r.Context(), req)
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

func (c *TransactionController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	values := r.URL.Query()
	query := models.ListTransactionsQuery{
		AccountID:      strings.TrimSpace(values.Get("accountId")),
		Type:           strings.TrimSpace(values.Get("type")),
		Status:         strings.TrimSpace(values.Get("status")),
		ApprovalStatus: strings.TrimSpace(values.Get("approvalStatus")),
		Currency:       strings.TrimSpace(values.Get("currency")),
		MinAmount:      strings.TrimSpace(values.Get("minAmount")),
	}
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[commons.Page[models.TransactionResponse]]("validation failed", "page must be numeric"))
			return
		}
		query.Page = page
	}
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		pageSize, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[commons.Page[models.TransactionResponse]]("validation failed", "pageSize must be numeric"))
			return
		}
		query.PageSize = pageSize
	}

	response, err := c.service.ListTransactions(r.Context(), query)
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

func (c *TransactionController) cancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.TransactionResponse]("method not allowed"))
		return
	}

	var req models.CancelTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error()))
		return
	}
	logRequest(r, req)

	response, err := c.service.CancelTransaction(r.Context(), req)
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

func (c *TransactionController) expire(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.TransactionResponse]("method not allowed"))
		return
	}

	var req models.ExpireTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error()))
		return
	}
	logRequest(r, req)

	response, err := c.service.ExpireTransaction(r.Context(), req)
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
