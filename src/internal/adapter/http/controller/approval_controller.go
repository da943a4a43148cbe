package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/api-sage/vault-ledger-engine/src/internal/adapter/http/models"
	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/usecase/service_interfaces"
)

type ApprovalController struct {
	service service_interfaces.ApprovalService
}

func NewApprovalController(service service_interfaces.ApprovalService) *ApprovalController {
	return &ApprovalController{service: service}
}

func (c *ApprovalController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	handler := http.HandlerFunc(c.submitApproval)
	if authMiddleware != nil {
		mux.Handle("/approvals", authMiddleware(handler))
		return
	}
	mux.Handle("/approvals", handler)
}

func (c *ApprovalController) submitApproval(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.TransactionResponse]("method not allowed"))
		return
	}

	var req models.SubmitApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error()))
		return
	}
	logRequest(r, req)

	response, err := c.service.SubmitApproval(r.Context(), req)
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
