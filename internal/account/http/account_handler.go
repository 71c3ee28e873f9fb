// Package http provides HTTP handlers for accounts, transactions and transfers.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/ledger/internal/account/http/dto"
	accountUseCase "github.com/allisson/ledger/internal/account/usecase"
	"github.com/allisson/ledger/internal/httputil"
)

// AccountHandler handles HTTP requests for the account lifecycle.
type AccountHandler struct {
	accountUseCase accountUseCase.AccountUseCase
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accountUseCase accountUseCase.AccountUseCase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountUseCase: accountUseCase,
		logger:         logger,
	}
}

// OpenHandler opens an account.
// POST /v1/accounts - Returns 201 Created with the account.
func (h *AccountHandler) OpenHandler(c *gin.Context) {
	var req dto.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	account, err := h.accountUseCase.Open(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapAccountToResponse(account))
}

// ListHandler lists the accounts of an owner.
// GET /v1/accounts?owner_id=&offset=&limit= - Returns 200 OK with a page of accounts.
func (h *AccountHandler) ListHandler(c *gin.Context) {
	ownerID, err := httputil.ParseUUIDQuery(c, "owner_id")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	accounts, err := h.accountUseCase.ListByOwner(c.Request.Context(), ownerID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAccountsToListResponse(accounts))
}

// GetHandler retrieves an account.
// GET /v1/accounts/:id
func (h *AccountHandler) GetHandler(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	account, err := h.accountUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAccountToResponse(account))
}

// CloseHandler closes an account. Only accounts with a zero balance can be closed.
// DELETE /v1/accounts/:id - Returns 200 OK with the closed account.
func (h *AccountHandler) CloseHandler(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	account, err := h.accountUseCase.Close(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAccountToResponse(account))
}

// UpdateInterestRateHandler sets or clears the interest rate of an account.
// PATCH /v1/accounts/:id/interest-rate
func (h *AccountHandler) UpdateInterestRateHandler(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.UpdateInterestRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	account, err := h.accountUseCase.UpdateInterestRate(c.Request.Context(), id, req.Rate())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAccountToResponse(account))
}

// StatementHandler returns the transactions of an account between two instants.
// GET /v1/accounts/:id/statement?from=&to=
func (h *AccountHandler) StatementHandler(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	from, to, err := httputil.ParseTimeRange(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	statement, err := h.accountUseCase.Statement(c.Request.Context(), id, from, to)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatementToResponse(statement))
}

// BlockClientHandler announces that a client is blocked. Accounts are frozen
// asynchronously by the antifraud consumer.
// POST /v1/clients/:owner_id/block - Returns 202 Accepted.
func (h *AccountHandler) BlockClientHandler(c *gin.Context) {
	ownerID, err := httputil.ParseUUIDParam(c, "owner_id")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := h.accountUseCase.BlockClient(c.Request.Context(), ownerID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusAccepted, "application/json", nil)
}

// UnblockClientHandler announces that a client is unblocked.
// POST /v1/clients/:owner_id/unblock - Returns 202 Accepted.
func (h *AccountHandler) UnblockClientHandler(c *gin.Context) {
	ownerID, err := httputil.ParseUUIDParam(c, "owner_id")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := h.accountUseCase.UnblockClient(c.Request.Context(), ownerID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusAccepted, "application/json", nil)
}
