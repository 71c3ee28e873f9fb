package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/ledger/internal/account/http/dto"
	accountUseCase "github.com/allisson/ledger/internal/account/usecase"
	"github.com/allisson/ledger/internal/httputil"
)

// TransactionHandler handles HTTP requests that move money.
type TransactionHandler struct {
	transactionUseCase accountUseCase.TransactionUseCase
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(
	transactionUseCase accountUseCase.TransactionUseCase,
	logger *slog.Logger,
) *TransactionHandler {
	return &TransactionHandler{
		transactionUseCase: transactionUseCase,
		logger:             logger,
	}
}

// RegisterHandler posts a transaction against a single account.
// POST /v1/transactions - Returns 201 Created with the transaction.
func (h *TransactionHandler) RegisterHandler(c *gin.Context) {
	var req dto.RegisterTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	tx, err := h.transactionUseCase.RegisterTransaction(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapTransactionToResponse(tx))
}

// TransferHandler moves money between two accounts.
// POST /v1/transfers - Returns 201 Created with both legs.
func (h *TransactionHandler) TransferHandler(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	result, err := h.transactionUseCase.Transfer(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapTransferToResponse(result))
}
