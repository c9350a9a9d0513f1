package views

import (
	pkgviews "github.com/fundmesh/transfer-service/pkg/views"
	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	FromAccountID string `json:"fromAccountId" binding:"required"`
	ToAccountID   string `json:"toAccountId" binding:"required"`
	// Amount is validated by the transfer service so that a missing, zero or
	// negative value surfaces as TRANSFER_INVALID_AMOUNT rather than a bare
	// binding error.
	Amount decimal.Decimal `json:"amount"`
}

type TransferResult struct {
	FromAccount     pkgviews.AccountView `json:"fromAccount"`
	ToAccount       pkgviews.AccountView `json:"toAccount"`
	ConvertedAmount decimal.Decimal      `json:"convertedAmount"`
}

type PreviewResult struct {
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
}
