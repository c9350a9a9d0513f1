package views

import (
	"time"

	"github.com/fundmesh/transfer-service/pkg"
	"github.com/shopspring/decimal"
)

// TransferCompletedEvent is the payload emitted after a transfer commits.
type TransferCompletedEvent struct {
	TransferID      string             `json:"transferId"`
	FromAccountID   string             `json:"fromAccountId"`
	ToAccountID     string             `json:"toAccountId"`
	Amount          decimal.Decimal    `json:"amount"`
	ConvertedAmount decimal.Decimal    `json:"convertedAmount"`
	FromCurrency    string             `json:"fromCurrency"`
	ToCurrency      string             `json:"toCurrency"`
	Status          pkg.TransferStatus `json:"status"`
	CompletedAt     time.Time          `json:"completedAt"`
}
