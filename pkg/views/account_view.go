package views

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountView struct {
	ID           string          `json:"id"`
	OwnerID      int64           `json:"ownerId"`
	OwnerName    string          `json:"ownerName"`
	OwnerAddress string          `json:"ownerAddress"`
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
