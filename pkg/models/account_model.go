package models

import (
	"time"

	"github.com/fundmesh/transfer-service/pkg/currency"
	"github.com/fundmesh/transfer-service/pkg/views"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account maps to table `accounts`. Currency and the owner columns are
// immutable after creation; balance only changes through transfers.
type Account struct {
	ID           uuid.UUID
	OwnerID      int64
	OwnerName    string
	OwnerAddress string
	Currency     currency.Code
	Balance      decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Account) ToView() views.AccountView {
	return views.AccountView{
		ID:           a.ID.String(),
		OwnerID:      a.OwnerID,
		OwnerName:    a.OwnerName,
		OwnerAddress: a.OwnerAddress,
		Currency:     string(a.Currency),
		Balance:      a.Balance,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
