package views

import (
	"github.com/shopspring/decimal"
)

type CreateAccountRequest struct {
	OwnerID      int64  `json:"ownerId" binding:"required,min=1"`
	OwnerName    string `json:"ownerName" binding:"required,max=100"`
	OwnerAddress string `json:"ownerAddress" binding:"required,max=200"`
	Currency     string `json:"currency" binding:"required,len=3"`
	// Balance defaults to zero; negative opening balances are rejected.
	Balance decimal.Decimal `json:"balance"`
}

type ListAccountsQuery struct {
	Query    string `form:"q"`
	Currency string `form:"currency"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

type CurrencyView struct {
	Code  string                     `json:"code"`
	Rates map[string]decimal.Decimal `json:"rates"`
}
