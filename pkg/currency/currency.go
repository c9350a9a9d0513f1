package currency

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Code is an ISO-4217 style currency code, e.g. "USD".
type Code string

const (
	USD Code = "USD"
	EUR Code = "EUR"
)

// StorageScale is the number of fractional digits the accounts table stores
// (numeric(20,4)). Every amount that reaches the database, and every preview
// result shown to a client, is truncated to this scale so that a preview and
// a subsequent live transfer always agree.
const StorageScale = 4

// ErrUnsupportedCurrency is returned when a code is outside the configured set
// or a rate for the requested pair is missing.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Rates is a dense square table of pairwise multipliers, identity included.
type Rates map[Code]map[Code]decimal.Decimal

// DefaultRates returns the built-in USD/EUR table.
func DefaultRates() Rates {
	usdToEur := decimal.NewFromFloat(0.9)
	return Rates{
		USD: {
			USD: decimal.NewFromInt(1),
			EUR: usdToEur,
		},
		EUR: {
			USD: decimal.NewFromInt(1).Div(usdToEur),
			EUR: decimal.NewFromInt(1),
		},
	}
}

// ParseRates decodes an operator-supplied JSON rate table, e.g.
// {"USD":{"USD":1,"EUR":0.9},"EUR":{"USD":1.1111,"EUR":1}}.
func ParseRates(raw string) (Rates, error) {
	var rates Rates
	if err := json.Unmarshal([]byte(raw), &rates); err != nil {
		return nil, fmt.Errorf("failed to parse rates JSON: %w", err)
	}
	return rates, nil
}

// Converter is a pure, immutable conversion table. It is safe for concurrent
// use and never touches storage.
type Converter struct {
	rates Rates
	codes []Code
}

// NewConverter validates the table and freezes it. The table must be square
// (every pair present in both directions), every rate must be positive, and
// every same-currency rate must be exactly 1.
func NewConverter(rates Rates) (*Converter, error) {
	if len(rates) == 0 {
		return nil, errors.New("rate table is empty")
	}
	codes := make([]Code, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	one := decimal.NewFromInt(1)
	for _, from := range codes {
		for _, to := range codes {
			rate, ok := rates[from][to]
			if !ok {
				return nil, fmt.Errorf("rate table is not square: missing %s/%s", from, to)
			}
			if rate.Sign() <= 0 {
				return nil, fmt.Errorf("rate %s/%s must be positive, got %s", from, to, rate)
			}
			if from == to && !rate.Equal(one) {
				return nil, fmt.Errorf("identity rate %s/%s must be 1, got %s", from, to, rate)
			}
		}
	}
	return &Converter{rates: rates, codes: codes}, nil
}

// Codes returns the supported currency codes in ascending order.
func (c *Converter) Codes() []Code {
	out := make([]Code, len(c.codes))
	copy(out, c.codes)
	return out
}

// Supported reports whether code is in the configured set.
func (c *Converter) Supported(code Code) bool {
	_, ok := c.rates[code]
	return ok
}

// Rate returns the multiplier applied when moving from -> to.
func (c *Converter) Rate(from, to Code) (decimal.Decimal, error) {
	row, ok := c.rates[from]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, from)
	}
	rate, ok := row[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, to)
	}
	return rate, nil
}

// Convert maps amount in from-currency to its to-currency equivalent.
// A non-positive amount converts to zero; that case only exists for previews,
// the transfer path rejects non-positive amounts before calling Convert.
func (c *Converter) Convert(amount decimal.Decimal, from, to Code) (decimal.Decimal, error) {
	rate, err := c.Rate(from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, nil
	}
	return amount.Mul(rate), nil
}

// Quantize truncates d to the storage scale.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(StorageScale)
}
