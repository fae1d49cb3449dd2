package backend

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is the backend's amount representation: whole units as a decimal
// string plus an optional nano fraction.
type Money struct {
	CurrencyCode string      `json:"currencyCode"`
	Units        json.Number `json:"units"`
	Nanos        int32       `json:"nanos,omitempty"`
}

// Amount returns units + nanos * 10^-9. Unparsable units count as zero.
func (m Money) Amount() decimal.Decimal {
	units := decimal.Zero
	if m.Units != "" {
		if d, err := decimal.NewFromString(m.Units.String()); err == nil {
			units = d
		}
	}
	return units.Add(decimal.New(int64(m.Nanos), -9))
}

// NetWorthItem is one asset or liability line.
type NetWorthItem struct {
	Attribute string `json:"netWorthAttribute"`
	Value     Money  `json:"value"`
}

// Sum totals the amounts of items.
func Sum(items []NetWorthItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Value.Amount())
	}
	return total
}

// Find returns the amount of the first item with the given attribute.
func Find(items []NetWorthItem, attribute string) (decimal.Decimal, bool) {
	for _, item := range items {
		if item.Attribute == attribute {
			return item.Value.Amount(), true
		}
	}
	return decimal.Zero, false
}
