package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts are emitted as JSON numbers, the shape the console sums on.
	decimal.MarshalJSONWithoutQuotes = true
}
