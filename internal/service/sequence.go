package service

import (
	"context"
	"fmt"
)

type sequenceGenerator interface {
	Next(ctx context.Context, name string, year int) (int, error)
}

// Number formats of the human readable identifiers.
const (
	studentNumberFormat     = "ASM-%d-%04d"
	invoiceNumberFormat     = "FAC-%d-%05d"
	certificateNumberFormat = "CERT-%d-%05d"
)

func formatNumber(format string, year, value int) string {
	return fmt.Sprintf(format, year, value)
}
