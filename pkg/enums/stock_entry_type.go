package enums

import "fmt"

// StockEntryType classifies a stock ledger row.
type StockEntryType string

const (
	StockEntryReceipt  StockEntryType = "receipt"
	StockEntryIssue    StockEntryType = "issue"
	StockEntryReversal StockEntryType = "reversal"
)

var validStockEntryTypes = []StockEntryType{
	StockEntryReceipt,
	StockEntryIssue,
	StockEntryReversal,
}

// IsValid reports whether the value is known.
func (t StockEntryType) IsValid() bool {
	for _, candidate := range validStockEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseStockEntryType converts raw input into a StockEntryType.
func ParseStockEntryType(value string) (StockEntryType, error) {
	for _, candidate := range validStockEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock entry type %q", value)
}
