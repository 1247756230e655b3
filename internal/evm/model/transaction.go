// Package model defines the canonical records shared by the EVM ingesters.
package model

import (
	"errors"
	"fmt"
	"time"
)

// TransactionsTable is the ClickHouse table holding canonical transactions.
const TransactionsTable = "evm_transactions"

// MaxBatchSize bounds the number of records flushed to the sink at once.
const MaxBatchSize = 10_000

// TimestampLayout is the timezone-less layout used for Transaction.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000"

// Transaction is the normalized ten-field representation of one EVM transaction.
// Integer fields are kept as decimal strings so that magnitudes above 2^53 survive intact.
type Transaction struct {
	Timestamp   string `json:"timestamp"`
	Status      bool   `json:"status"`
	BlockNumber string `json:"block_number"`
	TxIndex     string `json:"tx_index"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Value       string `json:"value"`
	GasLimit    string `json:"gas_limit"`
	GasUsed     string `json:"gas_used"`
	GasPrice    string `json:"gas_price"`
}

// BlockBatch groups the valid records of one block for a single insert.
type BlockBatch struct {
	Number  uint64
	Hash    string
	Records []Transaction
}

// ErrMissingField is matched by ValidationError when a required field is empty.
var ErrMissingField = errors.New("missing required field")

// ValidationError reports the first field of a Transaction that breaks the schema.
type ValidationError struct {
	Field  string
	Reason string
	err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func missing(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "empty", err: ErrMissingField}
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks that t carries every field of the canonical schema in canonical form.
// ToAddress is the only field allowed to be empty.
func (t Transaction) Validate() error {
	if t.Timestamp == "" {
		return missing("timestamp")
	}
	if !validTimestamp(t.Timestamp) {
		return invalid("timestamp", fmt.Sprintf("%q is not an ISO-8601 local timestamp", t.Timestamp))
	}

	decimals := []struct {
		name  string
		value string
	}{
		{"block_number", t.BlockNumber},
		{"tx_index", t.TxIndex},
		{"value", t.Value},
		{"gas_limit", t.GasLimit},
		{"gas_used", t.GasUsed},
		{"gas_price", t.GasPrice},
	}
	for _, f := range decimals {
		if f.value == "" {
			return missing(f.name)
		}
		if !isDecimalInteger(f.value) {
			return invalid(f.name, fmt.Sprintf("%q is not a non-negative decimal integer", f.value))
		}
	}

	if t.FromAddress == "" {
		return missing("from_address")
	}
	if !isLowerHexAddress(t.FromAddress) {
		return invalid("from_address", fmt.Sprintf("%q is not a lowercase hex address", t.FromAddress))
	}
	if t.ToAddress != "" && !isLowerHexAddress(t.ToAddress) {
		return invalid("to_address", fmt.Sprintf("%q is not a lowercase hex address", t.ToAddress))
	}
	return nil
}

// ParseTimestamp parses a canonical timestamp as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return ts, nil
}

// FormatTimestamp renders t in the canonical millisecond layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func validTimestamp(value string) bool {
	_, err := ParseTimestamp(value)
	return err == nil
}

func isDecimalInteger(value string) bool {
	if value == "" {
		return false
	}
	if len(value) > 1 && value[0] == '0' {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

func isLowerHexAddress(value string) bool {
	if len(value) < 3 || value[0] != '0' || value[1] != 'x' {
		return false
	}
	for i := 2; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
