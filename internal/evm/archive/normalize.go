package archive

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
)

// Columns is the fixed column order of an archive row.
var Columns = []string{
	"timestamp",
	"status",
	"block_number",
	"tx_index",
	"from_address",
	"to_address",
	"value",
	"gas_limit",
	"gas_used",
	"gas_price",
}

const toAddressColumn = 5

// Column widths of the evm_transactions table.
const (
	blockNumberBits = 64
	txIndexBits     = 32
	magnitudeBits   = 256
)

// ErrRowSkipped marks a row that is dropped without failing the archive.
var ErrRowSkipped = errors.New("row skipped")

func skip(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRowSkipped, fmt.Sprintf(format, args...))
}

// Normalize converts one raw archive row into a canonical Transaction.
// Every failure wraps ErrRowSkipped.
func Normalize(row []string) (model.Transaction, error) {
	if len(row) != len(Columns) {
		return model.Transaction{}, skip("expected %d columns, got %d", len(Columns), len(row))
	}
	for i, v := range row {
		if i == toAddressColumn {
			continue
		}
		if strings.TrimSpace(v) == "" {
			return model.Transaction{}, skip("empty %s", Columns[i])
		}
	}

	status, err := parseStatus(row[1])
	if err != nil {
		return model.Transaction{}, skip("status: %v", err)
	}

	tx := model.Transaction{
		Timestamp:   normalizeTimestamp(row[0]),
		Status:      status,
		FromAddress: strings.ToLower(strings.TrimSpace(row[4])),
		ToAddress:   strings.ToLower(strings.TrimSpace(row[5])),
	}

	ints := []struct {
		col  int
		bits int
		dst  *string
	}{
		{2, blockNumberBits, &tx.BlockNumber},
		{3, txIndexBits, &tx.TxIndex},
	}
	for _, f := range ints {
		v, err := parseInteger(row[f.col], f.bits)
		if err != nil {
			return model.Transaction{}, skip("%s: %v", Columns[f.col], err)
		}
		*f.dst = v
	}

	magnitudes := []struct {
		col int
		dst *string
	}{
		{6, &tx.Value},
		{7, &tx.GasLimit},
		{8, &tx.GasUsed},
		{9, &tx.GasPrice},
	}
	for _, f := range magnitudes {
		v, err := parseMagnitude(row[f.col])
		if err != nil {
			return model.Transaction{}, skip("%s: %v", Columns[f.col], err)
		}
		*f.dst = v
	}

	if err := tx.Validate(); err != nil {
		return model.Transaction{}, skip("%v", err)
	}
	return tx, nil
}

// normalizeTimestamp turns "2024-03-01 12:00:05[.000][ UTC]" into the ISO form.
func normalizeTimestamp(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, " UTC")
	v = strings.TrimSuffix(v, "Z")
	return strings.Replace(v, " ", "T", 1)
}

func parseStatus(v string) (bool, error) {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "success":
		return true, nil
	case "failure", "failed":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("unrecognized status %q", v)
	}
	return b, nil
}

// parseInteger accepts decimal or 0x-prefixed hex that fits in bits and returns
// the decimal form.
func parseInteger(v string, bits int) (string, error) {
	v = strings.TrimSpace(v)
	n := new(big.Int)
	var ok bool
	if hex, found := cutHexPrefix(v); found {
		ok = hex != "" && setString(n, hex, 16)
	} else {
		ok = setString(n, v, 10)
	}
	if !ok {
		return "", fmt.Errorf("%q is not an integer", v)
	}
	if n.Sign() < 0 {
		return "", fmt.Errorf("%q is negative", v)
	}
	return fitting(n, bits)
}

// parseMagnitude is parseInteger plus exponent and trailing-zero fraction notation
// ("1.5e+21", "21000.0"), which spreadsheet exports produce for large values.
func parseMagnitude(v string) (string, error) {
	v = strings.TrimSpace(v)
	if _, found := cutHexPrefix(v); found {
		return parseInteger(v, magnitudeBits)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return "", fmt.Errorf("%q is not a number", v)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("%q is negative", v)
	}
	if !d.IsInteger() {
		return "", fmt.Errorf("%q is not integral", v)
	}
	return fitting(d.BigInt(), magnitudeBits)
}

func fitting(n *big.Int, bits int) (string, error) {
	if n.BitLen() > bits {
		return "", fmt.Errorf("%s overflows %d bits", n, bits)
	}
	return n.String(), nil
}

func cutHexPrefix(v string) (string, bool) {
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return v[2:], true
	}
	return v, false
}

func setString(n *big.Int, v string, base int) bool {
	if strings.ContainsAny(v, "_+") {
		return false
	}
	_, ok := n.SetString(v, base)
	return ok
}
