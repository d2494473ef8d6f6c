package evidence

import (
	"math/big"
	"regexp"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

// Quantity is a gas/value-style numeric field that the wire format may
// encode either as a plain decimal string or as a lowercase 0x-hex
// quantity (spec §4.1 table). It keeps the original string so hashing
// (spec §4.2) can report exactly what was declared, alongside the parsed
// big.Int used for ABI encoding and comparisons.
type Quantity struct {
	Raw   string
	Value *big.Int
}

var (
	hexQuantityRE = regexp.MustCompile(`^0x[0-9a-f]{1,64}$`)
	decimalRE     = regexp.MustCompile(`^[0-9]+$`)
)

// ParseQuantity validates and parses s per the spec §4.1 hex-quantity
// rule: either a decimal string (if allowDecimal), or "0x" followed by
// 1-64 lowercase hex digits. Uppercase "0X", an empty hex body, and
// non-digit decimal strings are all rejected.
func ParseQuantity(s string, allowDecimal bool) (Quantity, error) {
	if allowDecimal && decimalRE.MatchString(s) {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return Quantity{}, verrors.Newf(verrors.CodeSchemaError, "invalid decimal quantity %q", s)
		}
		return Quantity{Raw: s, Value: v}, nil
	}
	if !hexQuantityRE.MatchString(s) {
		return Quantity{}, verrors.Newf(verrors.CodeSchemaError, "invalid hex quantity %q", s)
	}
	v, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return Quantity{}, verrors.Newf(verrors.CodeSchemaError, "invalid hex quantity %q", s)
	}
	return Quantity{Raw: s, Value: v}, nil
}

// ZeroQuantity returns the canonical zero quantity, used as a
// fallback for optional fields that default to zero.
func ZeroQuantity() Quantity {
	return Quantity{Raw: "0x0", Value: big.NewInt(0)}
}

// BigInt returns the parsed value, or zero if Value is nil.
func (q Quantity) BigInt() *big.Int {
	if q.Value == nil {
		return big.NewInt(0)
	}
	return q.Value
}
