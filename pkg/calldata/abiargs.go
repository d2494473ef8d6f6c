package calldata

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/certen/safe-evidence-verifier/pkg/evidence"
)

// CanonicalSignature builds the "method(type1,type2,...)" string spec
// §4.5 says the selector is derived from. Tuple-typed parameters have no
// canonical inline signature in the decoded-calldata wire format (spec's
// CallParam carries a flat ABI type string, not a components schema), so
// a tuple anywhere in params makes the signature unusable and the caller
// falls back to a no-data verdict rather than risk a false
// selector-mismatch.
func CanonicalSignature(method string, params []evidence.CallParam) (string, bool) {
	types := make([]string, len(params))
	for i, p := range params {
		if isTupleType(p.Type) {
			return "", false
		}
		types[i] = p.Type
	}
	return method + "(" + strings.Join(types, ",") + ")", true
}

func isTupleType(t string) bool {
	return t == "tuple" || strings.HasPrefix(t, "tuple[") || strings.HasPrefix(t, "tuple(")
}

// BuildArguments converts a flat list of declared CallParams into the
// abi.Arguments + Go values needed to re-encode them with
// (abi.Arguments).Pack, per spec §4.5 ("ABI-encode the parameters").
func BuildArguments(params []evidence.CallParam) (abi.Arguments, []interface{}, error) {
	args := make(abi.Arguments, len(params))
	values := make([]interface{}, len(params))
	for i, p := range params {
		t, err := abi.NewType(p.Type, "", nil)
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %q: unsupported ABI type %q: %w", p.Name, p.Type, err)
		}
		args[i] = abi.Argument{Name: p.Name, Type: t}
		v, err := convertValue(t, p.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		values[i] = v
	}
	return args, values, nil
}

func convertValue(t abi.Type, raw interface{}) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("%q is not a valid address", s)
		}
		return common.HexToAddress(s), nil

	case abi.BoolTy:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			return strconv.ParseBool(v)
		}
		return nil, fmt.Errorf("cannot convert %T to bool", raw)

	case abi.StringTy:
		return asString(raw)

	case abi.BytesTy:
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		return hexutil.Decode(ensure0x(s))

	case abi.FixedBytesTy:
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		b, err := hexutil.Decode(ensure0x(s))
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		arrVal := reflect.New(t.Type).Elem()
		reflect.Copy(arrVal, reflect.ValueOf(b))
		return arrVal.Interface(), nil

	case abi.UintTy, abi.IntTy:
		return numericValue(t, raw)

	case abi.SliceTy, abi.ArrayTy:
		elems, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("cannot convert %T to array", raw)
		}
		if t.T == abi.ArrayTy && len(elems) != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(elems))
		}
		sliceVal := reflect.MakeSlice(reflect.SliceOf(t.Elem.Type), len(elems), len(elems))
		for i, e := range elems {
			ev, err := convertValue(*t.Elem, e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			sliceVal.Index(i).Set(reflect.ValueOf(ev))
		}
		if t.T == abi.ArrayTy {
			arrVal := reflect.New(reflect.ArrayOf(t.Size, t.Elem.Type)).Elem()
			reflect.Copy(arrVal, sliceVal)
			return arrVal.Interface(), nil
		}
		return sliceVal.Interface(), nil

	case abi.TupleTy:
		return nil, fmt.Errorf("tuple-typed parameters are not supported for automatic equivalence checking")

	default:
		return nil, fmt.Errorf("unsupported ABI type %q", t.String())
	}
}

func numericValue(t abi.Type, raw interface{}) (interface{}, error) {
	bi, err := asBigInt(raw)
	if err != nil {
		return nil, err
	}
	if t.Size > 64 {
		return bi, nil
	}
	if t.T == abi.UintTy {
		switch t.Size {
		case 8:
			return uint8(bi.Uint64()), nil
		case 16:
			return uint16(bi.Uint64()), nil
		case 32:
			return uint32(bi.Uint64()), nil
		case 64:
			return bi.Uint64(), nil
		}
	} else {
		switch t.Size {
		case 8:
			return int8(bi.Int64()), nil
		case 16:
			return int16(bi.Int64()), nil
		case 32:
			return int32(bi.Int64()), nil
		case 64:
			return bi.Int64(), nil
		}
	}
	// Widths with no native Go integer type (24, 40, 48, 56) are *big.Int
	// in go-ethereum's ABI types, like every width above 64.
	return bi, nil
}

func asString(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	}
	return "", fmt.Errorf("cannot convert %T to string", raw)
}

func asBigInt(raw interface{}) (*big.Int, error) {
	switch v := raw.(type) {
	case string:
		s := v
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			bi, ok := new(big.Int).SetString(s[2:], 16)
			if !ok {
				return nil, fmt.Errorf("%q is not a valid hex integer", s)
			}
			return bi, nil
		}
		bi, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("%q is not a valid decimal integer", s)
		}
		return bi, nil
	case json.Number:
		bi, ok := new(big.Int).SetString(v.String(), 10)
		if !ok {
			return nil, fmt.Errorf("%q is not a valid integer", v.String())
		}
		return bi, nil
	case float64:
		return big.NewInt(int64(v)), nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", raw)
}

func ensure0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}
