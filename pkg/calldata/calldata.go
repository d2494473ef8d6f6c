// Package calldata normalizes a decoded-calldata tree into a flat list
// of call steps (expanding multiSend batches) and checks that a
// declared decoding is actually equivalent to the raw transaction data
// it claims to describe (spec §4.5).
package calldata

import (
	"bytes"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/safe-evidence-verifier/pkg/evidence"
)

// Step is one flattened call, either the top-level SafeTx itself or one
// inner transaction unpacked from a multiSend batch.
type Step struct {
	To        common.Address
	Value     *evidence.Quantity
	Operation evidence.Operation
	Method    string
	Params    []evidence.CallParam
	RawData   []byte
}

// Normalize flattens tx and its decoded call tree into an ordered list
// of Steps, expanding multiSend's "transactions" parameter one level
// (spec §4.5, "calldata normalization"). Top-level call is always
// Steps[0].
func Normalize(tx evidence.Transaction, decoded *evidence.DecodedCall) []Step {
	steps := []Step{{To: tx.To, Value: &tx.Value, Operation: tx.Operation, RawData: tx.Data}}
	if decoded != nil {
		steps[0].Method = decoded.Method
		steps[0].Params = decoded.Params
		for _, inner := range decoded.ValueDecoded {
			step := Step{RawData: inner.RawData, Params: inner.Params}
			if inner.To != nil {
				step.To = *inner.To
			}
			if inner.Value != nil {
				step.Value = inner.Value
			}
			if inner.Operation != nil {
				step.Operation = *inner.Operation
			}
			if inner.Method != nil {
				step.Method = *inner.Method
			}
			steps = append(steps, step)
		}
	}
	return steps
}

// EquivalenceStatus is the closed outcome of checking a declared
// decoding against the raw calldata it claims to describe.
type EquivalenceStatus string

const (
	EquivalenceVerified         EquivalenceStatus = "verified"
	EquivalenceNoData           EquivalenceStatus = "no-data"
	EquivalenceSelectorMismatch EquivalenceStatus = "selector-mismatch"
	EquivalenceParamsMismatch   EquivalenceStatus = "params-mismatch"
)

// EquivalenceResult is the outcome of checking one decoded call against
// its raw data.
type EquivalenceResult struct {
	Status EquivalenceStatus
	Detail string
}

// CheckEquivalence verifies that method, re-encoded with the given ABI
// method signature, produces exactly rawData (spec §4.5): the selector
// (first 4 bytes of keccak256(canonicalSignature)) must match, and the
// ABI-encoded parameters (including nested tuples and dynamic types)
// must match byte-for-byte.
func CheckEquivalence(rawData []byte, canonicalSignature string, args abi.Arguments, values []interface{}) EquivalenceResult {
	if len(rawData) == 0 {
		if canonicalSignature == "" {
			return EquivalenceResult{Status: EquivalenceVerified, Detail: "plain value transfer, no calldata to verify"}
		}
		return EquivalenceResult{Status: EquivalenceNoData, Detail: "decoded call declares a method but transaction data is empty"}
	}
	if len(rawData) < 4 {
		return EquivalenceResult{Status: EquivalenceNoData, Detail: "transaction data is shorter than a selector"}
	}

	selector := crypto.Keccak256([]byte(canonicalSignature))[:4]
	if !bytes.Equal(rawData[:4], selector) {
		return EquivalenceResult{
			Status: EquivalenceSelectorMismatch,
			Detail: "computed selector does not match the first 4 bytes of transaction data",
		}
	}

	packed, err := args.Pack(values...)
	if err != nil {
		return EquivalenceResult{Status: EquivalenceParamsMismatch, Detail: "could not re-encode declared parameters: " + err.Error()}
	}
	if !bytes.Equal(rawData[4:], packed) {
		return EquivalenceResult{Status: EquivalenceParamsMismatch, Detail: "re-encoded parameters do not match transaction data"}
	}
	return EquivalenceResult{Status: EquivalenceVerified}
}

// VerifyStep is the self-contained entry point used by pkg/verify: it
// builds the abi.Arguments for step's declared params from the
// parameter types and values carried in the Evidence Package itself (no
// external ABI registry needed) and checks them against step's raw
// calldata.
func VerifyStep(step Step) EquivalenceResult {
	if step.Method == "" {
		return EquivalenceResult{Status: EquivalenceNoData, Detail: "no decoded method declared for this call"}
	}
	sig, ok := CanonicalSignature(step.Method, step.Params)
	if !ok {
		return EquivalenceResult{Status: EquivalenceNoData, Detail: "one or more parameters use a tuple type; automatic equivalence checking is not supported for nested tuples"}
	}
	args, values, err := BuildArguments(step.Params)
	if err != nil {
		return EquivalenceResult{Status: EquivalenceNoData, Detail: "could not build ABI arguments from declared parameters: " + err.Error()}
	}
	return CheckEquivalence(step.RawData, sig, args, values)
}
