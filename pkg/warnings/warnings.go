// Package warnings flags suspicious targets and signers and identifies
// the transaction's proposer, none of which are cryptographic checks —
// they are heuristics over the registry and the confirmations list
// (spec §4.7).
package warnings

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/certen/safe-evidence-verifier/pkg/evidence"
	"github.com/certen/safe-evidence-verifier/pkg/registry"
)

// Severity is the closed vocabulary of warning severities.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// TargetWarning flags a call step whose target or operation is risky.
type TargetWarning struct {
	Severity Severity
	Message  string
}

// CheckTarget evaluates one call step's target against the registry
// (spec §4.7):
//
//   - DelegateCall to an unknown address is danger (arbitrary code runs
//     with the Safe's storage and identity).
//   - DelegateCall to a known address is merely informational.
//   - A plain Call with non-empty calldata to an unknown address is a
//     warning (unverifiable side effects).
//   - A pure value transfer (empty calldata) below threshold to an
//     unknown address produces no warning at all.
func CheckTarget(reg *registry.Registry, chainID uint64, to common.Address, operation evidence.Operation, hasCalldata bool, value *big.Int, threshold *big.Int) *TargetWarning {
	known := reg.Known(to, chainID)

	if operation == evidence.OperationDelegateCall {
		if known {
			return &TargetWarning{Severity: SeverityInfo, Message: "delegatecall target is a known, registered address"}
		}
		return &TargetWarning{Severity: SeverityDanger, Message: "delegatecall to an unregistered address: arbitrary code would run with this Safe's storage and identity"}
	}

	if known {
		return nil
	}

	if hasCalldata {
		return &TargetWarning{Severity: SeverityWarning, Message: "call with non-empty calldata to an unregistered address"}
	}

	if threshold != nil && value != nil && value.Cmp(threshold) >= 0 {
		return &TargetWarning{Severity: SeverityWarning, Message: "value transfer above the configured threshold to an unregistered address"}
	}
	return nil
}

// SignerWarning flags an owner who confirmed but is absent from the
// registry.
type SignerWarning struct {
	Owner    common.Address
	Severity Severity
	Message  string
}

// CheckSigners returns a warning for every confirming owner not present
// in the registry (spec §4.7, "signer warnings").
func CheckSigners(reg *registry.Registry, chainID uint64, confirmations []evidence.Confirmation) []SignerWarning {
	var out []SignerWarning
	for _, c := range confirmations {
		if !reg.Known(c.Owner, chainID) {
			out = append(out, SignerWarning{
				Owner:    c.Owner,
				Severity: SeverityWarning,
				Message:  "confirming owner is not present in the address registry",
			})
		}
	}
	return out
}

// Proposer identifies the earliest confirming owner, the one
// conventionally treated as having proposed the transaction (spec §4.7:
// earliest submissionDate, ties broken by position in the confirmations
// list).
func Proposer(confirmations []evidence.Confirmation) (common.Address, bool) {
	if len(confirmations) == 0 {
		return common.Address{}, false
	}
	earliest := 0
	for i := 1; i < len(confirmations); i++ {
		if confirmations[i].SubmissionDate.Before(confirmations[earliest].SubmissionDate) {
			earliest = i
		}
	}
	return confirmations[earliest].Owner, true
}
