// Package simulation performs structural checks on an Evidence Package's
// optional Simulation record (spec §4.6). It never re-executes the
// transaction; it only checks the record's own internal consistency
// (strict gasUsed formatting, log topic count). Address, hash, state-diff
// and timestamp shapes are enforced earlier, by pkg/evidence's Parse.
package simulation

import (
	"github.com/certen/safe-evidence-verifier/pkg/evidence"
	"github.com/certen/safe-evidence-verifier/pkg/trust"
	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

// Result is the outcome of structurally checking a Simulation record.
type Result struct {
	Valid          bool
	Reverted       bool
	Classification trust.Classification
	Errors         verrors.List
}

// Check validates sim's structural invariants (spec §4.6):
//
//   - gasUsed must be a strict hex quantity: lowercase "0x" prefix, 1-64
//     hex digits, never a decimal string and never uppercase "0X" — this
//     is stricter than the general Quantity rule used for transaction
//     fields, which also accepts decimal.
//   - every log has at most 4 topics.
//   - success == false is recorded as a revert, not a validation failure:
//     a simulated revert is itself a legitimate simulation outcome.
func Check(sim *evidence.Simulation) Result {
	if sim == nil {
		return Result{Valid: true, Classification: trust.Unclassified}
	}

	var errs verrors.List

	if _, err := evidence.ParseQuantity(sim.GasUsed.Raw, false); err != nil {
		errs = append(errs, verrors.Newf(verrors.CodeSimulationMalformed, "gasUsed must be a strict hex quantity: %v", err).WithField("simulation.gasUsed"))
	}

	for i, log := range sim.Logs {
		if len(log.Topics) > 4 {
			errs = append(errs, verrors.Newf(verrors.CodeSimulationMalformed, "log %d has %d topics, at most 4 allowed", i, len(log.Topics)).WithField("simulation.logs"))
		}
	}

	result := Result{
		Valid:          len(errs) == 0,
		Reverted:       !sim.Success,
		Classification: trust.RPCSourced,
		Errors:         errs,
	}
	if !result.Valid {
		result.Classification = trust.Unclassified
	}
	return result
}
