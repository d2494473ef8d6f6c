// Package verify orchestrates every subsystem against a parsed Evidence
// Package and produces a single VerificationReport. It is pure: no
// network calls, no filesystem access, no mutation of its input. The
// only side channel is the optional consensus.Verifier seam, which the
// caller supplies and which this package treats as opaque.
package verify

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/certen/safe-evidence-verifier/pkg/calldata"
	"github.com/certen/safe-evidence-verifier/pkg/consensus"
	"github.com/certen/safe-evidence-verifier/pkg/evidence"
	"github.com/certen/safe-evidence-verifier/pkg/hashing"
	"github.com/certen/safe-evidence-verifier/pkg/mpt"
	"github.com/certen/safe-evidence-verifier/pkg/registry"
	"github.com/certen/safe-evidence-verifier/pkg/signature"
	"github.com/certen/safe-evidence-verifier/pkg/simulation"
	"github.com/certen/safe-evidence-verifier/pkg/trust"
	"github.com/certen/safe-evidence-verifier/pkg/warnings"
)

// Options configures a single Verify call. Every field is optional; a
// zero-value Options runs every check it can with no registry and no
// consensus verifier.
type Options struct {
	Registry              *registry.Registry
	ConsensusVerifier     consensus.Verifier
	WarningValueThreshold *big.Int
}

// VerificationReport is the single artifact Verify produces: everything
// a caller needs to render a verdict on an Evidence Package, with every
// claim tagged by the trust level it actually earned.
type VerificationReport struct {
	ReportID uuid.UUID
	Evidence *evidence.Evidence

	HashDetails hashing.HashDetails
	HashMatch   bool

	Proposer      common.Address
	ProposerFound bool

	Signatures        []signature.Result
	SignaturesByOwner map[common.Address][]signature.Result
	SignatureSummary  signature.Summary

	PolicyProof *PolicyProofResult

	CalldataEquivalence []calldata.EquivalenceResult

	Simulation *simulation.Result

	TargetWarnings []warnings.TargetWarning
	SignerWarnings []warnings.SignerWarning

	ConsensusDecision *consensus.Decision

	Sources []trust.Source
}

// Verify runs every subsystem check against ev and returns a complete
// VerificationReport. ctx bounds the concurrent signature checks and the
// optional consensus verifier call; every other check is a pure local
// computation.
func Verify(ctx context.Context, ev *evidence.Evidence, opts Options) (*VerificationReport, error) {
	reg := opts.Registry
	if reg == nil {
		reg = registry.Empty()
	}
	cv := opts.ConsensusVerifier
	if cv == nil {
		cv = consensus.Disabled{}
	}

	ledger := trust.NewLedger()
	report := &VerificationReport{
		ReportID: uuid.New(),
		Evidence: ev,
	}

	details := hashing.Recompute(ev.ChainID, ev.SafeAddress, ev.Transaction, ev.SafeTxHash)
	report.HashDetails = details
	report.HashMatch = details.Match
	if details.Match {
		ledger.Record(trust.SourceSafeTxHash, trust.SelfVerified, "recomputed locally from transaction fields")
	} else {
		ledger.Record(trust.SourceSafeTxHash, trust.UserProvided, "recomputed hash does not match declared safeTxHash")
	}

	confs := make([]signature.Confirmation, len(ev.Confirmations))
	for i, c := range ev.Confirmations {
		confs[i] = signature.Confirmation{Owner: c.Owner, Signature: c.Signature}
	}
	sigResults, err := signature.VerifyAll(ctx, details.SafeTxHash, confs)
	if err != nil {
		return nil, err
	}
	report.Signatures = sigResults
	report.SignaturesByOwner = signature.ByOwner(sigResults)
	report.SignatureSummary = signature.Summarize(sigResults)
	if allSignaturesMatchOwner(sigResults) {
		ledger.Record(trust.SourceSignatures, trust.SelfVerified, "every confirmation recovered to its claimed owner")
	} else {
		ledger.Record(trust.SourceSignatures, trust.APISourced, "at least one confirmation failed to recover to its claimed owner")
	}

	if proposer, ok := warnings.Proposer(ev.Confirmations); ok {
		report.Proposer = proposer
		report.ProposerFound = true
	}

	if ev.DataDecoded != nil {
		steps := calldata.Normalize(ev.Transaction, ev.DataDecoded)
		results := make([]calldata.EquivalenceResult, len(steps))
		allVerified := true
		for i, step := range steps {
			results[i] = calldata.VerifyStep(step)
			if results[i].Status != calldata.EquivalenceVerified {
				allVerified = false
			}
		}
		report.CalldataEquivalence = results
		if allVerified {
			ledger.Record(trust.SourceDecodedCalldata, trust.SelfVerified, "every normalized call step's raw calldata matches its declared method and parameters")
		} else {
			ledger.Record(trust.SourceDecodedCalldata, trust.Unclassified, "at least one normalized call step failed calldata equivalence")
		}
	}

	if ev.OnchainPolicyProof != nil {
		result := VerifyPolicyProof(ev.SafeAddress, ev.OnchainPolicyProof, ev.ConfirmationsRequired)
		report.PolicyProof = &result
		ledger.Record(trust.SourceOnchainPolicyProof, result.Classification, "")
		ledger.Record(trust.SourceOwnersThreshold, result.Classification, "derived from the on-chain policy proof")
	} else {
		ledger.Record(trust.SourceOwnersThreshold, trust.APISourced, "no on-chain policy proof supplied; owners/threshold taken from the package's declared fields")
	}

	if ev.Simulation != nil {
		simResult := simulation.Check(ev.Simulation)
		report.Simulation = &simResult
		ledger.Record(trust.SourceSimulation, simResult.Classification, "")
	}

	if ev.ConsensusProof != nil {
		req := consensus.RequestFromProof(ev.ChainID, ev.ConsensusProof)
		decision, err := cv.VerifyConsensusProof(ctx, req)
		if err != nil {
			return nil, err
		}
		report.ConsensusDecision = &decision
		ledger.Record(trust.SourceConsensusProof, decision.Classification, decision.Detail)

		if report.PolicyProof != nil {
			aligned, _ := consensus.ClassifyStateRootAlignment(ev.ConsensusProof.StateRoot, ev.OnchainPolicyProof.StateRoot)
			blockAligned := ev.ConsensusProof.BlockNumber == ev.OnchainPolicyProof.BlockNumber
			if aligned.AtLeast(trust.ConsensusVerified) && blockAligned {
				addCheck(&report.PolicyProof.Checks, mpt.CheckConsensusProofAlign, nil)
				if decision.Classification.AtLeast(trust.ConsensusVerified) {
					ledger.Record(trust.SourceOnchainPolicyProof, trust.Weakest(report.PolicyProof.Classification, trust.ConsensusVerified), "state root and block number aligned with a consensus-verified root")
				}
			} else {
				addCheck(&report.PolicyProof.Checks, mpt.CheckConsensusProofAlign, errPlain("consensus proof's stateRoot/blockNumber does not match the on-chain policy proof's"))
				report.PolicyProof.Valid = false
			}
		}
	}

	hasCalldata := len(ev.Transaction.Data) > 0
	if w := warnings.CheckTarget(reg, ev.ChainID, ev.Transaction.To, ev.Transaction.Operation, hasCalldata, ev.Transaction.Value.BigInt(), opts.WarningValueThreshold); w != nil {
		report.TargetWarnings = append(report.TargetWarnings, *w)
	}
	report.SignerWarnings = warnings.CheckSigners(reg, ev.ChainID, ev.Confirmations)
	ledger.Record(trust.SourceTargetWarnings, trust.SelfVerified, "computed locally against the supplied registry")
	signerWarningTrust := trust.SelfVerified
	if len(report.SignerWarnings) > 0 {
		signerWarningTrust = trust.UserProvided
	}
	ledger.Record(trust.SourceSignerWarnings, signerWarningTrust, "computed locally against the supplied registry")

	ledger.Record(trust.SourceSettings, trust.UserProvided, "")

	report.Sources = ledger.Sources()
	return report, nil
}

func allSignaturesMatchOwner(results []signature.Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Status != signature.StatusValid || !r.OwnerMatch {
			return false
		}
	}
	return true
}
