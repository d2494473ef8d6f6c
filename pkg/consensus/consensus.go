// Package consensus defines the Consensus Verifier RPC seam (spec
// §6.3): an externally-operated service that checks a claimed state
// root against BLS/sync-committee consensus data. The core verifier
// never implements consensus verification itself — it only knows this
// request/response shape and the closed vocabulary of reasons the
// service can hand back.
package consensus

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/certen/safe-evidence-verifier/pkg/evidence"
	"github.com/certen/safe-evidence-verifier/pkg/trust"
	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

// Request is what the core verifier sends to a Consensus Verifier for a
// package's ConsensusProof section.
type Request struct {
	ChainID     uint64
	Mode        evidence.ConsensusMode
	StateRoot   common.Hash
	BlockNumber uint64
	Bootstrap   []byte
	Updates     []byte
	Finality    []byte
	Payload     string
}

// Decision is the closed trust-decision-reason vocabulary a Consensus
// Verifier must switch on exhaustively (spec §4.8, §6.3).
type Decision struct {
	Classification trust.Classification
	Reason         verrors.Code
	Detail         string
}

// Verifier is the seam the core verifier calls through. Production
// deployments implement it against a real consensus light client (BLS
// sync-committee verification, opstack/linea-specific checks); tests and
// offline runs can substitute Disabled or a stub.
type Verifier interface {
	VerifyConsensusProof(ctx context.Context, req Request) (Decision, error)
}

// Disabled is a Verifier that always returns CodeVerifierDisabledByFlag,
// used when no consensus verifier endpoint is configured. A package with
// a ConsensusProof section but a disabled verifier still gets a
// Decision, never an error: "we didn't check" is a valid, recorded
// outcome, not a verification failure.
type Disabled struct{}

// VerifyConsensusProof implements Verifier.
func (Disabled) VerifyConsensusProof(_ context.Context, _ Request) (Decision, error) {
	return Decision{
		Classification: trust.Unclassified,
		Reason:         verrors.CodeVerifierDisabledByFlag,
		Detail:         "no consensus verifier endpoint configured",
	}, nil
}

// RequestFromProof builds a Request from an Evidence Package's
// ConsensusProof section.
func RequestFromProof(chainID uint64, cp *evidence.ConsensusProof) Request {
	if cp == nil {
		return Request{ChainID: chainID}
	}
	return Request{
		ChainID:     chainID,
		Mode:        cp.Mode,
		StateRoot:   cp.StateRoot,
		BlockNumber: cp.BlockNumber,
		Bootstrap:   cp.Bootstrap,
		Updates:     cp.Updates,
		Finality:    cp.FinalityUpdate,
		Payload:     cp.ProofPayload,
	}
}

// ClassifyStateRootAlignment compares the consensus-verified state root
// against the one an on-chain policy proof actually used, producing the
// closed CodeStateRootMismatch/CodeConsensusProofAlignment outcome pair
// (spec §4.8, "consensus-proof-alignment").
func ClassifyStateRootAlignment(consensusRoot, policyProofRoot common.Hash) (trust.Classification, verrors.Code) {
	if consensusRoot != policyProofRoot {
		return trust.Unclassified, verrors.CodeStateRootMismatch
	}
	return trust.ConsensusVerified, verrors.CodeConsensusProofAlignment
}
