// Package trust defines the trust lattice that every verified claim in an
// Evidence Package is classified against (spec §4.8), and the closed
// VerificationSource vocabulary a VerificationReport's sources list draws
// from. It has no dependency on pkg/evidence or any other subsystem, so
// every package downstream of schema validation can import it freely.
//
// The lattice is graded the way the teacher's UnifiedVerifier grades a
// proof bundle's four levels, generalized from "all valid / not" into a
// total order over six grades so a caller can ask "is this claim at
// least proof-verified" instead of switching on booleans per source.
package trust

// Classification is one grade in the six-level trust lattice (spec §4.8),
// declared from weakest to strongest evidence: a larger value is stronger.
type Classification int

const (
	// Unclassified is the zero value: no classification has been assigned.
	Unclassified Classification = iota

	// UserProvided is an unverified claim taken at face value from the
	// package (weakest grade).
	UserProvided

	// APISourced was fetched from a third-party API (e.g. the Safe
	// Transaction Service) but carries no cryptographic proof.
	APISourced

	// RPCSourced was fetched directly from an Ethereum JSON-RPC endpoint,
	// trusted to the extent the endpoint is trusted.
	RPCSourced

	// SelfVerified was recomputed locally from data already present in
	// the package (e.g. a recomputed hash or a local signature recovery).
	SelfVerified

	// ProofVerified was checked against a cryptographic proof anchored to
	// a claimed state root (e.g. an MPT account/storage proof).
	ProofVerified

	// ConsensusVerified was checked against a claimed state root that was
	// itself verified against consensus (the strongest grade, spec §6.3).
	ConsensusVerified
)

var classificationNames = map[Classification]string{
	Unclassified:      "unclassified",
	UserProvided:      "user-provided",
	APISourced:        "api-sourced",
	RPCSourced:        "rpc-sourced",
	SelfVerified:      "self-verified",
	ProofVerified:     "proof-verified",
	ConsensusVerified: "consensus-verified",
}

// String implements fmt.Stringer, returning the spec's kebab-case name.
func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return "unclassified"
}

// AtLeast reports whether c is at least as strong as floor in the
// lattice's total order.
func (c Classification) AtLeast(floor Classification) bool {
	return c >= floor
}

// Weakest returns the weaker of a and b. Used to fold a composite claim's
// classification down to the strength of its least-trusted input (spec
// §4.8: a composite is only as strong as its weakest dependency).
func Weakest(a, b Classification) Classification {
	if a < b {
		return a
	}
	return b
}

// SourceID is the closed vocabulary of claims a VerificationReport can
// classify (spec §4.8's table, plus signer-warnings from §4.7 folded into
// the same closed enumeration — the table names 9 ids but §8's testable
// properties require 10 entries in the no-optional-sections case).
type SourceID string

const (
	SourceSafeTxHash         SourceID = "safe-tx-hash"
	SourceSignatures         SourceID = "signatures"
	SourceOwnersThreshold    SourceID = "safe-owners-threshold"
	SourceDecodedCalldata    SourceID = "decoded-calldata"
	SourceOnchainPolicyProof SourceID = "onchain-policy-proof"
	SourceSimulation         SourceID = "simulation"
	SourceConsensusProof     SourceID = "consensus-proof"
	SourceTargetWarnings     SourceID = "target-warnings"
	SourceSignerWarnings     SourceID = "signer-warnings"
	SourceSettings           SourceID = "settings"
)

// allSources is the canonical enumeration order a VerificationReport's
// sources list is emitted in (spec §4.8: stable, declared order).
var allSources = []SourceID{
	SourceSafeTxHash,
	SourceSignatures,
	SourceOwnersThreshold,
	SourceDecodedCalldata,
	SourceOnchainPolicyProof,
	SourceSimulation,
	SourceConsensusProof,
	SourceTargetWarnings,
	SourceSignerWarnings,
	SourceSettings,
}

// Status is whether a source's underlying optional section was present
// in the package at all (spec §4.8: "a status ∈ {enabled, disabled}").
type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusDisabled Status = "disabled"
)

// optionalSources are the ids whose presence depends on an optional
// section of the package; every other id in allSources is always present
// and therefore always enabled.
var optionalSources = map[SourceID]bool{
	SourceDecodedCalldata:    true,
	SourceOnchainPolicyProof: true,
	SourceSimulation:         true,
	SourceConsensusProof:     true,
}

// Source pairs a claim with the classification it ultimately earned.
type Source struct {
	ID             SourceID       `json:"id"`
	Status         Status         `json:"status"`
	Classification Classification `json:"classification"`
	Reason         string         `json:"reason,omitempty"`
}

// Ledger accumulates one Source per claim made during verification and
// emits them in the canonical declared order, regardless of the order
// subsystems ran in. Every id in allSources is always present in the
// output (spec §8: "sources has exactly 10 entries" even when three of
// them are absent from the package and therefore disabled) — Ledger
// pre-seeds the optional ids as disabled/Unclassified so a caller never
// needs to special-case "not applicable to this package".
type Ledger struct {
	entries map[SourceID]Source
}

// NewLedger returns a Ledger with every optional source pre-seeded as
// disabled; Record upgrades a source to enabled as its section is found.
func NewLedger() *Ledger {
	l := &Ledger{entries: make(map[SourceID]Source, len(allSources))}
	for _, id := range allSources {
		status := StatusEnabled
		if optionalSources[id] {
			status = StatusDisabled
		}
		l.entries[id] = Source{ID: id, Status: status, Classification: Unclassified}
	}
	return l
}

// Record sets (or overwrites) the classification for a source, marking it
// enabled.
func (l *Ledger) Record(id SourceID, c Classification, reason string) {
	l.entries[id] = Source{ID: id, Status: StatusEnabled, Classification: c, Reason: reason}
}

// Sources returns every source in canonical declared order, enabled and
// disabled alike.
func (l *Ledger) Sources() []Source {
	out := make([]Source, 0, len(allSources))
	for _, id := range allSources {
		out = append(out, l.entries[id])
	}
	return out
}
