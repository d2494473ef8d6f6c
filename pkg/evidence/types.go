// Package evidence defines the data model of an Evidence Package (spec §3)
// and the schema validator that turns raw JSON bytes into a structured,
// immutable Evidence value (spec §4.1). Nothing in this package mutates
// its inputs or reaches the network; it is pure parsing and validation.
package evidence

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/certen/safe-evidence-verifier/pkg/trust"
)

// Version is the closed set of Evidence Package schema versions.
type Version string

const (
	Version1_0 Version = "1.0"
	Version1_1 Version = "1.1"
	Version1_2 Version = "1.2"
)

// Operation is the Safe call type: Call or DelegateCall.
type Operation uint8

const (
	OperationCall         Operation = 0
	OperationDelegateCall Operation = 1
)

// Transaction holds the ten fields of the SafeTx struct that owners sign
// over (spec §4.2). Quantity fields keep their original decimal or
// hex-quantity string (Quantity.Raw) next to the value the schema
// validator parsed from it, read through Quantity.BigInt.
type Transaction struct {
	To             common.Address
	Value          Quantity
	Data           []byte
	Operation      Operation
	SafeTxGas      Quantity
	BaseGas        Quantity
	GasPrice       Quantity
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          Quantity
}

// Confirmation is one owner's claimed approval of the transaction.
type Confirmation struct {
	Owner          common.Address
	Signature      []byte
	SubmissionDate time.Time
}

// CallParam is one ABI parameter of a decoded call, possibly a nested
// tuple (spec §4.5).
type CallParam struct {
	Name  string
	Type  string
	Value interface{}
}

// DecodedCall is one node of the (possibly nested) decoded-calldata tree
// supplied alongside the transaction. For multiSend, ValueDecoded holds
// the inner transactions.
type DecodedCall struct {
	Method        string
	Params        []CallParam
	ValueDecoded  []DecodedInnerTx
}

// DecodedInnerTx is one inner transaction inside a multiSend's
// valueDecoded array.
type DecodedInnerTx struct {
	To        *common.Address
	Value     *Quantity
	Operation *Operation
	Method    *string
	Params    []CallParam
	RawData   []byte
}

// StorageProof is one proven (or non-included) storage slot.
type StorageProof struct {
	Key   []byte // left-padded to 32 bytes by the schema validator
	Value []byte // normalized to 32-byte zero-padded form
	Nodes [][]byte
}

// AccountProof proves an account's inclusion (or, never, exclusion) in
// the state trie at a given root.
type AccountProof struct {
	Address      common.Address
	Balance      *big.Int
	Nonce        uint64
	CodeHash     common.Hash
	StorageHash  common.Hash
	Nodes        [][]byte
	StorageProof []StorageProof
}

// DecodedPolicy is the claimed interpretation of the Safe's storage
// layout (spec §4.4.1): one canonical value per proven slot.
type DecodedPolicy struct {
	Owners          []common.Address
	Threshold       uint64
	Nonce           uint64
	Modules         []common.Address
	Guard           common.Address
	FallbackHandler common.Address
	Singleton       common.Address
}

// OnchainPolicyProof is the optional MPT-backed proof of the multisig's
// on-chain configuration (spec §3, §4.4.2).
type OnchainPolicyProof struct {
	BlockNumber   uint64
	StateRoot     common.Hash
	AccountProof  AccountProof
	DecodedPolicy DecodedPolicy
}

// LogEntry is one emitted event inside a Simulation.
type LogEntry struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// StateDiffEntry is one before/after storage slot change inside a
// Simulation.
type StateDiffEntry struct {
	Address common.Address
	Key     common.Hash
	Before  common.Hash
	After   common.Hash
}

// Simulation is the optional execution-simulation record (spec §3, §4.6).
// TrustClassification is left Unclassified by Parse; pkg/simulation does
// not write it and reports its own classification in simulation.Result.
type Simulation struct {
	Success            bool
	ReturnData         []byte
	HasReturnData      bool
	GasUsed            Quantity
	Logs               []LogEntry
	StateDiffs         []StateDiffEntry
	HasStateDiffs      bool
	BlockNumber        uint64
	BlockTimestamp     *time.Time
	TrustClassification trust.Classification
}

// ConsensusMode is the closed set of consensus-light-client shapes
// (spec §3).
type ConsensusMode string

const (
	ConsensusModeBeacon  ConsensusMode = "beacon"
	ConsensusModeOpstack ConsensusMode = "opstack"
	ConsensusModeLinea   ConsensusMode = "linea"
)

// ConsensusProof is the optional (v1.2+) consensus-light-client envelope
// (spec §3). Exactly one of the beacon fields or ProofPayload is
// populated, tagged by Mode.
type ConsensusProof struct {
	Mode        ConsensusMode
	StateRoot   common.Hash
	BlockNumber uint64

	// Populated when Mode == beacon.
	Bootstrap      []byte
	Updates        []byte
	FinalityUpdate []byte
	CheckpointRoot common.Hash

	// Populated when Mode != beacon.
	ProofPayload string
}

// Sources carries the provenance URLs the package declares (not trusted,
// informational only).
type Sources struct {
	SafeAPIURL     string
	TransactionURL string
}

// Evidence is the fully parsed, immutable Evidence Package (spec §3).
// Once returned by Parse, no field is ever mutated by a downstream
// component; every subsystem takes the fields it needs by value or
// immutable borrow (spec §9).
type Evidence struct {
	Version               Version
	ChainID               uint64
	SafeAddress            common.Address
	SafeTxHash             common.Hash
	EthereumTxHash         *common.Hash
	ConfirmationsRequired  uint64
	Confirmations          []Confirmation
	Transaction            Transaction
	DataDecoded            *DecodedCall
	Sources                Sources
	PackagedAt             time.Time

	OnchainPolicyProof *OnchainPolicyProof
	Simulation         *Simulation
	ConsensusProof     *ConsensusProof
	ExportContract     []byte // opaque, forward-compatible
}
