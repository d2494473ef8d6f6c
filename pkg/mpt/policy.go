package mpt

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

// Safe's fixed storage slots (spec §4.4.1). Owners and modules live in
// sentinel-linked-list mappings rooted at slots 1 and 2; the rest are
// scalar slots.
const (
	SlotSingleton     = 0
	SlotModules       = 1
	SlotOwners        = 2
	SlotOwnerCount    = 3
	SlotThreshold     = 4
	SlotNonce         = 5
)

// SentinelAddress is the sentinel value (address(0x1)) Safe's linked
// lists begin and end at.
var SentinelAddress = common.HexToAddress("0x0000000000000000000000000000000000000001")

// guardSlot and fallbackHandlerSlot are keccak256 of the string literals
// Safe's contracts use for these out-of-band slots (spec §4.4.1): they
// are not sequential with the fixed slots above, by the same convention
// as EIP-1967 proxy slots.
var (
	guardSlot           = crypto.Keccak256Hash([]byte("guard_manager.guard.address"))
	fallbackHandlerSlot = crypto.Keccak256Hash([]byte("fallback_manager.handler.address"))
)

// GuardSlot returns the storage slot Safe's GuardManager stores its
// guard address at.
func GuardSlot() common.Hash { return guardSlot }

// FallbackHandlerSlot returns the storage slot Safe's FallbackManager
// stores its fallback handler address at.
func FallbackHandlerSlot() common.Hash { return fallbackHandlerSlot }

// mappingSlot computes the storage slot of mapping[key] for a Solidity
// mapping declared at slot slotNum: keccak256(abi.encode(key, slotNum))
// (spec §4.4.1, "mapping slot").
func mappingSlot(key common.Address, slotNum uint64) common.Hash {
	buf := make([]byte, 64)
	copy(buf[12:32], key.Bytes())
	new(big.Int).SetUint64(slotNum).FillBytes(buf[32:64])
	return crypto.Keccak256Hash(buf)
}

// OwnersListSlot returns the slot holding owner's successor pointer in
// Safe's owners sentinel linked list.
func OwnersListSlot(owner common.Address) common.Hash {
	return mappingSlot(owner, SlotOwners)
}

// ModulesListSlot returns the slot holding module's successor pointer in
// Safe's modules sentinel linked list.
func ModulesListSlot(module common.Address) common.Hash {
	return mappingSlot(module, SlotModules)
}

// LinkedListWalk holds the proven sequence of entries in a sentinel
// linked list and whether it correctly terminates back at the sentinel.
type LinkedListWalk struct {
	Entries    []common.Address
	ClosedLoop bool
}

// entrySlot looks up a proven 32-byte value for slot among storageProof
// entries, keyed by the slot's secure trie key (spec §4.4, "key
// normalization": proofs are matched by the slot's keccak256, not by
// the raw slot number).
func entrySlot(slot common.Hash, proof map[[32]byte][]byte) ([]byte, bool) {
	key := [32]byte(crypto.Keccak256Hash(slot.Bytes()))
	v, ok := proof[key]
	return v, ok
}

// WalkSentinelList reconstructs a Safe owners/modules linked list purely
// from a proven set of successor slots, starting at the sentinel and
// following each successor pointer until it returns to the sentinel or
// the bound is exhausted. proof maps a storage slot's secure key to its
// proven 32-byte value.
//
// bound guards against a malformed or adversarial proof describing a
// list that never closes; it should be set to a small multiple of the
// claimed owner/module count, never to the proof's own claimed length.
func WalkSentinelList(listSlotFor func(common.Address) common.Hash, proof map[[32]byte][]byte, bound int) (LinkedListWalk, error) {
	walk := LinkedListWalk{}
	current := SentinelAddress
	for i := 0; i < bound; i++ {
		slot := listSlotFor(current)
		value, ok := entrySlot(slot, proof)
		if !ok {
			return walk, verrors.New(verrors.CodeMPTMalformedProof, "linked-list successor slot was not proven").
				WithContext("predecessor", current.Hex())
		}
		next := common.BytesToAddress(value)
		if next == SentinelAddress {
			walk.ClosedLoop = true
			return walk, nil
		}
		if next == (common.Address{}) {
			// Solidity returns the zero address for an uninitialized
			// mapping slot, so an empty list may terminate either as
			// SENTINEL -> SENTINEL or SENTINEL -> zero (spec §9,
			// "sentinel linked lists"). A zero successor anywhere past
			// the first hop means a real entry's pointer was never set.
			if current == SentinelAddress && i == 0 {
				walk.ClosedLoop = true
				return walk, nil
			}
			return walk, verrors.New(verrors.CodeMPTMalformedProof, "linked list points at the zero address without closing")
		}
		walk.Entries = append(walk.Entries, next)
		current = next
	}
	return walk, verrors.New(verrors.CodeMPTStepLimitExceeded, "linked-list walk exceeded its bound without closing")
}

// CheckID is the closed vocabulary of named policy-proof checks a
// VerificationReport enumerates (spec §4.4.2).
type CheckID string

const (
	CheckAddressBinding              CheckID = "address-binding"
	CheckAccountProof                CheckID = "account-proof"
	CheckStorageProofNonce           CheckID = "storage-proof:nonce"
	CheckStorageProofThreshold       CheckID = "storage-proof:threshold"
	CheckStorageProofSingleton       CheckID = "storage-proof:singleton"
	CheckStorageProofOwnerCount      CheckID = "storage-proof:ownerCount"
	CheckStorageProofGuard           CheckID = "storage-proof:guard"
	CheckStorageProofFallbackHandler CheckID = "storage-proof:fallbackHandler"
	CheckDecodedFieldOwners          CheckID = "decoded-field:owners"
	CheckDecodedFieldModules         CheckID = "decoded-field:modules"
	CheckOwnersLinkedList            CheckID = "owners-linked-list"
	CheckModulesLinkedList           CheckID = "modules-linked-list"
	CheckThresholdVsConfirms         CheckID = "threshold-vs-confirmations"
	CheckConsensusProofAlign         CheckID = "consensus-proof-alignment"
)

// Check is one named, pass/fail result contributing to a policy proof's
// overall verdict.
type Check struct {
	ID      CheckID
	Passed  bool
	Message string
}
