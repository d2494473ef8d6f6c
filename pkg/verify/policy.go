package verify

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/safe-evidence-verifier/pkg/evidence"
	"github.com/certen/safe-evidence-verifier/pkg/mpt"
	"github.com/certen/safe-evidence-verifier/pkg/trust"
)

// PolicyProofResult is the outcome of verifying an Evidence Package's
// on-chain policy proof (spec §4.4.2): every named check it ran, the
// owners/modules it reconstructed, and the trust level the package's
// owners/threshold claim ultimately earned.
type PolicyProofResult struct {
	Checks         []mpt.Check
	Owners         []common.Address
	Modules        []common.Address
	Valid          bool
	Classification trust.Classification
}

func addCheck(checks *[]mpt.Check, id mpt.CheckID, err error) {
	if err != nil {
		*checks = append(*checks, mpt.Check{ID: id, Passed: false, Message: err.Error()})
		return
	}
	*checks = append(*checks, mpt.Check{ID: id, Passed: true})
}

// slotKeyFor computes the 32-byte left-padded representation of a fixed
// scalar storage slot number.
func slotKeyFor(slotNum uint64) []byte {
	buf := make([]byte, 32)
	new(big.Int).SetUint64(slotNum).FillBytes(buf)
	return buf
}

// slotKeyForHash returns the raw 32-byte key for an out-of-band slot
// identified by its own keccak256 (guard/fallback handler slots).
func slotKeyForHash(h common.Hash) []byte {
	return h.Bytes()
}

// VerifyPolicyProof checks an on-chain policy proof against its claimed
// state root, reconstructing the owners and modules sentinel lists
// purely from proven storage slots rather than trusting the package's
// declared DecodedPolicy fields directly (spec §4.4.2). confirmationsRequired
// is the package's declared confirmation count, cross-checked against the
// proven threshold (spec §4.4.2 step 6).
func VerifyPolicyProof(safeAddress common.Address, proof *evidence.OnchainPolicyProof, confirmationsRequired uint64) PolicyProofResult {
	var checks []mpt.Check

	if proof.AccountProof.Address != safeAddress {
		addCheck(&checks, mpt.CheckAddressBinding, errAddressBindingMismatch(proof.AccountProof.Address, safeAddress))
		return PolicyProofResult{Checks: checks, Classification: trust.Unclassified}
	}
	addCheck(&checks, mpt.CheckAddressBinding, nil)

	accountErr := mpt.VerifyAccount(
		proof.StateRoot,
		proof.AccountProof.Address,
		proof.AccountProof.Nodes,
		proof.AccountProof.Balance,
		proof.AccountProof.Nonce,
		proof.AccountProof.CodeHash,
		proof.AccountProof.StorageHash,
	)
	addCheck(&checks, mpt.CheckAccountProof, accountErr)
	if accountErr != nil {
		return PolicyProofResult{Checks: checks, Classification: trust.Unclassified}
	}

	storageRoot := proof.AccountProof.StorageHash
	verified := make(map[[32]byte][]byte)
	for _, sp := range proof.AccountProof.StorageProof {
		if err := mpt.VerifyStorageSlot(storageRoot, sp.Key, sp.Value, sp.Nodes); err != nil {
			continue // unverified slots are simply absent from the map, never trusted by value
		}
		key := [32]byte(crypto.Keccak256Hash(sp.Key))
		verified[key] = sp.Value
	}

	thresholdErr := checkScalarSlot(verified, slotKeyFor(mpt.SlotThreshold), proof.DecodedPolicy.Threshold)
	addCheck(&checks, mpt.CheckStorageProofThreshold, thresholdErr)

	nonceErr := checkScalarSlot(verified, slotKeyFor(mpt.SlotNonce), proof.DecodedPolicy.Nonce)
	addCheck(&checks, mpt.CheckStorageProofNonce, nonceErr)

	singletonErr := checkAddressSlot(verified, slotKeyFor(mpt.SlotSingleton), proof.DecodedPolicy.Singleton)
	addCheck(&checks, mpt.CheckStorageProofSingleton, singletonErr)

	ownerCountErr := checkScalarSlot(verified, slotKeyFor(mpt.SlotOwnerCount), uint64(len(proof.DecodedPolicy.Owners)))
	addCheck(&checks, mpt.CheckStorageProofOwnerCount, ownerCountErr)

	guardErr := checkAddressSlot(verified, slotKeyForHash(mpt.GuardSlot()), proof.DecodedPolicy.Guard)
	addCheck(&checks, mpt.CheckStorageProofGuard, guardErr)

	fallbackErr := checkAddressSlot(verified, slotKeyForHash(mpt.FallbackHandlerSlot()), proof.DecodedPolicy.FallbackHandler)
	addCheck(&checks, mpt.CheckStorageProofFallbackHandler, fallbackErr)

	ownersWalk, ownersErr := mpt.WalkSentinelList(mpt.OwnersListSlot, verified, len(proof.DecodedPolicy.Owners)*2+4)
	addCheck(&checks, mpt.CheckOwnersLinkedList, ownersErr)

	modulesWalk, modulesErr := mpt.WalkSentinelList(mpt.ModulesListSlot, verified, len(proof.DecodedPolicy.Modules)*2+4)
	addCheck(&checks, mpt.CheckModulesLinkedList, modulesErr)

	ownersMatch := addressSetsEqual(ownersWalk.Entries, proof.DecodedPolicy.Owners)
	addCheck(&checks, mpt.CheckDecodedFieldOwners, boolErr(ownersMatch, "reconstructed owners list does not match decodedPolicy.owners"))

	modulesMatch := addressSetsEqual(modulesWalk.Entries, proof.DecodedPolicy.Modules)
	addCheck(&checks, mpt.CheckDecodedFieldModules, boolErr(modulesMatch, "reconstructed modules list does not match decodedPolicy.modules"))

	structurallySound := true
	for _, c := range checks {
		if !c.Passed {
			structurallySound = false
			break
		}
	}
	if !structurallySound {
		return PolicyProofResult{
			Checks:         checks,
			Owners:         ownersWalk.Entries,
			Modules:        modulesWalk.Entries,
			Valid:          false,
			Classification: trust.Unclassified,
		}
	}

	// Every cryptographic check passed; the proof is internally sound.
	// Whether it earns proof-verified still depends on whether it agrees
	// with what the package itself declares (spec §4.4.2 step 6): a valid
	// proof that contradicts confirmationsRequired is real but
	// untrustworthy as a source of truth for the package's threshold.
	thresholdMatch := proof.DecodedPolicy.Threshold == confirmationsRequired
	addCheck(&checks, mpt.CheckThresholdVsConfirms, boolErr(thresholdMatch, "proven threshold does not match the package's declared confirmationsRequired"))

	if !thresholdMatch {
		return PolicyProofResult{
			Checks:         checks,
			Owners:         ownersWalk.Entries,
			Modules:        modulesWalk.Entries,
			Valid:          false,
			Classification: trust.RPCSourced,
		}
	}

	return PolicyProofResult{
		Checks:         checks,
		Owners:         ownersWalk.Entries,
		Modules:        modulesWalk.Entries,
		Valid:          true,
		Classification: trust.ProofVerified,
	}
}

func checkScalarSlot(verified map[[32]byte][]byte, slotKey []byte, claimed uint64) error {
	key := [32]byte(crypto.Keccak256Hash(slotKey))
	value, ok := verified[key]
	if !ok {
		return errSlotNotProven(slotKey)
	}
	got := new(big.Int).SetBytes(value)
	want := new(big.Int).SetUint64(claimed)
	if got.Cmp(want) != 0 {
		return errScalarMismatch(got, want)
	}
	return nil
}

func checkAddressSlot(verified map[[32]byte][]byte, slotKey []byte, claimed common.Address) error {
	key := [32]byte(crypto.Keccak256Hash(slotKey))
	value, ok := verified[key]
	if !ok {
		return errSlotNotProven(slotKey)
	}
	got := common.BytesToAddress(value)
	if got != claimed {
		return errAddressMismatch(got, claimed)
	}
	return nil
}

func addressSetsEqual(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[common.Address]int, len(a))
	for _, addr := range a {
		seen[addr]++
	}
	for _, addr := range b {
		if seen[addr] == 0 {
			return false
		}
		seen[addr]--
	}
	return true
}

func boolErr(ok bool, message string) error {
	if ok {
		return nil
	}
	return errPlain(message)
}
