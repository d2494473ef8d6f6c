package mpt

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

// account is the RLP shape of a state trie leaf value: [nonce, balance,
// storageHash, codeHash] (spec §4.4, "account leaf").
type account struct {
	Nonce       uint64
	Balance     *big.Int
	StorageHash common.Hash
	CodeHash    common.Hash
}

func decodeAccount(raw []byte) (account, error) {
	var a account
	if err := rlp.DecodeBytes(raw, &a); err != nil {
		return account{}, verrors.New(verrors.CodeMPTMalformedProof, "could not decode account leaf: "+err.Error())
	}
	return a, nil
}

// VerifyAccount verifies that address's claimed balance/nonce/codeHash/
// storageHash are all consistent with an inclusion proof against
// stateRoot (spec §4.4.2, "account proof").
func VerifyAccount(stateRoot common.Hash, address common.Address, proof [][]byte, claimedBalance *big.Int, claimedNonce uint64, claimedCodeHash, claimedStorageHash common.Hash) error {
	key := SecureKey(address.Bytes())
	result, err := Verify(stateRoot, key, proof)
	if err != nil {
		return err
	}
	if !result.Included {
		return verrors.New(verrors.CodeMPTAddressMismatch, "address is not included in the state trie at the claimed root")
	}

	acc, err := decodeAccount(result.Value)
	if err != nil {
		return err
	}

	if acc.Nonce != claimedNonce {
		return verrors.Newf(verrors.CodeMPTAddressMismatch, "proven nonce %d does not match claimed nonce %d", acc.Nonce, claimedNonce)
	}
	if claimedBalance == nil {
		claimedBalance = big.NewInt(0)
	}
	if acc.Balance.Cmp(claimedBalance) != 0 {
		return verrors.Newf(verrors.CodeMPTAddressMismatch, "proven balance %s does not match claimed balance %s", acc.Balance, claimedBalance)
	}
	if acc.CodeHash != claimedCodeHash {
		return verrors.New(verrors.CodeMPTAddressMismatch, "proven codeHash does not match claimed codeHash")
	}
	if acc.StorageHash != claimedStorageHash {
		return verrors.New(verrors.CodeMPTAddressMismatch, "proven storageHash does not match claimed storageHash")
	}
	return nil
}

// VerifyStorageSlot verifies one storage-proof entry against
// storageRoot, handling both inclusion (non-zero value) and
// non-inclusion (the claimed value must then be zero, spec §4.4,
// "non-inclusion proofs").
func VerifyStorageSlot(storageRoot common.Hash, slotKey []byte, claimedValue []byte, proof [][]byte) error {
	key := SecureKey(slotKey)

	if storageRoot == EmptyTrieRoot {
		if !isZero(claimedValue) {
			return verrors.New(verrors.CodeMPTEmptyProofRejected, "storage root is the empty trie root but a non-zero value was claimed")
		}
		return nil
	}

	if len(proof) == 0 {
		return verrors.New(verrors.CodeMPTEmptyProofRejected, "empty proof against a non-empty trie root cannot prove a zero value (empty-proof bypass closed)")
	}

	result, err := Verify(storageRoot, key, proof)
	if err != nil {
		return err
	}
	if !result.Included {
		if !isZero(claimedValue) {
			return verrors.New(verrors.CodeMPTAddressMismatch, "storage slot is not included in the trie but a non-zero value was claimed")
		}
		return nil
	}

	var decoded []byte
	if err := rlp.DecodeBytes(result.Value, &decoded); err != nil {
		return verrors.New(verrors.CodeMPTMalformedProof, "could not decode storage value: "+err.Error())
	}
	if !bytes32Equal(decoded, claimedValue) {
		return verrors.New(verrors.CodeMPTAddressMismatch, "proven storage value does not match claimed value")
	}
	return nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// bytes32Equal compares two byte slices, treating a short RLP-encoded
// scalar (leading zero bytes trimmed) as equal to its left-padded
// 32-byte form.
func bytes32Equal(a, b []byte) bool {
	ta, tb := trimLeadingZeros(a), trimLeadingZeros(b)
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}
