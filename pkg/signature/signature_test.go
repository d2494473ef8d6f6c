package signature

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, key []byte, digest common.Hash) []byte {
	t.Helper()
	priv, err := crypto.ToECDSA(key)
	require.NoError(t, err)
	sig, err := crypto.Sign(digest.Bytes(), priv)
	require.NoError(t, err)
	return sig
}

func testKeyAndAddress(t *testing.T) ([]byte, common.Address) {
	t.Helper()
	key := make([]byte, 32)
	key[31] = 0x01
	priv, err := crypto.ToECDSA(key)
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(priv.PublicKey)
}

func TestVerify_StandardECDSA_ValidAndMatches(t *testing.T) {
	key, addr := testKeyAndAddress(t)
	digest := crypto.Keccak256Hash([]byte("safeTxHash fixture"))
	sig := sign(t, key, digest)
	sig[64] += 27 // crypto.Sign returns recovery id 0/1; spec uses 27/28

	res := Verify(addr, digest, sig)
	assert.Equal(t, StatusValid, res.Status)
	assert.True(t, res.OwnerMatch)
}

func TestVerify_StandardECDSA_RecoversDifferentOwner(t *testing.T) {
	key, _ := testKeyAndAddress(t)
	other := common.HexToAddress("0x9999999999999999999999999999999999999999")
	digest := crypto.Keccak256Hash([]byte("safeTxHash fixture"))
	sig := sign(t, key, digest)
	sig[64] += 27

	res := Verify(other, digest, sig)
	assert.Equal(t, StatusInvalid, res.Status)
	assert.False(t, res.OwnerMatch)
	assert.NotEqual(t, other, res.Recovered)
}

func TestVerify_EthSignWrapped_Valid(t *testing.T) {
	key, addr := testKeyAndAddress(t)
	digest := crypto.Keccak256Hash([]byte("safeTxHash fixture"))
	wrapped := crypto.Keccak256Hash([]byte(ethSignedMessagePrefix), digest.Bytes())
	sig := sign(t, key, wrapped)
	sig[64] += 31 // recovery id 0 -> v=31

	res := Verify(addr, digest, sig)
	assert.Equal(t, StatusValid, res.Status)
	assert.True(t, res.OwnerMatch)
}

func TestVerify_ContractSignatureUnsupported(t *testing.T) {
	_, addr := testKeyAndAddress(t)
	digest := crypto.Keccak256Hash([]byte("x"))
	sig := make([]byte, 65)
	sig[64] = 0
	res := Verify(addr, digest, sig)
	assert.Equal(t, StatusUnsupported, res.Status)
	assert.Contains(t, res.Reason, "contract signature")
}

func TestVerify_PreApprovedHashUnsupported(t *testing.T) {
	_, addr := testKeyAndAddress(t)
	digest := crypto.Keccak256Hash([]byte("x"))
	sig := make([]byte, 65)
	sig[64] = 1
	res := Verify(addr, digest, sig)
	assert.Equal(t, StatusUnsupported, res.Status)
	assert.Contains(t, res.Reason, "pre-approved hash")
}

func TestVerify_WrongLengthUnsupported(t *testing.T) {
	_, addr := testKeyAndAddress(t)
	digest := crypto.Keccak256Hash([]byte("x"))
	res := Verify(addr, digest, []byte{1, 2, 3})
	assert.Equal(t, StatusUnsupported, res.Status)
}

func TestVerify_UnrecognizedVByteUnsupported(t *testing.T) {
	_, addr := testKeyAndAddress(t)
	digest := crypto.Keccak256Hash([]byte("x"))
	sig := make([]byte, 65)
	sig[64] = 99
	res := Verify(addr, digest, sig)
	assert.Equal(t, StatusUnsupported, res.Status)
}

func TestSummarize_TalliesEachStatus(t *testing.T) {
	results := []Result{
		{Status: StatusValid},
		{Status: StatusValid},
		{Status: StatusInvalid},
		{Status: StatusUnsupported},
	}
	assert.Equal(t, Summary{Total: 4, Valid: 2, Invalid: 1, Unsupported: 1}, Summarize(results))
}

func TestByOwner_GroupsByClaimedAddress(t *testing.T) {
	owner1 := common.HexToAddress("0x1111111111111111111111111111111111111111")
	owner2 := common.HexToAddress("0x2222222222222222222222222222222222222222")
	results := []Result{
		{Owner: owner1, Status: StatusValid},
		{Owner: owner2, Status: StatusUnsupported},
		{Owner: owner1, Status: StatusInvalid},
	}
	grouped := ByOwner(results)
	require.Len(t, grouped, 2)
	assert.Len(t, grouped[owner1], 2)
	assert.Len(t, grouped[owner2], 1)
}

func TestVerifyAll_PreservesInputOrder(t *testing.T) {
	key1, addr1 := testKeyAndAddress(t)
	digest := crypto.Keccak256Hash([]byte("order fixture"))
	sig1 := sign(t, key1, digest)
	sig1[64] += 27

	addr2 := common.HexToAddress("0x1234567890123456789012345678901234567890")
	sig2 := make([]byte, 65)
	sig2[64] = 0 // unsupported

	confirmations := []Confirmation{
		{Owner: addr2, Signature: sig2},
		{Owner: addr1, Signature: sig1},
	}
	results, err := VerifyAll(context.Background(), digest, confirmations)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, addr2, results[0].Owner)
	assert.Equal(t, StatusUnsupported, results[0].Status)
	assert.Equal(t, addr1, results[1].Owner)
	assert.Equal(t, StatusValid, results[1].Status)
}
