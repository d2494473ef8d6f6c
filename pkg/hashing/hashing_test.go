package hashing

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certen/safe-evidence-verifier/pkg/evidence"
)

// TestRecompute_ZeroedDeclaredHashDoesNotMatch recomputes the digest of an
// all-zero transaction on a fixed mainnet address and checks that it is
// non-zero and reported as not matching a zeroed declared hash. It does
// not compare against a known-answer digest.
func TestRecompute_ZeroedDeclaredHashDoesNotMatch(t *testing.T) {
	safeAddress := common.HexToAddress("0x9008D19f58AAbD9eD0D60971565AA8510560ab41")
	chainID := uint64(1)

	tx := evidence.Transaction{
		To:             common.HexToAddress("0x9008D19f58AAbD9eD0D60971565AA8510560ab41"),
		Value:          evidence.ZeroQuantity(),
		Data:           []byte{},
		Operation:      evidence.OperationCall,
		SafeTxGas:      evidence.ZeroQuantity(),
		BaseGas:        evidence.ZeroQuantity(),
		GasPrice:       evidence.ZeroQuantity(),
		GasToken:       common.Address{},
		RefundReceiver: common.Address{},
		Nonce:          evidence.ZeroQuantity(),
	}

	details := Recompute(chainID, safeAddress, tx, common.Hash{})
	require.NotEqual(t, common.Hash{}, details.SafeTxHash, "recomputation must produce a non-zero digest")
	assert.False(t, details.Match, "declared hash was intentionally zeroed in this fixture")
}

func TestDomainSeparator_IsStableForSameInputs(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	a := DomainSeparator(1, addr)
	b := DomainSeparator(1, addr)
	assert.Equal(t, a, b)
}

func TestDomainSeparator_ChangesWithChainID(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	mainnet := DomainSeparator(1, addr)
	polygon := DomainSeparator(137, addr)
	assert.NotEqual(t, mainnet, polygon)
}

func TestMessageHash_ChangesWithNonce(t *testing.T) {
	base := evidence.Transaction{
		To:             common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Value:          evidence.ZeroQuantity(),
		Data:           []byte{0xde, 0xad},
		Operation:      evidence.OperationCall,
		SafeTxGas:      evidence.ZeroQuantity(),
		BaseGas:        evidence.ZeroQuantity(),
		GasPrice:       evidence.ZeroQuantity(),
		GasToken:       common.Address{},
		RefundReceiver: common.Address{},
	}
	t0 := base
	t0.Nonce = evidence.ZeroQuantity()
	t1 := base
	nonceOne, err := evidence.ParseQuantity("1", true)
	require.NoError(t, err)
	t1.Nonce = nonceOne

	assert.NotEqual(t, MessageHash(t0), MessageHash(t1))
}

func TestRecompute_MatchTrueWhenDigestsEqual(t *testing.T) {
	addr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	tx := evidence.Transaction{
		To:        addr,
		Value:     evidence.ZeroQuantity(),
		Data:      []byte{},
		Operation: evidence.OperationCall,
		SafeTxGas: evidence.ZeroQuantity(),
		BaseGas:   evidence.ZeroQuantity(),
		GasPrice:  evidence.ZeroQuantity(),
		Nonce:     evidence.ZeroQuantity(),
	}
	want := Recompute(1, addr, tx, common.Hash{}).SafeTxHash
	got := Recompute(1, addr, tx, want)
	assert.True(t, got.Match)
}
