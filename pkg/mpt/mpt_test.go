package mpt

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeHP is the test-side mirror of decodeHP, used to build synthetic
// trie nodes for the fixtures below.
func encodeHP(nibbles []byte, isLeaf bool) []byte {
	flag := byte(0)
	if isLeaf {
		flag = 2
	}
	odd := len(nibbles)%2 == 1
	var out []byte
	if odd {
		out = append(out, (flag+1)<<4|nibbles[0])
		nibbles = nibbles[1:]
	} else {
		out = append(out, flag<<4)
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

func rlpList(items ...[]byte) []byte {
	raws := make([]interface{}, len(items))
	for i, it := range items {
		raws[i] = it
	}
	enc, err := rlp.EncodeToBytes(raws)
	if err != nil {
		panic(err)
	}
	return enc
}

func TestDecodeHP_LeafEven(t *testing.T) {
	nibbles := []byte{0x1, 0x2, 0x3, 0x4}
	hp := encodeHP(nibbles, true)
	gotNibbles, isLeaf, err := decodeHP(hp)
	require.NoError(t, err)
	assert.True(t, isLeaf)
	assert.Equal(t, nibbles, gotNibbles)
}

func TestDecodeHP_ExtensionOdd(t *testing.T) {
	nibbles := []byte{0x1, 0x2, 0x3}
	hp := encodeHP(nibbles, false)
	gotNibbles, isLeaf, err := decodeHP(hp)
	require.NoError(t, err)
	assert.False(t, isLeaf)
	assert.Equal(t, nibbles, gotNibbles)
}

func TestVerify_SingleLeafInclusion(t *testing.T) {
	key := crypto.Keccak256([]byte("account-key"))
	nibbles := toNibbles(key)
	value := []byte{0xde, 0xad, 0xbe, 0xef}

	hp := encodeHP(nibbles, true)
	leafNode := rlpList(hp, value)
	root := crypto.Keccak256Hash(leafNode)

	result, err := Verify(root, key, [][]byte{leafNode})
	require.NoError(t, err)
	assert.True(t, result.Included)
	assert.Equal(t, value, result.Value)
}

func TestVerify_NonInclusionDivergentPath(t *testing.T) {
	key := crypto.Keccak256([]byte("account-key"))
	otherKey := crypto.Keccak256([]byte("different-key"))
	nibbles := toNibbles(otherKey)
	value := []byte{0x01}

	hp := encodeHP(nibbles, true)
	leafNode := rlpList(hp, value)
	root := crypto.Keccak256Hash(leafNode)

	result, err := Verify(root, key, [][]byte{leafNode})
	require.NoError(t, err)
	assert.False(t, result.Included)
}

func TestVerify_RejectsHashMismatch(t *testing.T) {
	key := crypto.Keccak256([]byte("account-key"))
	nibbles := toNibbles(key)
	leafNode := rlpList(encodeHP(nibbles, true), []byte{0x01})
	wrongRoot := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

	_, err := Verify(wrongRoot, key, [][]byte{leafNode})
	assert.Error(t, err)
}

func TestVerify_RejectsProofExhaustion(t *testing.T) {
	key := crypto.Keccak256([]byte("account-key"))
	root := crypto.Keccak256Hash([]byte("not actually in the proof list"))
	_, err := Verify(root, key, nil)
	assert.Error(t, err)
}

func TestVerifyAccount_Matches(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	key := SecureKey(addr.Bytes())
	nibbles := toNibbles(key)

	acc := account{
		Nonce:       7,
		Balance:     big.NewInt(1000),
		StorageHash: common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222"),
		CodeHash:    crypto.Keccak256Hash(nil),
	}
	accountRLP, err := rlp.EncodeToBytes(acc)
	require.NoError(t, err)

	leafNode := rlpList(encodeHP(nibbles, true), accountRLP)
	root := crypto.Keccak256Hash(leafNode)

	err = VerifyAccount(root, addr, [][]byte{leafNode}, acc.Balance, acc.Nonce, acc.CodeHash, acc.StorageHash)
	assert.NoError(t, err)
}

func TestVerifyAccount_RejectsNonceMismatch(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	key := SecureKey(addr.Bytes())
	nibbles := toNibbles(key)

	acc := account{Nonce: 7, Balance: big.NewInt(0), StorageHash: common.Hash{}, CodeHash: crypto.Keccak256Hash(nil)}
	accountRLP, err := rlp.EncodeToBytes(acc)
	require.NoError(t, err)
	leafNode := rlpList(encodeHP(nibbles, true), accountRLP)
	root := crypto.Keccak256Hash(leafNode)

	err = VerifyAccount(root, addr, [][]byte{leafNode}, big.NewInt(0), 99, acc.CodeHash, acc.StorageHash)
	assert.Error(t, err)
}

func TestVerifyStorageSlot_EmptyTrieBypassAcceptsZero(t *testing.T) {
	err := VerifyStorageSlot(EmptyTrieRoot, []byte{0x01}, make([]byte, 32), nil)
	assert.NoError(t, err)
}

func TestVerifyStorageSlot_EmptyTrieBypassRejectsNonZero(t *testing.T) {
	claimed := make([]byte, 32)
	claimed[31] = 1
	err := VerifyStorageSlot(EmptyTrieRoot, []byte{0x01}, claimed, nil)
	assert.Error(t, err)
}

func TestVerifyStorageSlot_RejectsEmptyProofAgainstNonEmptyRoot(t *testing.T) {
	nonEmptyRoot := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111a")
	err := VerifyStorageSlot(nonEmptyRoot, []byte{0x04}, make([]byte, 32), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty")
}

func TestWalkSentinelList_ClosesLoop(t *testing.T) {
	ownerA := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	ownerB := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	proof := map[[32]byte][]byte{}
	setSlot := func(owner common.Address, next common.Address) {
		slot := OwnersListSlot(owner)
		key := [32]byte(crypto.Keccak256Hash(slot.Bytes()))
		proof[key] = common.LeftPadBytes(next.Bytes(), 32)
	}
	setSlot(SentinelAddress, ownerA)
	setSlot(ownerA, ownerB)
	setSlot(ownerB, SentinelAddress)

	walk, err := WalkSentinelList(OwnersListSlot, proof, 10)
	require.NoError(t, err)
	assert.True(t, walk.ClosedLoop)
	assert.Equal(t, []common.Address{ownerA, ownerB}, walk.Entries)
}

func TestWalkSentinelList_BoundExceeded(t *testing.T) {
	proof := map[[32]byte][]byte{}
	owner := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	setSlot := func(from, to common.Address) {
		slot := OwnersListSlot(from)
		key := [32]byte(crypto.Keccak256Hash(slot.Bytes()))
		proof[key] = common.LeftPadBytes(to.Bytes(), 32)
	}
	setSlot(SentinelAddress, owner)
	setSlot(owner, owner) // self-loop, never returns to sentinel

	_, err := WalkSentinelList(OwnersListSlot, proof, 3)
	assert.Error(t, err)
}
