// Package hashing recomputes the EIP-712 safeTxHash from a Transaction's
// raw fields (spec §4.2). Nothing here trusts the package's declared
// safeTxHash: every signature check in pkg/signature is verified against
// the hash this package computes, never against the declared one.
package hashing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/safe-evidence-verifier/pkg/evidence"
)

// domainTypeHash is keccak256("EIP712Domain(uint256 chainId,address verifyingContract)").
// Safe's domain separator (since v1.3.0) omits name/version entirely.
var domainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))

// safeTxTypeHash is keccak256 of the SafeTx struct's canonical signature
// (spec §4.2).
var safeTxTypeHash = crypto.Keccak256Hash([]byte(
	"SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)",
))

// HashDetails carries every intermediate value of the recomputation so a
// report can show its work (spec §4.2, "hash recomputation detail").
type HashDetails struct {
	DomainSeparator common.Hash
	MessageHash     common.Hash
	SafeTxHash      common.Hash
	DeclaredHash    common.Hash
	Match           bool
}

// DomainSeparator computes the EIP-712 domain separator for a Safe at
// verifyingContract on chainID.
func DomainSeparator(chainID uint64, verifyingContract common.Address) common.Hash {
	buf := make([]byte, 0, 96)
	buf = append(buf, domainTypeHash.Bytes()...)
	buf = append(buf, leftPad32(new(big.Int).SetUint64(chainID).Bytes())...)
	buf = append(buf, leftPadAddress(verifyingContract)...)
	return crypto.Keccak256Hash(buf)
}

// MessageHash computes keccak256 of the ABI-encoded SafeTx struct per
// EIP-712's hashStruct (spec §4.2).
func MessageHash(tx evidence.Transaction) common.Hash {
	dataHash := crypto.Keccak256Hash(tx.Data)

	buf := make([]byte, 0, 32*10)
	buf = append(buf, safeTxTypeHash.Bytes()...)
	buf = append(buf, leftPadAddress(tx.To)...)
	buf = append(buf, leftPad32(tx.Value.BigInt().Bytes())...)
	buf = append(buf, dataHash.Bytes()...)
	buf = append(buf, leftPad32(big.NewInt(int64(tx.Operation)).Bytes())...)
	buf = append(buf, leftPad32(tx.SafeTxGas.BigInt().Bytes())...)
	buf = append(buf, leftPad32(tx.BaseGas.BigInt().Bytes())...)
	buf = append(buf, leftPad32(tx.GasPrice.BigInt().Bytes())...)
	buf = append(buf, leftPadAddress(tx.GasToken)...)
	buf = append(buf, leftPadAddress(tx.RefundReceiver)...)
	buf = append(buf, leftPad32(tx.Nonce.BigInt().Bytes())...)
	return crypto.Keccak256Hash(buf)
}

// Recompute runs the full EIP-712 recomputation pipeline (domain
// separator, message hash, final digest) and compares it against the
// package's declared safeTxHash.
func Recompute(chainID uint64, safeAddress common.Address, tx evidence.Transaction, declared common.Hash) HashDetails {
	domain := DomainSeparator(chainID, safeAddress)
	message := MessageHash(tx)

	buf := make([]byte, 0, 2+32+32)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, domain.Bytes()...)
	buf = append(buf, message.Bytes()...)
	digest := crypto.Keccak256Hash(buf)

	return HashDetails{
		DomainSeparator: domain,
		MessageHash:     message,
		SafeTxHash:      digest,
		DeclaredHash:    declared,
		Match:           digest == declared,
	}
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func leftPadAddress(a common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], a.Bytes())
	return out
}
