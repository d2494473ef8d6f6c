// Package mpt verifies Merkle-Patricia Trie inclusion and non-inclusion
// proofs against a claimed state root (spec §4.4). Depth in an MPT proof
// is attacker-controlled input, so the walk is bounded and iterative —
// no recursion ever touches proof data, mirroring the bounded walk the
// teacher's merkle.VerifyProof uses for its own inclusion proofs.
package mpt

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

// EmptyTrieRoot is the well-known root hash of an empty Merkle-Patricia
// Trie: keccak256(rlp("")). A storage proof against this root is valid
// by construction and needs no proof nodes (spec §4.4, "empty-proof
// bypass").
var EmptyTrieRoot = common.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// nodeRef points at the next node to visit: either a 32-byte hash that
// must be looked up among the remaining proof nodes, or an inline
// RLP-encoded node embedded directly in its parent (spec §4.4, "inline
// children").
type nodeRef struct {
	isHash bool
	hash   common.Hash
	inline []byte
}

func isEmptyRef(raw rlp.RawValue) bool {
	return len(raw) == 1 && raw[0] == 0x80
}

// parseRef classifies one branch/extension child slot.
func parseRef(raw rlp.RawValue) (nodeRef, error) {
	if isEmptyRef(raw) {
		return nodeRef{}, nil
	}
	if content, _, err := rlp.SplitString(raw); err == nil {
		switch len(content) {
		case 0:
			return nodeRef{}, nil
		case 32:
			return nodeRef{isHash: true, hash: common.BytesToHash(content)}, nil
		default:
			return nodeRef{}, verrors.New(verrors.CodeMPTMalformedProof, "child hash reference is not 32 bytes")
		}
	}
	// Not a string: must be an inline list node (<32 bytes RLP encoding).
	if _, _, err := rlp.SplitList(raw); err != nil {
		return nodeRef{}, verrors.New(verrors.CodeMPTMalformedProof, "child slot is neither a hash string nor an inline list")
	}
	return nodeRef{inline: []byte(raw)}, nil
}

// decodeNodeItems splits a node's RLP encoding into its top-level items,
// each kept as a raw sub-encoding so callers can re-dispatch on whether
// an item is itself a string or a list.
func decodeNodeItems(raw []byte) ([]rlp.RawValue, error) {
	var items []rlp.RawValue
	if err := rlp.DecodeBytes(raw, &items); err != nil {
		return nil, verrors.New(verrors.CodeMPTMalformedProof, "could not decode trie node: "+err.Error())
	}
	return items, nil
}

func rawString(raw rlp.RawValue) ([]byte, error) {
	content, _, err := rlp.SplitString(raw)
	if err != nil {
		return nil, verrors.New(verrors.CodeMPTMalformedProof, "expected an RLP string item")
	}
	return content, nil
}

// toNibbles expands a byte slice into its big-endian nibble sequence.
func toNibbles(b []byte) []byte {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = v >> 4
		out[i*2+1] = v & 0x0f
	}
	return out
}

// decodeHP decodes a hex-prefix encoded path (spec §4.4, "HP-encoding"),
// returning the path's nibbles and whether the node it belongs to is a
// leaf (true) or an extension (false).
func decodeHP(hp []byte) (nibbles []byte, isLeaf bool, err error) {
	if len(hp) == 0 {
		return nil, false, verrors.New(verrors.CodeMPTMalformedProof, "empty hex-prefix path")
	}
	first := hp[0]
	flag := first >> 4
	isLeaf = flag == 2 || flag == 3
	odd := flag == 1 || flag == 3
	switch flag {
	case 0, 1, 2, 3:
	default:
		return nil, false, verrors.New(verrors.CodeMPTMalformedProof, "invalid hex-prefix flag nibble")
	}

	all := toNibbles(hp)
	if odd {
		nibbles = all[1:]
	} else {
		nibbles = all[2:]
	}
	return nibbles, isLeaf, nil
}

// VerifyResult is the outcome of walking a proof to its terminal value.
type VerifyResult struct {
	// Included is true when the key was found with a non-empty value.
	Included bool
	// Value is the raw RLP value at the key (an account leaf's RLP list
	// for an account proof, or a storage slot's RLP-encoded scalar for a
	// storage proof). Nil when Included is false.
	Value []byte
}

// maxWalkSteps bounds how many nodes a single verification may visit,
// independent of the proof's own length, so a cyclic or oversized
// attacker-supplied proof cannot force an unbounded walk.
func maxWalkSteps(proofLen int) int {
	return proofLen + 64
}

// Verify walks proof from root against key (already the 32-byte secure
// trie key, i.e. keccak256 of the raw address or storage slot) and
// returns whether it terminates in an inclusion or a non-inclusion.
//
// The walk never recurses: each iteration either advances to a
// proof-list entry (verifying its hash matches the reference first) or
// to an inline child already held in memory, and the loop is hard
// bounded by maxWalkSteps regardless of what the proof claims about its
// own depth.
func Verify(root common.Hash, key []byte, proof [][]byte) (VerifyResult, error) {
	if len(key) != 32 {
		return VerifyResult{}, verrors.New(verrors.CodeMPTMalformedProof, "key must be 32 bytes")
	}

	nibbles := toNibbles(key)
	pos := 0
	proofIdx := 0
	ref := nodeRef{isHash: true, hash: root}

	limit := maxWalkSteps(len(proof))
	for step := 0; step < limit; step++ {
		var raw []byte
		if ref.isHash {
			if proofIdx >= len(proof) {
				return VerifyResult{}, verrors.New(verrors.CodeMPTMalformedProof, "proof exhausted before reaching terminal node")
			}
			candidate := proof[proofIdx]
			if crypto.Keccak256Hash(candidate) != ref.hash {
				return VerifyResult{}, verrors.New(verrors.CodeMPTMalformedProof, "proof node hash does not match expected reference").
					WithContext("step", step).WithContext("proof_index", proofIdx)
			}
			raw = candidate
			proofIdx++
		} else {
			raw = ref.inline
		}

		items, err := decodeNodeItems(raw)
		if err != nil {
			return VerifyResult{}, err
		}

		switch len(items) {
		case 2:
			hp, err := rawString(items[0])
			if err != nil {
				return VerifyResult{}, err
			}
			pathNibbles, isLeaf, err := decodeHP(hp)
			if err != nil {
				return VerifyResult{}, err
			}
			if pos+len(pathNibbles) > len(nibbles) || !bytes.Equal(nibbles[pos:pos+len(pathNibbles)], pathNibbles) {
				return VerifyResult{Included: false}, nil
			}
			pos += len(pathNibbles)

			if isLeaf {
				if pos != len(nibbles) {
					return VerifyResult{Included: false}, nil
				}
				value, err := rawString(items[1])
				if err != nil {
					return VerifyResult{}, err
				}
				return VerifyResult{Included: len(value) > 0, Value: value}, nil
			}

			next, err := parseRef(items[1])
			if err != nil {
				return VerifyResult{}, err
			}
			if next.isHash == false && next.inline == nil {
				return VerifyResult{Included: false}, nil
			}
			ref = next

		case 17:
			if pos == len(nibbles) {
				value, err := rawString(items[16])
				if err != nil {
					return VerifyResult{}, err
				}
				return VerifyResult{Included: len(value) > 0, Value: value}, nil
			}
			nib := nibbles[pos]
			next, err := parseRef(items[nib])
			if err != nil {
				return VerifyResult{}, err
			}
			if !next.isHash && next.inline == nil {
				return VerifyResult{Included: false}, nil
			}
			pos++
			ref = next

		default:
			return VerifyResult{}, verrors.New(verrors.CodeMPTMalformedProof, fmt.Sprintf("trie node has %d items, expected 2 or 17", len(items)))
		}
	}

	return VerifyResult{}, verrors.New(verrors.CodeMPTStepLimitExceeded, "proof walk exceeded the step bound")
}

// SecureKey returns the trie key for raw, i.e. keccak256(raw) left-padded
// to 32 bytes — the "secure trie" transform go-ethereum state tries
// apply to both addresses and storage slots.
func SecureKey(raw []byte) []byte {
	h := crypto.Keccak256(raw)
	return h
}
