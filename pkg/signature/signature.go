// Package signature verifies owner signatures against a recomputed
// safeTxHash (spec §4.3). It never trusts a package's declared hash —
// callers always pass the digest pkg/hashing recomputed.
package signature

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

// Status is the closed outcome of checking one signature (spec §4.3).
type Status string

const (
	StatusValid       Status = "valid"
	StatusInvalid     Status = "invalid"
	StatusUnsupported Status = "unsupported"
)

// Result is the outcome of verifying one confirmation's signature.
type Result struct {
	Owner      common.Address
	Status     Status
	Recovered  common.Address // populated when Status is valid or invalid
	Reason     string         // populated when Status is unsupported
	OwnerMatch bool           // Recovered == Owner, only meaningful when valid
}

const ethSignedMessagePrefix = "\x19Ethereum Signed Message:\n32"

// Verify checks a single 65-byte signature [R||S||V] against digest,
// dispatching on the v byte per spec §4.3:
//
//   - 27/28: standard ECDSA over digest directly.
//   - 31/32: eth_sign, wrapped with the "\x19Ethereum Signed Message:\n32"
//     prefix and v adjusted by -4.
//   - 0/1: contract signature or pre-approved hash — unsupported, the
//     caller cannot verify these offline.
//
// Any other v value, or a signature not exactly 65 bytes, is also
// unsupported rather than invalid: it is not a failed cryptographic
// check, it is a shape this verifier does not know how to check.
func Verify(owner common.Address, digest common.Hash, sig []byte) Result {
	if len(sig) != 65 {
		return Result{Owner: owner, Status: StatusUnsupported, Reason: "signature is not 65 bytes"}
	}

	v := sig[64]
	switch {
	case v == 27 || v == 28:
		return recover(owner, digest, sig, v-27)
	case v == 31 || v == 32:
		wrapped := crypto.Keccak256Hash([]byte(ethSignedMessagePrefix), digest.Bytes())
		return recover(owner, wrapped, sig, v-4-27)
	case v == 0 || v == 1:
		reason := "contract signature (v=0): requires on-chain isValidSignature, cannot verify offline"
		if v == 1 {
			reason = "pre-approved hash (v=1): requires on-chain approvedHashes lookup, cannot verify offline"
		}
		return Result{Owner: owner, Status: StatusUnsupported, Reason: reason}
	default:
		return Result{Owner: owner, Status: StatusUnsupported, Reason: "unrecognized v byte"}
	}
}

func recover(owner common.Address, digest common.Hash, sig []byte, recID byte) Result {
	normalized := make([]byte, 65)
	copy(normalized, sig[:64])
	normalized[64] = recID

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return Result{Owner: owner, Status: StatusUnsupported, Reason: err.Error()}
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != owner {
		return Result{Owner: owner, Status: StatusInvalid, Recovered: recovered}
	}
	return Result{
		Owner:      owner,
		Status:     StatusValid,
		Recovered:  recovered,
		OwnerMatch: true,
	}
}

// Confirmation is the minimal shape VerifyAll needs from an
// evidence.Confirmation, kept package-local so this package does not
// import pkg/evidence.
type Confirmation struct {
	Owner     common.Address
	Signature []byte
}

// Summary tallies a confirmation list's verification outcomes (spec
// §6.2: "summary{total,valid,invalid,unsupported}").
type Summary struct {
	Total       int
	Valid       int
	Invalid     int
	Unsupported int
}

// Summarize tallies results by Status.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusValid:
			s.Valid++
		case StatusInvalid:
			s.Invalid++
		case StatusUnsupported:
			s.Unsupported++
		}
	}
	return s
}

// ByOwner groups results by claimed owner address (spec §6.2:
// "byOwner"). A malformed package can carry more than one confirmation
// for the same owner; every result for that owner is kept, in the order
// VerifyAll returned them.
func ByOwner(results []Result) map[common.Address][]Result {
	out := make(map[common.Address][]Result, len(results))
	for _, r := range results {
		out[r.Owner] = append(out[r.Owner], r)
	}
	return out
}

// VerifyAll verifies every confirmation's signature against digest
// concurrently, preserving input order in the returned slice (spec §5:
// "signature checks may run in parallel; evidence order is preserved in
// output").
func VerifyAll(ctx context.Context, digest common.Hash, confirmations []Confirmation) ([]Result, error) {
	results := make([]Result, len(confirmations))
	var wg sync.WaitGroup
	for i, conf := range confirmations {
		wg.Add(1)
		go func(i int, conf Confirmation) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				results[i] = Result{Owner: conf.Owner, Status: StatusUnsupported, Reason: ctx.Err().Error()}
			default:
				results[i] = Verify(conf.Owner, digest, conf.Signature)
			}
		}(i, conf)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return results, verrors.New(verrors.CodeSignatureUnsupported, "verification context cancelled").WithCause(err)
	}
	return results, nil
}
