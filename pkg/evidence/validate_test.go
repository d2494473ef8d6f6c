package evidence

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

func minimalEvidenceJSON(overrides map[string]interface{}) []byte {
	base := map[string]interface{}{
		"version":               "1.0",
		"chainId":               1,
		"safeAddress":           "0x1234567890123456789012345678901234567890",
		"safeTxHash":            "0x" + repeat("ab", 32),
		"confirmationsRequired": 2,
		"confirmations": []map[string]interface{}{
			{
				"owner":          "0x1111111111111111111111111111111111111111",
				"signature":      "0x" + repeat("11", 65),
				"submissionDate": "2024-01-01T00:00:00Z",
			},
		},
		"transaction": map[string]interface{}{
			"to":             "0x2222222222222222222222222222222222222222",
			"value":          "0x0",
			"data":           "0x",
			"operation":      0,
			"safeTxGas":      "0",
			"baseGas":        "0",
			"gasPrice":       "0",
			"gasToken":       "0x0000000000000000000000000000000000000000",
			"refundReceiver": "0x0000000000000000000000000000000000000000",
			"nonce":          "5",
		},
		"sources":    map[string]interface{}{},
		"packagedAt": "2024-01-01T00:00:00Z",
	}
	for k, v := range overrides {
		base[k] = v
	}
	out, err := json.Marshal(base)
	if err != nil {
		panic(err)
	}
	return out
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestParse_ValidMinimal(t *testing.T) {
	raw := minimalEvidenceJSON(nil)
	ev, errs := Parse(raw)
	require.Nil(t, errs, "unexpected errors: %v", errs)
	require.NotNil(t, ev)
	assert.Equal(t, Version1_0, ev.Version)
	assert.Equal(t, uint64(1), ev.ChainID)
	assert.Equal(t, uint64(2), ev.ConfirmationsRequired)
	assert.Len(t, ev.Confirmations, 1)
	assert.Equal(t, OperationCall, ev.Transaction.Operation)
	assert.Equal(t, uint64(5), ev.Transaction.Nonce.BigInt().Uint64())
}

func TestParse_InvalidJSON(t *testing.T) {
	_, errs := Parse([]byte("{not json"))
	require.NotNil(t, errs)
	assert.Equal(t, verrors.CodeInvalidJSON, errs[0].Code)
}

func TestParse_RejectsUnknownVersion(t *testing.T) {
	raw := minimalEvidenceJSON(map[string]interface{}{"version": "9.9"})
	_, errs := Parse(raw)
	require.NotNil(t, errs)
	assertHasField(t, errs, "version")
}

func TestParse_Version1_0RejectsOptionalSections(t *testing.T) {
	raw := minimalEvidenceJSON(map[string]interface{}{
		"version": "1.0",
		"simulation": map[string]interface{}{
			"success":     true,
			"gasUsed":     "0x1",
			"blockNumber": 1,
		},
	})
	_, errs := Parse(raw)
	require.NotNil(t, errs)
	assertHasField(t, errs, "version")
}

func TestParse_RejectsMalformedAddress(t *testing.T) {
	raw := minimalEvidenceJSON(map[string]interface{}{"safeAddress": "not-an-address"})
	_, errs := Parse(raw)
	require.NotNil(t, errs)
	assertHasField(t, errs, "safeAddress")
}

func TestParse_RejectsMalformedHash(t *testing.T) {
	raw := minimalEvidenceJSON(map[string]interface{}{"safeTxHash": "0xdead"})
	_, errs := Parse(raw)
	require.NotNil(t, errs)
	assertHasField(t, errs, "safeTxHash")
}

func TestParse_RejectsBadOperation(t *testing.T) {
	raw := minimalEvidenceJSON(map[string]interface{}{
		"transaction": map[string]interface{}{
			"to":             "0x2222222222222222222222222222222222222222",
			"value":          "0x0",
			"data":           "0x",
			"operation":      2,
			"safeTxGas":      "0",
			"baseGas":        "0",
			"gasPrice":       "0",
			"gasToken":       "0x0000000000000000000000000000000000000000",
			"refundReceiver": "0x0000000000000000000000000000000000000000",
			"nonce":          "5",
		},
	})
	_, errs := Parse(raw)
	require.NotNil(t, errs)
	assertHasField(t, errs, "transaction.operation")
}

func TestParseQuantity_RejectsUppercaseHexPrefix(t *testing.T) {
	_, err := ParseQuantity("0X10", false)
	assert.Error(t, err)
}

func TestParseQuantity_RejectsEmptyHexBody(t *testing.T) {
	_, err := ParseQuantity("0x", false)
	assert.Error(t, err)
}

func TestParseQuantity_AllowsDecimalWhenRequested(t *testing.T) {
	q, err := ParseQuantity("12345", true)
	require.NoError(t, err)
	assert.EqualValues(t, 12345, q.BigInt().Int64())
}

func TestParseQuantity_RejectsDecimalWhenNotAllowed(t *testing.T) {
	_, err := ParseQuantity("12345", false)
	assert.Error(t, err)
}

func TestParse_ConsensusProofNonBeaconRequiresPayload(t *testing.T) {
	raw := minimalEvidenceJSON(map[string]interface{}{
		"version": "1.2",
		"consensusProof": map[string]interface{}{
			"mode":        "opstack",
			"stateRoot":   "0x" + repeat("cd", 32),
			"blockNumber": 100,
		},
	})
	_, errs := Parse(raw)
	require.NotNil(t, errs)
	assertHasField(t, errs, "consensusProof.proofPayload")
}

func TestParse_ConsensusProofBeaconDoesNotRequirePayload(t *testing.T) {
	raw := minimalEvidenceJSON(map[string]interface{}{
		"version": "1.2",
		"consensusProof": map[string]interface{}{
			"mode":        "beacon",
			"stateRoot":   "0x" + repeat("cd", 32),
			"blockNumber": 100,
		},
	})
	ev, errs := Parse(raw)
	require.Nil(t, errs, "unexpected errors: %v", errs)
	require.NotNil(t, ev.ConsensusProof)
	assert.Equal(t, ConsensusModeBeacon, ev.ConsensusProof.Mode)
}

func TestParse_ConsensusProofRejectsUnknownMode(t *testing.T) {
	raw := minimalEvidenceJSON(map[string]interface{}{
		"version": "1.2",
		"consensusProof": map[string]interface{}{
			"mode":        "bogus",
			"stateRoot":   "0x" + repeat("cd", 32),
			"blockNumber": 100,
			"proofPayload": "0xdeadbeef",
		},
	})
	_, errs := Parse(raw)
	require.NotNil(t, errs)
	assertHasField(t, errs, "consensusProof.mode")
}

func TestParseStorageKey_LeftPadsCompactForm(t *testing.T) {
	key, err := parseStorageKey("0x4")
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Equal(t, byte(0x04), key[31])
}

func TestParseStorageKey_RejectsOversizeKey(t *testing.T) {
	_, err := parseStorageKey("0x" + repeat("ff", 40))
	assert.Error(t, err)
}

func TestNormalizeValue_ZeroFormsAreEquivalent(t *testing.T) {
	zero1, err := normalizeValue("0x0")
	require.NoError(t, err)
	zero2, err := normalizeValue("0x00")
	require.NoError(t, err)
	zero3, err := normalizeValue("0x")
	require.NoError(t, err)
	assert.Equal(t, zero1, zero2)
	assert.Equal(t, zero1, zero3)
	assert.Len(t, zero1, 32)
}

func assertHasField(t *testing.T, errs verrors.List, field string) {
	t.Helper()
	for _, e := range errs {
		if e.Field == field || strings.HasPrefix(e.Field, field+".") {
			return
		}
	}
	t.Fatalf("expected a validation error on field %q, got: %v", field, errs)
}
