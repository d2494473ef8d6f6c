package warnings

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certen/safe-evidence-verifier/pkg/evidence"
	"github.com/certen/safe-evidence-verifier/pkg/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reg.yaml")
	content := `
entries:
  - address: "0x1111111111111111111111111111111111111111"
    name: "Known Target"
    kind: contract
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	reg, err := registry.Load(path)
	require.NoError(t, err)
	return reg
}

func TestCheckTarget_DelegateCallToUnknownIsDanger(t *testing.T) {
	reg := testRegistry(t)
	unknown := common.HexToAddress("0x9999999999999999999999999999999999999999")
	w := CheckTarget(reg, 1, unknown, evidence.OperationDelegateCall, false, nil, nil)
	require.NotNil(t, w)
	assert.Equal(t, SeverityDanger, w.Severity)
}

func TestCheckTarget_DelegateCallToKnownIsInfo(t *testing.T) {
	reg := testRegistry(t)
	known := common.HexToAddress("0x1111111111111111111111111111111111111111")
	w := CheckTarget(reg, 1, known, evidence.OperationDelegateCall, false, nil, nil)
	require.NotNil(t, w)
	assert.Equal(t, SeverityInfo, w.Severity)
}

func TestCheckTarget_CallWithCalldataToUnknownIsWarning(t *testing.T) {
	reg := testRegistry(t)
	unknown := common.HexToAddress("0x9999999999999999999999999999999999999999")
	w := CheckTarget(reg, 1, unknown, evidence.OperationCall, true, nil, nil)
	require.NotNil(t, w)
	assert.Equal(t, SeverityWarning, w.Severity)
}

func TestCheckTarget_PureValueTransferBelowThresholdNoWarning(t *testing.T) {
	reg := testRegistry(t)
	unknown := common.HexToAddress("0x9999999999999999999999999999999999999999")
	w := CheckTarget(reg, 1, unknown, evidence.OperationCall, false, big.NewInt(1), big.NewInt(1000))
	assert.Nil(t, w)
}

func TestCheckTarget_PureValueTransferAboveThresholdWarns(t *testing.T) {
	reg := testRegistry(t)
	unknown := common.HexToAddress("0x9999999999999999999999999999999999999999")
	w := CheckTarget(reg, 1, unknown, evidence.OperationCall, false, big.NewInt(5000), big.NewInt(1000))
	require.NotNil(t, w)
	assert.Equal(t, SeverityWarning, w.Severity)
}

func TestCheckSigners_FlagsUnregisteredOwners(t *testing.T) {
	reg := testRegistry(t)
	known := common.HexToAddress("0x1111111111111111111111111111111111111111")
	unknown := common.HexToAddress("0x8888888888888888888888888888888888888888")

	result := CheckSigners(reg, 1, []evidence.Confirmation{{Owner: known}, {Owner: unknown}})
	require.Len(t, result, 1)
	assert.Equal(t, unknown, result[0].Owner)
}

func TestProposer_EarliestSubmissionWins(t *testing.T) {
	later := common.HexToAddress("0x1111111111111111111111111111111111111111")
	earlier := common.HexToAddress("0x2222222222222222222222222222222222222222")

	confirmations := []evidence.Confirmation{
		{Owner: later, SubmissionDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Owner: earlier, SubmissionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	proposer, ok := Proposer(confirmations)
	require.True(t, ok)
	assert.Equal(t, earlier, proposer)
}

func TestProposer_EmptyConfirmations(t *testing.T) {
	_, ok := Proposer(nil)
	assert.False(t, ok)
}
