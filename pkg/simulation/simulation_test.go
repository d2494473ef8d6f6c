package simulation

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certen/safe-evidence-verifier/pkg/evidence"
	"github.com/certen/safe-evidence-verifier/pkg/trust"
)

func TestCheck_NilSimulationIsValid(t *testing.T) {
	result := Check(nil)
	assert.True(t, result.Valid)
	assert.Equal(t, trust.Unclassified, result.Classification)
}

func TestCheck_ValidSuccessfulSimulation(t *testing.T) {
	gasUsed, err := evidence.ParseQuantity("0x5208", false)
	require.NoError(t, err)
	sim := &evidence.Simulation{
		Success: true,
		GasUsed: gasUsed,
		Logs: []evidence.LogEntry{
			{Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), Topics: []common.Hash{{}}},
		},
	}
	result := Check(sim)
	assert.True(t, result.Valid)
	assert.False(t, result.Reverted)
}

func TestCheck_RejectsDecimalGasUsed(t *testing.T) {
	sim := &evidence.Simulation{Success: true, GasUsed: evidence.Quantity{Raw: "21000"}}
	result := Check(sim)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "hex quantity")
}

func TestCheck_RejectsUppercaseHexGasUsed(t *testing.T) {
	sim := &evidence.Simulation{Success: true, GasUsed: evidence.Quantity{Raw: "0X5208"}}
	result := Check(sim)
	assert.False(t, result.Valid)
}

func TestCheck_RejectsTooManyTopics(t *testing.T) {
	gasUsed, err := evidence.ParseQuantity("0x1", false)
	require.NoError(t, err)
	sim := &evidence.Simulation{
		Success: true,
		GasUsed: gasUsed,
		Logs: []evidence.LogEntry{
			{Topics: []common.Hash{{}, {}, {}, {}, {}}},
		},
	}
	result := Check(sim)
	assert.False(t, result.Valid)
}

func TestCheck_RevertedIsStillStructurallyValid(t *testing.T) {
	gasUsed, err := evidence.ParseQuantity("0x1", false)
	require.NoError(t, err)
	sim := &evidence.Simulation{Success: false, GasUsed: gasUsed}
	result := Check(sim)
	assert.True(t, result.Valid)
	assert.True(t, result.Reverted)
}
