package screenshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntervalPolicyRejectsNonPositive(t *testing.T) {
	_, err := NewIntervalPolicy(0)
	require.Error(t, err)
	_, err = NewIntervalPolicy(-1)
	require.Error(t, err)
}

func TestIntervalPolicySavesAtEachBoundary(t *testing.T) {
	p, err := NewIntervalPolicy(2.0)
	require.NoError(t, err)

	require.True(t, p.ShouldSave(0))
	require.False(t, p.ShouldSave(1))
	require.True(t, p.ShouldSave(2))
	require.False(t, p.ShouldSave(3))
	require.True(t, p.ShouldSave(4.5))
	require.False(t, p.ShouldStop())
}

func TestPercentagePolicyValidation(t *testing.T) {
	_, err := NewPercentagePolicy(10, 0)
	require.Error(t, err)
	_, err = NewPercentagePolicy(0, 10)
	require.Error(t, err)
	_, err = NewPercentagePolicy(101, 10)
	require.Error(t, err)
}

func TestPercentagePolicySavesRepeatedlyUntilEOF(t *testing.T) {
	// duration=10s, pct=25 -> a save every 2.5s of stream time, forever.
	p, err := NewPercentagePolicy(25, 10)
	require.NoError(t, err)

	require.True(t, p.ShouldSave(0))
	require.False(t, p.ShouldSave(1))
	require.True(t, p.ShouldSave(2.5))
	require.False(t, p.ShouldSave(4))
	require.True(t, p.ShouldSave(5))
	require.True(t, p.ShouldSave(7.5))
	require.True(t, p.ShouldSave(10))
	// Policy never stops on its own; only EOF ends it.
	require.False(t, p.ShouldStop())
}

func TestImmediatePolicySavesOnceThenStops(t *testing.T) {
	p, err := NewImmediatePolicy()
	require.NoError(t, err)
	require.True(t, p.ShouldSave(0))
	require.True(t, p.ShouldStop())
	require.False(t, p.ShouldSave(1))
}

func TestSpecificTimePolicyValidation(t *testing.T) {
	_, err := NewSpecificTimePolicy(-1)
	require.Error(t, err)
}

func TestSpecificTimePolicyWaitsThenSavesOnce(t *testing.T) {
	p, err := NewSpecificTimePolicy(5.0)
	require.NoError(t, err)
	require.False(t, p.ShouldSave(1))
	require.False(t, p.ShouldStop())
	require.True(t, p.ShouldSave(5.0))
	require.True(t, p.ShouldStop())
	require.False(t, p.ShouldSave(6))
}
