package emulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareShowers(t *testing.T) {
	tp := GroupKey{Wheel: 0, Sector: 1, Station: 1, SuperLayer: 1}
	fp := GroupKey{Wheel: 0, Sector: 1, Station: 1, SuperLayer: 3}
	fn := GroupKey{Wheel: 0, Sector: 2, Station: 1, SuperLayer: 1}
	tn := GroupKey{Wheel: 1, Sector: 1, Station: 4, SuperLayer: 1}
	rejected := GroupKey{Wheel: 1, Sector: 5, Station: 2, SuperLayer: 1}
	theta := GroupKey{Wheel: 0, Sector: 1, Station: 1, SuperLayer: THETA_SUPERLAYER}

	showers := []*ShowerDescriptor{
		{Key: tp, Kept: true},
		{Key: fp, Kept: true},
		{Key: rejected, Kept: false},
	}
	truth := []GroundTruthShower{
		{Key: tp, Type: MuonElectronMixed},
		{Key: fn, Type: ElectronDominated},
		{Key: theta, Type: ElectronDominated},
	}

	outcomes := CompareShowers(showers, truth, []GroupKey{tn, theta})
	assert.Equal(t, []GroupOutcome{
		{Key: tp, Outcome: TruePositive},
		{Key: fp, Outcome: FalsePositive},
		{Key: fn, Outcome: FalseNegative},
		{Key: tn, Outcome: TrueNegative},
		{Key: rejected, Outcome: TrueNegative},
	}, outcomes)
}

func TestValidationSummary(t *testing.T) {
	summary := NewValidationSummary()
	summary.Add([]GroupOutcome{
		{Key: GroupKey{Wheel: -2, Station: 1}, Outcome: TruePositive},
		{Key: GroupKey{Wheel: -2, Station: 2}, Outcome: FalseNegative},
		{Key: GroupKey{Wheel: 1, Station: 1}, Outcome: FalsePositive},
	})
	summary.Add([]GroupOutcome{
		{Key: GroupKey{Wheel: 1, Station: 1}, Outcome: TrueNegative},
	})

	assert.Equal(t, 2, summary.Events)
	assert.Equal(t, OutcomeCounts{TP: 1, FP: 1, TN: 1, FN: 1}, summary.Total)
	assert.Equal(t, OutcomeCounts{TP: 1, FP: 1, TN: 1}, *summary.ByStation[1])
	assert.Equal(t, OutcomeCounts{FN: 1}, *summary.ByStation[2])
	assert.Equal(t, OutcomeCounts{TP: 1, FN: 1}, *summary.ByWheel[-2])
	assert.Equal(t, "TP 1 FP 1 TN 1 FN 1", summary.Total.String())
	assert.Equal(t, "FN", FalseNegative.String())
}
