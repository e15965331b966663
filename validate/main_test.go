package main

import (
	"testing"

	emulator "github.com/dt-phase2/showers_go/pkg"
	"github.com/stretchr/testify/assert"
)

func TestFormatSummaryOrdersStationsAndWheels(t *testing.T) {
	summary := emulator.NewValidationSummary()
	summary.Add([]emulator.GroupOutcome{
		{Key: emulator.GroupKey{Wheel: 2, Sector: 1, Station: 4, SuperLayer: 1}, Outcome: emulator.TruePositive},
		{Key: emulator.GroupKey{Wheel: -2, Sector: 3, Station: 1, SuperLayer: 3}, Outcome: emulator.FalsePositive},
	})
	summary.Add([]emulator.GroupOutcome{
		{Key: emulator.GroupKey{Wheel: 0, Sector: 7, Station: 2, SuperLayer: 1}, Outcome: emulator.TrueNegative},
	})

	want := "Events: 2\n" +
		"Total: TP 1 FP 1 TN 1 FN 0\n" +
		"Station 1: TP 0 FP 1 TN 0 FN 0\n" +
		"Station 2: TP 0 FP 0 TN 1 FN 0\n" +
		"Station 4: TP 1 FP 0 TN 0 FN 0\n" +
		"Wheel -2: TP 0 FP 1 TN 0 FN 0\n" +
		"Wheel 0: TP 0 FP 0 TN 1 FN 0\n" +
		"Wheel 2: TP 1 FP 0 TN 0 FN 0\n"
	assert.Equal(t, want, formatSummary(summary))
}
