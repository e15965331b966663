package emulator

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	states map[GroupKey]BufferState
	err    error
	calls  map[GroupKey]int
}

func (f *fakeLoader) LoadState(key GroupKey) (BufferState, error) {
	if f.calls == nil {
		f.calls = make(map[GroupKey]int)
	}
	f.calls[key]++
	return f.states[key], f.err
}

var (
	showerKey = GroupKey{Wheel: 0, Sector: 1, Station: 1, SuperLayer: 1}
	quietKey  = GroupKey{Wheel: 0, Sector: 1, Station: 1, SuperLayer: 3}
	thetaKey  = GroupKey{Wheel: 0, Sector: 1, Station: 1, SuperLayer: THETA_SUPERLAYER}
)

func testEvent(number int) EventType {
	var digis []Hit
	for i := 0; i < 8; i++ {
		digis = append(digis, digi(showerKey, i%4+1, 20+i, 100))
	}
	digis = append(digis, digi(quietKey, 1, 3, 102), digi(thetaKey, 1, 3, 102))

	var simHits []Hit
	for _, hit := range mixedTruthHits() {
		hit.Layer = hit.Layer%4 + 1
		simHits = append(simHits, hit)
	}
	return EventType{Number: number, Index: number - 1, Digis: digis, SimHits: simHits}
}

func testConfiguration(workers int) Configuration {
	config := DefaultConfiguration()
	config.NumWorkers = workers
	config.TruthThreshold = 6
	return config
}

func TestProcessorEvent(t *testing.T) {
	loader := &fakeLoader{states: map[GroupKey]BufferState{quietKey: {NextOutputTime: 500, NextSequenceID: 40}}}
	processor := NewProcessor(testConfiguration(2), nil, loader)

	result, err := processor.ProcessEvent(testEvent(1))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Number)
	require.Len(t, result.Records, 2, "theta superlayer has no record stream")
	assert.Len(t, result.Records[showerKey], 8)
	require.Len(t, result.Records[quietKey], 1)
	assert.Equal(t, OutputRecord{OutputTime: 500, SuperLayer: 3, TimeTick: 102, Layer: 1, Wire: 3, SequenceID: 40}, result.Records[quietKey][0])

	require.Len(t, result.Showers, 1)
	assert.Equal(t, showerKey, result.Showers[0].Key)
	assert.True(t, result.Showers[0].Kept)

	assert.Equal(t, []GroundTruthShower{{Key: showerKey, Type: MuonElectronMixed}}, result.TruthShowers)
	assert.Equal(t, []GroupOutcome{
		{Key: showerKey, Outcome: TruePositive},
		{Key: quietKey, Outcome: TrueNegative},
	}, result.Outcomes)

	assert.Equal(t, map[GroupKey]int{showerKey: 1, quietKey: 1}, loader.calls)
}

func TestProcessorKeepsStateAcrossEvents(t *testing.T) {
	loader := &fakeLoader{}
	processor := NewProcessor(testConfiguration(1), nil, loader)

	first, err := processor.ProcessEvent(testEvent(1))
	require.NoError(t, err)
	second, err := processor.ProcessEvent(testEvent(2))
	require.NoError(t, err)

	assert.Equal(t, 1, loader.calls[showerKey], "state is loaded once per group")
	last := first.Records[showerKey][7]
	next := second.Records[showerKey][0]
	assert.Equal(t, last.SequenceID+1, next.SequenceID)
	assert.Equal(t, last.OutputTime+50, next.OutputTime)
	assert.Equal(t, BufferState{NextOutputTime: next.OutputTime + 50, NextSequenceID: 16}, processor.States()[showerKey])
}

func TestProcessorTruthWithoutSimHits(t *testing.T) {
	event := testEvent(1)
	event.SimHits = nil
	event.HasTruth = true

	result, err := NewProcessor(testConfiguration(2), nil, nil).ProcessEvent(event)
	require.NoError(t, err)
	assert.Empty(t, result.TruthShowers)
	assert.Equal(t, []GroupOutcome{
		{Key: showerKey, Outcome: FalsePositive},
		{Key: quietKey, Outcome: TrueNegative},
	}, result.Outcomes)

	event.HasTruth = false
	result, err = NewProcessor(testConfiguration(2), nil, nil).ProcessEvent(event)
	require.NoError(t, err)
	assert.Empty(t, result.Outcomes, "no truth source, nothing to compare")
}

func TestProcessGroupPanicRestoresState(t *testing.T) {
	state := BufferState{NextOutputTime: 500, NextSequenceID: 40}
	buffer := NewRetransmissionBuffer(showerKey, DefaultBufferConfig(), state)
	job := groupJob{key: showerKey, hits: testEvent(1).Digis[:8], buffer: buffer}

	// A nil detector panics after the buffer has advanced
	result := processGroup(1, nil, job)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "worker 1 recovered from panic")
	assert.Empty(t, result.Records)
	assert.Zero(t, result.Dropped)
	assert.Equal(t, state, buffer.State)

	result = processGroup(1, NewWindowedShowerDetector(DefaultDetectorConfig()), job)
	require.NoError(t, result.Error)
	require.Len(t, result.Records, 8)
	assert.Equal(t, 40, result.Records[0].SequenceID, "stream continues from the saved state")
}

func TestProcessorWorkersAgree(t *testing.T) {
	serial, err := NewProcessor(testConfiguration(1), nil, nil).ProcessEvent(testEvent(1))
	require.NoError(t, err)
	parallel, err := NewProcessor(testConfiguration(8), nil, nil).ProcessEvent(testEvent(1))
	require.NoError(t, err)

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("ProcessEvent() mismatch (-serial +parallel):\n%s", diff)
	}
}

func TestProcessorBatchesClassifier(t *testing.T) {
	fake := &fakeClassifier{scores: []float64{0.1}}
	processor := NewProcessor(testConfiguration(2), fake, nil)

	result, err := processor.ProcessEvent(testEvent(1))
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	require.Len(t, result.Showers, 1)
	assert.False(t, result.Showers[0].Kept)
	assert.Equal(t, FalseNegative, result.Outcomes[0].Outcome)
}

func TestProcessorLoadError(t *testing.T) {
	corrupt := &ErrCorruptResume{Filename: "digis.txt", Line: "1 2", Err: errors.New("expected 8 fields, got 2")}
	processor := NewProcessor(testConfiguration(1), nil, &fakeLoader{err: corrupt})

	_, err := processor.ProcessEvent(testEvent(1))
	var target *ErrCorruptResume
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "digis.txt", target.Filename)
}

func TestProcessorEmptyEvent(t *testing.T) {
	result, err := NewProcessor(testConfiguration(2), nil, nil).ProcessEvent(EventType{Number: 3})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Showers)
	assert.Empty(t, result.Outcomes)
}
