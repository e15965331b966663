package emulator

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(profiles [][PROFILE_BINS]int) ([]float64, error) {
	f.calls++
	return f.scores, f.err
}

func testShowers(n int) []*ShowerDescriptor {
	showers := make([]*ShowerDescriptor, n)
	for i := range showers {
		showers[i] = &ShowerDescriptor{Key: testKey, Kept: true}
		showers[i].Profile[i] = 3
	}
	return showers
}

func flatModel(bias float64) *LogisticClassifier {
	model := &LogisticClassifier{
		Mean:    make([]float64, PROFILE_BINS),
		Scale:   make([]float64, PROFILE_BINS),
		Weights: make([]float64, PROFILE_BINS),
		Bias:    bias,
	}
	for i := range model.Scale {
		model.Scale[i] = 1
	}
	return model
}

func TestApplyNoopClassifierKeepsAll(t *testing.T) {
	showers := testShowers(3)
	ApplyClassifier(showers, NoopClassifier{}, 0.5)
	for _, shower := range showers {
		assert.True(t, shower.Kept)
		assert.Nil(t, shower.ClassifierScore)
	}
}

func TestApplyClassifierThreshold(t *testing.T) {
	showers := testShowers(3)
	fake := &fakeClassifier{scores: []float64{0.2, 0.5, 0.9}}

	ApplyClassifier(showers, fake, 0.5)

	assert.Equal(t, 1, fake.calls, "one call per event")
	assert.False(t, showers[0].Kept)
	assert.True(t, showers[1].Kept)
	assert.True(t, showers[2].Kept)
	require.NotNil(t, showers[2].ClassifierScore)
	assert.Equal(t, 0.9, *showers[2].ClassifierScore)
}

func TestApplyClassifierFailureKeepsAll(t *testing.T) {
	tests := map[string]*fakeClassifier{
		"error":        {err: errors.New("model not loaded")},
		"wrong length": {scores: []float64{0.1}},
	}
	for name, fake := range tests {
		t.Run(name, func(t *testing.T) {
			showers := testShowers(2)
			ApplyClassifier(showers, fake, 0.5)
			for _, shower := range showers {
				assert.True(t, shower.Kept)
				assert.Nil(t, shower.ClassifierScore)
			}
		})
	}
}

func TestApplyClassifierNoShowers(t *testing.T) {
	fake := &fakeClassifier{}
	ApplyClassifier(nil, fake, 0.5)
	assert.Zero(t, fake.calls)
}

func TestLogisticClassifier(t *testing.T) {
	scores, err := flatModel(0).Classify([][PROFILE_BINS]int{{}, {1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, scores)

	model := flatModel(0)
	model.Weights[0] = 1
	model.Mean[0] = 1
	model.Scale[0] = 0
	scores, err = model.Classify([][PROFILE_BINS]int{{1}, {3}})
	require.NoError(t, err)
	assert.Equal(t, 0.5, scores[0])
	assert.InDelta(t, 0.8808, scores[1], 1e-4)
}

func TestLoadClassifier(t *testing.T) {
	dir := t.TempDir()

	classifier, err := LoadClassifier("")
	require.NoError(t, err)
	assert.Equal(t, NoopClassifier{}, classifier)

	classifier, err = LoadClassifier(filepath.Join(dir, "missing.json"))
	var errOpen *ErrOpenFile
	require.ErrorAs(t, err, &errOpen)
	assert.Equal(t, NoopClassifier{}, classifier)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"weights": [1, 2]}`), 0o644))
	classifier, err = LoadClassifier(invalid)
	assert.Error(t, err)
	assert.Equal(t, NoopClassifier{}, classifier)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("not json"), 0o644))
	_, err = LoadClassifier(garbage)
	assert.Error(t, err)

	valid := filepath.Join(dir, "model.json")
	data, err := json.Marshal(flatModel(-2))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(valid, data, 0o644))
	classifier, err = LoadClassifier(valid)
	require.NoError(t, err)
	model, ok := classifier.(*LogisticClassifier)
	require.True(t, ok)
	assert.Equal(t, -2.0, model.Bias)
}
