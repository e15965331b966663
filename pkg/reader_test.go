package emulator

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDigis = `# event wheel sector station superlayer layer wire tick tdc origin
1 0 1 1 1 1 5 10 260 0
1 0 1 1 3 2 7 11 280 0

2 -1 4 2 1 4 30 400 10012 0
4 1 1 1 1 1 1 20 500 0
`

const testTruth = `1 0 1 1 1 1 5 0 0 13
3 0 1 1 1 1 6 0 0 11
4 1 1 1 1 2 2 0 0 -11
`

const testSegments = `1 0 1 1
1 0 1 1
`

func readAll(t *testing.T, reader *EventReader) []EventType {
	t.Helper()
	var events []EventType
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, event)
	}
}

func TestEventReaderMergesInputs(t *testing.T) {
	reader := NewEventReader(strings.NewReader(testDigis), "digis.txt",
		strings.NewReader(testTruth), "truth.txt",
		strings.NewReader(testSegments), "segments.txt")

	events := readAll(t, reader)
	require.Len(t, events, 4)

	assert.Equal(t, 1, events[0].Number)
	assert.Equal(t, 0, events[0].Index)
	require.Len(t, events[0].Digis, 2)
	assert.Equal(t, Hit{Wheel: 0, Sector: 1, Station: 1, SuperLayer: 3, Layer: 2, Wire: 7, TimeTick: 11, TDC: 280}, events[0].Digis[1])
	require.Len(t, events[0].SimHits, 1)
	assert.Equal(t, 13, events[0].SimHits[0].OriginParticleID)
	assert.Len(t, events[0].Segments, 2)

	assert.Equal(t, 2, events[1].Number)
	assert.Equal(t, -1, events[1].Digis[0].Wheel)
	assert.Empty(t, events[1].SimHits)
	assert.True(t, events[1].HasTruth, "truth source was read even though the event has no truth hits")

	// Truth only event
	assert.Equal(t, 3, events[2].Number)
	assert.Empty(t, events[2].Digis)
	assert.Len(t, events[2].SimHits, 1)

	assert.Equal(t, 4, events[3].Number)
	assert.Equal(t, 3, events[3].Index)
	assert.Len(t, events[3].Digis, 1)
	assert.Len(t, events[3].SimHits, 1)
}

func TestEventReaderSkipAndMax(t *testing.T) {
	reader := NewEventReader(strings.NewReader(testDigis), "digis.txt", nil, "", nil, "")
	reader.Skip = 1
	reader.MaxEvents = 2

	events := readAll(t, reader)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Number)
	assert.Equal(t, 1, events[0].Index)
	assert.False(t, events[0].HasTruth)
}

func TestEventReaderParseError(t *testing.T) {
	tests := map[string]string{
		"missing field": "1 0 1 1 1 1 5 10 260\n",
		"not a number":  "1 0 1 1 1 1 five 10 260 0\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			reader := NewEventReader(strings.NewReader("1 0 1 1 1 1 4 10 260 0\n"+input), "digis.txt", nil, "", nil, "")
			_, err := reader.Next()
			var parseErr *ErrParseHit
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "digis.txt", parseErr.Filename)
			assert.Equal(t, 2, parseErr.LineNum)
		})
	}
}
