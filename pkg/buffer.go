package emulator

import (
	"cmp"
	"fmt"
	"slices"
)

// TDC counts per tick, and the firmware resolution of the scaled value
const (
	TDC_PER_TICK    = 25
	SCALED_TDC_BINS = 32
)

type BufferConfig struct {
	// Entries whose input tick is more than FIFODepth ticks behind the
	// current tick are evicted, emitted or not
	FIFODepth int
	// Maximum number of records emitted per tick
	EmissionCap int
	// Extra ticks processed after the last input tick to drain the FIFO
	TailTicks int
	// Output ticks skipped between two events of the same group
	DeadTime    int
	HotChannels HotChannelConfig
}

func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		FIFODepth:   4,
		EmissionCap: 8,
		TailTicks:   16,
		DeadTime:    50,
		HotChannels: PeriodicHotChannels(2),
	}
}

// BufferState is the continuation of one record stream. It survives
// across events and is owned by the caller.
type BufferState struct {
	NextOutputTime int
	NextSequenceID int
}

type OutputRecord struct {
	OutputTime int
	SuperLayer int
	TimeTick   int
	ScaledTDC  int
	Layer      int
	Wire       int
	SequenceID int
	EventIndex int
}

func (r OutputRecord) String() string {
	return fmt.Sprintf("%d %d %d %d %d %d %d %d", r.OutputTime, r.SuperLayer, r.TimeTick,
		r.ScaledTDC, r.Layer, r.Wire, r.SequenceID, r.EventIndex)
}

type fifoEntry struct {
	sequenceID int
	hit        Hit
}

// RetransmissionBuffer emulates the front-end buffer chip of one group: a
// bounded FIFO drained at a fixed number of records per tick onto a
// uniform output clock.
type RetransmissionBuffer struct {
	Key    GroupKey
	State  BufferState
	config BufferConfig
	fifo   []fifoEntry
	filter *HotChannelFilter
	// Hits evicted without being emitted in the last processed event
	Dropped int
}

func NewRetransmissionBuffer(key GroupKey, config BufferConfig, state BufferState) *RetransmissionBuffer {
	return &RetransmissionBuffer{
		Key:    key,
		State:  state,
		config: config,
		filter: NewHotChannelFilter(config.HotChannels),
	}
}

// ScaleTDC maps the TDC count inside its tick onto the firmware bins.
func ScaleTDC(tdc int) int {
	inTick := ((tdc % TDC_PER_TICK) + TDC_PER_TICK) % TDC_PER_TICK
	return inTick * SCALED_TDC_BINS / TDC_PER_TICK
}

// ProcessEvent runs the buffer over the hits of one event for this group
// and returns the emitted records. The continuation state is advanced so
// the next event starts DeadTime ticks after the last emitted record.
func (b *RetransmissionBuffer) ProcessEvent(hits []Hit, eventIndex int) []OutputRecord {
	b.Dropped = 0
	input := make([]Hit, 0, len(hits))
	for _, hit := range hits {
		if hit.SuperLayer == THETA_SUPERLAYER {
			continue
		}
		input = append(input, hit)
	}
	minTick, maxTick, ok := tickRange(input)
	if !ok {
		return nil
	}
	slices.SortStableFunc(input, func(a, b Hit) int {
		return cmp.Compare(a.TimeTick, b.TimeTick)
	})

	b.fifo = b.fifo[:0]
	b.filter.Reset()

	outputTime := b.State.NextOutputTime
	lastEmitted, emitted := 0, false
	records := make([]OutputRecord, 0, len(input))
	next := 0

	for tick := minTick; tick <= maxTick+b.config.TailTicks; tick++ {
		b.filter.Advance(tick)

		for next < len(input) && input[next].TimeTick == tick {
			hit := input[next]
			next++
			if !b.filter.Accept(hit) {
				if configuration.Verbosity > 2 {
					message := fmt.Sprintf("%v hot wire: sl %d l %d w %d tick %d", b.Key, hit.SuperLayer, hit.Layer, hit.Wire, tick)
					logger.Info(message, "buffer")
				}
				continue
			}
			b.fifo = append(b.fifo, fifoEntry{sequenceID: b.State.NextSequenceID, hit: hit})
			b.State.NextSequenceID++
		}

		for i := 0; i < b.config.EmissionCap && len(b.fifo) > 0; i++ {
			entry := b.fifo[0]
			b.fifo = b.fifo[1:]
			records = append(records, OutputRecord{
				OutputTime: outputTime,
				SuperLayer: entry.hit.SuperLayer,
				TimeTick:   entry.hit.TimeTick,
				ScaledTDC:  ScaleTDC(entry.hit.TDC),
				Layer:      entry.hit.Layer,
				Wire:       entry.hit.Wire,
				SequenceID: entry.sequenceID,
				EventIndex: eventIndex,
			})
			lastEmitted, emitted = outputTime, true
		}

		for len(b.fifo) > 0 && tick-b.fifo[0].hit.TimeTick > b.config.FIFODepth {
			b.fifo = b.fifo[1:]
			b.Dropped++
		}

		outputTime++
	}

	if emitted {
		b.State.NextOutputTime = lastEmitted + b.config.DeadTime
	}
	if b.Dropped > 0 && configuration.Verbosity > 0 {
		message := fmt.Sprintf("%v event %d: %d hits evicted from FIFO", b.Key, eventIndex, b.Dropped)
		logger.Info(message, "buffer")
	}
	return records
}
