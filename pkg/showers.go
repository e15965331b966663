package emulator

import (
	"cmp"
	"fmt"
	"slices"
)

// Number of wires in the occupancy profile given to the classifier
const PROFILE_BINS = 97

const N_STATIONS = 4

type DetectorConfig struct {
	// Minimum windowed hit count, indexed by station-1
	Thresholds  [N_STATIONS]int
	WindowTicks int
	// Skip groups whose distinct (layer, wire) hits have a wire variance <= 1
	SpreadCut   bool
	HotChannels HotChannelConfig
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Thresholds:  [N_STATIONS]int{6, 6, 6, 6},
		WindowTicks: 16,
		HotChannels: LastSeenHotChannels(),
	}
}

type WindowCount struct {
	Tick  int
	Count int
}

// ShowerDescriptor summarizes the triggering window of a group flagged by
// the windowed threshold. Only the classifier step touches it after creation.
type ShowerDescriptor struct {
	Key      GroupKey
	PeakTick int
	// Windowed hit count at the peak
	HitCount int
	// Earliest tick in the window with accepted hits, nil when there is none
	BX *int
	// Wire range of all accepted hits of the group, not only the window
	MinWire int
	MaxWire int
	AvgWire float64
	AvgTick float64
	Profile [PROFILE_BINS]int
	Hits    []Hit
	History []WindowCount

	ClassifierScore *float64
	Kept            bool
}

// WindowStart is the first tick of the triggering window.
func (s *ShowerDescriptor) WindowStart(windowTicks int) int {
	return s.PeakTick - windowTicks + 1
}

type WindowedShowerDetector struct {
	config DetectorConfig
}

func NewWindowedShowerDetector(config DetectorConfig) *WindowedShowerDetector {
	return &WindowedShowerDetector{config: config}
}

func (d *WindowedShowerDetector) Threshold(station int) (int, bool) {
	if station < 1 || station > N_STATIONS {
		return 0, false
	}
	return d.config.Thresholds[station-1], true
}

// Detect runs the windowed counter over one group of one event and returns
// a descriptor when the threshold of the station is reached, nil otherwise.
func (d *WindowedShowerDetector) Detect(key GroupKey, hits []Hit) *ShowerDescriptor {
	if key.SuperLayer == THETA_SUPERLAYER || len(hits) == 0 {
		return nil
	}
	threshold, ok := d.Threshold(key.Station)
	if !ok {
		message := fmt.Sprintf("%v: no threshold for station %d, skipping group", key, key.Station)
		logger.Error(message)
		return nil
	}

	input := slices.Clone(hits)
	slices.SortStableFunc(input, func(a, b Hit) int {
		return cmp.Compare(a.TimeTick, b.TimeTick)
	})

	filter := NewHotChannelFilter(d.config.HotChannels)
	accepted := make([]Hit, 0, len(input))
	for _, hit := range input {
		if filter.Accept(hit) {
			accepted = append(accepted, hit)
		}
	}
	if len(accepted) == 0 {
		return nil
	}
	if d.config.SpreadCut && !hasSpread(accepted) {
		if configuration.Verbosity > 1 {
			logger.Info(fmt.Sprintf("%v: hits not spread, skipping group", key), "showers")
		}
		return nil
	}

	minTick, maxTick, _ := tickRange(accepted)
	window := d.config.WindowTicks
	nTicks := maxTick - minTick + 1

	// Each accepted hit adds one to the windowed count of ticks [t, t+window-1]
	raw := make([]int, nTicks)
	diff := make([]int, nTicks+1)
	for _, hit := range accepted {
		i := hit.TimeTick - minTick
		raw[i]++
		diff[i]++
		if end := i + window; end < nTicks {
			diff[end]--
		}
	}

	history := make([]WindowCount, nTicks)
	maxCount, peakIdx := 0, 0
	running := 0
	for i := 0; i < nTicks; i++ {
		running += diff[i]
		history[i] = WindowCount{Tick: minTick + i, Count: running}
		if running > maxCount {
			maxCount, peakIdx = running, i
		}
	}

	if maxCount < threshold {
		return nil
	}

	peak := minTick + peakIdx
	windowStart := peak - window + 1

	shower := &ShowerDescriptor{
		Key:      key,
		PeakTick: peak,
		HitCount: maxCount,
		MinWire:  accepted[0].Wire,
		MaxWire:  accepted[0].Wire,
		History:  history,
		Kept:     true,
	}

	for t := max(windowStart, minTick); t <= peak; t++ {
		if raw[t-minTick] > 0 {
			bx := t
			shower.BX = &bx
			break
		}
	}

	var sumWire, sumTick float64
	for _, hit := range accepted {
		shower.MinWire = min(shower.MinWire, hit.Wire)
		shower.MaxWire = max(shower.MaxWire, hit.Wire)
		if hit.TimeTick < windowStart || hit.TimeTick > peak {
			continue
		}
		shower.Hits = append(shower.Hits, hit)
		sumWire += float64(hit.Wire)
		sumTick += float64(hit.TimeTick)
		if hit.Wire >= 0 && hit.Wire < PROFILE_BINS {
			shower.Profile[hit.Wire]++
		}
	}
	if n := len(shower.Hits); n > 0 {
		shower.AvgWire = sumWire / float64(n)
		shower.AvgTick = sumTick / float64(n)
	}

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Shower detected in %v with %d hits, peak %d", key, maxCount, peak)
		logger.Info(message, "showers")
	}
	return shower
}
