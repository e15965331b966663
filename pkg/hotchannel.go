package emulator

// Channel is the key of the hot-channel registry. Layer is left at zero
// when the filter works on wire numbers only.
type Channel struct {
	Layer int
	Wire  int
}

type HotChannelConfig struct {
	// Registry is fully cleared every Persistence ticks. 0 disables the
	// periodic clear and the filter only compares per-channel last ticks.
	Persistence int
	ByLayer     bool
}

// Firmware buffer flavour: coarse periodic reset, channels keyed by (layer, wire)
func PeriodicHotChannels(persistence int) HotChannelConfig {
	return HotChannelConfig{Persistence: persistence, ByLayer: true}
}

// Shower counter flavour: per-wire last accepted tick, no periodic reset
func LastSeenHotChannels() HotChannelConfig {
	return HotChannelConfig{Persistence: 0, ByLayer: false}
}

// HotChannelFilter suppresses retriggers of the same channel in the same or
// the following tick. One filter belongs to one group for one event.
type HotChannelFilter struct {
	config    HotChannelConfig
	lastTick  map[Channel]int
	startTick int
	started   bool
}

func NewHotChannelFilter(config HotChannelConfig) *HotChannelFilter {
	return &HotChannelFilter{
		config:   config,
		lastTick: make(map[Channel]int),
	}
}

func (f *HotChannelFilter) Reset() {
	clear(f.lastTick)
	f.started = false
}

// Advance tells the filter the group clock reached tick. With a periodic
// configuration the registry is cleared whenever tick-start is a multiple
// of the persistence.
func (f *HotChannelFilter) Advance(tick int) {
	if !f.started {
		f.startTick = tick
		f.started = true
	}
	if f.config.Persistence > 0 && (tick-f.startTick)%f.config.Persistence == 0 {
		clear(f.lastTick)
	}
}

func (f *HotChannelFilter) channel(hit Hit) Channel {
	if f.config.ByLayer {
		return Channel{Layer: hit.Layer, Wire: hit.Wire}
	}
	return Channel{Wire: hit.Wire}
}

// Accept reports whether the hit passes and records its tick when it does.
func (f *HotChannelFilter) Accept(hit Hit) bool {
	return f.AcceptChannel(f.channel(hit), hit.TimeTick)
}

func (f *HotChannelFilter) AcceptChannel(ch Channel, tick int) bool {
	if last, ok := f.lastTick[ch]; ok && (last == tick || last == tick-1) {
		return false
	}
	f.lastTick[ch] = tick
	return true
}
