package emulator

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// Superlayer 2 measures the theta view and is not read by the shower firmware
const THETA_SUPERLAYER = 2

// Hit is a single digitized signal on one drift-tube wire.
type Hit struct {
	Wheel      int
	Sector     int
	Station    int
	SuperLayer int
	Layer      int
	Wire       int
	TimeTick   int
	TDC        int
	// PDG id of the particle that produced the hit, 0 when unknown
	OriginParticleID int
}

func (h Hit) Key() GroupKey {
	return GroupKey{Wheel: h.Wheel, Sector: h.Sector, Station: h.Station, SuperLayer: h.SuperLayer}
}

// GroupKey identifies an independent processing group: one superlayer of one chamber.
type GroupKey struct {
	Wheel      int
	Sector     int
	Station    int
	SuperLayer int
}

func (k GroupKey) String() string {
	return fmt.Sprintf("wh%d_sc%d_st%d_sl%d", k.Wheel, k.Sector, k.Station, k.SuperLayer)
}

func (k GroupKey) Chamber() ChamberKey {
	return ChamberKey{Wheel: k.Wheel, Sector: k.Sector, Station: k.Station}
}

func CompareGroupKeys(a, b GroupKey) int {
	if c := cmp.Compare(a.Wheel, b.Wheel); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Sector, b.Sector); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Station, b.Station); c != 0 {
		return c
	}
	return cmp.Compare(a.SuperLayer, b.SuperLayer)
}

// ChamberKey identifies a chamber (wheel, sector, station).
type ChamberKey struct {
	Wheel   int
	Sector  int
	Station int
}

// Segment is the location of a reconstructed track segment matched to a
// generator muon. Only its chamber is needed here.
type Segment struct {
	Wheel   int
	Sector  int
	Station int
}

type EventType struct {
	Number int
	// Position of the event in the input stream, written to the record stream
	Index    int
	Digis    []Hit
	SimHits  []Hit
	Segments []Segment
	// Set when a truth source was read for the event, even without truth hits
	HasTruth bool
	Error    bool
}

// GroupHits partitions hits by GroupKey. Inside each group hits are
// ordered by tick, keeping input order for equal ticks.
func GroupHits(hits []Hit) map[GroupKey][]Hit {
	groups := make(map[GroupKey][]Hit)
	for _, hit := range hits {
		key := hit.Key()
		groups[key] = append(groups[key], hit)
	}
	for _, group := range groups {
		slices.SortStableFunc(group, func(a, b Hit) int {
			return cmp.Compare(a.TimeTick, b.TimeTick)
		})
	}
	return groups
}

// SortedKeys returns the group keys in wheel, sector, station, superlayer order.
func SortedKeys[V any](groups map[GroupKey]V) []GroupKey {
	keys := maps.Keys(groups)
	slices.SortFunc(keys, CompareGroupKeys)
	return keys
}

func tickRange(hits []Hit) (int, int, bool) {
	if len(hits) == 0 {
		return 0, 0, false
	}
	minTick, maxTick := hits[0].TimeTick, hits[0].TimeTick
	for _, hit := range hits[1:] {
		minTick = min(minTick, hit.TimeTick)
		maxTick = max(maxTick, hit.TimeTick)
	}
	return minTick, maxTick, true
}
