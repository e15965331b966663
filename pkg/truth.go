package emulator

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

const (
	PDG_ELECTRON = 11
	PDG_MUON     = 13
)

type ShowerType int

const (
	MuonElectronMixed ShowerType = iota + 1
	ElectronDominated
	DuplicateSegment
)

func (s ShowerType) String() string {
	switch s {
	case MuonElectronMixed:
		return "MuonElectronMixed"
	case ElectronDominated:
		return "ElectronDominated"
	case DuplicateSegment:
		return "DuplicateSegment"
	default:
		return "Unknown"
	}
}

type GroundTruthShower struct {
	Key  GroupKey
	Type ShowerType
}

type TruthConfig struct {
	// Minimum number of distinct (layer, wire) truth hits
	Threshold int
	// Accept duplicated matched segments in the chamber as a shower when
	// the origin conditions fail
	SegmentFallback bool
}

func DefaultTruthConfig() TruthConfig {
	return TruthConfig{Threshold: 8}
}

type GroundTruthShowerBuilder struct {
	config TruthConfig
}

func NewGroundTruthShowerBuilder(config TruthConfig) *GroundTruthShowerBuilder {
	return &GroundTruthShowerBuilder{config: config}
}

type truthRow struct {
	layer  int
	wire   int
	origin int
}

// Classify labels one group from its simulation-truth hits. The returned
// bool is false when the group is not a shower.
func (b *GroundTruthShowerBuilder) Classify(key GroupKey, simHits []Hit, segments []Segment) (GroundTruthShower, bool) {
	rows := make([]truthRow, 0, len(simHits))
	seenRow := make(map[truthRow]bool)
	seenChannel := make(map[Channel]bool)
	for _, hit := range simHits {
		// Hits without a valid position are ignored
		if hit.Layer < 1 || hit.Wire < 0 {
			continue
		}
		row := truthRow{layer: hit.Layer, wire: hit.Wire, origin: hit.OriginParticleID}
		if seenRow[row] {
			continue
		}
		seenRow[row] = true
		rows = append(rows, row)
		seenChannel[Channel{Layer: hit.Layer, Wire: hit.Wire}] = true
	}

	if len(seenChannel) < b.config.Threshold || len(rows) == 0 {
		return GroundTruthShower{}, false
	}

	muons, electrons := 0, 0
	wires := make([]float64, len(rows))
	for i, row := range rows {
		switch abs(row.origin) {
		case PDG_MUON:
			muons++
		case PDG_ELECTRON:
			electrons++
		}
		wires[i] = float64(row.wire)
	}
	spread := wireVariance(wires) > 1

	shower := GroundTruthShower{Key: key}
	switch {
	case muons >= 3 && electrons >= 1 && spread:
		shower.Type = MuonElectronMixed
	case electrons >= 1 && spread:
		shower.Type = ElectronDominated
	case b.config.SegmentFallback && duplicatedSegments(key.Chamber(), segments):
		shower.Type = DuplicateSegment
	default:
		return GroundTruthShower{}, false
	}

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Truth shower in %v, type %v (muons %d, electrons %d)", key, shower.Type, muons, electrons)
		logger.Info(message, "truth")
	}
	return shower, true
}

// Build labels every group present in the simulation-truth hits.
func (b *GroundTruthShowerBuilder) Build(simHits []Hit, segments []Segment) []GroundTruthShower {
	groups := GroupHits(simHits)
	showers := make([]GroundTruthShower, 0)
	for _, key := range SortedKeys(groups) {
		if shower, ok := b.Classify(key, groups[key], segments); ok {
			showers = append(showers, shower)
		}
	}
	return showers
}

// Without segments the condition is false.
func duplicatedSegments(chamber ChamberKey, segments []Segment) bool {
	count := 0
	for _, seg := range segments {
		if (ChamberKey{Wheel: seg.Wheel, Sector: seg.Sector, Station: seg.Station}) == chamber {
			count++
		}
	}
	return count > 1
}

// Sample variance of the wire numbers, 0 for less than two values.
func wireVariance(wires []float64) float64 {
	if len(wires) < 2 {
		return 0
	}
	return stat.Variance(wires, nil)
}

func hasSpread(hits []Hit) bool {
	seen := make(map[Channel]bool)
	wires := make([]float64, 0, len(hits))
	for _, hit := range hits {
		ch := Channel{Layer: hit.Layer, Wire: hit.Wire}
		if seen[ch] {
			continue
		}
		seen[ch] = true
		wires = append(wires, float64(hit.Wire))
	}
	return wireVariance(wires) > 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
