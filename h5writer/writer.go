package h5writer

import (
	"errors"
	"fmt"

	emulator "github.com/dt-phase2/showers_go/pkg"
	"gonum.org/v1/hdf5"
)

type RunInfoHDF5 struct {
	RunNumber int32 `hdf5:"run_number"`
}

type EventDataHDF5 struct {
	EvtNumber int32 `hdf5:"evt_number"`
	EvtIndex  int32 `hdf5:"evt_index"`
	NShowers  int32 `hdf5:"n_showers"`
	NTruth    int32 `hdf5:"n_truth"`
	Dropped   int32 `hdf5:"dropped"`
}

// Missing BX and classifier scores are written as -1.
type ShowerHDF5 struct {
	EvtNumber  int32   `hdf5:"evt_number"`
	Wheel      int32   `hdf5:"wheel"`
	Sector     int32   `hdf5:"sector"`
	Station    int32   `hdf5:"station"`
	SuperLayer int32   `hdf5:"superlayer"`
	PeakTick   int32   `hdf5:"peak_tick"`
	HitCount   int32   `hdf5:"n_digis"`
	BX         int32   `hdf5:"bx"`
	MinWire    int32   `hdf5:"min_wire"`
	MaxWire    int32   `hdf5:"max_wire"`
	AvgWire    float64 `hdf5:"avg_wire"`
	AvgTick    float64 `hdf5:"avg_tick"`
	Score      float64 `hdf5:"score"`
	Kept       int32   `hdf5:"kept"`
}

type TruthShowerHDF5 struct {
	EvtNumber  int32 `hdf5:"evt_number"`
	Wheel      int32 `hdf5:"wheel"`
	Sector     int32 `hdf5:"sector"`
	Station    int32 `hdf5:"station"`
	SuperLayer int32 `hdf5:"superlayer"`
	Type       int32 `hdf5:"type"`
}

type OutcomeHDF5 struct {
	EvtNumber  int32 `hdf5:"evt_number"`
	Wheel      int32 `hdf5:"wheel"`
	Sector     int32 `hdf5:"sector"`
	Station    int32 `hdf5:"station"`
	SuperLayer int32 `hdf5:"superlayer"`
	Outcome    int32 `hdf5:"outcome"`
}

type Writer struct {
	File         *hdf5.File
	Filename     string
	FirstEvt     bool
	RunGroup     *hdf5.Group
	ShowersGroup *hdf5.Group
	TruthGroup   *hdf5.Group
	RunInfoTable *table
	EventTable   *table
	ShowerTable  *table
	ProfileArray *table
	TruthTable   *table
	OutcomeTable *table
	RunNumber    int
	Compression  int
	EvtCounter   int
}

func NewWriter(filename string, runNumber int, compression int) (*Writer, error) {
	writer := &Writer{Filename: filename, RunNumber: runNumber, Compression: compression}
	var err error
	if writer.File, err = openFile(filename); err != nil {
		return nil, err
	}
	if writer.RunGroup, err = createGroup(writer.File, "Run"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.ShowersGroup, err = createGroup(writer.File, "Showers"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.TruthGroup, err = createGroup(writer.File, "Truth"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}

	tables := []struct {
		dest     **table
		group    *hdf5.Group
		name     string
		datatype interface{}
	}{
		{&writer.RunInfoTable, writer.RunGroup, "runInfo", RunInfoHDF5{}},
		{&writer.EventTable, writer.RunGroup, "events", EventDataHDF5{}},
		{&writer.ShowerTable, writer.ShowersGroup, "showers", ShowerHDF5{}},
		{&writer.TruthTable, writer.TruthGroup, "showers", TruthShowerHDF5{}},
		{&writer.OutcomeTable, writer.TruthGroup, "outcomes", OutcomeHDF5{}},
	}
	for _, t := range tables {
		if *t.dest, err = createTable(t.group, t.name, t.datatype, compression); err != nil {
			return nil, errors.Join(err, writer.Close())
		}
	}
	writer.ProfileArray, err = create2dArray(writer.ShowersGroup, "profiles", emulator.PROFILE_BINS, compression)
	if err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	return writer, nil
}

func toShowerHDF5(evtNumber int, shower *emulator.ShowerDescriptor) ShowerHDF5 {
	row := ShowerHDF5{
		EvtNumber:  int32(evtNumber),
		Wheel:      int32(shower.Key.Wheel),
		Sector:     int32(shower.Key.Sector),
		Station:    int32(shower.Key.Station),
		SuperLayer: int32(shower.Key.SuperLayer),
		PeakTick:   int32(shower.PeakTick),
		HitCount:   int32(shower.HitCount),
		BX:         -1,
		MinWire:    int32(shower.MinWire),
		MaxWire:    int32(shower.MaxWire),
		AvgWire:    shower.AvgWire,
		AvgTick:    shower.AvgTick,
		Score:      -1,
	}
	if shower.BX != nil {
		row.BX = int32(*shower.BX)
	}
	if shower.ClassifierScore != nil {
		row.Score = *shower.ClassifierScore
	}
	if shower.Kept {
		row.Kept = 1
	}
	return row
}

// WriteEvent appends the showers, profiles, truth showers and outcomes
// of one event. Profiles are stored in the same order as the shower rows.
func (w *Writer) WriteEvent(result emulator.EventResult) error {
	if !w.FirstEvt {
		if err := writeEntryToTable(w.RunInfoTable, RunInfoHDF5{RunNumber: int32(w.RunNumber)}); err != nil {
			return err
		}
		w.FirstEvt = true
	}

	err := writeEntryToTable(w.EventTable, EventDataHDF5{
		EvtNumber: int32(result.Number),
		EvtIndex:  int32(result.Index),
		NShowers:  int32(len(result.Showers)),
		NTruth:    int32(len(result.TruthShowers)),
		Dropped:   int32(result.Dropped),
	})
	if err != nil {
		return err
	}

	showers := make([]ShowerHDF5, len(result.Showers))
	profiles := make([]int32, 0, len(result.Showers)*emulator.PROFILE_BINS)
	for i, shower := range result.Showers {
		showers[i] = toShowerHDF5(result.Number, shower)
		for _, count := range shower.Profile {
			profiles = append(profiles, int32(count))
		}
	}
	if err := writeArrayToTable(w.ShowerTable, &showers); err != nil {
		return err
	}
	if err := write2dArray(w.ProfileArray, &profiles, emulator.PROFILE_BINS); err != nil {
		return err
	}

	truth := make([]TruthShowerHDF5, len(result.TruthShowers))
	for i, shower := range result.TruthShowers {
		truth[i] = TruthShowerHDF5{
			EvtNumber:  int32(result.Number),
			Wheel:      int32(shower.Key.Wheel),
			Sector:     int32(shower.Key.Sector),
			Station:    int32(shower.Key.Station),
			SuperLayer: int32(shower.Key.SuperLayer),
			Type:       int32(shower.Type),
		}
	}
	if err := writeArrayToTable(w.TruthTable, &truth); err != nil {
		return err
	}

	outcomes := make([]OutcomeHDF5, len(result.Outcomes))
	for i, outcome := range result.Outcomes {
		outcomes[i] = OutcomeHDF5{
			EvtNumber:  int32(result.Number),
			Wheel:      int32(outcome.Key.Wheel),
			Sector:     int32(outcome.Key.Sector),
			Station:    int32(outcome.Key.Station),
			SuperLayer: int32(outcome.Key.SuperLayer),
			Outcome:    int32(outcome.Outcome),
		}
	}
	if err := writeArrayToTable(w.OutcomeTable, &outcomes); err != nil {
		return err
	}

	w.EvtCounter++
	return nil
}

func (w *Writer) Close() error {
	var errs []error

	tables := []*table{w.RunInfoTable, w.EventTable, w.ShowerTable, w.ProfileArray, w.TruthTable, w.OutcomeTable}
	for _, t := range tables {
		if t == nil {
			continue
		}
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing table %s: %w", t.name, err))
		}
	}
	groups := map[string]*hdf5.Group{"Run": w.RunGroup, "Showers": w.ShowersGroup, "Truth": w.TruthGroup}
	for name, group := range groups {
		if group == nil {
			continue
		}
		if err := group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", name, err))
		}
	}
	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
