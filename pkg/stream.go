package emulator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const RECORD_FIELDS = 8

func StreamFilename(dir string, key GroupKey) string {
	return filepath.Join(dir, fmt.Sprintf("digis_%v.txt", key))
}

func ShowersFilename(dir string, key GroupKey) string {
	return filepath.Join(dir, fmt.Sprintf("showers_%v.txt", key))
}

// ReadResumeState returns the continuation state of an existing record
// stream: DeadTime ticks after the output time of its last record and the
// sequence id following the last one. A missing or empty stream starts
// from zero. A last line that cannot be parsed also gives the zero state,
// together with an *ErrCorruptResume.
func ReadResumeState(filename string, deadTime int) (BufferState, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return BufferState{}, nil
		}
		return BufferState{}, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()

	last, err := lastLine(file)
	if err != nil {
		return BufferState{}, fmt.Errorf("error reading record stream %q: %w", filename, err)
	}
	if last == "" {
		return BufferState{}, nil
	}

	record, err := ParseRecord(last)
	if err != nil {
		return BufferState{}, &ErrCorruptResume{Filename: filename, Line: last, Err: err}
	}
	return BufferState{
		NextOutputTime: record.OutputTime + deadTime,
		NextSequenceID: record.SequenceID + 1,
	}, nil
}

func lastLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	last := ""
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	return last, scanner.Err()
}

// ParseRecord reads one line of a record stream.
func ParseRecord(line string) (OutputRecord, error) {
	fields := strings.Fields(line)
	if len(fields) != RECORD_FIELDS {
		return OutputRecord{}, fmt.Errorf("expected %d fields, got %d", RECORD_FIELDS, len(fields))
	}
	values := make([]int, RECORD_FIELDS)
	for i, field := range fields {
		value, err := strconv.Atoi(field)
		if err != nil {
			return OutputRecord{}, fmt.Errorf("field %d: %w", i, err)
		}
		values[i] = value
	}
	return OutputRecord{
		OutputTime: values[0],
		SuperLayer: values[1],
		TimeTick:   values[2],
		ScaledTDC:  values[3],
		Layer:      values[4],
		Wire:       values[5],
		SequenceID: values[6],
		EventIndex: values[7],
	}, nil
}

type streamFile struct {
	file   *os.File
	writer *bufio.Writer
}

// StreamStore keeps one append-only record stream per group in a
// directory. It resumes existing streams through LoadState.
type StreamStore struct {
	Dir      string
	DeadTime int
	streams  map[GroupKey]*streamFile
	showers  map[GroupKey]*streamFile
}

func NewStreamStore(dir string, deadTime int) (*StreamStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output directory %q: %w", dir, err)
	}
	return &StreamStore{
		Dir:      dir,
		DeadTime: deadTime,
		streams:  make(map[GroupKey]*streamFile),
		showers:  make(map[GroupKey]*streamFile),
	}, nil
}

func (s *StreamStore) LoadState(key GroupKey) (BufferState, error) {
	filename := StreamFilename(s.Dir, key)
	state, err := ReadResumeState(filename, s.DeadTime)
	if err != nil {
		return state, err
	}
	if configuration.Verbosity > 1 && state != (BufferState{}) {
		message := fmt.Sprintf("Resuming %s at output time %d, sequence id %d", filename,
			state.NextOutputTime, state.NextSequenceID)
		logger.Info(message, "stream")
	}
	return state, nil
}

func openAppend(files map[GroupKey]*streamFile, filename string, key GroupKey) (*streamFile, error) {
	if stream, ok := files[key]; ok {
		return stream, nil
	}
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	stream := &streamFile{file: file, writer: bufio.NewWriter(file)}
	files[key] = stream
	return stream, nil
}

// WriteRecords appends the records of one event to the stream of each group.
func (s *StreamStore) WriteRecords(records map[GroupKey][]OutputRecord) error {
	for _, key := range SortedKeys(records) {
		stream, err := openAppend(s.streams, StreamFilename(s.Dir, key), key)
		if err != nil {
			return err
		}
		for _, record := range records[key] {
			if _, err := fmt.Fprintln(stream.writer, record.String()); err != nil {
				return fmt.Errorf("error writing record stream of %v: %w", key, err)
			}
		}
	}
	return nil
}

// WriteShowers appends the kept showers of one event to the shower dump
// of their group.
func (s *StreamStore) WriteShowers(eventIndex int, showers []*ShowerDescriptor) error {
	for _, shower := range showers {
		if !shower.Kept {
			continue
		}
		stream, err := openAppend(s.showers, ShowersFilename(s.Dir, shower.Key), shower.Key)
		if err != nil {
			return err
		}
		if err := writeShower(stream.writer, eventIndex, shower); err != nil {
			return fmt.Errorf("error writing shower dump of %v: %w", shower.Key, err)
		}
	}
	return nil
}

func writeShower(w io.Writer, eventIndex int, shower *ShowerDescriptor) error {
	bx := "None"
	if shower.BX != nil {
		bx = strconv.Itoa(*shower.BX)
	}
	profile := make([]string, PROFILE_BINS)
	for i, count := range shower.Profile {
		profile[i] = strconv.Itoa(count)
	}
	_, err := fmt.Fprintf(w, "# Event %d\nsl: %d\nnDigis: %d\nBX: %s\nminW: %d\nmaxW: %d\navgPos: %g\navgTime: %g\nwires_profile: [%s]\n",
		eventIndex, shower.Key.SuperLayer, shower.HitCount, bx, shower.MinWire, shower.MaxWire,
		shower.AvgWire, shower.AvgTick, strings.Join(profile, ", "))
	return err
}

func (s *StreamStore) Flush() error {
	var errs []error
	for key, stream := range s.streams {
		if err := stream.writer.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("error flushing record stream of %v: %w", key, err))
		}
	}
	for key, stream := range s.showers {
		if err := stream.writer.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("error flushing shower dump of %v: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *StreamStore) Close() error {
	errs := []error{s.Flush()}
	for key, stream := range s.streams {
		if err := stream.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing record stream of %v: %w", key, err))
		}
	}
	for key, stream := range s.showers {
		if err := stream.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing shower dump of %v: %w", key, err))
		}
	}
	clear(s.streams)
	clear(s.showers)
	return errors.Join(errs...)
}
