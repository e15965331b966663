package emulator

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	HIT_FIELDS     = 10
	SEGMENT_FIELDS = 4
)

// lineReader returns the integer fields of the non-empty, non-comment
// lines of a whitespace separated text file, one event at a time. Lines of
// one event must be consecutive.
type lineReader struct {
	filename string
	nFields  int
	scanner  *bufio.Scanner
	lineNum  int
	pending  []int
	done     bool
}

func newLineReader(r io.Reader, filename string, nFields int) *lineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineReader{filename: filename, nFields: nFields, scanner: scanner}
}

func (l *lineReader) readLine() ([]int, error) {
	for l.scanner.Scan() {
		l.lineNum++
		line := strings.TrimSpace(l.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != l.nFields {
			err := fmt.Errorf("expected %d fields, got %d", l.nFields, len(fields))
			return nil, &ErrParseHit{Filename: l.filename, LineNum: l.lineNum, Err: err}
		}
		values := make([]int, l.nFields)
		for i, field := range fields {
			value, err := strconv.Atoi(field)
			if err != nil {
				return nil, &ErrParseHit{Filename: l.filename, LineNum: l.lineNum, Err: err}
			}
			values[i] = value
		}
		return values, nil
	}
	if err := l.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %q: %w", l.filename, err)
	}
	return nil, io.EOF
}

// peek returns the event number of the next event without consuming it.
func (l *lineReader) peek() (int, error) {
	if l.pending == nil {
		if l.done {
			return 0, io.EOF
		}
		values, err := l.readLine()
		if err == io.EOF {
			l.done = true
		}
		if err != nil {
			return 0, err
		}
		l.pending = values
	}
	return l.pending[0], nil
}

// next consumes all the consecutive lines of the next event.
func (l *lineReader) next() (int, [][]int, error) {
	number, err := l.peek()
	if err != nil {
		return 0, nil, err
	}
	rows := [][]int{l.pending}
	l.pending = nil
	for {
		values, err := l.readLine()
		if err == io.EOF {
			l.done = true
			break
		}
		if err != nil {
			return number, rows, err
		}
		if values[0] != number {
			l.pending = values
			break
		}
		rows = append(rows, values)
	}
	return number, rows, nil
}

func rowToHit(row []int) Hit {
	return Hit{
		Wheel:            row[1],
		Sector:           row[2],
		Station:          row[3],
		SuperLayer:       row[4],
		Layer:            row[5],
		Wire:             row[6],
		TimeTick:         row[7],
		TDC:              row[8],
		OriginParticleID: row[9],
	}
}

func rowToSegment(row []int) Segment {
	return Segment{Wheel: row[1], Sector: row[2], Station: row[3]}
}

// EventReader merges the digi, truth and segment files into events. The
// files must be ordered by event number. Truth and segments are optional.
type EventReader struct {
	digis     *lineReader
	truth     *lineReader
	segments  *lineReader
	Skip      int
	MaxEvents int
	EvtCount  int
}

// NewEventReader reads digis from digis; truth and segments may be nil.
func NewEventReader(digis io.Reader, digisName string, truth io.Reader, truthName string,
	segments io.Reader, segmentsName string) *EventReader {
	reader := &EventReader{
		digis:     newLineReader(digis, digisName, HIT_FIELDS),
		MaxEvents: configuration.MaxEvents,
		Skip:      configuration.Skip,
		EvtCount:  -1,
	}
	if truth != nil {
		reader.truth = newLineReader(truth, truthName, HIT_FIELDS)
	}
	if segments != nil {
		reader.segments = newLineReader(segments, segmentsName, SEGMENT_FIELDS)
	}
	return reader
}

func (r *EventReader) sources() []*lineReader {
	sources := make([]*lineReader, 0, 3)
	for _, source := range []*lineReader{r.digis, r.truth, r.segments} {
		if source != nil {
			sources = append(sources, source)
		}
	}
	return sources
}

func (r *EventReader) readEvent() (EventType, error) {
	number, found := 0, false
	for _, source := range r.sources() {
		n, err := source.peek()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return EventType{}, err
		}
		if !found || n < number {
			number, found = n, true
		}
	}
	if !found {
		return EventType{}, io.EOF
	}

	event := EventType{Number: number, HasTruth: r.truth != nil}
	for _, source := range r.sources() {
		n, err := source.peek()
		if err != nil || n != number {
			continue
		}
		_, rows, err := source.next()
		if err != nil {
			return event, err
		}
		for _, row := range rows {
			switch source {
			case r.digis:
				event.Digis = append(event.Digis, rowToHit(row))
			case r.truth:
				event.SimHits = append(event.SimHits, rowToHit(row))
			case r.segments:
				event.Segments = append(event.Segments, rowToSegment(row))
			}
		}
	}
	return event, nil
}

// Next returns the next event to process, io.EOF when the input is over or
// MaxEvents events have been read. Skipped events still count.
func (r *EventReader) Next() (EventType, error) {
	for {
		event, err := r.readEvent()
		if err != nil {
			return event, err
		}
		r.EvtCount++
		event.Index = r.EvtCount
		if r.EvtCount >= r.MaxEvents {
			if configuration.Verbosity > 0 {
				logger.Info("Max events reached", "reader")
			}
			return EventType{}, io.EOF
		}
		if r.EvtCount < r.Skip {
			if configuration.Verbosity > 0 {
				message := fmt.Sprintf("Skipping event %d with number %d", r.EvtCount, event.Number)
				logger.Info(message, "reader")
			}
			continue
		}
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Reading event %d with number %d (%d digis, %d truth hits, %d segments)",
				r.EvtCount, event.Number, len(event.Digis), len(event.SimHits), len(event.Segments))
			logger.Info(message, "reader")
		}
		return event, nil
	}
}
