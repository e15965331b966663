package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	emulator "github.com/dt-phase2/showers_go/pkg"
)

// inputFiles holds the open input files of one run.
type inputFiles struct {
	files []*os.File
}

func (in *inputFiles) open(filename string) (*os.File, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &emulator.ErrOpenFile{Filename: filename, Err: err}
	}
	in.files = append(in.files, file)
	return file, nil
}

func (in *inputFiles) Close() error {
	var errs []error
	for _, file := range in.files {
		if err := file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", file.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// openEventReader opens the digis file and, when configured, the truth and
// segments files.
func openEventReader(config emulator.Configuration) (*emulator.EventReader, *inputFiles, error) {
	in := &inputFiles{}
	digis, err := in.open(config.FileIn)
	if err != nil {
		return nil, in, err
	}

	var truth, segments io.Reader
	if config.FileTruth != "" {
		file, err := in.open(config.FileTruth)
		if err != nil {
			return nil, in, err
		}
		truth = file
	}
	if config.FileSegments != "" {
		file, err := in.open(config.FileSegments)
		if err != nil {
			return nil, in, err
		}
		segments = file
	}

	reader := emulator.NewEventReader(digis, config.FileIn, truth, config.FileTruth, segments, config.FileSegments)
	return reader, in, nil
}
