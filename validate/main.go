package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	emulator "github.com/dt-phase2/showers_go/pkg"
	"golang.org/x/exp/maps"
)

var configuration emulator.Configuration

var logger emulator.SlogLogger

func init() {
	logger = emulator.NewSlogLogger()
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	threshold := flag.Int("truth-threshold", 0, "Override the truth hit threshold")
	flag.Parse()

	var err error
	configuration, err = emulator.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if *threshold > 0 {
		configuration.TruthThreshold = *threshold
	}
	if configuration.FileTruth == "" {
		logger.Error("file_truth is required to validate showers")
		os.Exit(1)
	}
	emulator.SetConfiguration(configuration)
	emulator.SetLogger(logger)
	if configuration.Verbosity > 0 {
		emulator.PrintConfiguration(configuration, logger)
	}

	classifier, err := emulator.LoadClassifier(configuration.ClassifierModel)
	if err != nil {
		message := fmt.Errorf("classifier not available, keeping all showers: %w", err)
		logger.Error(message.Error())
	}

	summary, err := validate(configuration, classifier)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	fmt.Print(formatSummary(summary))
}

func validate(config emulator.Configuration, classifier emulator.Classifier) (*emulator.ValidationSummary, error) {
	files := make([]*os.File, 0, 3)
	defer func() {
		for _, file := range files {
			file.Close()
		}
	}()
	open := func(filename string) (io.Reader, error) {
		if filename == "" {
			return nil, nil
		}
		file, err := os.Open(filename)
		if err != nil {
			return nil, &emulator.ErrOpenFile{Filename: filename, Err: err}
		}
		files = append(files, file)
		return file, nil
	}
	digis, err := open(config.FileIn)
	if err != nil {
		return nil, err
	}
	truth, err := open(config.FileTruth)
	if err != nil {
		return nil, err
	}
	segments, err := open(config.FileSegments)
	if err != nil {
		return nil, err
	}
	reader := emulator.NewEventReader(digis, config.FileIn, truth, config.FileTruth, segments, config.FileSegments)

	// Record streams are not written, every group starts from a zero state
	processor := emulator.NewProcessor(config, classifier, nil)
	summary := emulator.NewValidationSummary()

	start := time.Now()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("error reading event: %w", err)
		}
		result, err := processor.ProcessEvent(event)
		if err != nil {
			message := fmt.Errorf("discarding event %d: %w", event.Number, err)
			logger.Error(message.Error())
			continue
		}
		summary.Add(result.Outcomes)
	}
	if config.Verbosity > 0 {
		message := fmt.Sprintf("Validated %d events in %d ms", summary.Events, time.Since(start).Milliseconds())
		logger.Info(message, "validate")
	}
	return summary, nil
}

func formatSummary(summary *emulator.ValidationSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Events: %d\n", summary.Events)
	fmt.Fprintf(&b, "Total: %v\n", summary.Total)
	stations := maps.Keys(summary.ByStation)
	slices.Sort(stations)
	for _, station := range stations {
		fmt.Fprintf(&b, "Station %d: %v\n", station, *summary.ByStation[station])
	}
	wheels := maps.Keys(summary.ByWheel)
	slices.Sort(wheels)
	for _, wheel := range wheels {
		fmt.Fprintf(&b, "Wheel %d: %v\n", wheel, *summary.ByWheel[wheel])
	}
	return b.String()
}
