package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dt-phase2/showers_go/h5writer"
	emulator "github.com/dt-phase2/showers_go/pkg"
	sqlx "github.com/jmoiron/sqlx"
)

var dbConn *sqlx.DB
var configuration emulator.Configuration

var (
	logger         emulator.SlogLogger
	VerbosityLevel int
	DiscardErrors  bool
)

func init() {
	logger = emulator.NewSlogLogger()
}

func main() {
	if err := run(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = emulator.LoadConfiguration(*configFilename)
	if err != nil {
		return fmt.Errorf("Error reading configuration file: %w", err)
	}
	emulator.SetConfiguration(configuration)
	emulator.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	DiscardErrors = configuration.Discard
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		emulator.PrintConfiguration(configuration, logger)
	}

	if !configuration.NoDB {
		dbConn, err = emulator.ConnectToDatabase(configuration.DBDriver, configuration.User,
			configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			return fmt.Errorf("Error connection to database: %w", err)
		}
		defer dbConn.Close()

		if err := emulator.LoadDatabase(dbConn, configuration.RunNumber); err != nil {
			return err
		}
		configuration = emulator.GetConfiguration()
		if VerbosityLevel > 0 {
			message := fmt.Sprintf("Thresholds for run %d: %v", configuration.RunNumber, configuration.Thresholds)
			logger.Info(message, "main")
		}
	}

	classifier, err := emulator.LoadClassifier(configuration.ClassifierModel)
	if err != nil {
		message := fmt.Errorf("classifier not available, keeping all showers: %w", err)
		logger.Error(message.Error())
	}

	reader, inputs, err := openEventReader(configuration)
	defer inputs.Close()
	if err != nil {
		return err
	}

	var loader emulator.StateLoader
	var store *emulator.StreamStore
	if configuration.WriteStream {
		store, err = emulator.NewStreamStore(configuration.OutDir, configuration.DeadTime)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error(err.Error())
			}
		}()
		loader = store
	}

	var writer *h5writer.Writer
	if configuration.WriteData && configuration.FileOut != "" {
		writer, err = h5writer.NewWriter(configuration.FileOut, configuration.RunNumber, configuration.CompressionLevel)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error(err.Error())
			}
		}()
	}

	processor := emulator.NewProcessor(configuration, classifier, loader)

	start := time.Now()
	evtsProcessed, nShowers := 0, 0
	for {
		event, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("error reading event: %w", err)
		}
		result, err := processEvent(processor, event)
		if err != nil {
			var corrupt *emulator.ErrCorruptResume
			if errors.As(err, &corrupt) {
				return err
			}
			continue
		}
		if store != nil {
			if err := store.WriteRecords(result.Records); err != nil {
				return err
			}
			if err := store.WriteShowers(result.Index, result.Showers); err != nil {
				return err
			}
		}
		if writer != nil {
			if err := writer.WriteEvent(result); err != nil {
				return fmt.Errorf("error writing event %d: %w", result.Number, err)
			}
		}
		evtsProcessed++
		nShowers += len(result.Showers)
	}

	duration := time.Since(start)
	message := fmt.Sprintf("Events processed: %d, showers: %d, total time: %d ms", evtsProcessed, nShowers, duration.Milliseconds())
	logger.Info(message, "main")
	return nil
}

func processEvent(processor *emulator.Processor, event emulator.EventType) (result emulator.EventResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("emulator recovered from panic on event %d: %v", event.Number, r)
			logger.Error(err.Error())
			message := fmt.Sprintf("discarding event %d", event.Number)
			logger.Error(message)
		}
	}()

	result, err = processor.ProcessEvent(event)
	if err != nil {
		var corrupt *emulator.ErrCorruptResume
		if errors.As(err, &corrupt) {
			return result, err
		}
		message := fmt.Errorf("error processing event %d: %w", event.Number, err)
		logger.Error(message.Error())
		if DiscardErrors {
			message := fmt.Sprintf("discarding event %d", event.Number)
			logger.Error(message)
			return result, err
		}
	}
	return result, nil
}
