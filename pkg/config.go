package emulator

import (
	"encoding/json"
	"fmt"
	"os"
)

type Configuration struct {
	MaxEvents    int    `json:"max_events"`
	Skip         int    `json:"skip"`
	Verbosity    int    `json:"verbosity"`
	FileIn       string `json:"file_in"`
	FileTruth    string `json:"file_truth"`
	FileSegments string `json:"file_segments"`
	OutDir       string `json:"out_dir"`
	FileOut      string `json:"file_out"`
	WriteData    bool   `json:"write_data"`
	WriteStream  bool   `json:"write_stream"`
	NumWorkers   int    `json:"num_workers"`
	RunNumber    int    `json:"run_number"`
	Discard      bool   `json:"discard"`
	// Shower thresholds for stations 1 to 4
	Thresholds          [4]int  `json:"thresholds"`
	TruthThreshold      int     `json:"truth_threshold"`
	FIFODepth           int     `json:"fifo_depth"`
	EmissionCap         int     `json:"emission_cap"`
	HotPersistence      int     `json:"hot_persistence"`
	TailTicks           int     `json:"tail_ticks"`
	DeadTime            int     `json:"dead_time"`
	WindowTicks         int     `json:"window_ticks"`
	SpreadCut           bool    `json:"spread_cut"`
	SegmentFallback     bool    `json:"segment_fallback"`
	ClassifierModel     string  `json:"classifier_model"`
	ClassifierThreshold float64 `json:"classifier_threshold"`
	NoDB                bool    `json:"no_db"`
	DBDriver            string  `json:"db_driver"`
	Host                string  `json:"host"`
	User                string  `json:"user"`
	Passwd              string  `json:"pass"`
	DBName              string  `json:"dbname"`
	CompressionLevel    int     `json:"compression_level"`
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

func DefaultConfiguration() Configuration {
	var config Configuration

	config.MaxEvents = 1000000000
	config.Skip = 0
	config.Verbosity = 0
	config.OutDir = "."
	config.WriteData = true
	config.WriteStream = true
	config.NumWorkers = 1
	config.Discard = true
	config.Thresholds = [4]int{6, 6, 6, 6}
	config.TruthThreshold = 8
	config.FIFODepth = 4
	config.EmissionCap = 8
	config.HotPersistence = 2
	config.TailTicks = 16
	config.DeadTime = 50
	config.WindowTicks = 16
	config.SpreadCut = false
	config.SegmentFallback = false
	config.ClassifierThreshold = 0.5
	config.NoDB = true
	config.DBDriver = "mysql"
	config.Host = "localhost"
	config.User = "dtreader"
	config.Passwd = "readonly"
	config.DBName = "DTSHOWERS"
	config.CompressionLevel = 4
	return config
}

// LoadConfiguration reads a JSON configuration file. Fields missing from
// the file keep their default value.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func (c Configuration) Validate() error {
	for i, threshold := range c.Thresholds {
		if threshold < 1 {
			return fmt.Errorf("thresholds must be >= 1, got %d for station %d", threshold, i+1)
		}
	}
	switch {
	case c.FIFODepth < 0:
		return fmt.Errorf("fifo_depth must be >= 0, got %d", c.FIFODepth)
	case c.EmissionCap < 1:
		return fmt.Errorf("emission_cap must be >= 1, got %d", c.EmissionCap)
	case c.HotPersistence < 0:
		return fmt.Errorf("hot_persistence must be >= 0, got %d", c.HotPersistence)
	case c.WindowTicks < 1:
		return fmt.Errorf("window_ticks must be >= 1, got %d", c.WindowTicks)
	case c.TailTicks < 0:
		return fmt.Errorf("tail_ticks must be >= 0, got %d", c.TailTicks)
	case c.DeadTime < 0:
		return fmt.Errorf("dead_time must be >= 0, got %d", c.DeadTime)
	case c.TruthThreshold < 1:
		return fmt.Errorf("truth_threshold must be >= 1, got %d", c.TruthThreshold)
	case c.NumWorkers < 1:
		return fmt.Errorf("num_workers must be >= 1, got %d", c.NumWorkers)
	}
	return nil
}

func (c Configuration) BufferConfig() BufferConfig {
	return BufferConfig{
		FIFODepth:   c.FIFODepth,
		EmissionCap: c.EmissionCap,
		TailTicks:   c.TailTicks,
		DeadTime:    c.DeadTime,
		HotChannels: PeriodicHotChannels(c.HotPersistence),
	}
}

func (c Configuration) DetectorConfig() DetectorConfig {
	return DetectorConfig{
		Thresholds:  c.Thresholds,
		WindowTicks: c.WindowTicks,
		SpreadCut:   c.SpreadCut,
		HotChannels: LastSeenHotChannels(),
	}
}

func (c Configuration) TruthConfig() TruthConfig {
	return TruthConfig{
		Threshold:       c.TruthThreshold,
		SegmentFallback: c.SegmentFallback,
	}
}

func PrintConfiguration(config Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File truth: %s", config.FileTruth), "config")
	logger.Info(fmt.Sprintf("File segments: %s", config.FileSegments), "config")
	logger.Info(fmt.Sprintf("Out dir: %s", config.OutDir), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Write stream: %t", config.WriteStream), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Discard: %t", config.Discard), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Thresholds: %v", config.Thresholds), "config")
	logger.Info(fmt.Sprintf("Truth threshold: %d", config.TruthThreshold), "config")
	logger.Info(fmt.Sprintf("FIFO depth: %d", config.FIFODepth), "config")
	logger.Info(fmt.Sprintf("Emission cap: %d", config.EmissionCap), "config")
	logger.Info(fmt.Sprintf("Hot persistence: %d", config.HotPersistence), "config")
	logger.Info(fmt.Sprintf("Tail ticks: %d", config.TailTicks), "config")
	logger.Info(fmt.Sprintf("Dead time: %d", config.DeadTime), "config")
	logger.Info(fmt.Sprintf("Window ticks: %d", config.WindowTicks), "config")
	logger.Info(fmt.Sprintf("Spread cut: %t", config.SpreadCut), "config")
	logger.Info(fmt.Sprintf("Segment fallback: %t", config.SegmentFallback), "config")
	logger.Info(fmt.Sprintf("Classifier model: %s", config.ClassifierModel), "config")
	logger.Info(fmt.Sprintf("Classifier threshold: %.3f", config.ClassifierThreshold), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
}
