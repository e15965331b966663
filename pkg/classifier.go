package emulator

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Classifier scores shower profiles with the probability of being a
// genuine shower. Profiles of one event are scored in a single call.
type Classifier interface {
	Classify(profiles [][PROFILE_BINS]int) ([]float64, error)
}

// NoopClassifier keeps every shower and gives no score.
type NoopClassifier struct{}

func (NoopClassifier) Classify(profiles [][PROFILE_BINS]int) ([]float64, error) {
	return nil, nil
}

// LogisticClassifier is a logistic regression over the standardized profile.
type LogisticClassifier struct {
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (c *LogisticClassifier) validate() error {
	if len(c.Weights) != PROFILE_BINS {
		return fmt.Errorf("model has %d weights, expected %d", len(c.Weights), PROFILE_BINS)
	}
	if len(c.Mean) != PROFILE_BINS || len(c.Scale) != PROFILE_BINS {
		return fmt.Errorf("scaler has %d means and %d scales, expected %d", len(c.Mean), len(c.Scale), PROFILE_BINS)
	}
	return nil
}

func (c *LogisticClassifier) score(profile [PROFILE_BINS]int) float64 {
	z := c.Bias
	for i, count := range profile {
		scale := c.Scale[i]
		if scale == 0 {
			scale = 1
		}
		z += c.Weights[i] * (float64(count) - c.Mean[i]) / scale
	}
	return 1 / (1 + math.Exp(-z))
}

func (c *LogisticClassifier) Classify(profiles [][PROFILE_BINS]int) ([]float64, error) {
	scores := make([]float64, len(profiles))
	for i, profile := range profiles {
		scores[i] = c.score(profile)
	}
	return scores, nil
}

// LoadClassifier reads a JSON logistic model. An empty path selects the
// no-op classifier. On any error the no-op classifier is returned along
// with the error so the caller can warn and carry on.
func LoadClassifier(path string) (Classifier, error) {
	if path == "" {
		return NoopClassifier{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return NoopClassifier{}, &ErrOpenFile{Filename: path, Err: err}
	}
	model := &LogisticClassifier{}
	if err := json.Unmarshal(data, model); err != nil {
		return NoopClassifier{}, fmt.Errorf("error decoding classifier model %q: %w", path, err)
	}
	if err := model.validate(); err != nil {
		return NoopClassifier{}, fmt.Errorf("invalid classifier model %q: %w", path, err)
	}
	return model, nil
}

// ApplyClassifier scores all showers of an event in one batch and sets
// Kept from the threshold. Showers are never dropped when the classifier
// gives no scores or fails.
func ApplyClassifier(showers []*ShowerDescriptor, classifier Classifier, threshold float64) {
	for _, shower := range showers {
		shower.ClassifierScore = nil
		shower.Kept = true
	}
	if classifier == nil || len(showers) == 0 {
		return
	}

	profiles := make([][PROFILE_BINS]int, len(showers))
	for i, shower := range showers {
		profiles[i] = shower.Profile
	}
	scores, err := classifier.Classify(profiles)
	if err != nil {
		errMessage := fmt.Errorf("classifier failed, keeping all showers: %w", err)
		logger.Error(errMessage.Error())
		return
	}
	if scores == nil {
		return
	}
	if len(scores) != len(showers) {
		errMessage := fmt.Sprintf("classifier returned %d scores for %d showers, keeping all showers", len(scores), len(showers))
		logger.Error(errMessage)
		return
	}
	for i, shower := range showers {
		score := scores[i]
		shower.ClassifierScore = &score
		shower.Kept = score >= threshold
	}
}
