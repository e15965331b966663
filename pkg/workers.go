package emulator

import (
	"fmt"
	"sync"
)

// StateLoader provides the continuation state of a group the first time
// the group is seen by a Processor.
type StateLoader interface {
	LoadState(key GroupKey) (BufferState, error)
}

type GroupResult struct {
	Key     GroupKey
	Records []OutputRecord
	Shower  *ShowerDescriptor
	Dropped int
	Error   error
}

type EventResult struct {
	Number  int
	Index   int
	Records map[GroupKey][]OutputRecord
	// Ordered by group key
	Showers      []*ShowerDescriptor
	TruthShowers []GroundTruthShower
	Outcomes     []GroupOutcome
	Dropped      int
}

type groupJob struct {
	key        GroupKey
	hits       []Hit
	eventIndex int
	buffer     *RetransmissionBuffer
}

// Processor runs the buffer, the shower detector and the truth builder
// over events. Buffer states live here between events.
type Processor struct {
	bufferConfig        BufferConfig
	detector            *WindowedShowerDetector
	truth               *GroundTruthShowerBuilder
	classifier          Classifier
	classifierThreshold float64
	numWorkers          int
	loader              StateLoader
	buffers             map[GroupKey]*RetransmissionBuffer
}

func NewProcessor(config Configuration, classifier Classifier, loader StateLoader) *Processor {
	if classifier == nil {
		classifier = NoopClassifier{}
	}
	return &Processor{
		bufferConfig:        config.BufferConfig(),
		detector:            NewWindowedShowerDetector(config.DetectorConfig()),
		truth:               NewGroundTruthShowerBuilder(config.TruthConfig()),
		classifier:          classifier,
		classifierThreshold: config.ClassifierThreshold,
		numWorkers:          max(config.NumWorkers, 1),
		loader:              loader,
		buffers:             make(map[GroupKey]*RetransmissionBuffer),
	}
}

// States returns the current continuation state of every group seen so far.
func (p *Processor) States() map[GroupKey]BufferState {
	states := make(map[GroupKey]BufferState, len(p.buffers))
	for key, buffer := range p.buffers {
		states[key] = buffer.State
	}
	return states
}

func (p *Processor) buffer(key GroupKey) (*RetransmissionBuffer, error) {
	if buffer, ok := p.buffers[key]; ok {
		return buffer, nil
	}
	var state BufferState
	if p.loader != nil {
		var err error
		state, err = p.loader.LoadState(key)
		if err != nil {
			return nil, fmt.Errorf("error loading buffer state of %v: %w", key, err)
		}
	}
	buffer := NewRetransmissionBuffer(key, p.bufferConfig, state)
	p.buffers[key] = buffer
	return buffer, nil
}

func worker(id int, detector *WindowedShowerDetector, jobs <-chan groupJob, results chan<- GroupResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		results <- processGroup(id, detector, job)
	}
}

func processGroup(id int, detector *WindowedShowerDetector, job groupJob) (result GroupResult) {
	result.Key = job.key
	var saved BufferState
	if job.buffer != nil {
		saved = job.buffer.State
	}
	defer func() {
		if r := recover(); r != nil {
			// Records of a failed group are never written, its stream
			// continues from the saved state
			if job.buffer != nil {
				job.buffer.State = saved
			}
			result = GroupResult{Key: job.key}
			result.Error = fmt.Errorf("worker %d recovered from panic on group %v: %v", id, job.key, r)
		}
	}()

	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Worker %d processing group %v (%d hits)", id, job.key, len(job.hits))
		logger.Info(message, "workers")
	}
	if job.key.SuperLayer == THETA_SUPERLAYER {
		return result
	}
	result.Records = job.buffer.ProcessEvent(job.hits, job.eventIndex)
	result.Dropped = job.buffer.Dropped
	result.Shower = detector.Detect(job.key, job.hits)
	return result
}

// ProcessEvent runs every group of the event through the workers, scores
// the showers in one classifier call and builds the truth showers.
func (p *Processor) ProcessEvent(event EventType) (EventResult, error) {
	result := EventResult{
		Number:  event.Number,
		Index:   event.Index,
		Records: make(map[GroupKey][]OutputRecord),
		Showers: make([]*ShowerDescriptor, 0),
	}

	groups := GroupHits(event.Digis)
	keys := SortedKeys(groups)

	// Buffers are created here, before the workers start, so the map is
	// never written concurrently
	jobsList := make([]groupJob, 0, len(keys))
	for _, key := range keys {
		job := groupJob{key: key, hits: groups[key], eventIndex: event.Index}
		if key.SuperLayer != THETA_SUPERLAYER {
			buffer, err := p.buffer(key)
			if err != nil {
				return result, err
			}
			job.buffer = buffer
		}
		jobsList = append(jobsList, job)
	}

	jobs := make(chan groupJob, len(jobsList))
	results := make(chan GroupResult, len(jobsList))
	var wg sync.WaitGroup
	for w := 1; w <= p.numWorkers; w++ {
		wg.Add(1)
		go worker(w, p.detector, jobs, results, &wg)
	}
	for _, job := range jobsList {
		jobs <- job
	}
	close(jobs)
	wg.Wait()
	close(results)

	byKey := make(map[GroupKey]GroupResult, len(jobsList))
	var errs []error
	for groupResult := range results {
		if groupResult.Error != nil {
			errs = append(errs, groupResult.Error)
			continue
		}
		byKey[groupResult.Key] = groupResult
	}
	for _, key := range SortedKeys(byKey) {
		groupResult := byKey[key]
		if len(groupResult.Records) > 0 {
			result.Records[key] = groupResult.Records
		}
		if groupResult.Shower != nil {
			result.Showers = append(result.Showers, groupResult.Shower)
		}
		result.Dropped += groupResult.Dropped
	}
	for _, err := range errs {
		logger.Error(err.Error())
	}

	ApplyClassifier(result.Showers, p.classifier, p.classifierThreshold)

	// Without truth hits every kept shower is a false positive
	if event.HasTruth || len(event.SimHits) > 0 {
		result.TruthShowers = p.truth.Build(event.SimHits, event.Segments)
		result.Outcomes = CompareShowers(result.Showers, result.TruthShowers, keys)
	}

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Event %d: %d groups, %d showers, %d truth showers", event.Number,
			len(keys), len(result.Showers), len(result.TruthShowers))
		logger.Info(message, "workers")
	}
	if len(errs) > 0 {
		return result, fmt.Errorf("event %d: %d groups failed", event.Number, len(errs))
	}
	return result, nil
}
