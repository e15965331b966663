package emulator

import "fmt"

type Outcome int

const (
	TruePositive Outcome = iota
	FalsePositive
	TrueNegative
	FalseNegative
)

func (o Outcome) String() string {
	switch o {
	case TruePositive:
		return "TP"
	case FalsePositive:
		return "FP"
	case TrueNegative:
		return "TN"
	case FalseNegative:
		return "FN"
	default:
		return "??"
	}
}

type GroupOutcome struct {
	Key     GroupKey
	Outcome Outcome
}

// CompareShowers matches firmware showers and truth showers by group key.
// Every group with a shower of either kind is classified, plus the extra
// groups given in checked. Only kept showers fire: a shower rejected by the
// classifier leaves its group a true negative or a false negative. Theta
// superlayer groups are left out since the firmware never reads them.
func CompareShowers(showers []*ShowerDescriptor, truth []GroundTruthShower, checked []GroupKey) []GroupOutcome {
	fired := make(map[GroupKey]bool)
	labelled := make(map[GroupKey]bool)
	keys := make(map[GroupKey]struct{})

	for _, shower := range showers {
		keys[shower.Key] = struct{}{}
		if shower.Kept {
			fired[shower.Key] = true
		}
	}
	for _, shower := range truth {
		labelled[shower.Key] = true
		keys[shower.Key] = struct{}{}
	}
	for _, key := range checked {
		keys[key] = struct{}{}
	}

	outcomes := make([]GroupOutcome, 0, len(keys))
	for _, key := range SortedKeys(keys) {
		if key.SuperLayer == THETA_SUPERLAYER {
			continue
		}
		var outcome Outcome
		switch {
		case labelled[key] && fired[key]:
			outcome = TruePositive
		case labelled[key]:
			outcome = FalseNegative
		case fired[key]:
			outcome = FalsePositive
		default:
			outcome = TrueNegative
		}
		outcomes = append(outcomes, GroupOutcome{Key: key, Outcome: outcome})
	}
	return outcomes
}

type OutcomeCounts struct {
	TP int
	FP int
	TN int
	FN int
}

func (c *OutcomeCounts) Add(outcome Outcome) {
	switch outcome {
	case TruePositive:
		c.TP++
	case FalsePositive:
		c.FP++
	case TrueNegative:
		c.TN++
	case FalseNegative:
		c.FN++
	}
}

func (c OutcomeCounts) String() string {
	return fmt.Sprintf("TP %d FP %d TN %d FN %d", c.TP, c.FP, c.TN, c.FN)
}

// ValidationSummary accumulates outcomes over events per station and per wheel.
type ValidationSummary struct {
	Total     OutcomeCounts
	ByStation map[int]*OutcomeCounts
	ByWheel   map[int]*OutcomeCounts
	Events    int
}

func NewValidationSummary() *ValidationSummary {
	return &ValidationSummary{
		ByStation: make(map[int]*OutcomeCounts),
		ByWheel:   make(map[int]*OutcomeCounts),
	}
}

func (s *ValidationSummary) Add(outcomes []GroupOutcome) {
	s.Events++
	for _, outcome := range outcomes {
		s.Total.Add(outcome.Outcome)
		counts(s.ByStation, outcome.Key.Station).Add(outcome.Outcome)
		counts(s.ByWheel, outcome.Key.Wheel).Add(outcome.Outcome)
	}
}

func counts(m map[int]*OutcomeCounts, key int) *OutcomeCounts {
	c, ok := m[key]
	if !ok {
		c = &OutcomeCounts{}
		m[key] = c
	}
	return c
}
