package merge

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cumulate/internal/model"
)

// Rule is one rung of the classification ladder: values strictly greater
// than Over map to Class.
type Rule struct {
	Class model.ScoringClass `yaml:"class"`
	Over  float64            `yaml:"over"`
}

// Ladder is an ordered threshold ladder evaluated top-down on the latest
// points value. The first rule whose threshold the value strictly exceeds
// wins; a value exactly at a threshold falls through to the next rung, and
// values below every rung get Default.
type Ladder struct {
	Rules   []Rule             `yaml:"classes"`
	Default model.ScoringClass `yaml:"default"`
}

// DefaultLadder returns the standard scoring ladder: >20 star, >15 good,
// >10 average, else bad.
func DefaultLadder() Ladder {
	return Ladder{
		Rules: []Rule{
			{Class: model.ClassStar, Over: 20},
			{Class: model.ClassGood, Over: 15},
			{Class: model.ClassAverage, Over: 10},
		},
		Default: model.ClassBad,
	}
}

// Classify maps a points value to its scoring class.
func (l Ladder) Classify(points float64) model.ScoringClass {
	for _, r := range l.Rules {
		if points > r.Over {
			return r.Class
		}
	}
	return l.Default
}

// Validate checks that the ladder is non-degenerate: at least one rule,
// strictly descending thresholds, a default class, and no empty class names.
func (l Ladder) Validate() error {
	if len(l.Rules) == 0 {
		return eris.New("classify: ladder has no rules")
	}
	if l.Default == "" {
		return eris.New("classify: ladder has no default class")
	}
	prev := l.Rules[0].Over
	for i, r := range l.Rules {
		if r.Class == "" {
			return eris.Errorf("classify: rule %d has no class", i)
		}
		if i > 0 && r.Over >= prev {
			return eris.Errorf("classify: rule %d threshold %.2f not below previous %.2f", i, r.Over, prev)
		}
		prev = r.Over
	}
	return nil
}

// LoadLadder reads a classification ladder from a YAML rule file.
func LoadLadder(path string) (Ladder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ladder{}, eris.Wrapf(err, "classify: read rule file %s", path)
	}

	var l Ladder
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Ladder{}, eris.Wrapf(err, "classify: parse rule file %s", path)
	}

	if err := l.Validate(); err != nil {
		return Ladder{}, err
	}
	return l, nil
}
