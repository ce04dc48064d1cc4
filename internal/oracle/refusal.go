package oracle

import (
	"fmt"
	"regexp"
)

// Verdict is the refusal classifier's answer.
type Verdict int

const (
	Accepted Verdict = iota
	Refused
)

// Classifier decides whether a successful reply actually declined the task.
type Classifier interface {
	Classify(text string) Verdict
}

// DefaultRefusalPatterns catches the usual "cannot give investment advice"
// replies in Chinese and English. Matching is heuristic and expected to be
// tuned through configuration.
var DefaultRefusalPatterns = []string{
	`(?i)as an ai( language model)?,\s*i\b`,
	`(?i)i (can(no|')t|am unable to|won't) (provide|give|offer)[^.]*(financial|investment) advice`,
	`(?i)not (able|qualified) to (provide|give)[^.]*(financial|investment)`,
	`作为一个?(AI|人工智能|语言模型)(助手)?[,，]\s*我`,
	`我是一个?(AI|人工智能|语言模型)`,
	`(无法|不能|不便)(提供|给出)[^。]*(投资|理财|财务)建议`,
	`(超出|不在)我的(能力|服务|职责)范围`,
	`抱歉[,，]?\s*我(无法|不能)`,
}

// PatternClassifier flags a reply as refused when any pattern matches.
type PatternClassifier struct {
	patterns []*regexp.Regexp
}

// NewPatternClassifier compiles patterns; an empty list uses the defaults.
func NewPatternClassifier(patterns []string) (*PatternClassifier, error) {
	if len(patterns) == 0 {
		patterns = DefaultRefusalPatterns
	}
	c := &PatternClassifier{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile refusal pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}
	return c, nil
}

func (c *PatternClassifier) Classify(text string) Verdict {
	for _, re := range c.patterns {
		if re.MatchString(text) {
			return Refused
		}
	}
	return Accepted
}
