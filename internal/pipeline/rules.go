package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
	"ortkod/internal/logging"
)

const modelPlaceholder = "{model}"

// Operators write rules in JavaScript regex syntax (lookarounds, backreferences).
const (
	patternOptions = regexp2.ECMAScript
	matchTimeout   = 100 * time.Millisecond
)

type compiledRule struct {
	id       int64
	pattern  *regexp2.Regexp
	format   string
	priority int
}

// RuleSet is an immutable, priority-sorted list of compiled rules.
type RuleSet struct {
	rules  []compiledRule
	logger *zap.Logger
}

// CompileRules keeps active rules in ascending priority. Patterns that fail to
// compile are logged and left out.
func CompileRules(rules []internal.Rule, logger *zap.Logger) RuleSet {
	logger = logging.OrNop(logger)
	sorted := make([]internal.Rule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	out := make([]compiledRule, 0, len(sorted))
	for _, r := range sorted {
		re, err := compilePattern(r.RegexPattern)
		if err != nil {
			logger.Warn("skipping rule with invalid pattern",
				zap.Int64("rule_id", r.ID),
				zap.String("pattern", r.RegexPattern),
				zap.Error(err),
			)
			continue
		}
		out = append(out, compiledRule{id: r.ID, pattern: re, format: r.OutputFormat, priority: r.Priority})
	}
	return RuleSet{rules: out, logger: logger}
}

func compilePattern(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, patternOptions)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

func (s RuleSet) logOrNop() *zap.Logger {
	return logging.OrNop(s.logger)
}

func (s RuleSet) Len() int {
	return len(s.rules)
}

// Apply rewrites orderNumber with the first matching rule. With bypass set, or
// when nothing matches, the trimmed input is returned.
func (s RuleSet) Apply(orderNumber string, bypass bool) string {
	if orderNumber == "" {
		return orderNumber
	}
	trimmed := strings.TrimSpace(orderNumber)
	if bypass {
		return trimmed
	}

	for _, r := range s.rules {
		m, err := r.pattern.FindStringMatch(trimmed)
		if err != nil {
			s.logOrNop().Warn("rule match failed",
				zap.Int64("rule_id", r.id),
				zap.String("order_number", trimmed),
				zap.Error(err),
			)
			continue
		}
		if m == nil {
			continue
		}
		model := ""
		if g := m.GroupByNumber(1); g != nil {
			model = g.String()
		}
		model = strings.ReplaceAll(model, ".", "")
		return strings.Replace(r.format, modelPlaceholder, model, 1)
	}
	return trimmed
}

// ValidatePattern reports whether pattern compiles.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return errors.New("regex pattern is required")
	}
	if _, err := compilePattern(pattern); err != nil {
		return errors.Errorf("invalid regex pattern: %w", err)
	}
	return nil
}
