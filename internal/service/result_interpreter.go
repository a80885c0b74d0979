package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/pkg/judge"
)

// FeedbackDisclaimer opens every feedback console log.
const FeedbackDisclaimer = "Note: These tests may or may not be used in final score calculation.\n"

// PassedConsoleLog is the console log of a passed scored test.
const PassedConsoleLog = "Passed"

// FailureRule rewrites the feedback line of a failed test whose output it recognises.
type FailureRule interface {
	Matches(record judge.TestRecord) bool
	Format(record judge.TestRecord) string
}

// SyntaxErrorRule condenses interpreter tracebacks ending in a syntax error to
// a fixed subset of their lines.
type SyntaxErrorRule struct {
	Marker string
	Header string
	Lines  []int
}

// DefaultSyntaxErrorRule returns the rule tuned for the judge's Python runtime.
func DefaultSyntaxErrorRule() SyntaxErrorRule {
	return SyntaxErrorRule{
		Marker: "invalid syntax\n\n",
		Header: "Running tests failed due to a syntax error.\n",
		Lines:  []int{1, 8, 9, 10, 11},
	}
}

func (r SyntaxErrorRule) Matches(record judge.TestRecord) bool {
	return !record.Passed() && r.Marker != "" && strings.HasSuffix(record.Output, r.Marker)
}

func (r SyntaxErrorRule) Format(record judge.TestRecord) string {
	lines := splitLines(record.Output)
	kept := make([]string, 0, len(r.Lines))
	for _, index := range r.Lines {
		if index >= 0 && index < len(lines) {
			kept = append(kept, lines[index])
		}
	}
	return r.Header + strings.Join(kept, "\n") + "\n"
}

// splitLines breaks text on line terminators without producing a trailing empty line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// testID returns the short identifier that prefixes a harness test name.
func testID(name string) string {
	id, _, _ := strings.Cut(name, " ")
	return id
}

// ResultInterpreter turns harness reports into console logs and scored tests.
type ResultInterpreter struct {
	rules []FailureRule
}

// NewResultInterpreter builds an interpreter. Without rules the default syntax
// error rule applies.
func NewResultInterpreter(rules ...FailureRule) *ResultInterpreter {
	if len(rules) == 0 {
		rules = []FailureRule{DefaultSyntaxErrorRule()}
	}
	return &ResultInterpreter{rules: rules}
}

// ConsoleLog renders a feedback run: one terse entry per test in report order.
func (ri *ResultInterpreter) ConsoleLog(report judge.Report) dto.ConsoleLog {
	var out strings.Builder
	out.WriteString(FeedbackDisclaimer)

	for _, record := range report.Tests {
		if record.Passed() {
			out.WriteString(testID(record.Name) + " passed!\n")
			continue
		}
		out.WriteString(ri.formatFailure(record))
	}

	log := out.String()
	_, size := utf8.DecodeLastRuneInString(log)
	log = log[:len(log)-size]
	return dto.ConsoleLog{ConsoleLog: log}
}

func (ri *ResultInterpreter) formatFailure(record judge.TestRecord) string {
	for _, rule := range ri.rules {
		if rule.Matches(record) {
			return rule.Format(record)
		}
	}
	return testID(record.Name) + " " + record.Output
}

// ScoredTests converts a scoring run. Score fields that are not integers fail
// the whole conversion with judge.ErrMalformedScore.
func (ri *ResultInterpreter) ScoredTests(report judge.Report) ([]dto.ScoredTest, error) {
	scored := make([]dto.ScoredTest, 0, len(report.Tests))
	for i, record := range report.Tests {
		score, err := record.Score.Int()
		if err != nil {
			return nil, fmt.Errorf("test %d (%s) score: %w", i, record.Name, err)
		}
		maxScore, err := record.MaxScore.Int()
		if err != nil {
			return nil, fmt.Errorf("test %d (%s) max_score: %w", i, record.Name, err)
		}

		consoleLog := record.Output
		if record.Passed() {
			consoleLog = PassedConsoleLog
		}

		scored = append(scored, dto.ScoredTest{
			TestName:   record.Name,
			Score:      score,
			MaxScore:   maxScore,
			ConsoleLog: consoleLog,
		})
	}
	return scored, nil
}
