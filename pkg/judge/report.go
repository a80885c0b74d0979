package judge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Status is the outcome the grading harness reports for a single test.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// Report is the harness test report carried in the judge's stdout.
type Report struct {
	Tests []TestRecord `json:"tests"`
}

// TestRecord is one entry of the harness report. Name is conventionally a short
// test identifier followed by a space and a description.
type TestRecord struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Score    Points `json:"score"`
	MaxScore Points `json:"max_score"`
	Output   string `json:"output,omitempty"`
}

// Passed reports whether the harness marked the test as passed.
func (r TestRecord) Passed() bool {
	return r.Status == StatusPassed
}

// Points keeps a score field exactly as the harness wrote it so that coercion
// errors surface when the value is used rather than when the report is read.
type Points struct {
	raw json.RawMessage
}

// IntPoints builds a Points value holding n.
func IntPoints(n int) Points {
	return Points{raw: json.RawMessage(strconv.Itoa(n))}
}

// RawPoints builds a Points value from an arbitrary JSON literal.
func RawPoints(literal string) Points {
	return Points{raw: json.RawMessage(literal)}
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Points) UnmarshalJSON(data []byte) error {
	p.raw = append(p.raw[:0], data...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Points) MarshalJSON() ([]byte, error) {
	if len(p.raw) == 0 {
		return []byte("null"), nil
	}
	return p.raw, nil
}

// Int coerces the value to an integer. Integers, numbers (truncated toward
// zero) and numeric strings are accepted; anything else is ErrMalformedScore.
func (p Points) Int() (int, error) {
	trimmed := bytes.TrimSpace(p.raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, fmt.Errorf("%w: value missing", ErrMalformedScore)
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedScore, err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformedScore, text)
		}
		return n, nil
	}

	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", ErrMalformedScore, string(trimmed))
	}
	if n, err := number.Int64(); err == nil {
		if n > math.MaxInt || n < math.MinInt {
			return 0, fmt.Errorf("%w: %s is out of range", ErrMalformedScore, number.String())
		}
		return int(n), nil
	}
	f, err := number.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrMalformedScore, number.String())
	}
	f = math.Trunc(f)
	if f >= -float64(math.MinInt) || f < float64(math.MinInt) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrMalformedScore, number.String())
	}
	return int(f), nil
}

// ErrMalformedScore marks a score field that cannot be read as an integer.
// It always wraps ErrUnavailable because it points at the harness, not the student.
var ErrMalformedScore = fmt.Errorf("%w: malformed score", ErrUnavailable)

const reportSchemaSource = `{
  "type": "object",
  "required": ["tests"],
  "properties": {
    "tests": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "status"],
        "properties": {
          "name": {"type": "string"},
          "status": {"enum": ["passed", "failed"]},
          "output": {"type": "string"}
        }
      }
    }
  }
}`

var reportSchema = jsonschema.MustCompileString("harness-report.json", reportSchemaSource)

// ParseReport decodes the harness report printed on the judge's stdout.
func ParseReport(stdout string) (Report, error) {
	text := strings.TrimSpace(stdout)
	if text == "" {
		return Report{}, fmt.Errorf("%w: empty harness report", ErrUnavailable)
	}

	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return Report{}, fmt.Errorf("%w: harness report is not json: %v", ErrUnavailable, err)
	}

	if err := reportSchema.Validate(document); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return Report{}, fmt.Errorf("%w: harness report rejected: %s", ErrUnavailable, validationErr.Error())
		}
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var report Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return Report{}, fmt.Errorf("%w: decode harness report: %v", ErrUnavailable, err)
	}

	return report, nil
}
