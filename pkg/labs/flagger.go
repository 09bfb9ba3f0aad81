package labs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Direction tells which side of the reference range a value fell on.
type Direction string

const (
	Low  Direction = "low"
	High Direction = "high"
)

// Flag is one out-of-range observation.
type Flag struct {
	TestName  string
	Value     float64
	Direction Direction
	Range     ReferenceRange
}

// String renders the flag the way it is shown to the user, e.g. "Hemoglobin is low (10.0)".
func (f Flag) String() string {
	return fmt.Sprintf("%s is %s (%s)", f.TestName, f.Direction, formatValue(f.Value))
}

// Flagger scans report text for "<test name> <number>" and compares each
// number against the test's reference range. It is a best-effort heuristic:
// only a number directly after a recognized test name is considered, and every
// occurrence is reported, including repeats of the same test.
type Flagger struct {
	ranges   []ReferenceRange
	patterns []*regexp.Regexp
}

// NewFlagger compiles a matcher for every range. Test names match literally.
func NewFlagger(ranges []ReferenceRange) *Flagger {
	f := &Flagger{
		ranges:   make([]ReferenceRange, len(ranges)),
		patterns: make([]*regexp.Regexp, len(ranges)),
	}
	copy(f.ranges, ranges)
	for i, r := range f.ranges {
		f.patterns[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(r.TestName) + `\s+(\d+\.?\d*)`)
	}
	return f
}

// NewDefaultFlagger uses the built-in reference range table.
func NewDefaultFlagger() *Flagger {
	return NewFlagger(defaultRanges)
}

// Ranges returns the table this flagger checks against.
func (f *Flagger) Ranges() []ReferenceRange {
	out := make([]ReferenceRange, len(f.ranges))
	copy(out, f.ranges)
	return out
}

// Flag returns every out-of-range value found in text, in table order and then
// text order. A value that fails to parse is skipped.
func (f *Flagger) Flag(text string) []Flag {
	var flags []Flag
	lower := strings.ToLower(text)

	for i, r := range f.ranges {
		if !strings.Contains(lower, strings.ToLower(r.TestName)) {
			continue
		}

		for _, m := range f.patterns[i].FindAllStringSubmatch(text, -1) {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}

			switch {
			case value < r.Low:
				flags = append(flags, Flag{TestName: r.TestName, Value: value, Direction: Low, Range: r})
			case value > r.High:
				flags = append(flags, Flag{TestName: r.TestName, Value: value, Direction: High, Range: r})
			}
		}
	}

	return flags
}

// Messages renders flags as display strings.
func Messages(flags []Flag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.String())
	}
	return out
}

// formatValue keeps one decimal place on whole numbers so 10 prints as "10.0".
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
