// Package check validates computed translation features against a reference
// phrase table in Moses text format.
package check

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/chagge/phrasal/pkg/phrasal/align"
	"github.com/chagge/phrasal/pkg/phrasal/internalerr"
	"github.com/chagge/phrasal/pkg/phrasal/score"
	"github.com/chagge/phrasal/pkg/phrasal/template"
)

// DefaultTolerance is the relative error beyond which a feature counts as
// mismatched.
const DefaultTolerance = 1e-2

// Mismatch records one feature that disagreed with the reference table.
type Mismatch struct {
	Line      int
	Feature   int
	Reference float64
	Computed  float64

	SourcePhrase string
	TargetPhrase string

	ReferenceValues []float64
	ComputedValues  []float64
}

// Checker scores reference phrase-table entries through the trained model
// and compares each feature value. Reference entries are independent data:
// registering them may mint ids absent from the trained model, in which
// case the entry is reported as uncomputable rather than crashing.
type Checker struct {
	registry  *template.Registry
	scorer    *score.Scorer
	tolerance float64
	log       *slog.Logger
}

// New creates a checker over the given registry and scorer. A non-positive
// tolerance means DefaultTolerance.
func New(registry *template.Registry, scorer *score.Scorer, tolerance float64, log *slog.Logger) *Checker {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if log == nil {
		log = slog.Default()
	}
	return &Checker{registry: registry, scorer: scorer, tolerance: tolerance, log: log}
}

// CheckAgainst reads a reference phrase table and returns every feature
// mismatch. Each line must hold exactly five "|||"-delimited fields
// (source phrase, target phrase, two alignment fields, feature values); any
// other field count aborts the whole check with an error carrying the
// offending line.
func (c *Checker) CheckAgainst(r io.Reader) ([]Mismatch, error) {
	var mismatches []Mismatch

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "|||")
		if len(fields) != 5 {
			return mismatches, fmt.Errorf("line %d: expecting five fields, found %d in %q: %w",
				lineNo, len(fields), line, internalerr.ErrMalformedLine)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		cand, err := parseCandidate(fields)
		if err != nil {
			return mismatches, fmt.Errorf("line %d: %q: %w", lineNo, line, err)
		}
		c.registry.Register(cand)

		computed, ok := c.scorer.Score(cand)
		if !ok {
			c.log.Warn("reference phrase not scorable by model",
				"line", lineNo, "source", cand.SourcePhrase(), "target", cand.TargetPhrase())
			continue
		}

		reference, err := parseValues(fields[4])
		if err != nil {
			return mismatches, fmt.Errorf("line %d: %q: %w", lineNo, line, err)
		}

		for i, ref := range reference {
			if i >= len(computed) {
				c.log.Warn("reference has more features than computed",
					"line", lineNo, "reference", len(reference), "computed", len(computed))
				break
			}
			relErr := math.Abs(1 - ref/computed[i])
			if relErr > c.tolerance {
				m := Mismatch{
					Line:            lineNo,
					Feature:         i,
					Reference:       ref,
					Computed:        computed[i],
					SourcePhrase:    cand.SourcePhrase(),
					TargetPhrase:    cand.TargetPhrase(),
					ReferenceValues: reference,
					ComputedValues:  computed,
				}
				mismatches = append(mismatches, m)
				c.log.Warn("feature mismatch",
					"line", lineNo, "feature", i,
					"reference", ref, "computed", computed[i],
					"source", m.SourcePhrase, "target", m.TargetPhrase,
					"reference_values", reference, "computed_values", computed)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return mismatches, fmt.Errorf("read reference table: %w", err)
	}
	return mismatches, nil
}

func parseCandidate(fields []string) (*align.Candidate, error) {
	links, err := align.ParseLinks(fields[2])
	if err != nil {
		return nil, err
	}
	return align.NewCandidate(strings.Fields(fields[0]), strings.Fields(fields[1]), links)
}

func parseValues(s string) ([]float64, error) {
	parts := strings.Fields(s)
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("feature value %q: %w", p, internalerr.ErrMalformedLine)
		}
		values[i] = v
	}
	return values, nil
}
