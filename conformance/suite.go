// Package conformance drives the self-test mode of sscp.Session through the
// end-to-end scenarios the protocol must satisfy and renders a pass/fail
// report.
package conformance

import (
	"fmt"
	"time"

	"github.com/springcard/sscp-host/sscp"
)

// Result is the outcome of a single scenario check.
type Result struct {
	Name     string
	Category string // framing, auth, exchange, retry, guard
	Passed   bool
	Expected string
	Actual   string
	Error    string
	Duration time.Duration
}

// Options configures which self-test vectors a run exercises and whether
// each result is echoed as it is recorded.
type Options struct {
	Vectors sscp.SelfTestVectors
	Verbose bool
}

// Summary aggregates a run's results.
type Summary struct {
	Total       int
	Passed      int
	Failed      int
	PassRate    float64
	Duration    time.Duration
	ByCategory  map[string]int
	FailedTests []string
}

// Suite runs every scenario and collects Results.
type Suite struct {
	Options   Options
	Results   []Result
	StartTime time.Time
	EndTime   time.Time
}

// NewSuite builds a Suite against the given options, defaulting to the
// canonical self-test vectors when none are supplied.
func NewSuite(opts Options) *Suite {
	if opts.Vectors.RndA == nil {
		opts.Vectors = sscp.DefaultSelfTestVectors()
	}
	return &Suite{Options: opts, Results: make([]Result, 0)}
}

// AddResult records r, optionally echoing it when verbose.
func (s *Suite) AddResult(r Result) {
	s.Results = append(s.Results, r)
	if s.Options.Verbose {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", status, r.Name, r.Actual)
	}
}

// RunAll runs every scenario category in sequence.
func (s *Suite) RunAll() error {
	s.StartTime = time.Now()
	for _, cat := range []string{"framing", "auth", "exchange", "retry", "guard"} {
		if err := s.RunCategory(cat); err != nil {
			return fmt.Errorf("conformance: category %s: %w", cat, err)
		}
	}
	s.EndTime = time.Now()
	return nil
}

// RunCategory runs the named scenario category.
func (s *Suite) RunCategory(category string) error {
	switch category {
	case "framing":
		s.runFramingScenarios()
	case "auth":
		s.runAuthScenarios()
	case "exchange":
		s.runExchangeScenarios()
	case "retry":
		s.runRetryScenarios()
	case "guard":
		s.runGuardScenarios()
	default:
		return fmt.Errorf("unknown category %q", category)
	}
	return nil
}

// GetSummary aggregates the run's Results.
func (s *Suite) GetSummary() Summary {
	sum := Summary{ByCategory: make(map[string]int), FailedTests: make([]string, 0)}
	for _, r := range s.Results {
		sum.Total++
		sum.ByCategory[r.Category]++
		if r.Passed {
			sum.Passed++
		} else {
			sum.Failed++
			sum.FailedTests = append(sum.FailedTests, r.Name)
		}
	}
	if sum.Total > 0 {
		sum.PassRate = float64(sum.Passed) / float64(sum.Total) * 100
	}
	sum.Duration = s.EndTime.Sub(s.StartTime)
	return sum
}

func (s *Suite) pass(start time.Time, category, name, actual string) Result {
	return Result{Name: name, Category: category, Passed: true, Actual: actual, Duration: time.Since(start)}
}

func (s *Suite) fail(start time.Time, category, name, expected, actual, errMsg string) Result {
	return Result{Name: name, Category: category, Passed: false, Expected: expected, Actual: actual, Error: errMsg, Duration: time.Since(start)}
}
