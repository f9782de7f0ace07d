package conformance

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Report is the full conformance run, suitable for archiving or diffing
// between firmware revisions.
type Report struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   Summary   `json:"summary"`
	Results   []Result  `json:"results"`
}

// GenerateReport writes the run's results as JSON to path.
func (s *Suite) GenerateReport(path string) error {
	report := Report{
		Timestamp: time.Now(),
		Summary:   s.GetSummary(),
		Results:   s.Results,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("conformance: marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
