// Package scan runs repository-wide compliance scans. Artifacts are
// processed in bounded-size groups: concurrent within a group, sequential
// across groups, so resource usage stays capped. Cancellation is honored
// between groups; a started group always finishes so the learning store
// never sees a partial group.
package scan

import (
	"context"
	"sync"

	"govline/internal/compliance"
	"govline/internal/domain"
	"govline/internal/learning"
)

// Artifact is one unit of scannable text.
type Artifact struct {
	Path string
	Text string
}

// Result pairs an artifact with its compliance report.
type Result struct {
	Path   string            `json:"path"`
	Report compliance.Report `json:"report"`
}

// Summary aggregates a whole batch scan.
type Summary struct {
	Scanned    int                     `json:"scanned"`
	Compliant  int                     `json:"compliant"`
	Violations domain.ViolationSummary `json:"violations"`
	Results    []Result                `json:"results"`
	Canceled   bool                    `json:"canceled"`
}

type Scanner struct {
	Validator *compliance.Validator
	Learning  *learning.Store
	// Agent attributed on learned patterns.
	Agent     string
	GroupSize int
}

func New(validator *compliance.Validator, store *learning.Store, agent string, groupSize int) *Scanner {
	if groupSize < 1 {
		groupSize = 1
	}
	return &Scanner{Validator: validator, Learning: store, Agent: agent, GroupSize: groupSize}
}

// Run scans all artifacts. Violations from each completed group are
// recorded to the learning store before the next group starts.
func (s *Scanner) Run(ctx context.Context, artifacts []Artifact) (Summary, error) {
	summary := Summary{}
	for start := 0; start < len(artifacts); start += s.GroupSize {
		select {
		case <-ctx.Done():
			summary.Canceled = true
			return summary, ctx.Err()
		default:
		}
		end := start + s.GroupSize
		if end > len(artifacts) {
			end = len(artifacts)
		}
		group := artifacts[start:end]
		results := make([]Result, len(group))
		var wg sync.WaitGroup
		for i, artifact := range group {
			wg.Add(1)
			go func(i int, artifact Artifact) {
				defer wg.Done()
				results[i] = Result{
					Path:   artifact.Path,
					Report: s.Validator.Evaluate(artifact.Text, artifact.Path),
				}
			}(i, artifact)
		}
		wg.Wait()

		for _, result := range results {
			summary.Scanned++
			if result.Report.Compliant {
				summary.Compliant++
			}
			summary.Violations.Errors += result.Report.Summary.Errors
			summary.Violations.Warnings += result.Report.Summary.Warnings
			summary.Violations.Info += result.Report.Summary.Info
			summary.Results = append(summary.Results, result)
			if s.Learning == nil {
				continue
			}
			for _, v := range result.Report.Violations {
				p := learning.FromViolation(s.Agent, result.Path, "", v)
				if err := s.Learning.Learn(ctx, p); err != nil {
					return summary, err
				}
			}
		}
	}
	return summary, nil
}
