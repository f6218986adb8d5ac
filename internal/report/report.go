// Package report writes a machine-readable record of a cancellation pass.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/supersede/internal/service/supersede"
)

// Report is the YAML document written after a pass.
type Report struct {
	Invocation   string     `yaml:"invocation"`
	Repository   string     `yaml:"repository"`
	CurrentRunID int64      `yaml:"current_run_id"`
	Branch       string     `yaml:"branch"`
	HeadSHA      string     `yaml:"head_sha"`
	StartedAt    time.Time  `yaml:"started_at"`
	FinishedAt   time.Time  `yaml:"finished_at"`
	Cancelled    int        `yaml:"cancelled"`
	Failures     int        `yaml:"failures"`
	Workflows    []Workflow `yaml:"workflows"`
}

// Workflow is the record of one target workflow pipeline.
type Workflow struct {
	Target     string         `yaml:"workflow_id"`
	Candidates int            `yaml:"candidates"`
	Duplicates []int64        `yaml:"duplicates,omitempty"`
	Gate       *Gate          `yaml:"gate,omitempty"`
	Cancels    []Cancellation `yaml:"cancellations,omitempty"`
	Error      string         `yaml:"error,omitempty"`
}

// Gate records a gate wait.
type Gate struct {
	State string `yaml:"state"`
	JobID int64  `yaml:"job_id,omitempty"`
	Job   string `yaml:"job,omitempty"`
	Polls int    `yaml:"polls"`
}

// Cancellation records one cancel request.
type Cancellation struct {
	RunID   int64  `yaml:"run_id"`
	HeadSHA string `yaml:"head_sha"`
	URL     string `yaml:"url,omitempty"`
	OK      bool   `yaml:"ok"`
	Error   string `yaml:"error,omitempty"`
}

// Meta identifies the pass a report belongs to.
type Meta struct {
	Invocation string
	Repository string
	StartedAt  time.Time
	FinishedAt time.Time
}

// FromSummary builds a report from a pass summary.
func FromSummary(meta Meta, s *supersede.Summary) *Report {
	r := &Report{
		Invocation:   meta.Invocation,
		Repository:   meta.Repository,
		CurrentRunID: s.CurrentRunID,
		Branch:       s.Branch,
		HeadSHA:      s.HeadSHA,
		StartedAt:    meta.StartedAt.UTC(),
		FinishedAt:   meta.FinishedAt.UTC(),
		Cancelled:    s.Cancelled(),
		Failures:     s.Failures(),
		Workflows:    make([]Workflow, 0, len(s.Pipelines)),
	}

	for _, p := range s.Pipelines {
		w := Workflow{
			Target:     string(p.Target),
			Candidates: len(p.Candidates),
		}
		for _, d := range p.Duplicates {
			w.Duplicates = append(w.Duplicates, d.ID)
		}
		if p.Gate.Job != nil {
			w.Gate = &Gate{
				State: string(p.Gate.State),
				JobID: p.Gate.Job.ID,
				Job:   p.Gate.Job.Name,
				Polls: p.Gate.Polls,
			}
		}
		for _, o := range p.Outcomes {
			c := Cancellation{
				RunID:   o.Run.ID,
				HeadSHA: o.Run.HeadSHA,
				URL:     o.Run.HTMLURL,
				OK:      o.Cancelled(),
			}
			if o.Err != nil {
				c.Error = o.Err.Error()
			}
			w.Cancels = append(w.Cancels, c)
		}
		if p.Err != nil {
			w.Error = p.Err.Error()
		}
		r.Workflows = append(r.Workflows, w)
	}

	return r
}

// Write encodes r as YAML and writes it atomically to path.
func Write(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}
