// Package plan loads and validates the implementation plan document.
// A plan is a tree of Project -> Phase -> Task -> Subtask records; subtasks
// are the leaves that map one-to-one onto tracker issues.
package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is the parsed implementation plan.
type Plan struct {
	Project string  `yaml:"project"`
	Phases  []Phase `yaml:"phases"`
}

// Phase groups related tasks, typically mapped to a milestone.
type Phase struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Tasks       []Task `yaml:"tasks"`
}

// Task groups subtasks under a phase.
type Task struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Subtasks    []SubtaskNode `yaml:"subtasks"`
}

// SubtaskNode is the raw YAML form of a subtask, before the owning
// phase/task names are attached.
type SubtaskNode struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	EstimatedPoints int      `yaml:"estimated_points"`
	Labels          []string `yaml:"labels"`
}

// Subtask is a leaf work item with its owning task and phase attached.
// Identity for reconciliation is Name; the owning names are context for
// the drafted issue body only.
type Subtask struct {
	Name            string
	Description     string
	EstimatedPoints int
	Labels          []string
	TaskName        string
	PhaseName       string
}

// Load reads and validates a plan document from the given path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a plan document.
func Parse(data []byte) (*Plan, error) {
	p := &Plan{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing plan YAML: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// validate checks the plan structure and reports the first offending path.
func (p *Plan) validate() error {
	if p.Project == "" {
		return fmt.Errorf("plan: missing project name")
	}
	if len(p.Phases) == 0 {
		return fmt.Errorf("plan: missing phases")
	}
	for i, phase := range p.Phases {
		if phase.Name == "" {
			return fmt.Errorf("phases[%d]: missing name", i)
		}
		if len(phase.Tasks) == 0 {
			return fmt.Errorf("phases[%d] (%s): missing tasks", i, phase.Name)
		}
		for j, task := range phase.Tasks {
			if task.Name == "" {
				return fmt.Errorf("phases[%d].tasks[%d]: missing name", i, j)
			}
			if len(task.Subtasks) == 0 {
				return fmt.Errorf("phases[%d].tasks[%d] (%s): missing subtasks", i, j, task.Name)
			}
			for k, st := range task.Subtasks {
				path := fmt.Sprintf("phases[%d].tasks[%d].subtasks[%d]", i, j, k)
				if st.Name == "" {
					return fmt.Errorf("%s: missing name", path)
				}
				if st.Description == "" {
					return fmt.Errorf("%s (%s): missing description", path, st.Name)
				}
				if st.EstimatedPoints < 0 {
					return fmt.Errorf("%s (%s): estimated_points must be non-negative, got %d",
						path, st.Name, st.EstimatedPoints)
				}
			}
		}
	}
	return nil
}

// Subtasks returns every leaf in plan traversal order (phase, then task,
// then subtask) with owning names attached. Order is stable so downstream
// reports are deterministic.
func (p *Plan) Subtasks() []Subtask {
	var out []Subtask
	for _, phase := range p.Phases {
		for _, task := range phase.Tasks {
			for _, st := range task.Subtasks {
				out = append(out, Subtask{
					Name:            st.Name,
					Description:     st.Description,
					EstimatedPoints: st.EstimatedPoints,
					Labels:          st.Labels,
					TaskName:        task.Name,
					PhaseName:       phase.Name,
				})
			}
		}
	}
	return out
}

// Summary aggregates plan counts for display.
type Summary struct {
	Project     string
	Phases      int
	Tasks       int
	Subtasks    int
	TotalPoints int
	Labels      []string
}

// Summary computes counts and the distinct label set across the plan.
func (p *Plan) Summary() Summary {
	s := Summary{Project: p.Project, Phases: len(p.Phases)}
	seen := make(map[string]bool)
	for _, phase := range p.Phases {
		s.Tasks += len(phase.Tasks)
		for _, task := range phase.Tasks {
			s.Subtasks += len(task.Subtasks)
			for _, st := range task.Subtasks {
				s.TotalPoints += st.EstimatedPoints
				for _, l := range st.Labels {
					if !seen[l] {
						seen[l] = true
						s.Labels = append(s.Labels, l)
					}
				}
			}
		}
	}
	return s
}
