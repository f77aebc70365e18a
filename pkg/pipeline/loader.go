package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTemplateFile parses one pipeline-template YAML file, per spec.md
// §6's format: "ordered list of stage descriptors with flexibility flags
// and accepts_external mappings", grounded on pkg/registry/loader.go's
// raw-shape-then-convert idiom (the on-disk shape is nested under
// `stages:`/`reviewers:`, the in-memory Template is flatter).
func LoadTemplateFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline template %s: %w", path, err)
	}
	var raw rawTemplate
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse pipeline template %s: %w", path, err)
	}
	return raw.toTemplate(), nil
}

type rawTemplate struct {
	ID        string     `yaml:"id"`
	GoalTypes []string   `yaml:"goal_types"`
	Stages    []rawStage `yaml:"stages"`
}

type rawStage struct {
	Name            string        `yaml:"name"`
	Agent           string        `yaml:"agent"`
	Goal            string        `yaml:"goal"`
	SuccessCriteria []string      `yaml:"success_criteria"`
	Constraints     []string      `yaml:"constraints"`
	Reviewers       []rawReviewer `yaml:"reviewers"`
	Iterable        bool          `yaml:"iterable"`
	MaxRevisions    int           `yaml:"max_revisions"`
	MaxReviewRounds int           `yaml:"max_review_rounds"`
	AcceptsExternal string        `yaml:"accepts_external"`
}

type rawReviewer struct {
	Role string `yaml:"role"`
	Mode string `yaml:"mode"`
}

func (r rawTemplate) toTemplate() *Template {
	t := &Template{ID: r.ID, GoalTypes: r.GoalTypes}
	for _, s := range r.Stages {
		reviewers := make([]ReviewerConfig, 0, len(s.Reviewers))
		for _, rv := range s.Reviewers {
			reviewers = append(reviewers, ReviewerConfig{Role: rv.Role, Mode: rv.Mode})
		}
		t.Stages = append(t.Stages, StageTemplate{
			Name:               s.Name,
			AgentRole:          s.Agent,
			GoalSentence:       s.Goal,
			SuccessCriteria:    s.SuccessCriteria,
			Constraints:        s.Constraints,
			Reviewers:          reviewers,
			Iterable:           s.Iterable,
			MaxRevisions:       s.MaxRevisions,
			MaxReviewRounds:    s.MaxReviewRounds,
			SkipIfInputPresent: s.AcceptsExternal,
		})
	}
	return t
}

// LoadDir loads every *.yaml file in dir as a pipeline template and
// registers it, mirroring registry.Registry.LoadDir and
// contract.Registry.LoadDir's directory-load idiom. Returns the number of
// templates registered.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read pipeline template directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	count := 0
	for _, name := range files {
		tmpl, err := LoadTemplateFile(filepath.Join(dir, name))
		if err != nil {
			return count, err
		}
		if err := r.Register(tmpl); err != nil {
			return count, fmt.Errorf("register pipeline template from %s: %w", name, err)
		}
		count++
	}
	return count, nil
}
