package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSpecFile reads one contract definition file and parses it into a Spec,
// grounded on pkg/config/loader.go's single-file YAML-decode step (before
// that function moves on to defaults/merge, which contracts don't need).
func LoadSpecFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contract file %s: %w", path, err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse contract file %s: %w", path, err)
	}
	if spec.ID == "" {
		spec.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &spec, nil
}

// LoadDir loads every *.yaml/*.yml file in dir as a contract Spec and
// registers it, returning the number of specs loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read contract directory %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		spec, err := LoadSpecFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return n, err
		}
		r.RegisterSpec(spec)
		n++
	}
	return n, nil
}
