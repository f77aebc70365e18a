package store

import "os"

// MemoryItem is one entry in a task's rolling working-memory buffer
// (spec.md §4.5): arbitrary agent-recorded notes that survive across
// stages without re-reading full artifacts, subject to FIFO eviction
// unless pinned.
type MemoryItem struct {
	Key               string `yaml:"key"`
	Value             string `yaml:"value"`
	Pinned            bool   `yaml:"pinned,omitempty"`
	ExpiresAfterSteps int    `yaml:"expires_after_steps,omitempty"` // 0 = no expiry
	RecordedAtStep    int    `yaml:"recorded_at_step"`
}

// WorkingMemory is the content of working_memory.yaml: a bounded FIFO of
// MemoryItem, persisted as a whole file (small enough that read-modify-write
// under the task lock is sufficient; no append-log needed).
type WorkingMemory struct {
	SchemaVersion int          `yaml:"schema_version"`
	MaxItems      int          `yaml:"max_items"`
	Items         []MemoryItem `yaml:"items"`
}

// defaultMaxWorkingMemoryItems is spec.md §4.5's default max_items.
const defaultMaxWorkingMemoryItems = 5

// LoadWorkingMemory reads working_memory.yaml, returning an empty buffer
// with the default capacity if the file does not yet exist.
func (s *Store) LoadWorkingMemory(taskID string) (*WorkingMemory, error) {
	var wm WorkingMemory
	path := workingMemoryPath(s.root, taskID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &WorkingMemory{SchemaVersion: schemaVersion1, MaxItems: defaultMaxWorkingMemoryItems}, nil
	}
	if err := readYAML(path, &wm); err != nil {
		return nil, err
	}
	if wm.MaxItems <= 0 {
		wm.MaxItems = defaultMaxWorkingMemoryItems
	}
	return &wm, nil
}

// SaveWorkingMemory writes the buffer back, unconditionally trimming to
// MaxItems by FIFO eviction of the oldest unpinned item (spec.md §4.5:
// "when full, evict the oldest unpinned item before appending").
func (s *Store) SaveWorkingMemory(taskID string, wm *WorkingMemory) error {
	wm.SchemaVersion = schemaVersion1
	if wm.MaxItems <= 0 {
		wm.MaxItems = defaultMaxWorkingMemoryItems
	}
	for len(wm.Items) > wm.MaxItems {
		evictIdx := -1
		for i, it := range wm.Items {
			if !it.Pinned {
				evictIdx = i
				break
			}
		}
		if evictIdx == -1 {
			break // everything left is pinned; over capacity is allowed rather than dropping pinned data
		}
		wm.Items = append(wm.Items[:evictIdx], wm.Items[evictIdx+1:]...)
	}
	return writeYAMLAtomic(workingMemoryPath(s.root, taskID), wm)
}

// AppendWorkingMemory loads, appends one item (evicting FIFO as needed),
// and saves — a convenience wrapper for the common single-item case used
// by the context builder's load_context / record_note actions.
func (s *Store) AppendWorkingMemory(taskID string, item MemoryItem) error {
	wm, err := s.LoadWorkingMemory(taskID)
	if err != nil {
		return err
	}
	wm.Items = append(wm.Items, item)
	return s.SaveWorkingMemory(taskID, wm)
}

// PruneExpiredWorkingMemory drops unpinned items whose ExpiresAfterSteps has
// elapsed relative to currentStep, per spec.md §4.5's step-based expiry.
func (s *Store) PruneExpiredWorkingMemory(taskID string, currentStep int) error {
	wm, err := s.LoadWorkingMemory(taskID)
	if err != nil {
		return err
	}
	kept := wm.Items[:0]
	for _, it := range wm.Items {
		if !it.Pinned && it.ExpiresAfterSteps > 0 && currentStep-it.RecordedAtStep >= it.ExpiresAfterSteps {
			continue
		}
		kept = append(kept, it)
	}
	wm.Items = kept
	return s.SaveWorkingMemory(taskID, wm)
}
