package store

import (
	"bytes"
	"fmt"
	"os"
)

// docSeparator is the YAML multi-document marker used by actions.log and any
// other append-only stream file (spec.md §6: "Audit record format: YAML
// streams, one event per record").
const docSeparator = "---\n"

// Indexed is implemented by any record appended through AppendLog; it lets
// the store assign the next monotonic sequence number without reflection.
type Indexed interface {
	SetIndex(idx int)
}

// countDocs returns how many YAML documents are already in the stream file
// at path (0 if the file does not exist or is empty).
func countDocs(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return 0, nil
	}
	return bytes.Count(data, []byte(docSeparator)), nil
}

// AppendLogEntry assigns v the next monotonic index for the stream file at
// path and appends it atomically (whole-file read + temp-file + rename,
// matching spec.md §5's "concurrent read/write-safe through atomic
// append-and-rename"). Returns the assigned index. Caller must already hold
// the task's write lock for task-scoped logs.
func appendLogEntry(path string, v Indexed) (int, error) {
	n, err := countDocs(path)
	if err != nil {
		return 0, fmt.Errorf("count existing entries in %s: %w", path, err)
	}
	idx := n + 1
	v.SetIndex(idx)

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := marshalCanonical(v)
	if err != nil {
		return 0, err
	}

	var combined []byte
	combined = append(combined, existing...)
	combined = append(combined, []byte(docSeparator)...)
	combined = append(combined, doc...)

	if err := writeFileAtomic(path, combined, 0o644); err != nil {
		return 0, err
	}
	return idx, nil
}

// readLogEntries splits the stream file at path into its raw per-document
// byte slices, in append order, for the caller to unmarshal into its own
// record type.
func readLogEntries(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	parts := bytes.Split(data, []byte(docSeparator))
	var docs [][]byte
	for _, p := range parts {
		if len(bytes.TrimSpace(p)) == 0 {
			continue
		}
		docs = append(docs, p)
	}
	return docs, nil
}
