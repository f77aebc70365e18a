package toolbridge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// Built-in tool names, per spec.md §4.4's list: "read_file, edit_file,
// run_check, search_code, run_tests, complete, escalate, cannot_fix".
// complete/escalate/cannot_fix are terminal actions the executor
// recognizes by name (executor.ToolComplete etc.) and never dispatches
// through a Backend, so only the regular tools are registered here.
const (
	ToolReadFile   = "read_file"
	ToolEditFile   = "edit_file"
	ToolListDir    = "list_dir"
	ToolSearchCode = "search_code"
	ToolRunTests   = "run_tests"
)

// NewDefaultRegistry builds a Registry wired with real local-filesystem
// tool backends rooted at repoRoot, grounded on pkg/mcp/executor.go's
// Execute dispatch (parse args, run the underlying operation, translate
// failures into a well-formed error ToolResult rather than a Go error) —
// generalized from "call a remote MCP server" to "operate on the task's
// checked-out repository directly", since AgentForge agents edit a real
// local codebase rather than routing through external tool servers.
func NewDefaultRegistry(repoRoot string) *Registry {
	r := NewRegistry()
	r.MustRegister(ToolDefinition{
		Name:        ToolReadFile,
		Description: "Read a file's contents.",
		PathParams:  []string{"path"},
	}, BackendFunc(readFileBackend(repoRoot)))
	r.MustRegister(ToolDefinition{
		Name:        ToolEditFile,
		Description: "Overwrite a file with new contents, creating it and any parent directories if needed.",
		PathParams:  []string{"path"},
	}, BackendFunc(editFileBackend(repoRoot)))
	r.MustRegister(ToolDefinition{
		Name:        ToolListDir,
		Description: "List a directory's entries.",
		PathParams:  []string{"path"},
	}, BackendFunc(listDirBackend(repoRoot)))
	r.MustRegister(ToolDefinition{
		Name:        ToolSearchCode,
		Description: "Search the repository for a regular expression, optionally scoped to a path.",
		PathParams:  []string{"path"},
	}, BackendFunc(searchCodeBackend(repoRoot)))
	r.MustRegister(ToolDefinition{
		Name:        ToolRunTests,
		Description: "Run the repository's test command and return its combined output.",
	}, BackendFunc(runTestsBackend(repoRoot)))
	return r
}

// resolvePath joins path under root and rejects any result that escapes
// root — path constraints (allow/forbidden globs) are enforced by the
// bridge before a backend ever runs, but a backend still must not follow a
// "../" out of the checkout.
func resolvePath(root, path string) (string, error) {
	clean := filepath.Clean(filepath.Join(root, path))
	rootClean := filepath.Clean(root)
	if clean != rootClean && !strings.HasPrefix(clean, rootClean+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes repository root", path)
	}
	return clean, nil
}

func argString(call ToolCall, key string) (string, bool) {
	v, ok := call.Arguments[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func readFileBackend(root string) func(context.Context, ToolCall) (string, bool, error) {
	return func(_ context.Context, call ToolCall) (string, bool, error) {
		path, ok := argString(call, "path")
		if !ok || path == "" {
			return "read_file: missing path argument", true, nil
		}
		full, err := resolvePath(root, path)
		if err != nil {
			return err.Error(), true, nil
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return fmt.Sprintf("read_file %s: %v", path, err), true, nil
		}
		return string(data), false, nil
	}
}

func editFileBackend(root string) func(context.Context, ToolCall) (string, bool, error) {
	return func(_ context.Context, call ToolCall) (string, bool, error) {
		path, ok := argString(call, "path")
		if !ok || path == "" {
			return "edit_file: missing path argument", true, nil
		}
		content, _ := argString(call, "content")
		full, err := resolvePath(root, path)
		if err != nil {
			return err.Error(), true, nil
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Sprintf("edit_file %s: %v", path, err), true, nil
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return fmt.Sprintf("edit_file %s: %v", path, err), true, nil
		}
		return fmt.Sprintf("wrote %d bytes to %s", len(content), path), false, nil
	}
}

func listDirBackend(root string) func(context.Context, ToolCall) (string, bool, error) {
	return func(_ context.Context, call ToolCall) (string, bool, error) {
		path, _ := argString(call, "path")
		full, err := resolvePath(root, path)
		if err != nil {
			return err.Error(), true, nil
		}
		entries, err := os.ReadDir(full)
		if err != nil {
			return fmt.Sprintf("list_dir %s: %v", path, err), true, nil
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name()+"/")
			} else {
				names = append(names, e.Name())
			}
		}
		return strings.Join(names, "\n"), false, nil
	}
}

func searchCodeBackend(root string) func(context.Context, ToolCall) (string, bool, error) {
	return func(_ context.Context, call ToolCall) (string, bool, error) {
		pattern, ok := argString(call, "pattern")
		if !ok || pattern == "" {
			return "search_code: missing pattern argument", true, nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Sprintf("search_code: invalid pattern: %v", err), true, nil
		}
		scopePath, _ := argString(call, "path")
		scope, err := resolvePath(root, scopePath)
		if err != nil {
			return err.Error(), true, nil
		}

		var matches []string
		walkErr := filepath.WalkDir(scope, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			data, rerr := os.ReadFile(p)
			if rerr != nil {
				return nil
			}
			rel, _ := filepath.Rel(root, p)
			for i, line := range strings.Split(string(data), "\n") {
				if re.MatchString(line) {
					matches = append(matches, fmt.Sprintf("%s:%d:%s", rel, i+1, line))
					if len(matches) >= 200 {
						return filepath.SkipAll
					}
				}
			}
			return nil
		})
		if walkErr != nil && walkErr != filepath.SkipAll {
			return fmt.Sprintf("search_code: %v", walkErr), true, nil
		}
		if len(matches) == 0 {
			return "no matches", false, nil
		}
		return strings.Join(matches, "\n"), false, nil
	}
}

func runTestsBackend(root string) func(context.Context, ToolCall) (string, bool, error) {
	return func(ctx context.Context, call ToolCall) (string, bool, error) {
		command, ok := argString(call, "command")
		if !ok || command == "" {
			command = "go test ./..."
		}
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Dir = root
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Sprintf("%s\n%v", out, err), true, nil
		}
		return string(out), false, nil
	}
}
