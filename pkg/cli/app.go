// Package cli implements AgentForge's CLI / Command Surface (spec.md §6,
// C13): a thin cobra command tree over the Pipeline Controller (C9),
// Escalation Manager (C10), and Audit Log (C11), grounded on
// `cmd/tarsy/main.go`'s flag/env startup sequence and restructured onto
// `github.com/spf13/cobra` subcommands, one per §6 command.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/agentforge/agentforge/pkg/audit"
	"github.com/agentforge/agentforge/pkg/conformance"
	"github.com/agentforge/agentforge/pkg/contract"
	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/escalation"
	"github.com/agentforge/agentforge/pkg/executor"
	"github.com/agentforge/agentforge/pkg/llmclient"
	"github.com/agentforge/agentforge/pkg/pipeline"
	"github.com/agentforge/agentforge/pkg/registry"
	"github.com/agentforge/agentforge/pkg/slack"
	"github.com/agentforge/agentforge/pkg/store"
	"github.com/agentforge/agentforge/pkg/toolbridge"
)

// getEnv mirrors cmd/tarsy/main.go's helper: an environment variable with
// a fallback default.
func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// App bundles every component the command tree drives, built once at
// startup from a config directory and a state-store root — the same
// "build every service, then wire handlers against them" shape
// cmd/tarsy/main.go uses, minus the HTTP layer.
type App struct {
	Store       *store.Store
	Templates   *pipeline.Registry
	Agents      *registry.Registry
	Contracts   *contract.Registry
	ToolReg     *toolbridge.Registry
	Bridge      *toolbridge.Bridge
	Gate        *conformance.Gate
	LLM         *llmclient.Client
	Audit       *audit.Log
	Escalations *escalation.NotifyingManager
	Controller  *pipeline.Controller
	Pruner      *store.Pruner

	RepoRoot string
}

// Config selects the directories NewApp wires up, per spec.md §6's
// AGENTFORGE_ROOT / CONFIG_DIR environment surface.
type Config struct {
	StoreRoot   string // AGENTFORGE_ROOT: task state store
	ConfigDir   string // agent/contract/template YAML definitions
	RepoRoot    string // repository the agents edit
	StepCap     int
	RevisionCap int
	ReviewCap   int
}

// ConfigFromEnv builds a Config from the environment, per spec.md §6:
// "AGENTFORGE_ROOT (state store root)", plus the teacher's CONFIG_DIR
// convention for everything else.
func ConfigFromEnv() Config {
	return Config{
		StoreRoot: getEnv("AGENTFORGE_ROOT", "./agentforge-data"),
		ConfigDir: getEnv("CONFIG_DIR", "./deploy/config"),
		RepoRoot:  getEnv("AGENTFORGE_REPO_ROOT", "."),
	}
}

// NewApp loads .env from cfg.ConfigDir (mirroring cmd/tarsy/main.go's
// godotenv.Load), then constructs every component: store, contract/agent/
// template registries loaded from cfg.ConfigDir's contracts/, agents/,
// templates/ subdirectories, a real local-filesystem tool registry rooted
// at cfg.RepoRoot, an LLM client from the environment (spec.md §6's
// AGENTFORGE_LLM_MODE surface), and the pipeline controller tying them
// together.
func NewApp(cfg Config) (*App, error) {
	envPath := filepath.Join(cfg.ConfigDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		// Matches cmd/tarsy/main.go: a missing .env is a warning, not a
		// fatal error — the process may already have everything it needs
		// in its real environment.
		fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", envPath, err)
	}

	st, err := store.New(cfg.StoreRoot)
	if err != nil {
		return nil, errorkind.Wrap(errorkind.InvalidInput, "open state store", err)
	}

	contracts := contract.NewRegistry()
	if dir := filepath.Join(cfg.ConfigDir, "contracts"); dirExists(dir) {
		if _, err := contracts.LoadDir(dir); err != nil {
			return nil, errorkind.Wrap(errorkind.InvalidInput, "load contracts", err)
		}
	}

	agents := registry.NewRegistry()
	if dir := filepath.Join(cfg.ConfigDir, "agents"); dirExists(dir) {
		if _, err := agents.LoadDir(dir, contracts.Has); err != nil {
			return nil, errorkind.Wrap(errorkind.InvalidInput, "load agent definitions", err)
		}
	}

	templates := pipeline.NewRegistry()
	if dir := filepath.Join(cfg.ConfigDir, "templates"); dirExists(dir) {
		if _, err := templates.LoadDir(dir); err != nil {
			return nil, errorkind.Wrap(errorkind.InvalidInput, "load pipeline templates", err)
		}
	}

	toolReg := toolbridge.NewDefaultRegistry(cfg.RepoRoot)
	masker := toolbridge.NewMasker(nil, nil)
	bridge := toolbridge.New(toolReg, masker)

	cacheDir := filepath.Join(cfg.StoreRoot, ".conformance-cache")
	cache, err := conformance.NewCache(cacheDir)
	if err != nil {
		return nil, errorkind.Wrap(errorkind.InvalidInput, "open conformance cache", err)
	}
	gate := defaultGate(cache)

	llm, err := llmclient.NewFromEnv()
	if err != nil {
		return nil, errorkind.Wrap(errorkind.InvalidInput, "configure LLM client", err)
	}

	auditLog := audit.NewLog(st)
	slackSvc := slack.NewService(slack.ServiceConfig{
		Token:        os.Getenv("AGENTFORGE_SLACK_TOKEN"),
		Channel:      os.Getenv("AGENTFORGE_SLACK_CHANNEL"),
		DashboardURL: os.Getenv("AGENTFORGE_DASHBOARD_URL"),
	})
	escalations := escalation.NewNotifyingManager(escalation.NewManager(st), slackSvc)

	stepCap := cfg.StepCap
	if stepCap == 0 {
		stepCap = 40
	}

	controller := pipeline.NewController(pipeline.Deps{
		Store:     st,
		Templates: templates,
		Agents:    agents,
		Contracts: contracts,
		Audit:     auditLog,
		Executor: executor.Deps{
			Store:        st,
			LLM:          llm,
			Bridge:       bridge,
			ToolRegistry: toolReg,
			Gate:         gate,
		},
		StepCap:          stepCap,
		RevisionLimit:    cfg.RevisionCap,
		ReviewRoundLimit: cfg.ReviewCap,
	})

	// Each invocation starts the pruner's background sweep loop, which runs
	// one sweep immediately and then ticks hourly — since the CLI is
	// one-shot, the immediate sweep is the one that matters; the ticking
	// goroutine simply exits with the process.
	pruner := store.NewPruner(st, store.DefaultRetentionPolicy)
	pruner.Start(context.Background())

	return &App{
		Store: st, Templates: templates, Agents: agents, Contracts: contracts,
		ToolReg: toolReg, Bridge: bridge, Gate: gate, LLM: llm,
		Audit: auditLog, Escalations: escalations, Controller: controller,
		Pruner: pruner, RepoRoot: cfg.RepoRoot,
	}, nil
}

// defaultGate wires a conformance.Gate with the syntax/tests layers every
// template can rely on being registered, using the repository's own Go
// toolchain as the external checker — the same SubprocessChecker shape
// pkg/conformance/checker.go documents for "linter, type checker, test
// runner".
func defaultGate(cache *conformance.Cache) *conformance.Gate {
	g := conformance.NewGate(cache)
	g.Register(&conformance.SubprocessChecker{
		LayerName: string(conformance.LayerSyntax),
		Command:   "gofmt",
		Args:      []string{"-l"},
		Timeout:   20 * time.Second,
		Parse:     parseGofmtOutput,
	})
	g.Register(&conformance.SubprocessChecker{
		LayerName: string(conformance.LayerTests),
		Command:   "go",
		Args:      []string{"test", "./..."},
		Timeout:   5 * time.Minute,
	})
	return g
}

func parseGofmtOutput(output []byte, runErr error) []conformance.Violation {
	if runErr != nil {
		return []conformance.Violation{{RuleID: "gofmt", Message: "gofmt failed: " + string(output)}}
	}
	if len(output) == 0 {
		return nil
	}
	return []conformance.Violation{{RuleID: "gofmt", Message: "file is not gofmt-formatted", Location: string(output)}}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
