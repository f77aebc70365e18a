package llmclient

import (
	"fmt"
	"os"
	"time"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// Env variable names spec.md §6 lists as the required interface surface.
const (
	EnvMode           = "AGENTFORGE_LLM_MODE"
	EnvScript         = "AGENTFORGE_LLM_SCRIPT"
	EnvRecording      = "AGENTFORGE_LLM_RECORDING"
	EnvProviderURL    = "AGENTFORGE_LLM_PROVIDER_URL"
	EnvProviderAPIKey = "AGENTFORGE_LLM_PROVIDER_API_KEY"
)

// NewFromEnv builds a Client from the environment variables spec.md §6
// declares: AGENTFORGE_LLM_MODE selects the backend, and
// AGENTFORGE_LLM_SCRIPT / AGENTFORGE_LLM_RECORDING point at the
// mode-specific file. Provider credentials are mode-specific per spec.md
// §6 and only consulted for real/record.
func NewFromEnv() (*Client, error) {
	mode := Mode(os.Getenv(EnvMode))
	if mode == "" {
		mode = ModeSimulated
	}

	switch mode {
	case ModeReal:
		provider, err := providerFromEnv()
		if err != nil {
			return nil, err
		}
		return New(Config{Mode: ModeReal, Provider: provider})

	case ModeSimulated:
		scriptPath := os.Getenv(EnvScript)
		if scriptPath == "" {
			return nil, errorkind.New(errorkind.InvalidInput, fmt.Sprintf("%s is required for simulated mode", EnvScript))
		}
		script, err := LoadScript(scriptPath)
		if err != nil {
			return nil, err
		}
		return New(Config{Mode: ModeSimulated, Script: script})

	case ModeRecord:
		provider, err := providerFromEnv()
		if err != nil {
			return nil, err
		}
		recordingPath := os.Getenv(EnvRecording)
		if recordingPath == "" {
			return nil, errorkind.New(errorkind.InvalidInput, fmt.Sprintf("%s is required for record mode", EnvRecording))
		}
		return New(Config{Mode: ModeRecord, Provider: provider, RecordingPath: recordingPath})

	case ModePlayback:
		recordingPath := os.Getenv(EnvRecording)
		if recordingPath == "" {
			return nil, errorkind.New(errorkind.InvalidInput, fmt.Sprintf("%s is required for playback mode", EnvRecording))
		}
		recording, err := LoadRecording(recordingPath)
		if err != nil {
			return nil, err
		}
		return New(Config{Mode: ModePlayback, Recording: recording})

	default:
		return nil, errorkind.New(errorkind.InvalidInput, fmt.Sprintf("unknown %s value %q", EnvMode, mode))
	}
}

func providerFromEnv() (ProviderClient, error) {
	url := os.Getenv(EnvProviderURL)
	if url == "" {
		return nil, errorkind.New(errorkind.InvalidInput, fmt.Sprintf("%s is required for real/record mode", EnvProviderURL))
	}
	return NewHTTPProviderClient(HTTPProviderConfig{
		Endpoint: url,
		APIKey:   os.Getenv(EnvProviderAPIKey),
		Timeout:  60 * time.Second,
	}), nil
}
