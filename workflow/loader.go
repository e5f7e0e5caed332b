package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentgrid/core"
)

// Load decodes a WorkflowConfig from JSON bytes. The decoded configuration is
// returned as-is; callers pass it through Validate before starting a run.
func Load(data []byte) (core.WorkflowConfig, error) {
	var cfg core.WorkflowConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return core.WorkflowConfig{}, fmt.Errorf("decode workflow config: %w", err)
	}
	return cfg, nil
}

// LoadYAML decodes a WorkflowConfig from YAML bytes.
func LoadYAML(data []byte) (core.WorkflowConfig, error) {
	var cfg core.WorkflowConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return core.WorkflowConfig{}, fmt.Errorf("decode workflow config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a workflow configuration from disk, selecting the decoder by
// file extension (.yaml/.yml or .json).
func LoadFile(path string) (core.WorkflowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.WorkflowConfig{}, fmt.Errorf("read workflow config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(data)
	case ".json":
		return Load(data)
	default:
		return core.WorkflowConfig{}, fmt.Errorf("unsupported workflow config extension %q", filepath.Ext(path))
	}
}
