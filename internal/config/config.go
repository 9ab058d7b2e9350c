package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models govline.yml.
type Config struct {
	Pipeline struct {
		ID string `yaml:"id"`
	} `yaml:"pipeline"`
	Rules struct {
		ForbiddenTerms []string          `yaml:"forbidden_terms"`
		ColorTokens    map[string]string `yaml:"color_tokens"`
		SpacingTokens  map[string]string `yaml:"spacing_tokens"`
		CodeLocale     string            `yaml:"code_locale"`
		LocaleTerms    []string          `yaml:"locale_terms"`
	} `yaml:"rules"`
	Workflows map[string]Workflow `yaml:"workflows"`
	Approval  struct {
		TitleSimilarity float64  `yaml:"title_similarity"`
		StrikeLimit     int      `yaml:"strike_limit"`
		ImpactTerms     []string `yaml:"impact_terms"`
	} `yaml:"approval"`
	Scanner struct {
		GroupSize int `yaml:"group_size"`
	} `yaml:"scanner"`
	TextGen struct {
		Endpoint       string `yaml:"endpoint"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxRetries     int    `yaml:"max_retries"`
	} `yaml:"textgen"`
}

// Workflow is one agent's workflow definition: ordered steps plus the
// mandatory checks its submissions must pass.
type Workflow struct {
	Steps           []string `yaml:"steps"`
	MandatoryChecks []string `yaml:"mandatory_checks"`
}

// knownChecks is the set of check names resolvable by the workflow engine.
var knownChecks = map[string]bool{
	"compliance":    true,
	"terminology":   true,
	"design-tokens": true,
	"type-safety":   true,
	"locale":        true,
	"diagnostics":   true,
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create with gv config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Pipeline.ID == "" {
		return fmt.Errorf("config.pipeline.id is required")
	}
	if len(c.Workflows) == 0 {
		return fmt.Errorf("config.workflows is required")
	}
	for agentID, wf := range c.Workflows {
		if agentID == "" {
			return fmt.Errorf("config.workflows contains empty agent id")
		}
		if len(wf.MandatoryChecks) == 0 {
			return fmt.Errorf("workflow %s has no mandatory checks", agentID)
		}
		for _, check := range wf.MandatoryChecks {
			if check == "" {
				return fmt.Errorf("workflow %s has empty check name", agentID)
			}
			if !knownChecks[check] {
				return fmt.Errorf("workflow %s references unknown check %s", agentID, check)
			}
		}
		for _, step := range wf.Steps {
			if step == "" {
				return fmt.Errorf("workflow %s has empty step name", agentID)
			}
		}
	}
	if c.Approval.TitleSimilarity < 0 || c.Approval.TitleSimilarity > 1 {
		return fmt.Errorf("config.approval.title_similarity must be within [0,1]")
	}
	if c.Approval.StrikeLimit < 1 {
		return fmt.Errorf("config.approval.strike_limit must be at least 1")
	}
	if c.Scanner.GroupSize < 1 {
		return fmt.Errorf("config.scanner.group_size must be at least 1")
	}
	if c.TextGen.TimeoutSeconds < 1 {
		return fmt.Errorf("config.textgen.timeout_seconds must be at least 1")
	}
	if c.TextGen.MaxRetries < 0 {
		return fmt.Errorf("config.textgen.max_retries must not be negative")
	}
	for from, to := range c.ColorTokens() {
		if to == "" {
			return fmt.Errorf("color token for %s has empty replacement", from)
		}
	}
	return nil
}

// ColorTokens returns the raw-literal to token mapping for color rules.
func (c *Config) ColorTokens() map[string]string { return c.Rules.ColorTokens }

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "govline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(pipelineID string) string {
	return fmt.Sprintf(defaultTemplate, pipelineID)
}

// Default returns the default Config struct for a pipeline.
func Default(pipelineID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, pipelineID))).Decode(&cfg)
	cfg.Pipeline.ID = pipelineID
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `pipeline:
  id: %s

rules:
  forbidden_terms:
    - "password123"
    - "hack workaround"
    - "do not ship"
    - "temporary fix remove before release"
  color_tokens:
    "#ff0000": color.danger
    "#00ff00": color.success
    "#0000ff": color.primary
    "#ffffff": color.surface
    "#000000": color.text
  spacing_tokens:
    "margin: 7px": spacing.sm
    "margin: 13px": spacing.md
    "padding: 7px": spacing.sm
    "padding: 13px": spacing.md
  code_locale: en
  locale_terms:
    - kundendaten
    - rechnung
    - buchung
    - fahrzeug

workflows:
  chat-bot:
    steps: [draft, self-check, submit]
    mandatory_checks: [compliance, terminology]
  quality-bot:
    steps: [collect, scan, report]
    mandatory_checks: [compliance, design-tokens, type-safety, diagnostics]
  design-bot:
    steps: [audit, propose, submit]
    mandatory_checks: [compliance, design-tokens, locale]
  master-bot:
    steps: [review, decide, document, sign]
    mandatory_checks: [compliance]

approval:
  title_similarity: 0.85
  strike_limit: 2
  impact_terms:
    - systemwide
    - all modules
    - every subsystem
    - cross-cutting
    - global

scanner:
  group_size: 8

textgen:
  endpoint: ""
  timeout_seconds: 20
  max_retries: 2
`
