package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"govline/internal/config"
)

func TestDefaultTemplateParsesAndValidates(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault("local")))
	if err != nil {
		t.Fatalf("default template invalid: %v", err)
	}
	if cfg.Pipeline.ID != "local" {
		t.Fatalf("pipeline id = %q", cfg.Pipeline.ID)
	}
	if _, ok := cfg.Workflows["master-bot"]; !ok {
		t.Fatal("default template must register master-bot")
	}
	if cfg.Approval.StrikeLimit != 2 {
		t.Fatalf("strike limit = %d", cfg.Approval.StrikeLimit)
	}
}

func TestValidateRejectsBrokenConfig(t *testing.T) {
	base := func() *config.Config { return config.Default("p") }

	cfg := base()
	cfg.Pipeline.ID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing pipeline id accepted")
	}

	cfg = base()
	cfg.Workflows["odd-bot"] = config.Workflow{MandatoryChecks: []string{"imaginary"}}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "unknown check") {
		t.Fatalf("unknown check accepted: %v", err)
	}

	cfg = base()
	cfg.Approval.StrikeLimit = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero strike limit accepted")
	}

	cfg = base()
	cfg.Approval.TitleSimilarity = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("similarity above 1 accepted")
	}

	cfg = base()
	cfg.Scanner.GroupSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero group size accepted")
	}
}

func TestLoadMissingFileHasActionableError(t *testing.T) {
	_, err := config.Load(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "gv config init") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	if err != nil || cfg != nil {
		t.Fatalf("missing file should be nil,nil: %v %v", cfg, err)
	}
	path := filepath.Join(dir, "govline.yml")
	if err := os.WriteFile(path, []byte(config.GenerateDefault("disk")), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = config.LoadOptional(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pipeline.ID != "disk" {
		t.Fatalf("pipeline id = %q", cfg.Pipeline.ID)
	}
}
