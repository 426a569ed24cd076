// Package config loads guard configuration from a YAML file with
// environment overrides, so main stays lean and deployments can tweak
// single values without editing the file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/drift"
	pstrings "github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/pkg/platform/strings"
)

// Config is the full guard configuration.
type Config struct {
	Expectation drift.Expectation `yaml:"expectation"`

	// Algorithm names the digest algorithm for every hash in the chain.
	Algorithm string `yaml:"algorithm"`

	Paths   Paths   `yaml:"paths"`
	Witness Witness `yaml:"witness"`
	Server  Server  `yaml:"server"`

	// GitHubToken is env-only (GITHUB_TOKEN); it never belongs in a file
	// that gets committed next to the evidence it guards.
	GitHubToken string `yaml:"-"`
}

// Paths names the files the evidence pipeline reads and writes.
type Paths struct {
	InputEvidence   string `yaml:"input_evidence"`
	EmittedEvidence string `yaml:"emitted_evidence"`
	AnchorLog       string `yaml:"anchor_log"`
	Manifest        string `yaml:"manifest"`
}

// Witness configures the external time-witness probes.
type Witness struct {
	URLs    []string `yaml:"urls"`
	Timeout Duration `yaml:"timeout"`
}

// Duration accepts human-readable YAML durations ("5s", "250ms").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Server configures the audit sidecar.
type Server struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Algorithm: digest.AlgorithmSHA256,
		Paths: Paths{
			InputEvidence:   "evidence/input.json",
			EmittedEvidence: "evidence/emitted.json",
			AnchorLog:       "evidence/anchors.log",
			Manifest:        "evidence/manifest.json",
		},
		Witness: Witness{
			URLs:    []string{"https://www.cloudflare.com", "https://www.google.com"},
			Timeout: Duration(5 * time.Second),
		},
		Server: Server{Addr: ":8080"},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if _, err := digest.New(cfg.Algorithm); err != nil {
		return Config{}, err
	}
	if cfg.Expectation.Org == "" {
		return Config{}, fmt.Errorf("config: expectation.org must be set")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv("GUARD_ORG"); v != "" {
		cfg.Expectation.Org = v
	}
	if v := os.Getenv("GUARD_PINS"); v != "" {
		cfg.Expectation.Pins = pstrings.DedupeAndTrim(strings.Split(v, ","))
	}
	if v := os.Getenv("GUARD_ALGORITHM"); v != "" {
		cfg.Algorithm = v
	}
	if v := os.Getenv("GUARD_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}
