// # internal/core/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	pipelineerrors "mosaicmap/internal/core/errors"
)

// Config is the full set of options this pipeline's core recognizes. No
// other option affects capture, resolution, or analysis behavior.
type Config struct {
	Root         string   `toml:"root"`
	OutputDir    string   `toml:"output_dir"`
	Languages    []string `toml:"languages"`
	MaxFileBytes int64    `toml:"max_file_bytes"`
	Parallelism  int      `toml:"parallelism"`
	SinceRef     string   `toml:"since_ref"`
	FocusPrefix  string   `toml:"focus_prefix"`
}

const defaultMaxFileBytes = 2 << 20 // 2 MiB

func defaultLanguages() []string {
	return []string{"rust", "python"}
}

// Load reads and decodes a TOML config file, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipelineerrors.WrapWithPath(err, pipelineerrors.CodeIOError, "read config file", path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, pipelineerrors.WrapWithPath(err, pipelineerrors.CodeValidationError, "decode config file", path)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default builds a Config rooted at root with every optional field set to
// its default, for callers (e.g. the CLI) that construct a Config from
// flags instead of a TOML file.
func Default(root string) *Config {
	cfg := &Config{Root: root}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = ".mosaicmap"
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = defaultLanguages()
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = defaultMaxFileBytes
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.NumCPU()
	}
}

// Validate checks the decoded config for internal consistency, returning a
// single DomainError (CodeValidationError) joining every violation found,
// or nil if the config is usable as-is.
func (cfg *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(cfg.Root) == "" {
		errs = append(errs, fmt.Errorf("root must not be empty"))
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		errs = append(errs, fmt.Errorf("output_dir must not be empty"))
	}
	if cfg.MaxFileBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_file_bytes must be > 0, got %d", cfg.MaxFileBytes))
	}
	if cfg.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("parallelism must be >= 0 (0 = auto), got %d", cfg.Parallelism))
	}

	seen := make(map[string]bool, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			errs = append(errs, fmt.Errorf("languages entries must not be empty"))
			continue
		}
		if lang != "rust" && lang != "python" {
			errs = append(errs, fmt.Errorf("languages entry %q is not a supported language (rust, python)", lang))
		}
		if seen[lang] {
			errs = append(errs, fmt.Errorf("languages contains duplicate entry %q", lang))
		}
		seen[lang] = true
	}

	if len(errs) == 0 {
		return nil
	}
	return pipelineerrors.Wrap(errors.Join(errs...), pipelineerrors.CodeValidationError, "invalid configuration")
}
