package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// InvalidConfigurationError reports a configuration value that was rejected
// and replaced with its default.
type InvalidConfigurationError struct {
	Field   string // dotted path, e.g. "resource.min_bound"; empty for the whole document
	Message string
}

func (e *InvalidConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Message
	}
	return fmt.Sprintf("invalid configuration at %s: %s", e.Field, e.Message)
}

// IsInvalidConfiguration reports whether err is an InvalidConfigurationError.
func IsInvalidConfiguration(err error) bool {
	var ice *InvalidConfigurationError
	return errors.As(err, &ice)
}

// Load reads the configuration file at path.
//
// A missing file yields Defaults. Invalid values never abort loading: each
// problem is logged and the affected section falls back to its defaults.
// The only returned error is an unreadable file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("config file not found, using defaults", "path", path)
		return Defaults(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, problems := Parse(data)
	for _, p := range problems {
		slog.Warn("config value rejected, using default", "path", path, "error", p)
	}
	return cfg, nil
}

// Parse decodes a YAML document on top of Defaults and validates it.
// Returned problems are *InvalidConfigurationError values; the returned
// Config has already had the offending sections reset.
func Parse(data []byte) (Config, []error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), []error{&InvalidConfigurationError{Message: fmt.Sprintf("parse yaml: %v", err)}}
	}

	problems := Validate(cfg)
	cfg = applyFallbacks(cfg, problems)
	return cfg, problems
}

// Validate checks cfg against the embedded schema and the cross-field rules.
func Validate(cfg Config) []error {
	cfg = normalize(cfg)

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return []error{&InvalidConfigurationError{Message: fmt.Sprintf("compile schema: %v", err)}}
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	value := def.Unify(ctx.Encode(cfg))
	err := value.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var problems []error
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		field := fieldPath(e.Path())
		msg := e.Error()
		if seen[field+msg] {
			continue
		}
		seen[field+msg] = true
		problems = append(problems, &InvalidConfigurationError{Field: field, Message: msg})
	}
	return problems
}

// fieldPath joins a CUE error path, dropping definition selectors such as
// "#Config" so the result matches the document layout.
func fieldPath(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if strings.HasPrefix(p, "#") {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ".")
}

// applyFallbacks resets every top-level section named by a problem. A problem
// without a field resets the whole document. A final sanity pass guards the
// resource invariants regardless of what the schema reported.
func applyFallbacks(cfg Config, problems []error) Config {
	def := Defaults()
	for _, p := range problems {
		var ice *InvalidConfigurationError
		if !errors.As(p, &ice) {
			continue
		}
		section, _, _ := strings.Cut(ice.Field, ".")
		switch section {
		case "resource":
			cfg.Resource = def.Resource
		case "elimination":
			cfg.Elimination = def.Elimination
		case "withdraw":
			cfg.Withdraw = def.Withdraw
		case "items":
			cfg.Items = def.Items
		case "enabled_zones":
			cfg.EnabledZones = def.EnabledZones
		case "debug":
			cfg.Debug = def.Debug
		default:
			return def
		}
	}

	r := cfg.Resource
	if r.Min < 0 || r.Min > r.Max || r.Default < r.Min || r.Default > r.Max || r.PerEvent < 0 {
		cfg.Resource = def.Resource
	}
	return normalize(cfg)
}

// normalize replaces nil slices so the encoded document matches the schema.
func normalize(cfg Config) Config {
	if cfg.Elimination.Commands == nil {
		cfg.Elimination.Commands = []string{}
	}
	if cfg.EnabledZones == nil {
		cfg.EnabledZones = []string{}
	}
	if cfg.Items.CraftingPattern == nil {
		cfg.Items.CraftingPattern = []string{}
	}
	return cfg
}
