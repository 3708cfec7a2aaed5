// Package config loads docguard settings from a CUE file validated against
// an embedded schema, then applies environment overrides.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Environment variables consulted by ApplyEnv.
const (
	EnvDatabase = "DOCGUARD_DB"
	EnvWorkers  = "DOCGUARD_WORKERS"
)

// Error codes for LoadError.
const (
	ErrCodeRead     = "C001" // config file unreadable
	ErrCodeCompile  = "C002" // CUE syntax error
	ErrCodeValidate = "C003" // schema violation
	ErrCodeDecode   = "C004" // value does not fit Config
	ErrCodeEnv      = "C005" // bad environment override
)

// LoadError reports a configuration problem.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Source configures the filesystem page source.
type Source struct {
	Dir        string   `json:"dir"`
	Extensions []string `json:"extensions"`
	DebounceS  string   `json:"debounce"`
	Author     string   `json:"author"`

	// Debounce is DebounceS parsed.
	Debounce time.Duration `json:"-"`
}

// Config is the resolved docguard configuration.
type Config struct {
	Database      string   `json:"database"`
	Workers       int      `json:"workers"`
	Checks        []string `json:"checks"`
	SkipSelfSaves bool     `json:"skip_self_saves"`
	SystemAuthor  string   `json:"system_author"`
	MetricsAddr   string   `json:"metrics_addr"`
	Source        Source   `json:"source"`
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := decode(cuecontext.New().CompileString(schemaCUE, cue.Filename("schema.cue")), "")
	if err != nil {
		// The embedded schema is concrete by construction.
		panic(err)
	}
	return cfg
}

// Load reads the CUE file at path and unifies it with the schema. An
// empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error()}
	}
	return Parse(path, data)
}

// Parse unifies CUE source with the schema. name labels positions in
// error messages.
func Parse(name string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))

	user := ctx.CompileBytes(data, cue.Filename(name))
	if err := user.Err(); err != nil {
		return Config{}, &LoadError{Code: ErrCodeCompile, Path: name, Message: err.Error()}
	}

	return decode(schema.Unify(user), name)
}

func decode(v cue.Value, name string) (Config, error) {
	root := v.LookupPath(cue.ParsePath("docguard"))
	if err := root.Validate(cue.Concrete(true)); err != nil {
		return Config{}, &LoadError{Code: ErrCodeValidate, Path: name, Message: err.Error()}
	}

	var cfg Config
	if err := root.Decode(&cfg); err != nil {
		return Config{}, &LoadError{Code: ErrCodeDecode, Path: name, Message: err.Error()}
	}

	d, err := time.ParseDuration(cfg.Source.DebounceS)
	if err != nil || d < 0 {
		return Config{}, &LoadError{Code: ErrCodeValidate, Path: name,
			Message: fmt.Sprintf("source.debounce: invalid duration %q", cfg.Source.DebounceS)}
	}
	cfg.Source.Debounce = d
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through
// getenv (os.Getenv in production).
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if db := getenv(EnvDatabase); db != "" {
		c.Database = db
	}
	if raw := getenv(EnvWorkers); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 64 {
			return &LoadError{Code: ErrCodeEnv, Message: fmt.Sprintf("%s: want an integer in [1, 64], got %q", EnvWorkers, raw)}
		}
		c.Workers = n
	}
	return nil
}
