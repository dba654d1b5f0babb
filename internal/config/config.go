package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

// Config holds the gateway configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"`
}

// SearchConfig holds ranking and enrichment settings.
type SearchConfig struct {
	IndexName          string   `yaml:"index_name"`
	MaxLimit           int      `yaml:"max_limit"`
	GraphMaxResults    int      `yaml:"graph_max_results"`
	GraphTimeBudgetSec float64  `yaml:"graph_time_budget_seconds"`
	SlowGraphWarnSec   float64  `yaml:"slow_graph_warn_seconds"`
	HNSWEfSearch       int      `yaml:"hnsw_ef_search"`
	ScoringMode        string   `yaml:"scoring_mode"` // heuristic, ml
	WeightProfile      string   `yaml:"weight_profile"`
	ModelPath          string   `yaml:"model_path"`
	VectorWeight       *float64 `yaml:"vector_weight"`
	LexicalWeight      *float64 `yaml:"lexical_weight"`
	WeightSubsystem    *float64 `yaml:"weight_subsystem"`
	WeightRelationship *float64 `yaml:"weight_relationship"`
	WeightSupport      *float64 `yaml:"weight_support"`
	WeightCoveragePen  *float64 `yaml:"weight_coverage_penalty"`
	WeightCriticality  *float64 `yaml:"weight_criticality"`
}

// ResolveWeights returns the effective weight configuration: the named
// profile with any explicit per-weight overrides applied on top.
func (s SearchConfig) ResolveWeights() domain.Weights {
	w := domain.ProfileWeights(s.WeightProfile)
	if s.VectorWeight != nil {
		w.Vector = *s.VectorWeight
	}
	if s.LexicalWeight != nil {
		w.Lexical = *s.LexicalWeight
	}
	if s.WeightSubsystem != nil {
		w.Subsystem = *s.WeightSubsystem
	}
	if s.WeightRelationship != nil {
		w.Relationship = *s.WeightRelationship
	}
	if s.WeightSupport != nil {
		w.Support = *s.WeightSupport
	}
	if s.WeightCoveragePen != nil {
		w.CoveragePenalty = *s.WeightCoveragePen
	}
	if s.WeightCriticality != nil {
		w.Criticality = *s.WeightCriticality
	}
	return w
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 24 * 3600
	}
	if c.Search.IndexName == "" {
		c.Search.IndexName = "km_chunks"
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 25
	}
	if c.Search.GraphMaxResults <= 0 {
		c.Search.GraphMaxResults = 20
	}
	if c.Search.GraphTimeBudgetSec <= 0 {
		c.Search.GraphTimeBudgetSec = 0.75
	}
	if c.Search.SlowGraphWarnSec <= 0 {
		c.Search.SlowGraphWarnSec = 0.25
	}
	if c.Search.HNSWEfSearch < 0 {
		c.Search.HNSWEfSearch = 0
	}
	if c.Search.ScoringMode == "" {
		c.Search.ScoringMode = domain.ScoringModeHeuristic
	}
	if c.Search.WeightProfile == "" {
		c.Search.WeightProfile = "default"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Search.ScoringMode {
	case domain.ScoringModeHeuristic, domain.ScoringModeML:
	default:
		return fmt.Errorf("search.scoring_mode must be %q or %q, got %q",
			domain.ScoringModeHeuristic, domain.ScoringModeML, c.Search.ScoringMode)
	}
	if _, ok := domain.WeightProfiles[c.Search.WeightProfile]; !ok {
		return fmt.Errorf("search.weight_profile %q is not a known profile", c.Search.WeightProfile)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
