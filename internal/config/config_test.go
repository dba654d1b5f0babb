package config

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Search.MaxLimit != 25 {
		t.Errorf("max_limit = %d, want 25", cfg.Search.MaxLimit)
	}
	if cfg.Search.GraphMaxResults != 20 {
		t.Errorf("graph_max_results = %d, want 20", cfg.Search.GraphMaxResults)
	}
	if cfg.Search.GraphTimeBudgetSec != 0.75 {
		t.Errorf("graph_time_budget_seconds = %v, want 0.75", cfg.Search.GraphTimeBudgetSec)
	}
	if cfg.Search.ScoringMode != domain.ScoringModeHeuristic {
		t.Errorf("scoring_mode = %q, want heuristic", cfg.Search.ScoringMode)
	}
	if cfg.Search.WeightProfile != "default" {
		t.Errorf("weight_profile = %q, want default", cfg.Search.WeightProfile)
	}
	if cfg.Search.IndexName != "km_chunks" {
		t.Errorf("index_name = %q, want km_chunks", cfg.Search.IndexName)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	valid.ApplyDefaults()
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	noPort := valid
	noPort.HTTP.Port = 0
	if err := noPort.Validate(); err == nil {
		t.Error("expected error for missing port")
	}

	noAddrs := valid
	noAddrs.Database.Addrs = nil
	if err := noAddrs.Validate(); err == nil {
		t.Error("expected error for missing database addrs")
	}

	badMode := valid
	badMode.Search.ScoringMode = "quantum"
	if err := badMode.Validate(); err == nil {
		t.Error("expected error for unknown scoring mode")
	}

	badProfile := valid
	badProfile.Search.WeightProfile = "nonsense"
	if err := badProfile.Validate(); err == nil {
		t.Error("expected error for unknown weight profile")
	}
}

func TestResolveWeights(t *testing.T) {
	s := SearchConfig{WeightProfile: "analysis"}
	w := s.ResolveWeights()
	if w.Subsystem != 0.38 {
		t.Errorf("subsystem weight = %v, want analysis profile value", w.Subsystem)
	}

	override := 0.5
	s.WeightSubsystem = &override
	w = s.ResolveWeights()
	if w.Subsystem != 0.5 {
		t.Errorf("subsystem weight = %v, want override 0.5", w.Subsystem)
	}
	if w.Criticality != 0.18 {
		t.Errorf("criticality weight = %v, profile value should survive override", w.Criticality)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("KM_TEST_KEY", "sekret")

	data := expandEnvVars([]byte("api_key: ${KM_TEST_KEY}\nbase: ${KM_TEST_MISSING:-fallback}\n"))
	got := string(data)
	if !strings.Contains(got, "sekret") {
		t.Errorf("env var not expanded: %s", got)
	}
	if !strings.Contains(got, "fallback") {
		t.Errorf("default not applied: %s", got)
	}
}

func TestSearchConfigYAML(t *testing.T) {
	raw := `
index_name: km_chunks
max_limit: 10
graph_max_results: 5
graph_time_budget_seconds: 0.5
scoring_mode: ml
weight_profile: operations
vector_weight: 0.9
`
	var s SearchConfig
	if err := yaml.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.MaxLimit != 10 || s.GraphMaxResults != 5 || s.GraphTimeBudgetSec != 0.5 {
		t.Errorf("parsed = %+v", s)
	}
	if s.VectorWeight == nil || *s.VectorWeight != 0.9 {
		t.Errorf("vector_weight = %v, want 0.9", s.VectorWeight)
	}
	w := s.ResolveWeights()
	if w.Vector != 0.9 {
		t.Errorf("resolved vector weight = %v, want 0.9", w.Vector)
	}
	if w.CoveragePenalty != 0.28 {
		t.Errorf("coverage penalty = %v, want operations profile value", w.CoveragePenalty)
	}
}
