package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:      HTTPConfig{Port: 8080},
		Index:     IndexConfig{Driver: "memory"},
		Embedding: EmbeddingConfig{Model: "test-embed"},
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Driver = "pinecone"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	expected := `index.driver must be "memory" or "redis", got "pinecone"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_RedisRequiresAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Driver = "redis"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis driver without addrs")
	}

	cfg.Index.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingEmbeddingModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Index.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Index.Driver)
	}
	if cfg.Index.EmbedBatchSize != 64 {
		t.Errorf("embed batch = %d, want 64", cfg.Index.EmbedBatchSize)
	}
	if cfg.Index.UpsertBatchSize != 100 {
		t.Errorf("upsert batch = %d, want 100", cfg.Index.UpsertBatchSize)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("dimensions = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("shutdown = %d, want 10", cfg.HTTP.ShutdownSec)
	}
}

func TestApplyDefaults_VisionModelFallsBackToModel(t *testing.T) {
	cfg := Config{LLM: LLMConfig{Model: "chat-model"}}
	cfg.ApplyDefaults()

	if cfg.LLM.VisionModel != "chat-model" {
		t.Errorf("vision model = %q, want chat-model", cfg.LLM.VisionModel)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "config")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: 8080
index:
  driver: memory
embedding:
  model: test-embed
  api_key: ${TEST_SHOPSEARCH_KEY}
llm:
  base_url: ${TEST_SHOPSEARCH_URL:-https://fallback.example/v1}
`
	if err := os.WriteFile(filepath.Join(cfgDir, "test.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_SHOPSEARCH_KEY", "secret-key")
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := Load("test")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.APIKey != "secret-key" {
		t.Errorf("api key = %q, want expanded env value", cfg.Embedding.APIKey)
	}
	if cfg.LLM.BaseURL != "https://fallback.example/v1" {
		t.Errorf("base url = %q, want default fallback", cfg.LLM.BaseURL)
	}
}
