package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sampleConf struct {
	Backend string `split_words:"true" default:"memory"`
	Token   string `split_words:"true"`
}

func TestNewLoadsEnvFileFromEnvVar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SAMPLE_BACKEND=redis\nSAMPLE_TOKEN=tok-1\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)

	conf, err := New[sampleConf]("SAMPLE")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Backend != "redis" || conf.Token != "tok-1" {
		t.Fatalf("conf = %+v, want values from the env file", conf)
	}
}

type requiredConf struct {
	APIKey string `split_words:"true" required:"true"`
}

func TestNewNamesPrefixOnMissingRequiredValue(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("SAMPLE2_API_KEY", "")
	os.Unsetenv("SAMPLE2_API_KEY")

	_, err := New[requiredConf]("SAMPLE2")
	if err == nil {
		t.Fatal("New() error = nil, want a required-value error")
	}
	if !strings.Contains(err.Error(), "SAMPLE2") {
		t.Fatalf("error = %v, want the config prefix named", err)
	}
}
