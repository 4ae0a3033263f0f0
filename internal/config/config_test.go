package config

import (
	"os"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_STR_1", "redis://localhost:6379", "fallback", "redis://localhost:6379"},
		{"uses default when unset", "TEST_STR_2", "", "fallback", "fallback"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			if got := getEnvOrDefault(tc.key, tc.defaultVal); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "8", 4, 8},
		{"uses default for empty", "TEST_INT_2", "", 4, 4},
		{"uses default for non-numeric", "TEST_INT_3", "many", 4, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			if got := getEnvAsIntOrDefault(tc.key, tc.defaultVal); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestLoad_Defaults(t *testing.T) {
	required := map[string]string{
		"DATABASE_URL":   "postgres://localhost:5432/mentora",
		"REDIS_URL":      "redis://localhost:6379",
		"JWT_SECRET":     "test-secret",
		"GEMINI_API_KEY": "test-key",
	}
	for k, v := range required {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}
	for _, k := range []string{"PORT", "WORKER_COUNT", "GEMINI_CONCURRENT_REQUESTS"} {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("Expected default worker count 4, got %d", cfg.WorkerCount)
	}
	if cfg.GeminiConcurrentReqs != 5 {
		t.Errorf("Expected default Gemini concurrency 5, got %d", cfg.GeminiConcurrentReqs)
	}
	if cfg.DatabaseURL != required["DATABASE_URL"] {
		t.Errorf("Expected database URL passthrough, got %q", cfg.DatabaseURL)
	}
}
