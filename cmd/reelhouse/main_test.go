package main

import (
	"testing"
)

func TestGetEnvReturnsValueWhenSet(t *testing.T) {
	const key = "TEST_GETENV_SET"
	const expected = "custom-value"

	t.Setenv(key, expected)

	result := getEnv(key, "fallback")
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestGetEnvReturnsFallbackWhenUnset(t *testing.T) {
	const key = "TEST_GETENV_UNSET"
	const fallback = "default-value"

	result := getEnv(key, fallback)
	if result != fallback {
		t.Errorf("expected fallback %q, got %q", fallback, result)
	}
}

func TestGetEnvReturnsFallbackWhenEmpty(t *testing.T) {
	const key = "TEST_GETENV_EMPTY"
	const fallback = "default-value"

	t.Setenv(key, "")

	result := getEnv(key, fallback)
	if result != fallback {
		t.Errorf("expected fallback %q for empty env var, got %q", fallback, result)
	}
}

func TestGetEnvInt64(t *testing.T) {
	const key = "TEST_GETENV_INT64"

	t.Setenv(key, "48")
	if got := getEnvInt64(key, 24); got != 48 {
		t.Errorf("expected 48, got %d", got)
	}

	t.Setenv(key, "forty-eight")
	if got := getEnvInt64(key, 24); got != 24 {
		t.Errorf("expected fallback 24 for unparsable value, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	const key = "TEST_GETENV_BOOL"

	tests := []struct {
		value    string
		fallback bool
		expected bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"false", true, false},
		{"", true, true},
		{"maybe", false, false},
	}
	for _, tc := range tests {
		t.Setenv(key, tc.value)
		if got := getEnvBool(key, tc.fallback); got != tc.expected {
			t.Errorf("getEnvBool(%q, %v) = %v, want %v", tc.value, tc.fallback, got, tc.expected)
		}
	}
}
