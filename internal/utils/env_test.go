package utils

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("UTILS_TEST_STR", "value")
	if got := GetEnv("UTILS_TEST_STR", "fallback", nil); got != "value" {
		t.Fatalf("got=%q want=%q", got, "value")
	}
	if got := GetEnv("UTILS_TEST_STR_MISSING", "fallback", nil); got != "fallback" {
		t.Fatalf("got=%q want=%q", got, "fallback")
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("UTILS_TEST_INT", "42")
	if got := GetEnvAsInt("UTILS_TEST_INT", 7, nil); got != 42 {
		t.Fatalf("got=%d want=42", got)
	}
	t.Setenv("UTILS_TEST_INT", "not a number")
	if got := GetEnvAsInt("UTILS_TEST_INT", 7, nil); got != 7 {
		t.Fatalf("malformed value should fall back: got=%d want=7", got)
	}
	if got := GetEnvAsInt("UTILS_TEST_INT_MISSING", 7, nil); got != 7 {
		t.Fatalf("missing value should fall back: got=%d want=7", got)
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	t.Setenv("UTILS_TEST_FLOAT", "0.75")
	if got := GetEnvAsFloat("UTILS_TEST_FLOAT", 0.5, nil); got != 0.75 {
		t.Fatalf("got=%v want=0.75", got)
	}
	t.Setenv("UTILS_TEST_FLOAT", "nope")
	if got := GetEnvAsFloat("UTILS_TEST_FLOAT", 0.5, nil); got != 0.5 {
		t.Fatalf("malformed value should fall back: got=%v want=0.5", got)
	}
}
