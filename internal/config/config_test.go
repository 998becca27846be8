package config

import "testing"

func TestValidateRejectsEmptySessionSecret(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an empty session secret to be rejected")
	}

	cfg.SessionSecret = "horseradish"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a set secret to pass, got %v", err)
	}
}
