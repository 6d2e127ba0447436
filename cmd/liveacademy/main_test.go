package main

import (
	"testing"

	"liveacademy/internal/app"
	"liveacademy/internal/config"
)

// ARCHITECTURAL VALIDATION TEST: Application structure and dependency injection
func TestApplication_ArchitecturalCompliance(t *testing.T) {
	var _ *app.Application = (*app.Application)(nil)
}

func TestApplication_RejectsInvalidConfiguration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HTTP.Port = -1

	application, err := app.NewApplication(cfg)
	if err == nil {
		t.Error("Constructor should reject invalid configuration")
	}
	if application != nil {
		t.Error("Constructor should not return application with invalid config")
	}
}

// TECHNICAL VALIDATION TEST: Run function existence
func TestApplication_RunFunctionExists(t *testing.T) {
	var _ func() error = run
}
