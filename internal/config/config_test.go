package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INTERCOM_CLUSTER", "")
	t.Setenv("INTERCOM_STORAGE", "")
	t.Setenv("GIN_MODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Cluster != DefaultCluster {
		t.Fatalf("unexpected cluster: %s", cfg.Cluster)
	}
	if cfg.StorageBackend != StorageFile {
		t.Fatalf("unexpected storage backend: %s", cfg.StorageBackend)
	}
	if cfg.ReleaseLockOnIdleLogout {
		t.Fatal("expected idle logout lock release to be disabled by default")
	}
}

func TestEndpointsFromCluster(t *testing.T) {
	cfg := &Config{Cluster: "bento42"}
	ep := cfg.Endpoints()
	if ep.Auth != "https://auth.bento42.hasura-app.io" {
		t.Fatalf("unexpected auth url: %s", ep.Auth)
	}
	if ep.Data != "https://data.bento42.hasura-app.io" {
		t.Fatalf("unexpected data url: %s", ep.Data)
	}
}

func TestEndpointsOverride(t *testing.T) {
	cfg := &Config{Cluster: "bento42", AuthURLOverride: "http://127.0.0.1:8080/"}
	ep := cfg.Endpoints()
	if ep.Auth != "http://127.0.0.1:8080" {
		t.Fatalf("unexpected auth url: %s", ep.Auth)
	}
	if ep.Data != "https://data.bento42.hasura-app.io" {
		t.Fatalf("data url should still derive from cluster: %s", ep.Data)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("INTERCOM_CLUSTER", "bento42")
	t.Setenv("INTERCOM_STORAGE", "REDIS")
	t.Setenv("INTERCOM_REDIS_URL", "redis://example:6379/1")
	t.Setenv("INTERCOM_RELEASE_LOCK_ON_IDLE_LOGOUT", "true")
	t.Setenv("TOKEN_TTL_MINUTES", "15")
	t.Setenv("APP_ROLES", "admin, user,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StorageBackend != StorageRedis {
		t.Fatalf("unexpected storage backend: %s", cfg.StorageBackend)
	}
	if !cfg.ReleaseLockOnIdleLogout {
		t.Fatal("expected idle logout lock release to be enabled")
	}
	if cfg.TokenTTLMinutes != 15 {
		t.Fatalf("unexpected token ttl: %d", cfg.TokenTTLMinutes)
	}
	roles := cfg.Roles()
	if len(roles) != 2 || roles[0] != "admin" || roles[1] != "user" {
		t.Fatalf("unexpected roles: %#v", roles)
	}
}

func TestValidateRejectsUnknownStorage(t *testing.T) {
	cfg := &Config{Cluster: "c", StorageBackend: "sqlite"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "INTERCOM_STORAGE") {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestValidateReleaseModeRequiresCredentials(t *testing.T) {
	cfg := &Config{Cluster: "c", StorageBackend: StorageMemory, GinMode: "release"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing credentials in release mode")
	}

	cfg.AppUsername = "alice"
	cfg.AppPasswordHash = "$2a$10$hash"
	cfg.TokenSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequiresClusterWithoutOverrides(t *testing.T) {
	cfg := &Config{StorageBackend: StorageMemory}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty cluster")
	}
	cfg.AuthURLOverride = "http://a"
	cfg.DataURLOverride = "http://d"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
