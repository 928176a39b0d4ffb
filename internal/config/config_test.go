package config

import "testing"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ROUTELOG_PRIMARY_ENV", "test")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Retries != 3 {
		t.Errorf("retry attempts default: %d", cfg.Storage.Retries)
	}
	if cfg.Storage.TimeoutMS != 30_000 {
		t.Errorf("write timeout default: %d", cfg.Storage.TimeoutMS)
	}
	if cfg.Storage.RateLimit != 1000 || cfg.Storage.Descriptors != 100 {
		t.Errorf("admission defaults: %d/%d", cfg.Storage.RateLimit, cfg.Storage.Descriptors)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("console level default: %q", cfg.Logging.Level)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ROUTELOG_PRIMARY_ENV", "production")
	t.Setenv("ROUTELOG_LOGGING_ENABLED", "true")
	t.Setenv("ROUTELOG_STORAGE_ROOT", "/var/log/routelog")
	t.Setenv("ROUTELOG_STORAGE_RETRIES", "5")
	t.Setenv("ROUTELOG_ENCRYPTION_KEY", "aa11")
	t.Setenv("ROUTELOG_ENCRYPTION_KEYS_V2", "bb22")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Logging.Enabled {
		t.Error("logging enabled override lost")
	}
	if cfg.Storage.Root != "/var/log/routelog" {
		t.Errorf("storage root: %q", cfg.Storage.Root)
	}
	if cfg.Storage.Retries != 5 {
		t.Errorf("retry attempts: %d", cfg.Storage.Retries)
	}
	if cfg.Encryption.Key != "aa11" {
		t.Errorf("encryption key: %q", cfg.Encryption.Key)
	}
	if cfg.Encryption.Keys["v2"] != "bb22" {
		t.Errorf("versioned key: %#v", cfg.Encryption.Keys)
	}
}

func TestEnsure_RejectsBadLevel(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Logging.Level = "loud"
	if err := cfg.Ensure(); err == nil {
		t.Fatal("expected validation failure for unknown console level")
	}
}
