package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable Load reads.
const EnvPrefix = "SCREEN_"

// AppConfig holds configuration values parsed from defaults and environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env    string       `koanf:"env" validate:"required,oneof=dev prod"`
	Log    LogConfig    `koanf:"log" validate:"required"`
	Store  StoreConfig  `koanf:"store" validate:"required"`
	Rules  RulesConfig  `koanf:"rules"`
	Policy PolicyConfig `koanf:"policy" validate:"required"`
	Audit  AuditConfig  `koanf:"audit" validate:"required"`
}

type LogConfig struct {
	// Level controls log verbosity: "debug", "info", "warn", or "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

type StoreConfig struct {
	// Path is the bbolt database holding rules and the audit log.
	Path string `koanf:"path" validate:"required,file_path"`
}

type RulesConfig struct {
	// Seed is an optional YAML/JSON/TOML rule file imported into an empty store.
	Seed string `koanf:"seed" validate:"omitempty,file_path"`
}

type PolicyConfig struct {
	// CountryCodeStrip is how many leading digits may be dropped when
	// matching. Zero disables the candidate layer.
	CountryCodeStrip int         `koanf:"country_code_strip" validate:"gte=0,lte=3"`
	Cache            CacheConfig `koanf:"cache"`
	Bloom            BloomConfig `koanf:"bloom"`
}

type CacheConfig struct {
	// Size of the decision cache; zero disables it.
	Size int `koanf:"size" validate:"gte=0"`
}

type BloomConfig struct {
	FPRate float64 `koanf:"fp_rate" validate:"gt=0,lt=1"`
}

type AuditConfig struct {
	Capacity int `koanf:"capacity" validate:"gte=1,lte=50"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:   "prod",
	Log:   LogConfig{Level: "info"},
	Store: StoreConfig{Path: "/var/lib/rr-screen/screen.db"},
	Rules: RulesConfig{Seed: ""},
	Policy: PolicyConfig{
		CountryCodeStrip: 0,
		Cache:            CacheConfig{Size: 1000},
		Bloom:            BloomConfig{FPRate: 0.01},
	},
	Audit: AuditConfig{Capacity: 50},
}

// envKeys maps environment variable names (without prefix) to config paths.
// Several config keys contain underscores, so the mapping is explicit.
var envKeys = map[string]string{
	"ENV":                       "env",
	"LOG_LEVEL":                 "log.level",
	"STORE_PATH":                "store.path",
	"RULES_SEED":                "rules.seed",
	"POLICY_COUNTRY_CODE_STRIP": "policy.country_code_strip",
	"POLICY_CACHE_SIZE":         "policy.cache.size",
	"POLICY_BLOOM_FP_RATE":      "policy.bloom.fp_rate",
	"AUDIT_CAPACITY":            "audit.capacity",
}

// validFilePath accepts a path that names a file: non-empty, not ending in a
// path separator.
func validFilePath(fl validator.FieldLevel) bool {
	p := strings.TrimSpace(fl.Field().String())
	if p == "" {
		return false
	}
	return !strings.HasSuffix(p, "/") && !strings.HasSuffix(p, string(os.PathSeparator))
}

// envLoader loads environment variables with the prefix "SCREEN_" and can be
// mocked in tests. Unknown variables are ignored.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envKeys[strings.TrimPrefix(key, EnvPrefix)]
			if !ok {
				return "", nil
			}
			return path, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "file_path" tag with the provided validator.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("file_path", validFilePath)
}

// Load applies defaults, then environment overrides, and validates the result.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
