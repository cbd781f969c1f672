// Package config loads server configuration from a JSON file, CLI
// flags, and environment variables, in that ascending precedence order:
// environment variables win over file and CLI.
package config

import (
	"os"
	"strings"

	"github.com/elastic/go-ucfg"
	ucfgjson "github.com/elastic/go-ucfg/json"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// TLS holds the nested server.tls config section. Either an explicit
// cert_file/key_file pair is given, or domains names the hosts an ACME
// autocert manager may obtain certificates for, cached under cache_dir.
type TLS struct {
	Enabled  bool     `config:"enabled"`
	CertFile string   `config:"cert_file"`
	KeyFile  string   `config:"key_file"`
	Domains  []string `config:"domains"`
	CacheDir string   `config:"cache_dir"`
}

// Server holds the server section plus its nested tls block.
type Server struct {
	Host string `config:"host"`
	Port int    `config:"port"`
	TLS  TLS    `config:"tls"`
}

// Limits holds the limits config section.
type Limits struct {
	MaxBodySize    int64 `config:"max_body_size"`
	MaxHeadersSize int64 `config:"max_headers_size"`
	TimeoutSeconds int   `config:"timeout_seconds"`
}

// Logging holds the logging config section.
type Logging struct {
	Level  string `config:"level"`
	Format string `config:"format"`
}

// Config is the fully resolved configuration.
type Config struct {
	Server  Server  `config:"server"`
	Limits  Limits  `config:"limits"`
	Logging Logging `config:"logging"`
}

func defaults() Config {
	return Config{
		Server: Server{Host: "0.0.0.0", Port: 8080, TLS: TLS{CacheDir: ".autocert-cache"}},
		Limits: Limits{MaxBodySize: 1 << 20, MaxHeadersSize: 16 << 10, TimeoutSeconds: 30},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// Flags is the CLI-flag layer, parsed by cmd/server via cobra and
// passed in here; zero values mean "not set on the command line".
type Flags struct {
	ConfigPath     string
	Host           string
	Port           int
	TLSEnabled     bool
	TLSCertFile    string
	TLSKeyFile     string
	MaxBodySize    int64
	MaxHeadersSize int64
	TimeoutSeconds int
	LogLevel       string
	LogFormat      string
}

// Load builds the final Config: defaults, overlaid by the JSON file (if
// any), overlaid by CLI flags, overlaid by HTTP_SERVER_* environment
// variables.
func Load(flags Flags) (Config, error) {
	cfg := defaults()

	if flags.ConfigPath != "" {
		raw, err := os.ReadFile(flags.ConfigPath)
		if err != nil {
			return Config{}, errors.Wrap(err, "reading config file")
		}

		fileCfg, err := ucfgjson.NewConfig(raw, ucfg.PathSep("."))
		if err != nil {
			return Config{}, errors.Wrap(err, "parsing config file")
		}
		if err := fileCfg.Unpack(&cfg); err != nil {
			return Config{}, errors.Wrap(err, "unpacking config file")
		}
	}

	applyFlags(&cfg, flags)

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyFlags(cfg *Config, f Flags) {
	if f.Host != "" {
		cfg.Server.Host = f.Host
	}
	if f.Port != 0 {
		cfg.Server.Port = f.Port
	}
	applyTLSFlags(&cfg.Server.TLS, f)
	if f.MaxBodySize != 0 {
		cfg.Limits.MaxBodySize = f.MaxBodySize
	}
	if f.MaxHeadersSize != 0 {
		cfg.Limits.MaxHeadersSize = f.MaxHeadersSize
	}
	if f.TimeoutSeconds != 0 {
		cfg.Limits.TimeoutSeconds = f.TimeoutSeconds
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.Logging.Format = f.LogFormat
	}
}

// applyTLSFlags merges the CLI's flat TLS flags into the nested
// Server.TLS struct through mapstructure, rather than a field-by-field
// copy, since the flag set and the nested JSON shape diverge (flat
// "tls-*" flags vs. the config file's nested server.tls block) and
// mapstructure's weakly-typed decode is the tool the rest of the stack
// (spf13/viper-adjacent tooling) uses for exactly that kind of
// flat-to-nested reshaping.
func applyTLSFlags(tls *TLS, f Flags) {
	raw := map[string]interface{}{}
	if f.TLSEnabled {
		raw["enabled"] = true
	}
	if f.TLSCertFile != "" {
		raw["cert_file"] = f.TLSCertFile
	}
	if f.TLSKeyFile != "" {
		raw["key_file"] = f.TLSKeyFile
	}
	if len(raw) == 0 {
		return
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		WeaklyTypedInput: true,
		Result:           tls,
	})
	if err != nil {
		return
	}
	_ = dec.Decode(raw)
}

// envOverrides lists the HTTP_SERVER_* variables and how each maps
// onto the resolved Config, via spf13/cast for the
// string->typed conversions so a malformed env value fails validation
// with a readable message rather than panicking.
func applyEnv(cfg *Config) error {
	set := func(name string) (string, bool) {
		v, ok := os.LookupEnv("HTTP_SERVER_" + name)
		return v, ok && v != ""
	}

	if v, ok := set("HOST"); ok {
		cfg.Server.Host = v
	}
	if v, ok := set("PORT"); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return errors.Wrap(err, "HTTP_SERVER_PORT")
		}
		cfg.Server.Port = n
	}
	if v, ok := set("TLS_ENABLED"); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return errors.Wrap(err, "HTTP_SERVER_TLS_ENABLED")
		}
		cfg.Server.TLS.Enabled = b
	}
	if v, ok := set("TLS_CERT_FILE"); ok {
		cfg.Server.TLS.CertFile = v
	}
	if v, ok := set("TLS_KEY_FILE"); ok {
		cfg.Server.TLS.KeyFile = v
	}
	if v, ok := set("MAX_BODY_SIZE"); ok {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return errors.Wrap(err, "HTTP_SERVER_MAX_BODY_SIZE")
		}
		cfg.Limits.MaxBodySize = n
	}
	if v, ok := set("MAX_HEADERS_SIZE"); ok {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return errors.Wrap(err, "HTTP_SERVER_MAX_HEADERS_SIZE")
		}
		cfg.Limits.MaxHeadersSize = n
	}
	if v, ok := set("TIMEOUT_SECONDS"); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return errors.Wrap(err, "HTTP_SERVER_TIMEOUT_SECONDS")
		}
		cfg.Limits.TimeoutSeconds = n
	}
	if v, ok := set("LOG_LEVEL"); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := set("LOG_FORMAT"); ok {
		cfg.Logging.Format = strings.ToLower(v)
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.Limits.MaxBodySize < 1024 {
		return errors.New("limits.max_body_size must be >= 1024")
	}
	if cfg.Limits.MaxHeadersSize < 1024 {
		return errors.New("limits.max_headers_size must be >= 1024")
	}
	if cfg.Limits.TimeoutSeconds < 1 {
		return errors.New("limits.timeout_seconds must be >= 1")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("logging.level must be one of debug|info|warn|error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return errors.Errorf("logging.format must be one of text|json, got %q", cfg.Logging.Format)
	}
	if cfg.Server.TLS.Enabled {
		hasCert := cfg.Server.TLS.CertFile != ""
		hasKey := cfg.Server.TLS.KeyFile != ""
		switch {
		case hasCert != hasKey:
			return errors.New("server.tls.cert_file and server.tls.key_file must be set together")
		case !hasCert && len(cfg.Server.TLS.Domains) == 0:
			return errors.New("server.tls requires cert_file and key_file, or domains for automatic certificates")
		}
	}
	return nil
}
