// internal/config/model.go
//
// Typed configuration model for the scan-report console.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                      – dotenv values,
//   • `conf/console.yaml`                       – primary static file,
//   • `CONSOLE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client by `ResolveSecrets` before the value is used,
// so callers never see Vault URIs.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations accept Go syntax ("10s", "1m30s").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// API section
//

// API points the console at the mapping-pipeline REST API.
//
// `Token` is usually a Vault reference such as
// `vault:secret/console#api_token`, keeping the credential out of flat
// files and git history.
type API struct {
	BaseURL   string        `koanf:"base_url"   validate:"required,url"`
	Token     string        `koanf:"token"`
	BatchSize int           `koanf:"batch_size" validate:"gte=0,lte=1000"`
	Timeout   time.Duration `koanf:"timeout"    validate:"gte=0"`
	Retries   int           `koanf:"retries"    validate:"gte=0,lte=10"`
}

//
// HTTP section
//

// HTTP holds console web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Console section
//

// Console holds operator-facing settings.  `Username` is the account the
// console acts as; only reports authored by it may be archived.
type Console struct {
	Username string `koanf:"username"`
}

//
// Audit section
//

// Audit configures the mutation journal.  An empty DSN disables it.
type Audit struct {
	DSN string `koanf:"dsn"`
}

//
// RequestInfo section
//

// RequestInfo tunes the access-log enrichment.  `GeoIPDB` points at a
// GeoLite2-City database; relative paths resolve against the project root.
// Empty leaves the country and city fields blank.
type RequestInfo struct {
	GeoIPDB string `koanf:"geoip_db"`
}

//
// Log section
//

// Log tunes the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // CONSOLE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	API         API         `koanf:"api"`
	HTTP        HTTP        `koanf:"http"`
	Console     Console     `koanf:"console"`
	Audit       Audit       `koanf:"audit"`
	RequestInfo RequestInfo `koanf:"requestinfo"`
	Log         Log         `koanf:"log"`
	Paths       Paths       `koanf:"-"` // not loaded from config files
}

// applyDefaults fills optional values left empty by every layer.
func (c *Config) applyDefaults() {
	if c.API.BatchSize == 0 {
		c.API.BatchSize = 100
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
