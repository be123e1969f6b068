// Package config assembles the service configuration from defaults, an
// optional TOML file, an optional .env file and ASSETDESK_* variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"assetdesk.org/internal/auth"
)

const envPrefix = "ASSETDESK_"

// Duration decodes "30m"-style strings from TOML and the environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Config struct {
	HTTPAddr        string         `toml:"http_addr"`
	GRPCAddr        string         `toml:"grpc_addr"`
	ShutdownTimeout Duration       `toml:"shutdown_timeout"`
	HTTP            HTTP           `toml:"http"`
	Database        Database       `toml:"database"`
	Auth            Auth           `toml:"auth"`
	CORS            CORS           `toml:"cors"`
	LoginRate       RateLimit      `toml:"login_rate"`
	BootstrapAdmin  BootstrapAdmin `toml:"bootstrap_admin"`
}

type HTTP struct {
	// TrustedProxies holds addresses or CIDRs of reverse proxies allowed to
	// set X-Forwarded-For.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// TrustedPrefixes parses TrustedProxies. A bare address becomes a single-host
// prefix.
func (h HTTP) TrustedPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(h.TrustedProxies))
	for _, entry := range h.TrustedProxies {
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("http.trusted_proxies: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("http.trusted_proxies: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

type Database struct {
	DSN         string `toml:"dsn"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Name        string `toml:"name"`
	User        string `toml:"user"`
	Password    string `toml:"password"`
	SSLMode     string `toml:"sslmode"`
	AutoMigrate bool   `toml:"auto_migrate"`
	InMemory    bool   `toml:"in_memory"`
}

type Auth struct {
	SecretKey      string   `toml:"secret_key"`
	Algorithm      string   `toml:"algorithm"`
	AccessTokenTTL Duration `toml:"access_token_ttl"`
	Issuer         string   `toml:"issuer"`
	Required       bool     `toml:"required"`
}

type CORS struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

type RateLimit struct {
	Burst     int     `toml:"burst"`
	PerSecond float64 `toml:"per_second"`
}

type BootstrapAdmin struct {
	Username string `toml:"username"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// Enabled reports whether an admin account should be ensured at startup.
func (b BootstrapAdmin) Enabled() bool {
	return b.Username != "" && b.Password != ""
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:        ":8000",
		ShutdownTimeout: Duration{10 * time.Second},
		Database: Database{
			Port:    5432,
			SSLMode: "disable",
		},
		Auth: Auth{
			Algorithm:      "HS256",
			AccessTokenTTL: Duration{30 * time.Minute},
			Issuer:         "assetdesk",
		},
		CORS: CORS{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8000"},
		},
		LoginRate: RateLimit{Burst: 10, PerSecond: 1},
	}
}

// Load builds and validates the configuration.
func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Read layers the sources without validating, for tools that need only part
// of the configuration. The TOML file named by ASSETDESK_CONFIG is optional;
// so is .env, which never overrides variables already set.
func Read() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Default()
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the keys present in a TOML file.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays ASSETDESK_* variables. lookup is os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}
	e.str("HTTP_ADDR", &c.HTTPAddr)
	e.str("GRPC_ADDR", &c.GRPCAddr)
	e.duration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	e.list("HTTP_TRUSTED_PROXIES", &c.HTTP.TrustedProxies)

	e.str("DATABASE_DSN", &c.Database.DSN)
	e.str("DATABASE_HOST", &c.Database.Host)
	e.integer("DATABASE_PORT", &c.Database.Port)
	e.str("DATABASE_NAME", &c.Database.Name)
	e.str("DATABASE_USER", &c.Database.User)
	e.str("DATABASE_PASSWORD", &c.Database.Password)
	e.str("DATABASE_SSLMODE", &c.Database.SSLMode)
	e.boolean("DATABASE_AUTO_MIGRATE", &c.Database.AutoMigrate)
	e.boolean("DATABASE_IN_MEMORY", &c.Database.InMemory)

	e.str("AUTH_SECRET_KEY", &c.Auth.SecretKey)
	e.str("AUTH_ALGORITHM", &c.Auth.Algorithm)
	e.duration("AUTH_ACCESS_TOKEN_TTL", &c.Auth.AccessTokenTTL)
	e.str("AUTH_ISSUER", &c.Auth.Issuer)
	e.boolean("AUTH_REQUIRED", &c.Auth.Required)

	e.list("CORS_ALLOWED_ORIGINS", &c.CORS.AllowedOrigins)
	e.integer("LOGIN_RATE_BURST", &c.LoginRate.Burst)
	e.float("LOGIN_RATE_PER_SECOND", &c.LoginRate.PerSecond)

	e.str("BOOTSTRAP_ADMIN_USERNAME", &c.BootstrapAdmin.Username)
	e.str("BOOTSTRAP_ADMIN_EMAIL", &c.BootstrapAdmin.Email)
	e.str("BOOTSTRAP_ADMIN_PASSWORD", &c.BootstrapAdmin.Password)
	return errors.Join(e.errs...)
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return errors.New("auth.secret_key is required")
	}
	if !auth.SupportedAlgorithm(c.Auth.Algorithm) {
		return fmt.Errorf("auth.algorithm %q is not supported (HS256, HS384, HS512)", c.Auth.Algorithm)
	}
	if c.Auth.AccessTokenTTL.Duration <= 0 {
		return errors.New("auth.access_token_ttl must be positive")
	}
	if c.HTTPAddr == "" {
		return errors.New("http_addr is required")
	}
	if _, err := c.HTTP.TrustedPrefixes(); err != nil {
		return err
	}
	if c.LoginRate.Burst < 1 || c.LoginRate.PerSecond <= 0 {
		return errors.New("login_rate.burst and login_rate.per_second must be positive")
	}
	if !c.Database.InMemory && c.DSN() == "" {
		return errors.New("database.dsn or database.host and database.name are required")
	}
	if c.BootstrapAdmin.Enabled() && c.BootstrapAdmin.Email == "" {
		return errors.New("bootstrap_admin.email is required with bootstrap_admin.username")
	}
	return nil
}

// DSN returns database.dsn, or a postgres:// URL assembled from the parts.
func (c Config) DSN() string {
	db := c.Database
	if db.DSN != "" {
		return db.DSN
	}
	if db.Host == "" || db.Name == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   "/" + db.Name,
	}
	if db.User != "" {
		if db.Password != "" {
			u.User = url.UserPassword(db.User, db.Password)
		} else {
			u.User = url.User(db.User)
		}
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	return u.String()
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(envPrefix + key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *Duration) {
	if v, ok := e.get(key); ok && v != "" {
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			e.fail(key, err)
		}
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
