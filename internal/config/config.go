package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all gateway configuration.
type Config struct {
	Addr     string // listen address, e.g. ":8080"
	DBPath   string // path to the SQLite directory database
	TLS      bool
	CertFile string
	KeyFile  string

	// Multi-tenancy.
	DefaultScope      string        // default cloud resource scope (project)
	SuperAdminDomains string        // comma-separated email domains with elevated access
	SuperAdminScopes  string        // comma-separated scopes granted to super admins
	AccessPolicyPath  string        // optional YAML access policy file (overrides the two above)
	CacheTTL          time.Duration // identity cache TTL
	CacheSize         int           // identity cache max entries
	CallTimeout       time.Duration // per-call timeout for verifier/directory calls

	// Auth mode: "oidc" (default) or "jwt".
	AuthMode string
	// OIDC settings (required when AuthMode == "oidc").
	OIDCIssuer   string // provider discovery URL
	OIDCClientID string // expected token audience
	// JWT settings (required when AuthMode == "jwt").
	JWTSigningKey string // HMAC secret string or path to PEM public key file
	JWTIssuer     string // expected JWT issuer (optional)
	JWTAudience   string // expected JWT audience (optional)

	// Warehouse passthrough.
	WarehouseMaxResults int64         // hard cap on rows per query
	WarehouseJobTimeout time.Duration // per-query job timeout

	// Paths that bypass the authentication gate (comma-separated,
	// exact-segment matched).
	PublicPaths string

	// Logging.
	LogFormat string // "json" (default) or "text"
	AuditLogs bool   // enable audit logging (default true)
}

// Parse reads flags and applies WAREHOUSE_GATEWAY_* env overrides.
func Parse() *Config {
	c := &Config{}
	flag.StringVar(&c.Addr, "addr", ":8080", "listen address")
	flag.StringVar(&c.DBPath, "db", "warehouse-gateway.db", "SQLite directory database path")
	flag.BoolVar(&c.TLS, "tls", false, "enable TLS")
	flag.StringVar(&c.CertFile, "cert", "", "TLS certificate file")
	flag.StringVar(&c.KeyFile, "key", "", "TLS key file")

	// Multi-tenancy flags.
	flag.StringVar(&c.DefaultScope, "default-scope", "", "default cloud resource scope (required)")
	flag.StringVar(&c.SuperAdminDomains, "super-admin-domains", "", "comma-separated email domains with elevated access")
	flag.StringVar(&c.SuperAdminScopes, "super-admin-scopes", "", "comma-separated scopes granted to super admins")
	flag.StringVar(&c.AccessPolicyPath, "access-policy", "", "path to access-policy.yaml (optional)")
	flag.DurationVar(&c.CacheTTL, "cache-ttl", 5*time.Minute, "identity cache TTL")
	flag.IntVar(&c.CacheSize, "cache-size", 1000, "identity cache max entries")
	flag.DurationVar(&c.CallTimeout, "call-timeout", 10*time.Second, "per-call timeout for verifier/directory calls")

	// Auth flags.
	flag.StringVar(&c.AuthMode, "auth-mode", "oidc", "authentication mode: oidc or jwt")
	flag.StringVar(&c.OIDCIssuer, "oidc-issuer", "", "OIDC provider discovery URL (required for oidc mode)")
	flag.StringVar(&c.OIDCClientID, "oidc-client-id", "", "expected OIDC token audience")
	flag.StringVar(&c.JWTSigningKey, "jwt-signing-key", "", "HMAC secret or path to PEM public key for JWT verification")
	flag.StringVar(&c.JWTIssuer, "jwt-issuer", "", "expected JWT issuer claim (optional)")
	flag.StringVar(&c.JWTAudience, "jwt-audience", "", "expected JWT audience claim (optional)")

	// Warehouse flags.
	flag.Int64Var(&c.WarehouseMaxResults, "warehouse-max-results", 10000, "maximum rows returned per query")
	flag.DurationVar(&c.WarehouseJobTimeout, "warehouse-job-timeout", 5*time.Minute, "per-query job timeout")

	flag.StringVar(&c.PublicPaths, "public-paths", "/,/healthz,/readyz,/metrics,/api/openapi", "comma-separated paths that bypass authentication")

	// Logging flags.
	flag.StringVar(&c.LogFormat, "log-format", "json", "log format: json or text")
	flag.BoolVar(&c.AuditLogs, "audit-logs", true, "enable structured audit logging")

	flag.Parse()

	// Allow env overrides.
	if v := os.Getenv("WAREHOUSE_GATEWAY_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_DEFAULT_SCOPE"); v != "" {
		c.DefaultScope = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_SUPER_ADMIN_DOMAINS"); v != "" {
		c.SuperAdminDomains = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_SUPER_ADMIN_SCOPES"); v != "" {
		c.SuperAdminScopes = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_ACCESS_POLICY"); v != "" {
		c.AccessPolicyPath = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CacheTTL = d
		}
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheSize = n
		}
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CallTimeout = d
		}
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_AUTH_MODE"); v != "" {
		c.AuthMode = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_OIDC_ISSUER"); v != "" {
		c.OIDCIssuer = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_OIDC_CLIENT_ID"); v != "" {
		c.OIDCClientID = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_JWT_SIGNING_KEY"); v != "" {
		c.JWTSigningKey = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_JWT_ISSUER"); v != "" {
		c.JWTIssuer = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_JWT_AUDIENCE"); v != "" {
		c.JWTAudience = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_MAX_RESULTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.WarehouseMaxResults = n
		}
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_JOB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.WarehouseJobTimeout = d
		}
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_PUBLIC_PATHS"); v != "" {
		c.PublicPaths = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("WAREHOUSE_GATEWAY_AUDIT_LOGS"); v == "false" {
		c.AuditLogs = false
	}

	return c
}

// Validate checks startup invariants. Called once in main before any
// dependency is constructed.
func (c *Config) Validate() error {
	if c.DefaultScope == "" {
		return errors.New("default-scope is required")
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache-ttl must be positive")
	}
	if c.CacheSize <= 0 {
		return errors.New("cache-size must be positive")
	}
	if c.CallTimeout <= 0 {
		return errors.New("call-timeout must be positive")
	}
	switch c.AuthMode {
	case "oidc":
		if c.OIDCIssuer == "" || c.OIDCClientID == "" {
			return errors.New("oidc-issuer and oidc-client-id are required when auth-mode=oidc")
		}
	case "jwt":
		if c.JWTSigningKey == "" {
			return errors.New("jwt-signing-key is required when auth-mode=jwt")
		}
	default:
		return fmt.Errorf("unknown auth-mode %q (want oidc or jwt)", c.AuthMode)
	}
	if c.TLS && (c.CertFile == "" || c.KeyFile == "") {
		return errors.New("cert and key are required when tls is enabled")
	}
	return nil
}

// SplitList parses a comma-separated flag value into trimmed entries.
func SplitList(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}
