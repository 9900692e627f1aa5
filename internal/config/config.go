package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings" // strings splits list-valued variables
	"time"    // time represents sweep intervals
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for costs,
// durations for intervals.  Token TTLs are kept as raw strings of the form
// "<integer><unit>" (unit h, d or m) and parsed at issuance time.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	DBPath          string        // path to the SQLite database file
	JWTSecret       string        // secret used to sign JWTs
	AccessTTL       string        // access token time-to-live, e.g. "24h"
	RefreshTTL      string        // refresh token time-to-live, e.g. "7d"
	BcryptCost      int           // bcrypt cost for password hashing
	GoogleClientIDs []string      // accepted audiences for Google ID tokens
	GoogleFallback  bool          // allow the manual issuer/audience fallback check
	SweepInterval   time.Duration // how often expired refresh tokens are purged
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Token TTLs, bcrypt
// cost and the sweep interval all have safe defaults so only the environment,
// port, database path and signing secret are mandatory.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),    // environment (dev/test/prod)
		Port:            must("APP_PORT"),   // port to bind the HTTP server
		DBPath:          must("DB_PATH"),    // SQLite database file
		JWTSecret:       must("JWT_SECRET"), // secret used for signing JWTs
		AccessTTL:       envStr("ACCESS_TOKEN_TTL", "24h"),
		RefreshTTL:      envStr("REFRESH_TOKEN_TTL", "7d"),
		BcryptCost:      envInt("BCRYPT_COST", 10),
		GoogleClientIDs: envList("GOOGLE_CLIENT_IDS"),
		GoogleFallback:  envBool("GOOGLE_ALLOW_UNVERIFIED", false),
		SweepInterval:   envDur("TOKEN_SWEEP_INTERVAL", time.Hour),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envList splits a comma-separated variable into trimmed, non-empty parts.
// The envStr/envInt/envBool/envDur readers live in ratelimit.go.
func envList(k string) []string {
	raw := os.Getenv(k)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
