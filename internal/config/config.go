package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time expresses the TTL and interval settings
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints and durations
// for TTLs and costs.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	SeatLockTTL   time.Duration // how long a reservation holds its seats before payment
	SweepInterval time.Duration // how often the expiry sweeper runs

	PaymentMode       string        // "mock" or "razorpay"
	PaymentCurrency   string        // ISO code charged by the gateway
	PaymentTimeout    time.Duration // upper bound on a gateway order call
	RazorpayKeyID     string        // gateway API key id (razorpay mode only)
	RazorpayKeySecret string        // gateway API key secret (razorpay mode only)

	RabbitURL string // AMQP broker URL; empty disables queue notifications
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Domain knobs carry
// sensible defaults so a dev environment only needs the core set.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),  // environment (dev/test/prod)
		Port:           must("APP_PORT"), // port to bind the HTTP server
		DBUser:         must("DB_USER"),  // database user
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		SeatLockTTL:   time.Duration(defInt("SEAT_LOCK_TTL_MIN", 10)) * time.Minute,
		SweepInterval: time.Duration(defInt("SWEEP_INTERVAL_SEC", 60)) * time.Second,

		PaymentMode:       defStr("PAYMENT_MODE", "mock"),
		PaymentCurrency:   defStr("PAYMENT_CURRENCY", "INR"),
		PaymentTimeout:    time.Duration(defInt("PAYMENT_TIMEOUT_SEC", 10)) * time.Second,
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),

		RabbitURL: os.Getenv("RABBITMQ_URL"),
	}
	if cfg.PaymentMode == "razorpay" && (cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "") {
		log.Fatal("PAYMENT_MODE=razorpay requires RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET")
	}
	return cfg
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// defStr reads an optional variable, falling back to a default.
func defStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// defInt reads an optional integer variable, falling back to a default.
func defInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
