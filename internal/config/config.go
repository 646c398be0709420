package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// Approval token signing
	JWTSecret string
	TokenTTL  time.Duration

	// Outbound mail
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	MailFrom   string
	AdminEmail string

	// Where the approval link in the admin mail points
	PublicBaseURL string

	// Identity provider REST endpoint
	IdentityBaseURL string
	IdentityAPIKey  string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func Load() *Config {
	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "registration"),
		MySQLUser: getenv("MYSQL_USER", "registration"),
		MySQLPass: getenv("MYSQL_PASS", "registration"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		IdempTTLSecs: 300,

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  time.Hour,

		SMTPHost:   getenv("SMTP_HOST", "localhost"),
		SMTPPort:   587,
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
		MailFrom:   getenv("MAIL_FROM", os.Getenv("SMTP_USER")),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),

		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:8080"),

		IdentityBaseURL: os.Getenv("IDENTITY_BASE_URL"),
		IdentityAPIKey:  os.Getenv("IDENTITY_API_KEY"),
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("IDEMPOTENCY_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IdempTTLSecs = n
		}
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SMTPPort = n
		}
	}
	if v := os.Getenv("TOKEN_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TokenTTL = time.Duration(n) * time.Second
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}
	// Approval requests fail outright when dispatch fails, so a broken
	// mailer must be caught here and not as 502s at runtime.
	if c.SMTPHost == "" || c.SMTPPort == 0 {
		return errors.New("missing SMTP config (SMTP_HOST/PORT)")
	}
	if c.MailFrom == "" {
		return errors.New("missing MAIL_FROM (or SMTP_USER fallback)")
	}
	if c.AdminEmail == "" {
		return errors.New("missing ADMIN_EMAIL")
	}
	if c.IdentityBaseURL == "" {
		return errors.New("missing IDENTITY_BASE_URL")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
