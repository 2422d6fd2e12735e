// Package config reads the service configuration once at startup. The
// resulting Config is passed explicitly to every adapter.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Tables maps each logical record kind to its physical table (or key
// prefix, for the Redis token store).
type Tables struct {
	Students     string
	Rockies      string
	Activities   string
	AccessTokens string
}

// TablesForStage derives the stage prefixed table names, e.g. dev_t_students.
func TablesForStage(stage string) Tables {
	prefix := ""
	if stage != "" {
		prefix = stage + "_"
	}
	return Tables{
		Students:     prefix + "t_students",
		Rockies:      prefix + "t_rockies",
		Activities:   prefix + "t_activities",
		AccessTokens: prefix + "t_access_tokens",
	}
}

// Config is read once by FromEnv. ValidatorSecret, when set, signs and
// checks service tokens on /auth/validate.
type Config struct {
	HTTPAddr        string
	Stage           string
	Tables          Tables
	StoreBackend    string
	TokenBackend    string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	TokenTTL        time.Duration
	ValidatorURL    string
	ValidatorSecret string
	BcryptCost      int
	SnowflakeNode   int64
}

// FromEnv reads the configuration from environment variables, applying
// defaults for anything unset.
func FromEnv() Config {
	stage := getenv("STAGE", "dev")
	tables := TablesForStage(stage)
	tables.Students = getenv("TABLE_STUDENTS", tables.Students)
	tables.Rockies = getenv("TABLE_ROCKIES", tables.Rockies)
	tables.Activities = getenv("TABLE_ACTIVITIES", tables.Activities)
	tables.AccessTokens = getenv("TABLE_ACCESS_TOKENS", tables.AccessTokens)

	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", "0.0.0.0:8431"),
		Stage:           stage,
		Tables:          tables,
		StoreBackend:    strings.ToLower(getenv("STORE_BACKEND", BackendPostgres)),
		TokenBackend:    strings.ToLower(getenv("TOKEN_BACKEND", BackendPostgres)),
		RedisAddr:       getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		RedisDB:         getenvInt("REDIS_DB", 0),
		TokenTTL:        getenvDuration("TOKEN_TTL", 60*time.Minute),
		ValidatorURL:    strings.TrimRight(getenv("VALIDATOR_URL", ""), "/"),
		ValidatorSecret: os.Getenv("VALIDATOR_SECRET"),
		BcryptCost:      getenvInt("BCRYPT_COST", 12),
		SnowflakeNode:   int64(getenvInt("SNOWFLAKE_NODE", 1)),
	}
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.TokenBackend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unsupported TOKEN_BACKEND %q", c.TokenBackend)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.Tables.Students == "" || c.Tables.Rockies == "" || c.Tables.Activities == "" || c.Tables.AccessTokens == "" {
		return fmt.Errorf("table names must not be empty")
	}
	return nil
}

// NeedsDatabase reports whether any adapter is backed by Postgres.
func (c Config) NeedsDatabase() bool {
	return c.StoreBackend == BackendPostgres || c.TokenBackend == BackendPostgres
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
