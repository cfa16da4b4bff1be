// Package buildcfg turns the viper-loaded config file into the typed
// configs each component needs at startup.
package buildcfg

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port         string
	Name         string
	BaseURL      string
	WriteTimeout time.Duration
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CacheConfig struct {
	TTL     time.Duration
	Timeout time.Duration
}

func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return v, nil
}

func BuildServerConfig(cfg *viper.Viper, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	serverName := cfg.GetString("server.name")
	baseURL := cfg.GetString("server.base_url")

	writeTimeout, err := time.ParseDuration(cfg.GetString("server.write_timeout"))
	if err != nil {
		log.Fatal().Msgf("invalid write_timeout value: %v", err)
	}

	log.Info().Msgf("Starting %s on port %s (timeout %s)", serverName, port, writeTimeout)

	return ServerConfig{
		Port:         port,
		Name:         serverName,
		BaseURL:      baseURL,
		WriteTimeout: writeTimeout,
	}
}

func BuildDBConfig(cfg *viper.Viper, log *zerolog.Logger) (*DBConfig, error) {
	dbHost := cfg.GetString("database.host")
	dbPort := cfg.GetInt("database.port")
	dbName := cfg.GetString("database.name")
	dbUser := cfg.GetString("database.user")
	dbPass := cfg.GetString("database.password")
	sslMode := cfg.GetString("database.ssl_mode")

	connMaxLifetime, err := time.ParseDuration(cfg.GetString("database.max_conn_lifetime"))
	if err != nil {
		log.Error().Msgf("invalid database.max_conn_lifetime: %v", err)
		return nil, fmt.Errorf("invalid database.max_conn_lifetime: %w", err)
	}

	log.Info().Msgf("Database config: host=%s port=%d dbname=%s user=%s sslmode=%s",
		dbHost, dbPort, dbName, dbUser, sslMode)

	return &DBConfig{
		DSN: fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dbHost, dbPort, dbUser, dbPass, dbName, sslMode,
		),
		MaxOpenConns:    cfg.GetInt("database.max_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: connMaxLifetime,
	}, nil
}

func BuildRedisConfig(cfg *viper.Viper, log *zerolog.Logger) *RedisConfig {
	addr := cfg.GetString("redis.addr")
	db := cfg.GetInt("redis.db")

	log.Info().Msgf("Redis config loaded: %s, db=%d", addr, db)

	return &RedisConfig{
		Addr:     addr,
		Password: cfg.GetString("redis.password"),
		DB:       db,
	}
}

func BuildCacheConfig(cfg *viper.Viper, log *zerolog.Logger) (*CacheConfig, error) {
	ttl, err := time.ParseDuration(cfg.GetString("cache.ttl"))
	if err != nil {
		log.Error().Msgf("invalid cache.ttl: %v", err)
		return nil, fmt.Errorf("invalid cache.ttl: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.GetString("cache.timeout"))
	if err != nil {
		log.Error().Msgf("invalid cache.timeout: %v", err)
		return nil, fmt.Errorf("invalid cache.timeout: %w", err)
	}

	return &CacheConfig{TTL: ttl, Timeout: timeout}, nil
}
