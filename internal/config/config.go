package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	HTTPPort      string
	Env           string
	DBDriver      string
	DatabaseDSN   string
	PublicBaseURL string
	AuditDBPath   string
	Postgres      PostgresConfig
	Storage       StorageConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
}

func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

// fileConfig is the optional config.yaml overlay. It only fills in values the
// environment left unset; env vars always win.
type fileConfig struct {
	HTTPPort      string `yaml:"http_port"`
	Env           string `yaml:"env"`
	DBDriver      string `yaml:"db_driver"`
	DatabaseDSN   string `yaml:"database_dsn"`
	PublicBaseURL string `yaml:"public_base_url"`
	AuditDBPath   string `yaml:"audit_db_path"`
}

func Load() *AppConfig {
	pg := PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", ""),
		Port:     getEnv("POSTGRES_PORT", ""),
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		DBName:   getEnv("POSTGRES_DB", ""),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}

	storage := StorageConfig{
		Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
		AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		Bucket:    getEnv("STORAGE_BUCKET", ""),
		Region:    getEnv("STORAGE_REGION", ""),
		UseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",
		PublicURL: getEnv("STORAGE_PUBLIC_URL", ""),
	}

	cfg := &AppConfig{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		Env:           getEnv("APP_ENV", "development"),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "")),
		DatabaseDSN:   getEnv("DATABASE_DSN", ""),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		AuditDBPath:   getEnv("AUDIT_DB_PATH", "data/audit.db"),
		Postgres:      pg,
		Storage:       storage,
	}

	applyFileOverlay(cfg, getEnv("CONFIG_FILE", "config.yaml"))

	if cfg.DBDriver == "" {
		if cfg.DatabaseDSN != "" || pg.Host != "" {
			cfg.DBDriver = "postgres"
		} else {
			cfg.DBDriver = "memory"
		}
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = buildPostgresDSN(pg)
	}
	return cfg
}

func applyFileOverlay(cfg *AppConfig, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		log.Printf("config overlay %s ignored: %v", path, err)
		return
	}
	if os.Getenv("HTTP_PORT") == "" && fc.HTTPPort != "" {
		cfg.HTTPPort = fc.HTTPPort
	}
	if os.Getenv("APP_ENV") == "" && fc.Env != "" {
		cfg.Env = fc.Env
	}
	if os.Getenv("DB_DRIVER") == "" && fc.DBDriver != "" {
		cfg.DBDriver = strings.ToLower(fc.DBDriver)
	}
	if os.Getenv("DATABASE_DSN") == "" && fc.DatabaseDSN != "" {
		cfg.DatabaseDSN = fc.DatabaseDSN
	}
	if os.Getenv("PUBLIC_BASE_URL") == "" && fc.PublicBaseURL != "" {
		cfg.PublicBaseURL = strings.TrimRight(fc.PublicBaseURL, "/")
	}
	if os.Getenv("AUDIT_DB_PATH") == "" && fc.AuditDBPath != "" {
		cfg.AuditDBPath = fc.AuditDBPath
	}
}

func buildPostgresDSN(pg PostgresConfig) string {
	host := pg.Host
	if host == "" {
		host = "localhost"
	}
	port := pg.Port
	if port == "" {
		port = "5432"
	}
	ssl := pg.SSLMode
	if ssl == "" {
		ssl = "disable"
	}

	u := &url.URL{Scheme: "postgres"}
	if pg.User != "" {
		if pg.Password != "" {
			u.User = url.UserPassword(pg.User, pg.Password)
		} else {
			u.User = url.User(pg.User)
		}
	}
	u.Host = fmt.Sprintf("%s:%s", host, port)
	if pg.DBName != "" {
		u.Path = pg.DBName
	}
	q := u.Query()
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func MustLoad() *AppConfig {
	cfg := Load()
	if cfg.HTTPPort == "" {
		log.Fatal("HTTP_PORT required")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "memory" {
		log.Fatalf("unknown DB_DRIVER %q (want postgres or memory)", cfg.DBDriver)
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN required for postgres driver")
	}
	return cfg
}
