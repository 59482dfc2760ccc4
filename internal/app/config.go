package app

import (
	"strings"
	"time"

	"github.com/yungbote/studyforge-backend/internal/data/db"
	"github.com/yungbote/studyforge-backend/internal/modules/studygen"
	"github.com/yungbote/studyforge-backend/internal/pkg/envutil"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type Config struct {
	LogMode     string
	Environment string
	Version     string
	ServiceName string

	HTTPAddr    string
	CORSOrigins []string

	DB    db.Config
	Redis RedisConfig

	Generation      studygen.Config
	GenerationRPS   float64
	GenerationBurst int
	VocabularyFile  string
}

func LoadConfig() Config {
	return Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("ENVIRONMENT", "development"),
		Version:     envutil.String("SERVICE_VERSION", ""),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "studyforge"),

		HTTPAddr:    envutil.String("HTTP_ADDR", ":8080"),
		CORSOrigins: splitList(envutil.String("CORS_ORIGINS", "")),

		DB: db.Config{
			Driver:             envutil.String("DB_DRIVER", "postgres"),
			PostgresHost:       envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:       envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:       envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword:   envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:       envutil.String("POSTGRES_NAME", "studyforge"),
			PostgresSSLMode:    envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:         envutil.String("SQLITE_PATH", ""),
			SlowQueryThreshold: envutil.Duration("DB_SLOW_QUERY_THRESHOLD", time.Second),
			MaxOpenConns:       envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:       envutil.Int("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_CHANNEL", "studyforge:events"),
		},

		Generation: studygen.Config{
			Plan: studygen.PlanConfig{
				Size:          envutil.Int("STUDY_PLAN_SIZE", 10),
				DeepDiveUnits: envutil.Int("STUDY_DEEP_DIVE_UNITS", -1),
			},
			UnitConcurrency:    envutil.Int("STUDY_UNIT_CONCURRENCY", 0),
			PersistConcurrency: envutil.Int("STUDY_PERSIST_CONCURRENCY", 4),
			MaxInflight:        envutil.Int("GENERATION_MAX_INFLIGHT", 10),
			RunTimeout:         envutil.Duration("STUDY_RUN_TIMEOUT", 15*time.Minute),
		},
		GenerationRPS:   envutil.Float("GENERATION_RPS", 0),
		GenerationBurst: envutil.Int("GENERATION_BURST", 0),
		VocabularyFile:  envutil.String("VOCABULARY_FILE", ""),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
