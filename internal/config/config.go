package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Signaling SignalingConfig
	Workers   WorkerConfig
	Telemetry TelemetryConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PresencePrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret              string
	AccessTokenTTLMinutes  int
	VisitorTokenTTLMinutes int
	BcryptCost             int
}

// SignalingConfig tunes the WebSocket transport and call orchestration.
type SignalingConfig struct {
	SendBufferSize        int
	ReadLimitBytes        int64
	PongWaitSeconds       int
	RequestTTLMinutes     int
	EndedRetentionSeconds int
	AllowedOrigins        string
}

// WorkerConfig holds background worker intervals.
type WorkerConfig struct {
	SweepIntervalSeconds    int
	TimetablePollSeconds    int
	TimetableCacheSeconds   int
	CallLogBufferSize       int
	CallLogWriteTimeoutSecs int
}

// TelemetryConfig points trace export at an OTLP collector. An empty endpoint disables export.
type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "reception-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			PresencePrefix: getEnv("REDIS_PRESENCE_PREFIX", "reception"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 480),
			VisitorTokenTTLMinutes: getEnvAsInt("AUTH_VISITOR_TOKEN_TTL_MINUTES", 60),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Signaling: SignalingConfig{
			SendBufferSize:        getEnvAsInt("SIGNALING_SEND_BUFFER", 64),
			ReadLimitBytes:        int64(getEnvAsInt("SIGNALING_READ_LIMIT_BYTES", 512*1024)),
			PongWaitSeconds:       getEnvAsInt("SIGNALING_PONG_WAIT_SECONDS", 60),
			RequestTTLMinutes:     getEnvAsInt("SIGNALING_REQUEST_TTL_MINUTES", 240),
			EndedRetentionSeconds: getEnvAsInt("SIGNALING_ENDED_RETENTION_SECONDS", 600),
			AllowedOrigins:        getEnv("SIGNALING_ALLOWED_ORIGINS", ""),
		},
		Workers: WorkerConfig{
			SweepIntervalSeconds:    getEnvAsInt("WORKER_SWEEP_INTERVAL_SECONDS", 60),
			TimetablePollSeconds:    getEnvAsInt("WORKER_TIMETABLE_POLL_SECONDS", 60),
			TimetableCacheSeconds:   getEnvAsInt("TIMETABLE_CACHE_SECONDS", 60),
			CallLogBufferSize:       getEnvAsInt("CALL_LOG_BUFFER_SIZE", 256),
			CallLogWriteTimeoutSecs: getEnvAsInt("CALL_LOG_WRITE_TIMEOUT_SECONDS", 5),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:     getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// PongWait is how long a socket may stay silent before it is considered gone.
func (s SignalingConfig) PongWait() time.Duration {
	if s.PongWaitSeconds <= 0 {
		return 60 * time.Second
	}
	return seconds(s.PongWaitSeconds)
}

// RequestTTL returns zero when queued requests never expire.
func (s SignalingConfig) RequestTTL() time.Duration {
	if s.RequestTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.RequestTTLMinutes) * time.Minute
}

// EndedRetention is how long terminal sessions are kept as tombstones.
func (s SignalingConfig) EndedRetention() time.Duration {
	return seconds(s.EndedRetentionSeconds)
}

// Origins splits AllowedOrigins on commas. Nil means any origin.
func (s SignalingConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (w WorkerConfig) SweepInterval() time.Duration {
	return seconds(w.SweepIntervalSeconds)
}

func (w WorkerConfig) TimetablePoll() time.Duration {
	return seconds(w.TimetablePollSeconds)
}

func (w WorkerConfig) TimetableCacheTTL() time.Duration {
	return seconds(w.TimetableCacheSeconds)
}

func (w WorkerConfig) CallLogWriteTimeout() time.Duration {
	if w.CallLogWriteTimeoutSecs <= 0 {
		return 5 * time.Second
	}
	return seconds(w.CallLogWriteTimeoutSecs)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
