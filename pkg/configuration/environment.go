package configuration

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/wfbench/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}
	if len(existingFiles) == 0 {
		return 0, nil
	}
	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"wfbench"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type LokiOptions struct {
	AppName string `env:"LOKI_APP_NAME" envDefault:"wfbench"`
	LogPath string `env:"LOG_PATH" envDefault:"./logs/app.log"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"wfbench"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

// EngineOptions configures the in-process durable execution backend.
type EngineOptions struct {
	Workers         int           `env:"ENGINE_WORKERS" envDefault:"64"`
	QueueSize       int           `env:"ENGINE_QUEUE_SIZE" envDefault:"4096"`
	StepMaxAttempts int           `env:"ENGINE_STEP_MAX_ATTEMPTS" envDefault:"3"`
	StepBackoff     time.Duration `env:"ENGINE_STEP_BACKOFF" envDefault:"50ms"`
	StepMaxBackoff  time.Duration `env:"ENGINE_STEP_MAX_BACKOFF" envDefault:"2s"`
	Store           string        `env:"ENGINE_STORE" envDefault:"memory"` // memory, postgres or redis
	RedisPrefix     string        `env:"ENGINE_REDIS_PREFIX" envDefault:"wfbench:runs"`
	RunTTL          time.Duration `env:"ENGINE_RUN_TTL" envDefault:"24h"`
}

func (e *EngineOptions) Validate() error {
	if e.Workers <= 0 {
		return fmt.Errorf("ENGINE_WORKERS must be positive, got %d", e.Workers)
	}
	if e.QueueSize <= 0 {
		return fmt.Errorf("ENGINE_QUEUE_SIZE must be positive, got %d", e.QueueSize)
	}
	if e.StepMaxAttempts <= 0 {
		return fmt.Errorf("ENGINE_STEP_MAX_ATTEMPTS must be positive, got %d", e.StepMaxAttempts)
	}
	store := strings.ToLower(strings.TrimSpace(e.Store))
	switch store {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("invalid ENGINE_STORE=%q (expected memory|postgres|redis)", e.Store)
	}
	e.Store = store
	return nil
}

type BenchmarkOptions struct {
	// Zero leaves the wait on a run unbounded; the transport's own timeouts apply.
	AwaitTimeout time.Duration `env:"BENCHMARK_AWAIT_TIMEOUT" envDefault:"0"`
	ChainSteps   int           `env:"BENCHMARK_CHAIN_STEPS" envDefault:"50"`
	FanOutWidth  int           `env:"BENCHMARK_FANOUT_WIDTH" envDefault:"100"`
}

type Configuration struct {
	Database      DatabaseOptions
	Loki          LokiOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions
	Engine        EngineOptions
	Benchmark     BenchmarkOptions

	RedisURL           string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	ServerPort         int           `env:"PORT" envDefault:"3000"`
	GoAppEnvironment   string        `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress      string        `env:"-"`
	Domain             string        `env:"DOMAIN" envDefault:"localhost"`
	Origin             string        `env:"ORIGIN" envDefault:"http://localhost:3000"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"error"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CorsAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	// SDK will look for this header in the request, if it's not present, it will generate a random uuidv4
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// SDK will look for this header in the request, if it's not present, it will use request.RemoteAddr
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile io.Closer
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logging.ParseLevel(c.LogLevel)
}

func (c *Configuration) Scheme() string {
	if c.GoAppEnvironment == Production { // assume 'https' on production mode
		return "https"
	}
	return "http"
}

func Use() *Configuration {
	return singleton()
}

// Load parses configuration from the given env files and the process environment.
// Prefer Use() in binaries; Load exists for tools and tests that need an isolated instance.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine configuration error: %w", err)
	}
	if c.Benchmark.ChainSteps < 0 || c.Benchmark.FanOutWidth < 0 {
		return fmt.Errorf("benchmark sizes must be non-negative (chain=%d fanout=%d)", c.Benchmark.ChainSteps, c.Benchmark.FanOutWidth)
	}
	if c.Benchmark.AwaitTimeout < 0 {
		return fmt.Errorf("BENCHMARK_AWAIT_TIMEOUT must be non-negative, got %s", c.Benchmark.AwaitTimeout)
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Loki.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	if os.Getenv("ORIGIN") == "" {
		if c.GoAppEnvironment == "development" {
			c.Origin = fmt.Sprintf("%s://%s:%d", c.Scheme(), c.Domain, c.ServerPort)
		} else {
			c.Origin = fmt.Sprintf("%s://%s", c.Scheme(), c.Domain)
		}
	}

	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
