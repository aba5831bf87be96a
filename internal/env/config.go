package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/veddb/veddb-go/client"
)

type Config struct {
	Addr           string        `env:"VEDDB_ADDR,default=127.0.0.1:50051"`
	ConnectTimeout time.Duration `env:"VEDDB_CONNECT_TIMEOUT,default=5s"`
	RequestTimeout time.Duration `env:"VEDDB_REQUEST_TIMEOUT,default=30s"`
	PoolSize       int           `env:"VEDDB_POOL_SIZE,default=10"`
	MinIdle        int           `env:"VEDDB_MIN_IDLE,default=1"`
	MaxRetries     int           `env:"VEDDB_MAX_RETRIES,default=2"`
	RetryBackoff   time.Duration `env:"VEDDB_RETRY_BACKOFF,default=100ms"`
	IdleTimeout    time.Duration `env:"VEDDB_IDLE_TIMEOUT,default=60s"`
	MaxFrameSize   int           `env:"VEDDB_MAX_FRAME_SIZE,default=16777216"`
	TCPNoDelay     bool          `env:"VEDDB_TCP_NODELAY,default=true"`
	DebugHTTP      bool          `env:"VEDDB_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			panic(err)
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ClientOptions maps the environment surface onto client options.
func (c *Config) ClientOptions() client.Options {
	return client.Options{
		Addr:           c.Addr,
		ConnectTimeout: c.ConnectTimeout,
		RequestTimeout: c.RequestTimeout,
		PoolSize:       c.PoolSize,
		MinIdle:        c.MinIdle,
		MaxRetries:     c.MaxRetries,
		RetryBackoff:   c.RetryBackoff,
		IdleTimeout:    c.IdleTimeout,
		MaxFrameSize:   c.MaxFrameSize,
		TCPNoDelay:     c.TCPNoDelay,
	}
}
