package env

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/joomcode/redisfifo/redisconn"
)

// Config is connection configuration taken from environment.
type Config struct {
	Host      string        `env:"REDISFIFO_HOST,default=127.0.0.1"`
	Port      int           `env:"REDISFIFO_PORT,default=6379"`
	Charset   string        `env:"REDISFIFO_CHARSET"`
	Verbose   bool          `env:"REDISFIFO_VERBOSE"`
	IOTimeout time.Duration `env:"REDISFIFO_IO_TIMEOUT,default=1s"`
}

// LoadConfig reads .env.local (if present) and then environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	return loadConfig(ctx, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.ProcessWith(ctx, &config, l); err != nil {
		return nil, err
	}

	return &config, nil
}

// Addr is host:port of redis.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Opts builds connection options.
func (c *Config) Opts(logger redisconn.Logger) redisconn.Opts {
	return redisconn.Opts{
		IOTimeout: c.IOTimeout,
		Charset:   c.Charset,
		Verbose:   c.Verbose,
		Logger:    logger,
	}
}
