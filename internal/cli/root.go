package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joomcode/redisfifo/internal/env"
	"github.com/joomcode/redisfifo/redisconn"
)

// session is shared state of single command invocation.
type session struct {
	host      string
	port      int
	charset   string
	verbose   bool
	asJSON    bool
	path      string
	ioTimeout time.Duration

	conf *env.Config
	log  *zap.Logger
}

// NewRootCmd returns redisfifo command with all subcommands.
func NewRootCmd() *cobra.Command {
	s := &session{}
	root := &cobra.Command{
		Use:   "redisfifo",
		Short: "Pipelined redis client",
		Long: `Pipelined redis client

Connection defaults are taken from REDISFIFO_HOST, REDISFIFO_PORT, REDISFIFO_CHARSET,
REDISFIFO_VERBOSE and REDISFIFO_IO_TIMEOUT, and from .env.local if present.

Usage
	redisfifo do SET key value
	redisfifo pipe < commands.txt
	redisfifo repl
`,
		SilenceUsage:      true,
		PersistentPreRunE: s.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if s.log != nil {
				s.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&s.host, "host", "a", "", "Redis host (default from REDISFIFO_HOST)")
	flags.IntVarP(&s.port, "port", "p", 0, "Redis port (default from REDISFIFO_PORT)")
	flags.StringVar(&s.charset, "charset", "", "Encoding of redis text values, e.g. shift_jis")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "Trace frames and received bytes to stderr")
	flags.BoolVar(&s.asJSON, "json", false, "Print replies as json documents")
	flags.StringVar(&s.path, "path", "", "Print only this gjson path of json reply (implies --json)")
	flags.DurationVar(&s.ioTimeout, "io-timeout", 0, "Write timeout and idle report period")

	root.AddCommand(newDoCmd(s), newPipeCmd(s), newReplCmd(s))
	return root
}

func (s *session) setup(cmd *cobra.Command, _ []string) error {
	conf, err := env.LoadConfig(cmd.Context())
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		conf.Host = s.host
	}
	if flags.Changed("port") {
		conf.Port = s.port
	}
	if flags.Changed("charset") {
		conf.Charset = s.charset
	}
	if flags.Changed("verbose") {
		conf.Verbose = s.verbose
	}
	if flags.Changed("io-timeout") {
		conf.IOTimeout = s.ioTimeout
	}
	if s.path != "" {
		s.asJSON = true
	}
	s.conf = conf

	s.log, err = env.MakeLogger(conf.Verbose)
	return err
}

func (s *session) connect(ctx context.Context) (*redisconn.Connection, error) {
	opts := s.conf.Opts(redisconn.NewZapLogger(s.log))
	return redisconn.Connect(ctx, s.conf.Addr(), opts)
}

func (s *session) printer(w io.Writer) *printer {
	return &printer{w: w, json: s.asJSON, path: s.path}
}
