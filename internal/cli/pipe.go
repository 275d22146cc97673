package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/joomcode/redisfifo/redis"
)

func newPipeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "pipe",
		Short: "Send commands read from stdin (one per line) in a single pipeline",
		Long: `Send commands read from stdin (one per line) in a single pipeline

Replies are printed in order of commands. Exit status is non-zero if any command failed
or got error reply.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var reqs []redis.Request
			sc := bufio.NewScanner(cmd.InOrStdin())
			sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
			for lineno := 1; sc.Scan(); lineno++ {
				words, err := splitLine(sc.Text())
				if err != nil {
					return fmt.Errorf("line %d: %w", lineno, err)
				}
				if len(words) == 0 {
					continue
				}
				reqs = append(reqs, request(words))
			}
			if err := sc.Err(); err != nil {
				return err
			}
			if len(reqs) == 0 {
				return nil
			}

			conn, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			results := redis.Sync{S: conn}.SendMany(reqs)
			p := s.printer(cmd.OutOrStdout())
			var errs error
			for i, r := range results {
				if r.Err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%v: %w", reqs[i], r.Err))
					p.printErr(i, r.Err)
					continue
				}
				if err := p.print(i, r.Value); err != nil {
					return multierr.Append(errs, err)
				}
				if rerr := redis.AsError(r.Value); rerr != nil {
					errs = multierr.Append(errs, fmt.Errorf("%v: %w", reqs[i], rerr))
				}
			}
			return errs
		},
	}
}
