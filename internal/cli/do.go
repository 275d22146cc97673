package cli

import (
	"github.com/spf13/cobra"

	"github.com/joomcode/redisfifo/redis"
)

func newDoCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "do COMMAND [ARG...]",
		Short: "Send single command and print its reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			r := redis.Sync{S: conn}.Send(request(args))
			if r.Err != nil {
				return r.Err
			}
			if err := s.printer(cmd.OutOrStdout()).print(0, r.Value); err != nil {
				return err
			}
			return redis.AsError(r.Value)
		},
	}
}

func request(words []string) redis.Request {
	args := make([]interface{}, len(words)-1)
	for i, w := range words[1:] {
		args[i] = w
	}
	return redis.Req(words[0], args...)
}
