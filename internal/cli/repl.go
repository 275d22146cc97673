package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joomcode/redisfifo/redis"
	"github.com/joomcode/redisfifo/redisconn"
)

const replHelp = `Commands are sent as is: words are split by spaces, "double quoted" words may contain spaces.
	.quit       exit
	.reconnect  dial again if connection were lost
	.help       this help
`

func newReplCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			le := newLineEditor(cmd.InOrStdin(), cmd.OutOrStdout())
			defer le.close()
			return runREPL(conn, le, s.printer(cmd.OutOrStdout()))
		},
	}
}

func runREPL(conn *redisconn.Connection, le *lineEditor, p *printer) error {
	sync := redis.Sync{S: conn}
	prompt := conn.Addr() + "> "
	for n := 0; ; {
		line, err := le.getLine(prompt)
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ".quit":
			return nil
		case ".help":
			fmt.Fprint(p.w, replHelp)
			continue
		case ".reconnect":
			if err := conn.Dial(conn.Ctx()); err != nil {
				p.printErr(n, err)
			}
			continue
		}

		words, err := splitLine(line)
		if err != nil {
			p.printErr(n, err)
			continue
		}
		r := sync.Send(request(words))
		if r.Err != nil {
			p.printErr(n, r.Err)
		} else if err := p.print(n, r.Value); err != nil {
			return err
		}
		n++
	}
}
