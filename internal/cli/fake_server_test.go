package cli

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/mediocregopher/radix/v3/resp/resp2"
)

// fakeServer answers few commands the way redis does.
type fakeServer struct {
	l net.Listener
}

func startFakeServer() (*fakeServer, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &fakeServer{l: l}
	go s.serve()
	return s, nil
}

func (s *fakeServer) port() string {
	return strconv.Itoa(s.l.Addr().(*net.TCPAddr).Port)
}

func (s *fakeServer) close() {
	s.l.Close()
}

func (s *fakeServer) serve() {
	for {
		c, err := s.l.Accept()
		if err != nil {
			return
		}
		go s.handle(c)
	}
}

func (s *fakeServer) handle(c net.Conn) {
	defer c.Close()
	br := bufio.NewReader(c)
	for {
		var ah resp2.ArrayHeader
		if err := ah.UnmarshalRESP(br); err != nil {
			return
		}
		cmd := make([]string, ah.N)
		for i := range cmd {
			var bs resp2.BulkString
			if err := bs.UnmarshalRESP(br); err != nil {
				return
			}
			cmd[i] = bs.S
		}
		if _, err := c.Write([]byte(answer(cmd))); err != nil {
			return
		}
	}
}

func answer(cmd []string) string {
	switch strings.ToUpper(cmd[0]) {
	case "PING":
		return "+PONG\r\n"
	case "ECHO":
		return bulk(cmd[1])
	case "LRANGE":
		return "*3\r\n" + bulk("a") + bulk("10") + "$-1\r\n"
	case "EMPTY":
		return "*0\r\n"
	case "INCR":
		return ":1\r\n"
	default:
		return fmt.Sprintf("-ERR unknown command '%s'\r\n", cmd[0])
	}
}

func bulk(s string) string {
	return "$" + strconv.Itoa(len(s)) + "\r\n" + s + "\r\n"
}
