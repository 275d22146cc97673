package testbed

import (
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/joomcode/errorx"

	"github.com/joomcode/redisfifo/redisdumb"
)

// Server is a single redis-server process.
type Server struct {
	Port   uint16
	Args   []string
	Cmd    *exec.Cmd
	Paused bool
}

// PortStr is a port as string.
func (s *Server) PortStr() string {
	return strconv.Itoa(int(s.Port))
}

// Addr is tcp address of server.
func (s *Server) Addr() string {
	return "127.0.0.1:" + s.PortStr()
}

// Start runs redis-server and waits till it accepts commands.
func (s *Server) Start() error {
	if s.Cmd != nil {
		return nil
	}
	s.Paused = false
	port := s.PortStr()
	args := append([]string{
		"--bind", "127.0.0.1",
		"--port", port,
		"--logfile", port + ".log",
		"--save", "",
	}, s.Args...)
	s.Cmd = exec.Command(Binary, args...)
	s.Cmd.Dir = Dir
	if err := s.Cmd.Start(); err != nil {
		s.Cmd = nil
		return err
	}

	var lastErr error
	for deadline := time.Now().Add(2 * time.Second); time.Now().Before(deadline); {
		if _, lastErr = s.Do("PING"); lastErr == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()
	return errorx.Decorate(lastErr, "redis-server at %s didn't start", s.Addr())
}

// Pause stops server process with SIGSTOP.
func (s *Server) Pause() error {
	if s.Paused {
		return nil
	}
	if err := s.Cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return err
	}
	s.Paused = true
	return nil
}

// Resume continues paused server.
func (s *Server) Resume() error {
	if !s.Paused {
		return nil
	}
	if err := s.Cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return err
	}
	s.Paused = false
	return nil
}

// Stop kills server.
func (s *Server) Stop() error {
	if s.Paused {
		s.Resume()
	}
	if s.Cmd == nil {
		return nil
	}
	defer time.Sleep(10 * time.Millisecond)
	p := s.Cmd
	s.Cmd = nil
	defer p.Wait()
	return p.Process.Kill()
}

// Do executes single command over fresh connection.
func (s *Server) Do(cmd string, args ...interface{}) (interface{}, error) {
	c := redisdumb.Conn{Addr: s.Addr(), Timeout: time.Second}
	defer c.Close()
	return c.Do(cmd, args...)
}
