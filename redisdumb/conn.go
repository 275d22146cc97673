// Package redisdumb is a blocking redis client: one request at a time, reconnect on failure.
// It is used for test setup, where pipelining is not needed.
package redisdumb

import (
	"net"
	"time"

	"github.com/joomcode/redisfifo/redis"
	"github.com/joomcode/redisfifo/resp"
)

// DefaultTimeout is dial and io timeout when Conn.Timeout is zero.
var DefaultTimeout = 5 * time.Second

// Conn is a lazily established connection.
type Conn struct {
	Addr    string
	C       net.Conn
	Timeout time.Duration

	buf []byte
}

// Do sends request and waits for reply.
// Request is retried once on fresh connection if previous connection were broken.
func (c *Conn) Do(cmd string, args ...interface{}) (interface{}, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	req, err := resp.AppendRequest(nil, redis.Req(cmd, args...))
	if err != nil {
		return nil, err
	}
	try := 1
	if c.C != nil {
		try = 2
	}
	for i := 0; i < try; i++ {
		if c.C == nil {
			c.C, err = net.DialTimeout("tcp", c.Addr, timeout)
			if err != nil {
				return nil, redis.ErrDial.Wrap(err, "could not connect").
					WithProperty(redis.EKConnection, c.Addr)
			}
			c.buf = c.buf[:0]
		}
		var res interface{}
		if res, err = c.roundTrip(req, timeout); err == nil {
			return res, nil
		}
		c.Close()
	}
	return nil, err
}

func (c *Conn) roundTrip(req []byte, timeout time.Duration) (interface{}, error) {
	c.C.SetDeadline(time.Now().Add(timeout))
	if _, err := c.C.Write(req); err != nil {
		return nil, redis.ErrIO.Wrap(err, "write failed")
	}
	var chunk [16 * 1024]byte
	for {
		res, n, err := resp.Decode(c.buf)
		if err == nil {
			c.buf = append(c.buf[:0], c.buf[n:]...)
			return res, nil
		}
		if !resp.IsTruncated(err) {
			return nil, err
		}
		k, err := c.C.Read(chunk[:])
		if err != nil {
			return nil, redis.ErrIO.Wrap(err, "read failed")
		}
		c.buf = append(c.buf, chunk[:k]...)
	}
}

// Close closes underlying connection. Conn could be used again after.
func (c *Conn) Close() {
	if c.C != nil {
		c.C.Close()
		c.C = nil
	}
	c.buf = c.buf[:0]
}

// Do executes single request over new connection.
func Do(addr string, cmd string, args ...interface{}) (interface{}, error) {
	c := Conn{Addr: addr}
	defer c.Close()
	return c.Do(cmd, args...)
}
