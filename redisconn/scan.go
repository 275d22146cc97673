package redisconn

import (
	"github.com/joomcode/redisfifo/redis"
)

// Scanner returns scanner over SCAN-family command sent through this connection.
func (conn *Connection) Scanner(opts redis.ScanOpts) *redis.Scanner {
	return redis.NewScanner(conn, opts)
}
