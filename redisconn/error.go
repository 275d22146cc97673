package redisconn

import (
	"github.com/joomcode/errorx"

	"github.com/joomcode/redisfifo/redis"
)

func withNewProperty(err *errorx.Error, p errorx.Property, v interface{}) *errorx.Error {
	_, ok := err.Property(p)
	if ok {
		return err
	}
	return err.WithProperty(p, v)
}

// withConn attaches connection to errorx errors and wraps foreign ones into ErrConnection.
func withConn(err error, conn *Connection) error {
	if err == nil {
		return nil
	}
	ex := errorx.Cast(err)
	if ex == nil {
		ex = redis.ErrConnection.Wrap(err, "transport failure")
	}
	return withNewProperty(ex, redis.EKConnection, conn)
}
