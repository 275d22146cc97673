package redis

import (
	"fmt"
	"strings"
)

// Projector converts raw decoded reply into the value caller expects.
// Error returned by projector fails the request.
type Projector func(res interface{}) (interface{}, error)

// Req makes Request.
// Projector passed among args is not sent: it becomes projector of request.
func Req(cmd string, args ...interface{}) Request {
	req := Request{Cmd: cmd}
	for _, arg := range args {
		switch p := arg.(type) {
		case Projector:
			req.Project = p
		case func(interface{}) (interface{}, error):
			req.Project = p
		default:
			req.Args = append(req.Args, arg)
		}
	}
	return req
}

// Request represents request to be passed to redis.
type Request struct {
	// Cmd is a redis command name.
	Cmd string
	// Args are command arguments. Each must be convertible with ToValue.
	Args []interface{}
	// Project is applied to decoded reply. nil means identity.
	Project Projector
}

// With returns copy of request with projector set.
func (req Request) With(p Projector) Request {
	req.Project = p
	return req
}

// Values converts arguments to Values.
func (req Request) Values() ([]Value, error) {
	vals := make([]Value, len(req.Args))
	for i, arg := range req.Args {
		v, ok := ToValue(arg)
		if !ok {
			return nil, ErrArgumentType.New("command argument type not supported").
				WithProperty(EKRequest, req).
				WithProperty(EKArgPos, i).
				WithProperty(EKVal, arg)
		}
		vals[i] = v
	}
	return vals, nil
}

func (req Request) String() string {
	args := make([]string, 0, len(req.Args)+1)
	args = append(args, req.Cmd)
	for _, arg := range req.Args {
		args = append(args, fmt.Sprint(arg))
	}
	return "{" + strings.Join(args, " ") + "}"
}

// Callback is called exactly once for every request.
// err != nil means request failed (connection lost, bad argument, projector error).
// Otherwise res is (projected) reply, which still may be an error reply from redis
// (see IsResultError).
// n is a number passed to Send, or index of request for SendMany.
type Callback func(res interface{}, err error, n uint64)
