package resp

import (
	"strconv"

	"github.com/joomcode/redisfifo/redis"
)

var nullBulk = []byte("$-1\r\n")

// AppendRequest appends request in RESP format to buf.
// Arguments are converted with redis.ToValue; unsupported argument types produce
// redis.ErrArgumentType error, and buf is returned unchanged.
func AppendRequest(buf []byte, req redis.Request) ([]byte, error) {
	vals, err := req.Values()
	if err != nil {
		return buf, err
	}
	return AppendFrame(buf, req.Cmd, vals), nil
}

// Encode returns command framed as RESP array of bulk strings.
func Encode(cmd string, args []redis.Value) []byte {
	return AppendFrame(nil, cmd, args)
}

// AppendFrame appends command framed as RESP array of bulk strings.
// It never fails: every Value has an encoding.
func AppendFrame(buf []byte, cmd string, args []redis.Value) []byte {
	buf = appendHead(buf, '*', int64(len(args)+1))
	buf = appendHead(buf, '$', int64(len(cmd)))
	buf = append(buf, cmd...)
	buf = append(buf, '\r', '\n')
	var scratch [32]byte
	for _, v := range args {
		if v.Absent() {
			buf = append(buf, nullBulk...)
			continue
		}
		payload := v.AppendTo(scratch[:0])
		buf = appendHead(buf, '$', int64(len(payload)))
		buf = append(buf, payload...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}

func appendHead(b []byte, t byte, i int64) []byte {
	b = append(b, t)
	b = strconv.AppendInt(b, i, 10)
	return append(b, '\r', '\n')
}
