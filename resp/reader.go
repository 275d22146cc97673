package resp

import (
	"bytes"
	"strconv"

	"github.com/joomcode/errorx"
	"golang.org/x/text/encoding"

	"github.com/joomcode/redisfifo/redis"
)

// errTruncated is returned whenever buffer ends before reply is complete.
var errTruncated = redis.ErrTruncated.New("reply is not complete")

// MaxBulkLen is the largest bulk string accepted, same as redis proto-max-bulk-len default.
const MaxBulkLen = 512 * 1024 * 1024

// Decoder decodes replies from byte buffer.
type Decoder struct {
	// Charset is used to decode simple strings, errors and bulk strings.
	// nil means bytes are taken as is (utf-8).
	Charset encoding.Encoding
}

// Decode decodes single reply with utf-8 decoder.
func Decode(buf []byte) (interface{}, int, error) {
	return Decoder{}.Decode(buf)
}

// Decode decodes single reply from the start of buf and returns number of bytes consumed.
//
// If buf doesn't contain complete reply yet, error of type redis.ErrTruncated is returned
// and nothing is consumed: caller should wait for more bytes and retry with the whole buffer.
// Other errors are protocol violations.
//
// Error reply is returned as value of type redis.ErrResult, not as error.
func (d Decoder) Decode(buf []byte) (res interface{}, n int, err error) {
	r := reader{buf: buf, charset: d.Charset}
	if res, err = r.read(); err != nil {
		return nil, 0, err
	}
	return res, r.off, nil
}

// IsTruncated reports whether err means "not enough bytes yet".
func IsTruncated(err error) bool {
	return errorx.IsOfType(err, redis.ErrTruncated)
}

type reader struct {
	buf     []byte
	off     int
	charset encoding.Encoding
}

func (r *reader) read() (interface{}, error) {
	if r.off >= len(r.buf) {
		return nil, errTruncated
	}
	typ := r.buf[r.off]
	r.off++
	switch typ {
	case '+':
		line, err := r.line()
		if err != nil {
			return nil, err
		}
		return r.text(line), nil
	case '-':
		line, err := r.line()
		if err != nil {
			return nil, err
		}
		return redis.ErrResult.New("%s", r.text(line)), nil
	case ':':
		line, err := r.line()
		if err != nil {
			return nil, err
		}
		return parseInt(line)
	case '$':
		v, err := r.head()
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, nil
		}
		if v > MaxBulkLen {
			return nil, redis.ErrIntegerParsing.New("bulk length is out of range").
				WithProperty(redis.EKVal, v)
		}
		if v > int64(len(r.buf)-r.off)-2 {
			return nil, errTruncated
		}
		end := r.off + int(v)
		if r.buf[end] != '\r' || r.buf[end+1] != '\n' {
			return nil, redis.ErrNoFinalRN.New("no final \\r\\n in bulk").
				WithProperty(redis.EKLine, string(r.buf[r.off:end+2]))
		}
		data := r.buf[r.off:end]
		r.off = end + 2
		return coerce(r.text(data)), nil
	case '*':
		v, err := r.head()
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, nil
		}
		capa := v
		if capa > 1024 {
			capa = 1024
		}
		result := make([]interface{}, 0, capa)
		for i := int64(0); i < v; i++ {
			el, err := r.read()
			if err != nil {
				return nil, err
			}
			switch e := el.(type) {
			case nil:
			case []interface{}:
				result = append(result, e...)
			default:
				result = append(result, e)
			}
		}
		return result, nil
	default:
		return nil, redis.ErrUnknownHeaderType.New("header type is not known").
			WithProperty(redis.EKLine, string(typ))
	}
}

// line reads till \r\n and returns line without terminator.
func (r *reader) line() ([]byte, error) {
	rest := r.buf[r.off:]
	i := bytes.IndexByte(rest, '\r')
	if i < 0 || i+1 >= len(rest) {
		return nil, errTruncated
	}
	if rest[i+1] != '\n' {
		return nil, redis.ErrNoFinalRN.New("\\r is not followed by \\n").
			WithProperty(redis.EKLine, string(rest[:i+2]))
	}
	r.off += i + 2
	return rest[:i], nil
}

func (r *reader) head() (int64, error) {
	line, err := r.line()
	if err != nil {
		return 0, err
	}
	v, err := parseInt(line)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (r *reader) text(b []byte) string {
	if r.charset == nil {
		return string(b)
	}
	s, err := r.charset.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func parseInt(buf []byte) (interface{}, error) {
	v, err := strconv.ParseInt(string(buf), 10, 64)
	if err != nil {
		return nil, redis.ErrIntegerParsing.New("integer is not integer").
			WithProperty(redis.EKLine, string(buf))
	}
	return v, nil
}

// coerce converts bulk payload looking like integer or decimal into number.
// Integers are matched by ^[+-]?[0-9]+$, decimals by ^[+-]?[0-9]*\.[0-9]+$.
// Integers out of int64 range become float64.
func coerce(s string) interface{} {
	switch numberKind(s) {
	case numInt:
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case numFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

const (
	numNone = iota
	numInt
	numFloat
)

func numberKind(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intDigits := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		intDigits++
	}
	if i == len(s) {
		if intDigits > 0 {
			return numInt
		}
		return numNone
	}
	if s[i] != '.' {
		return numNone
	}
	i++
	fracDigits := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		fracDigits++
	}
	if i == len(s) && fracDigits > 0 {
		return numFloat
	}
	return numNone
}
