package resp

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/joomcode/redisfifo/redis"
)

// LookupCharset returns encoding by its name (WHATWG labels: "shift_jis", "latin1", "utf-16le", ...).
// utf-8 and empty name return nil: replies are passed as is.
func LookupCharset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, redis.ErrUnknownCharset.Wrap(err, "unknown charset %q", name)
	}
	return enc, nil
}
