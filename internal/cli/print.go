package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/joomcode/redisfifo/redis"
)

type printer struct {
	w    io.Writer
	json bool
	path string
}

// print writes i-th reply of a batch.
func (p *printer) print(i int, v interface{}) error {
	if !p.json {
		_, err := io.WriteString(p.w, formatText(v, ""))
		return err
	}
	doc, err := replyDocument(i, v)
	if err != nil {
		return err
	}
	return p.writeDoc(doc)
}

// printErr writes failure of i-th request of a batch.
func (p *printer) printErr(i int, err error) {
	if !p.json {
		fmt.Fprintf(p.w, "(failed) %v\n", err)
		return
	}
	doc, _ := sjson.SetBytes([]byte(`{}`), "n", i)
	doc, _ = sjson.SetBytes(doc, "failed", err.Error())
	p.writeDoc(doc)
}

func (p *printer) writeDoc(doc []byte) error {
	if p.path != "" {
		res := gjson.GetBytes(doc, p.path)
		out := res.Raw
		switch {
		case !res.Exists():
			out = "null"
		case res.Type == gjson.String:
			out = res.Str
		}
		_, err := fmt.Fprintln(p.w, out)
		return err
	}
	_, err := fmt.Fprintf(p.w, "%s\n", doc)
	return err
}

// replyDocument builds {"n":i,"reply":...} or {"n":i,"error":"..."}.
func replyDocument(i int, v interface{}) ([]byte, error) {
	doc, err := sjson.SetBytes([]byte(`{}`), "n", i)
	if err != nil {
		return nil, err
	}
	if e := redis.AsError(v); e != nil {
		return sjson.SetBytes(doc, "error", resultText(e))
	}
	return sjson.SetBytes(doc, "reply", jsonValue(v))
}

// jsonValue replaces error replies nested in arrays with {"error":"..."} objects.
func jsonValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, el := range t {
			out[i] = jsonValue(el)
		}
		return out
	case error:
		return map[string]string{"error": resultText(t)}
	default:
		return v
	}
}

// formatText renders reply the way redis-cli does.
func formatText(v interface{}, indent string) string {
	switch t := v.(type) {
	case nil:
		return "(nil)\n"
	case int64:
		return "(integer) " + strconv.FormatInt(t, 10) + "\n"
	case float64:
		return "(float) " + strconv.FormatFloat(t, 'g', -1, 64) + "\n"
	case string:
		return strconv.Quote(t) + "\n"
	case error:
		return "(error) " + resultText(t) + "\n"
	case []interface{}:
		if len(t) == 0 {
			return "(empty array)\n"
		}
		var b strings.Builder
		width := len(strconv.Itoa(len(t)))
		for i, el := range t {
			num := fmt.Sprintf("%*d) ", width, i+1)
			if i > 0 {
				b.WriteString(indent)
			}
			b.WriteString(num)
			b.WriteString(formatText(el, indent+strings.Repeat(" ", len(num))))
		}
		return b.String()
	default:
		return fmt.Sprintf("%v\n", t)
	}
}

func resultText(err error) string {
	if e := redis.AsErrorx(err); e != nil && e.IsOfType(redis.ErrResult) {
		return strings.TrimPrefix(e.Error(), redis.ErrResult.FullName()+": ")
	}
	return err.Error()
}
