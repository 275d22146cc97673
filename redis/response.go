package redis

import (
	"strconv"
)

// ToBool interprets integer reply as boolean (EXISTS, EXPIRE, SETNX, HSET, ...).
// Error reply and nil are false.
func ToBool(res interface{}) (interface{}, error) {
	switch v := res.(type) {
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case nil:
		return false, nil
	}
	if IsResultError(res) {
		return false, nil
	}
	return nil, unexpected(res)
}

// IsOK reports whether reply is simple string "OK" (MULTI, SET, ...).
func IsOK(res interface{}) (interface{}, error) {
	s, ok := res.(string)
	return ok && s == "OK", nil
}

// ToMap converts array of alternating fields and values into map (HGETALL, CONFIG GET).
// Fields that are error replies are skipped. Error reply is passed as is.
func ToMap(res interface{}) (interface{}, error) {
	if IsResultError(res) {
		return res, nil
	}
	arr, ok := res.([]interface{})
	if !ok && res != nil {
		return nil, unexpected(res)
	}
	m := make(map[string]interface{}, len(arr)/2)
	for i := 0; i < len(arr); i += 2 {
		if IsResultError(arr[i]) {
			continue
		}
		var v interface{}
		if i+1 < len(arr) {
			v = arr[i+1]
		}
		m[keyString(arr[i])] = v
	}
	return m, nil
}

// ToStreamEntries converts flattened XRANGE/XREVRANGE reply into entries keyed by id.
// Since nested arrays are flattened by decoder, entry boundaries are recognized by
// id format "<ms>-<seq>".
func ToStreamEntries(res interface{}) (interface{}, error) {
	if IsResultError(res) {
		return res, nil
	}
	arr, ok := res.([]interface{})
	if !ok && res != nil {
		return nil, unexpected(res)
	}
	entries := make(map[string]map[string]interface{})
	var last map[string]interface{}
	for i := 0; i < len(arr); i++ {
		if id, ok := arr[i].(string); ok && isStreamID(id) {
			last = make(map[string]interface{})
			entries[id] = last
			continue
		}
		if last == nil {
			continue
		}
		var v interface{}
		if i+1 < len(arr) {
			v = arr[i+1]
		}
		last[keyString(arr[i])] = v
		i++
	}
	return entries, nil
}

// ToStrings converts array reply into slice of strings (KEYS, SMEMBERS, HKEYS).
// Numeric looking members are converted back to their decimal form.
func ToStrings(res interface{}) (interface{}, error) {
	if IsResultError(res) {
		return res, nil
	}
	arr, ok := res.([]interface{})
	if !ok && res != nil {
		return nil, unexpected(res)
	}
	strs := make([]string, len(arr))
	for i, v := range arr {
		strs[i] = keyString(v)
	}
	return strs, nil
}

// ScanResponse parses response of SCAN-like command.
// Reply is flattened by decoder, so cursor is the first element and keys follow it.
func ScanResponse(res interface{}) (string, []string, error) {
	if err := AsError(res); err != nil {
		return "", nil, err
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) == 0 {
		return "", nil, unexpected(res)
	}
	var it string
	switch c := arr[0].(type) {
	case int64:
		it = strconv.FormatInt(c, 10)
	case float64:
		// cursor above int64 range; precision may be lost
		it = strconv.FormatFloat(c, 'f', -1, 64)
	case string:
		it = c
	default:
		return "", nil, unexpected(res)
	}
	keys := make([]string, len(arr)-1)
	for i, k := range arr[1:] {
		keys[i] = keyString(k)
	}
	return it, keys, nil
}

func unexpected(res interface{}) error {
	return ErrResponseUnexpected.New("redis response is unexpected").WithProperty(EKReply, res)
}

func keyString(v interface{}) string {
	switch k := v.(type) {
	case string:
		return k
	case int64:
		return strconv.FormatInt(k, 10)
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case error:
		return k.Error()
	case nil:
		return ""
	}
	return ""
}

func isStreamID(s string) bool {
	dash := -1
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '-' && dash < 0 && i > 0:
			dash = i
		case s[i] < '0' || s[i] > '9':
			return false
		}
	}
	return dash > 0 && dash < len(s)-1
}
