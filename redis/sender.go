package redis

import (
	"errors"
)

// Sender is the interface of asynchronous request sending.
type Sender interface {
	// Send sends request and calls cb exactly once with its result.
	Send(r Request, cb Callback, n uint64)
	// SendMany sends requests in order; cb is called with n = start+index.
	SendMany(r []Request, cb Callback, start uint64)
	// Close closes sender forever.
	Close()
}

// ScanEOF is returned by iterator when scanning is finished.
var ScanEOF = errors.New("Iteration finished")

// ScanOpts is options for scanning.
type ScanOpts struct {
	// Cmd - command to be sent. Could be 'SCAN', 'SSCAN', 'HSCAN', 'ZSCAN'
	// default is 'SCAN'
	Cmd string
	// Key - key for SSCAN, HSCAN and ZSCAN command
	Key string
	// Match - pattern for filtering keys
	Match string
	// Count - soft-limit of single *SCAN answer
	Count int
}

// Request returns corresponding request to be send.
// Used mostly internally
func (s ScanOpts) Request(it string) Request {
	if it == "" {
		it = "0"
	}
	if s.Cmd == "" {
		s.Cmd = "SCAN"
	}
	args := []interface{}{}
	if s.Cmd != "SCAN" {
		args = append(args, s.Key)
	}
	args = append(args, it)
	if s.Match != "" {
		args = append(args, "MATCH", s.Match)
	}
	if s.Count > 0 {
		args = append(args, "COUNT", s.Count)
	}
	return Request{Cmd: s.Cmd, Args: args}
}

// Scanner iterates over SCAN-family results with a Sender.
type Scanner struct {
	ScanOpts
	s    Sender
	iter string
	done bool
}

// NewScanner returns scanner over sender.
func NewScanner(s Sender, opts ScanOpts) *Scanner {
	return &Scanner{ScanOpts: opts, s: s}
}

// Next fetches next portion of keys.
// cb is called with ScanEOF when iteration is over.
func (s *Scanner) Next(cb func(keys []string, err error)) {
	if s.done {
		cb(nil, ScanEOF)
		return
	}
	s.s.Send(s.ScanOpts.Request(s.iter), func(res interface{}, err error, _ uint64) {
		if err == nil {
			var keys []string
			s.iter, keys, err = ScanResponse(res)
			if err == nil {
				s.done = s.iter == "0"
				cb(keys, nil)
				return
			}
		}
		cb(nil, err)
	}, 0)
}
