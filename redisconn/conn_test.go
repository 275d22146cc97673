package redisconn_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/joomcode/errorx"
	"github.com/mediocregopher/radix/v3/resp/resp2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/joomcode/redisfifo/redis"
	. "github.com/joomcode/redisfifo/redisconn"
)

// pipeDialer hands out client ends of net.Pipe and keeps server ends for the test.
type pipeDialer struct {
	gate  chan struct{}
	peers chan net.Conn
	mu    sync.Mutex
	fail  error
}

func newPipeDialer() *pipeDialer {
	return &pipeDialer{peers: make(chan net.Conn, 8)}
}

func (d *pipeDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	fail := d.fail
	d.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	client, server := net.Pipe()
	d.peers <- server
	return client, nil
}

func (d *pipeDialer) setFail(err error) {
	d.mu.Lock()
	d.fail = err
	d.mu.Unlock()
}

// peer is a fake redis: it decodes commands with independent RESP implementation.
type peer struct {
	s  *ConnSuite
	c  net.Conn
	br *bufio.Reader
}

func (p *peer) read() []string {
	p.c.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ah resp2.ArrayHeader
	p.s.r().NoError(ah.UnmarshalRESP(p.br))
	cmd := make([]string, ah.N)
	for i := range cmd {
		var bs resp2.BulkString
		p.s.r().NoError(bs.UnmarshalRESP(p.br))
		cmd[i] = bs.S
	}
	return cmd
}

func (p *peer) write(s string) {
	p.c.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := p.c.Write([]byte(s))
	p.s.r().NoError(err)
}

type result struct {
	res interface{}
	err error
	n   uint64
}

type ConnSuite struct {
	suite.Suite
	d      *pipeDialer
	ctx    context.Context
	cancel func()
}

func TestConnSuite(t *testing.T) {
	suite.Run(t, new(ConnSuite))
}

func (s *ConnSuite) SetupTest() {
	s.d = newPipeDialer()
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Second)
}

func (s *ConnSuite) TearDownTest() {
	s.cancel()
}

func (s *ConnSuite) r() *require.Assertions {
	return s.Require()
}

func (s *ConnSuite) opts() Opts {
	return Opts{
		Dialer:    s.d,
		IOTimeout: -1,
		Logger:    NoopLogger{},
	}
}

func (s *ConnSuite) connect(opts Opts) *Connection {
	conn, err := Connect(s.ctx, "fake:6379", opts)
	s.r().NoError(err)
	return conn
}

func (s *ConnSuite) peer() *peer {
	select {
	case c := <-s.d.peers:
		return &peer{s: s, c: c, br: bufio.NewReader(c)}
	case <-time.After(5 * time.Second):
		s.FailNow("no connection were dialed")
		return nil
	}
}

func collect(ch chan result) redis.Callback {
	return func(res interface{}, err error, n uint64) {
		ch <- result{res, err, n}
	}
}

func (s *ConnSuite) wait(ch chan result) result {
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		s.FailNow("callback is not called")
		return result{}
	}
}

func (s *ConnSuite) waitErr(ch chan error) error {
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		s.FailNow("listener is not called")
		return nil
	}
}

func (s *ConnSuite) listen(conn *Connection, kind EventKind) chan error {
	ch := make(chan error, 16)
	s.r().NoError(conn.On(kind, func(err error) { ch <- err }))
	return ch
}

func (s *ConnSuite) TestConnectValidation() {
	_, err := Connect(nil, "fake:1", s.opts())
	s.True(errorx.IsOfType(err, redis.ErrContextIsNil))
	_, err = Connect(s.ctx, "", s.opts())
	s.True(errorx.IsOfType(err, redis.ErrNoAddressProvided))
	opts := s.opts()
	opts.Charset = "no-such-charset"
	_, err = Connect(s.ctx, "fake:1", opts)
	s.True(errorx.IsOfType(err, redis.ErrUnknownCharset))
}

func (s *ConnSuite) TestConnectFails() {
	s.d.setFail(errors.New("refused"))
	conn, err := Connect(s.ctx, "fake:1", s.opts())
	s.Nil(conn)
	s.True(errorx.IsOfType(err, redis.ErrDial))
	s.True(errorx.HasTrait(err, redis.ErrTraitNotSent))
}

func (s *ConnSuite) TestSendAndReceive() {
	conn := s.connect(s.opts())
	defer conn.Close()
	s.True(conn.ConnectedNow())
	s.Equal("fake:6379", conn.Addr())
	s.Equal("pipe", conn.RemoteAddr())
	s.NotEmpty(conn.ID())
	p := s.peer()

	ch := make(chan result, 1)
	conn.Send(redis.Req("SET", "key", 1.5, true, []byte("bin")), collect(ch), 42)
	s.Equal([]string{"SET", "key", "1.5", "1", "bin"}, p.read())
	p.write("+OK\r\n")
	r := s.wait(ch)
	s.Equal(result{"OK", nil, 42}, r)
}

func (s *ConnSuite) TestQueuedBeforeConnect() {
	s.d.gate = make(chan struct{})
	opts := s.opts()
	opts.Async = true
	conn := s.connect(opts)
	defer conn.Close()
	connected := s.listen(conn, EventConnected)

	const N = 20
	ch := make(chan result, N)
	for i := 0; i < N; i++ {
		conn.Send(redis.Req("GET", "k"+strconv.Itoa(i)), collect(ch), uint64(i))
	}
	s.False(conn.ConnectedNow())
	s.True(conn.MayBeConnected())

	close(s.d.gate)
	p := s.peer()
	s.Nil(s.waitErr(connected))
	for i := 0; i < N; i++ {
		s.r().Equal([]string{"GET", "k" + strconv.Itoa(i)}, p.read())
	}
	for i := 0; i < N; i++ {
		v := "v" + strconv.Itoa(i)
		p.write(fmt.Sprintf("$%d\r\n%s\r\n", len(v), v))
	}
	for i := 0; i < N; i++ {
		r := s.wait(ch)
		s.r().NoError(r.err)
		s.Equal(uint64(i), r.n)
		s.Equal("v"+strconv.Itoa(i), r.res)
	}
}

func (s *ConnSuite) TestSplitDelivery() {
	conn := s.connect(s.opts())
	defer conn.Close()
	p := s.peer()

	ch := make(chan result, 2)
	conn.SendMany([]redis.Request{
		redis.Req("GET", "a"),
		redis.Req("LRANGE", "l", 0, -1),
	}, collect(ch), 0)
	s.Equal([]string{"GET", "a"}, p.read())
	s.Equal([]string{"LRANGE", "l", "0", "-1"}, p.read())
	stream := "$3\r\nfoo\r\n*3\r\n:1\r\n$-1\r\n*2\r\n$1\r\n2\r\n$3\r\n2.5\r\n"
	for i := 0; i < len(stream); i++ {
		p.write(stream[i : i+1])
	}
	s.Equal(result{"foo", nil, 0}, s.wait(ch))
	s.Equal(result{[]interface{}{int64(1), int64(2), 2.5}, nil, 1}, s.wait(ch))
}

func (s *ConnSuite) TestPeerCloseFailsPendingInOrder() {
	conn := s.connect(s.opts())
	defer conn.Close()
	closed := s.listen(conn, EventClosed)
	p := s.peer()

	const N = 5
	ch := make(chan result, N)
	for i := 0; i < N; i++ {
		conn.Send(redis.Req("BLPOP", "q", 0), collect(ch), uint64(i))
	}
	for i := 0; i < N; i++ {
		p.read()
	}
	p.c.Close()

	s.Nil(s.waitErr(closed))
	for i := 0; i < N; i++ {
		r := s.wait(ch)
		s.Equal(uint64(i), r.n)
		s.Nil(r.res)
		s.True(errorx.IsOfType(r.err, redis.ErrConnectionClosed), "%v", r.err)
		s.True(errorx.HasTrait(r.err, redis.ErrTraitConnectivity))
	}
	select {
	case r := <-ch:
		s.Failf("callback called twice", "%v", r)
	case <-time.After(50 * time.Millisecond):
	}
	s.False(conn.ConnectedNow())
	s.Equal("", conn.RemoteAddr())
}

func (s *ConnSuite) TestQueuedAfterCloseAndDial() {
	conn := s.connect(s.opts())
	defer conn.Close()
	closed := s.listen(conn, EventClosed)
	p := s.peer()
	p.c.Close()
	s.waitErr(closed)

	const M = 3
	ch := make(chan result, M)
	for i := 0; i < M; i++ {
		conn.Send(redis.Req("INCR", "x"), collect(ch), uint64(i))
	}
	select {
	case r := <-ch:
		s.Failf("queued request completed while disconnected", "%v", r)
	case <-time.After(50 * time.Millisecond):
	}

	s.r().NoError(conn.Dial(s.ctx))
	s.True(conn.ConnectedNow())
	p = s.peer()
	for i := 0; i < M; i++ {
		s.Equal([]string{"INCR", "x"}, p.read())
		p.write(":" + strconv.Itoa(i+1) + "\r\n")
	}
	for i := 0; i < M; i++ {
		s.Equal(result{int64(i + 1), nil, uint64(i)}, s.wait(ch))
	}
	// already connected
	s.NoError(conn.Dial(s.ctx))
}

func (s *ConnSuite) TestOverflowIsReportedAndMatchingContinues() {
	conn := s.connect(s.opts())
	defer conn.Close()
	errs := s.listen(conn, EventError)
	p := s.peer()

	p.write("+UNSOLICITED\r\n")
	err := s.waitErr(errs)
	s.True(errorx.IsOfType(err, redis.ErrReplyOverflow), "%v", err)
	v, _ := errorx.Cast(err).Property(redis.EKConnection)
	s.Equal(conn, v)

	ch := make(chan result, 1)
	conn.Send(redis.Req("PING"), collect(ch), 0)
	s.Equal([]string{"PING"}, p.read())
	p.write("+PONG\r\n")
	s.Equal(result{"PONG", nil, 0}, s.wait(ch))
	s.True(conn.ConnectedNow())
}

func (s *ConnSuite) TestDesyncClearedByReconnect() {
	conn := s.connect(s.opts())
	defer conn.Close()
	errs := s.listen(conn, EventError)
	closed := s.listen(conn, EventClosed)
	p := s.peer()

	ch := make(chan result, 2)
	conn.Send(redis.Req("GET", "a"), collect(ch), 0)
	p.read()
	// one extra reply: "b" would be matched to the next request
	p.write("$1\r\na\r\n")
	s.Equal(result{"a", nil, 0}, s.wait(ch))
	p.write("$1\r\nb\r\n")
	s.True(errorx.IsOfType(s.waitErr(errs), redis.ErrReplyOverflow))

	p.c.Close()
	s.waitErr(closed)
	s.r().NoError(conn.Dial(s.ctx))
	p = s.peer()
	conn.Send(redis.Req("GET", "c"), collect(ch), 1)
	s.Equal([]string{"GET", "c"}, p.read())
	p.write("$1\r\nc\r\n")
	s.Equal(result{"c", nil, 1}, s.wait(ch))
}

func (s *ConnSuite) TestProtocolViolationClosesTransport() {
	conn := s.connect(s.opts())
	defer conn.Close()
	errs := s.listen(conn, EventError)
	closed := s.listen(conn, EventClosed)
	p := s.peer()

	ch := make(chan result, 1)
	conn.Send(redis.Req("PING"), collect(ch), 0)
	p.read()
	p.write("!garbage\r\n")
	err := s.waitErr(errs)
	s.True(errorx.IsOfType(err, redis.ErrUnknownHeaderType), "%v", err)
	cause := s.waitErr(closed)
	s.True(errorx.IsOfType(cause, redis.ErrUnknownHeaderType), "%v", cause)
	r := s.wait(ch)
	s.True(errorx.IsOfType(r.err, redis.ErrConnectionClosed))
}

func (s *ConnSuite) TestPeerErrorIsValue() {
	conn := s.connect(s.opts())
	defer conn.Close()
	p := s.peer()

	ch := make(chan result, 1)
	conn.Send(redis.Req("HGET", "str", "f"), collect(ch), 0)
	p.read()
	p.write("-WRONGTYPE Operation against a key holding the wrong kind of value\r\n")
	r := s.wait(ch)
	s.NoError(r.err)
	s.True(redis.IsResultError(r.res))
}

func (s *ConnSuite) TestProjectors() {
	conn := s.connect(s.opts())
	defer conn.Close()
	p := s.peer()

	go func() {
		for i := 0; i < 3; i++ {
			p.read()
		}
		p.write(":0\r\n*4\r\n$1\r\nf\r\n$1\r\nv\r\n$1\r\ng\r\n$2\r\n10\r\n+PONG\r\n")
	}()
	res := redis.Sync{S: conn}.SendMany([]redis.Request{
		redis.Req("EXISTS", "a", redis.Projector(redis.ToBool)),
		redis.Req("HGETALL", "h").With(redis.ToMap),
		redis.Req("PING").With(redis.IsOK),
	})
	s.Equal(redis.Result{Value: false}, res[0])
	s.Equal(redis.Result{Value: map[string]interface{}{"f": "v", "g": int64(10)}}, res[1])
	s.Equal(redis.Result{Value: false}, res[2])
}

func (s *ConnSuite) TestBadArguments() {
	conn := s.connect(s.opts())
	defer conn.Close()

	ch := make(chan result, 3)
	conn.Send(redis.Req("GET", make(chan int)), collect(ch), 0)
	r := s.wait(ch)
	s.True(errorx.IsOfType(r.err, redis.ErrArgumentType))
	s.True(errorx.HasTrait(r.err, redis.ErrTraitNotSent))
	pos, _ := errorx.Cast(r.err).Property(redis.EKArgPos)
	s.Equal(0, pos)

	conn.SendMany([]redis.Request{
		redis.Req("GET", "a"),
		redis.Req("SET", "b", struct{}{}),
	}, collect(ch), 10)
	r1, r2 := s.wait(ch), s.wait(ch)
	s.Equal(uint64(10), r1.n)
	s.True(errorx.IsOfType(r1.err, redis.ErrBatchFormat))
	s.Equal(uint64(11), r2.n)
	s.True(errorx.IsOfType(r2.err, redis.ErrArgumentType))
}

func (s *ConnSuite) TestCloseFailsQueued() {
	s.d.gate = make(chan struct{})
	opts := s.opts()
	opts.Async = true
	conn := s.connect(opts)
	closed := s.listen(conn, EventClosed)

	const M = 4
	ch := make(chan result, M+1)
	for i := 0; i < M; i++ {
		conn.Send(redis.Req("PING"), collect(ch), uint64(i))
	}
	conn.Close()
	for i := 0; i < M; i++ {
		r := s.wait(ch)
		s.Equal(uint64(i), r.n)
		s.True(errorx.IsOfType(r.err, redis.ErrContextClosed))
	}
	s.True(errorx.IsOfType(s.waitErr(closed), redis.ErrContextClosed))

	conn.Send(redis.Req("PING"), collect(ch), 99)
	r := s.wait(ch)
	s.Equal(uint64(99), r.n)
	s.True(errorx.IsOfType(r.err, redis.ErrContextClosed))
	s.True(errorx.IsOfType(conn.Dial(s.ctx), redis.ErrContextClosed))
	conn.Close()
}

func (s *ConnSuite) TestListenerValidation() {
	conn := s.connect(s.opts())
	defer conn.Close()
	err := conn.On(EventError, nil)
	s.True(errorx.IsOfType(err, redis.ErrNilListener))
	err = conn.On(EventKind(100), func(error) {})
	s.True(errorx.IsOfType(err, errorx.IllegalArgument))
}

func (s *ConnSuite) TestPing() {
	conn := s.connect(s.opts())
	defer conn.Close()
	p := s.peer()

	go func() {
		p.read()
		p.write("+PONG\r\n")
		p.read()
		p.write("+PANG\r\n")
	}()
	s.NoError(conn.Ping())
	s.True(errorx.IsOfType(conn.Ping(), redis.ErrPing))
}

func (s *ConnSuite) TestCharset() {
	opts := s.opts()
	opts.Charset = "latin1"
	conn := s.connect(opts)
	defer conn.Close()
	p := s.peer()

	ch := make(chan result, 1)
	conn.Send(redis.Req("GET", "a"), collect(ch), 0)
	p.read()
	p.write("$4\r\ncaf\xe9\r\n")
	s.Equal(result{"café", nil, 0}, s.wait(ch))
}

type recordLogger struct {
	mu     sync.Mutex
	events []LogKind
	frames [][]byte
}

func (l *recordLogger) Report(event LogKind, conn *Connection, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	if event == LogTraceFrame || event == LogTraceData {
		l.frames = append(l.frames, v[0].([]byte))
	}
}

func (l *recordLogger) has(kind LogKind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == kind {
			return true
		}
	}
	return false
}

func (s *ConnSuite) TestVerboseTrace() {
	log := &recordLogger{}
	opts := s.opts()
	opts.Verbose = true
	opts.Logger = log
	conn := s.connect(opts)
	defer conn.Close()
	p := s.peer()

	go func() {
		p.read()
		p.write("+PONG\r\n")
	}()
	s.r().NoError(conn.Ping())

	s.True(log.has(LogConnecting))
	s.True(log.has(LogConnected))
	log.mu.Lock()
	frames := log.frames
	log.mu.Unlock()
	s.Contains(frames, []byte("*1\r\n$4\r\nPING\r\n"))
	s.Contains(frames, []byte("+PONG\r\n"))
}

func (s *ConnSuite) TestIdleTimeoutIsOnlyLogged() {
	log := &recordLogger{}
	opts := s.opts()
	opts.IOTimeout = 20 * time.Millisecond
	opts.Logger = log
	conn := s.connect(opts)
	defer conn.Close()
	p := s.peer()

	ch := make(chan result, 1)
	conn.Send(redis.Req("GET", "slow"), collect(ch), 0)
	p.read()
	s.Eventually(func() bool { return log.has(LogTimeout) }, time.Second, 5*time.Millisecond)
	s.True(conn.ConnectedNow())
	p.write("$2\r\nok\r\n")
	s.Equal(result{"ok", nil, 0}, s.wait(ch))
}

func (s *ConnSuite) TestScanner() {
	conn := s.connect(s.opts())
	defer conn.Close()
	p := s.peer()

	go func() {
		p.read()
		p.write("*2\r\n$2\r\n17\r\n*2\r\n$1\r\na\r\n$1\r\nb\r\n")
		p.read()
		p.write("*2\r\n$1\r\n0\r\n*1\r\n$1\r\nc\r\n")
	}()
	sc := conn.Scanner(redis.ScanOpts{Match: "*"})
	var all []string
	for {
		var keys []string
		var err error
		done := make(chan struct{})
		sc.Next(func(k []string, e error) { keys, err = k, e; close(done) })
		<-done
		if err == redis.ScanEOF {
			break
		}
		s.r().NoError(err)
		all = append(all, keys...)
	}
	s.Equal([]string{"a", "b", "c"}, all)
}
