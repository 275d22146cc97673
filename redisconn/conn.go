package redisconn

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joomcode/errorx"

	"github.com/joomcode/redisfifo/internal/serial"
	"github.com/joomcode/redisfifo/redis"
	"github.com/joomcode/redisfifo/resp"
)

const (
	connDisconnected = 0
	connConnecting   = 1
	connConnected    = 2
	connClosed       = 3

	defaultDialTimeout = 5 * time.Second
	defaultKeepAlive   = 300 * time.Millisecond
	defaultIOTimeout   = 1 * time.Second
)

// Dialer establishes network connections. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Opts - options for Connection
type Opts struct {
	// Async - do not wait for connection to be established.
	// Requests sent before connection is established are queued.
	Async bool
	// Dialer is used to establish connection. Default is net.Dialer.
	Dialer Dialer
	// DialTimeout is timeout for default Dialer. Default is 5 seconds.
	DialTimeout time.Duration
	// TCPKeepAlive - KeepAlive parameter for default Dialer.
	TCPKeepAlive time.Duration
	// IOTimeout - timeout on write to socket, and idle period reported as LogTimeout.
	// Idle connection is not closed and requests are not failed on timeout.
	// If IOTimeout == 0, then it is set to 1 second.
	// If IOTimeout < 0, then timeout is disabled.
	IOTimeout time.Duration
	// Charset is a name of encoding of redis text values ("shift_jis", "latin1", ...).
	// Empty means utf-8.
	Charset string
	// Verbose enables reporting of every written frame and every received chunk.
	Verbose bool
	// Logger. Default is ZapLogger over zap.L().
	Logger Logger
	// Handle is returned with Connection.Handle()
	Handle interface{}
}

// EventKind is a kind of connection event for listeners.
type EventKind int

const (
	// EventConnected - transport is established. Listener receives nil.
	EventConnected EventKind = iota
	// EventClosed - transport is closed. Listener receives close cause (nil on clean close).
	EventClosed
	// EventError - transport error, reply overflow or malformed reply.
	EventError
	eventKindMax
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Connection is a pipelined connection to single redis server.
//
// Requests are written in order they were sent, and replies are matched to requests
// in the same order. All state is owned by single goroutine, which processes events
// (sends, transport data, transport close) one by one.
type Connection struct {
	ctx    context.Context
	cancel context.CancelFunc
	state  uint32
	id     string

	addr string
	opts Opts

	mu        sync.Mutex
	inbox     []event
	closed    bool
	listeners [eventKindMax][]func(error)
	local     string
	remote    string
	wake      chan struct{}
	stopped   chan struct{}

	dialMu sync.Mutex

	// owned by loop goroutine
	t    *transport
	pipe pipeline

	// callbacks and listeners are called from this queue
	queue serial.Queue
}

type eventType int

const (
	evSend eventType = iota
	evConnect
	evData
	evError
	evTimeout
	evClose
)

type event struct {
	typ   eventType
	t     *transport
	calls []*call
	data  []byte
	err   error

	// ack receives whether evConnect's transport were installed.
	ack chan bool
}

// Connect creates connection to redis at addr.
//
// If opts.Async is false, Connect returns only after transport is established,
// and returns dial error otherwise.
// If opts.Async is true, Connect returns immediately; requests are queued until
// transport is established.
//
// Connection doesn't reconnect by itself: use Dial to establish new transport
// after EventClosed.
func Connect(ctx context.Context, addr string, opts Opts) (*Connection, error) {
	if ctx == nil {
		return nil, redis.ErrContextIsNil.New("context is not set")
	}
	if addr == "" {
		return nil, redis.ErrNoAddressProvided.New("address is not provided")
	}
	charset, err := resp.LookupCharset(opts.Charset)
	if err != nil {
		return nil, err
	}

	conn := &Connection{
		id:      uuid.NewString(),
		addr:    addr,
		opts:    opts,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	conn.ctx, conn.cancel = context.WithCancel(ctx)
	conn.pipe.dec = resp.Decoder{Charset: charset}
	conn.pipe.complete = conn.deliver

	if conn.opts.DialTimeout <= 0 {
		conn.opts.DialTimeout = defaultDialTimeout
	}
	if conn.opts.TCPKeepAlive == 0 {
		conn.opts.TCPKeepAlive = defaultKeepAlive
	} else if conn.opts.TCPKeepAlive < 0 {
		conn.opts.TCPKeepAlive = 0
	}
	if conn.opts.IOTimeout == 0 {
		conn.opts.IOTimeout = defaultIOTimeout
	} else if conn.opts.IOTimeout < 0 {
		conn.opts.IOTimeout = 0
	}
	if conn.opts.Logger == nil {
		conn.opts.Logger = NewZapLogger(nil)
	}
	if conn.opts.Dialer == nil {
		conn.opts.Dialer = &net.Dialer{
			Timeout:   conn.opts.DialTimeout,
			KeepAlive: conn.opts.TCPKeepAlive,
		}
	}

	go conn.loop()

	if conn.opts.Async {
		go conn.Dial(conn.ctx)
		return conn, nil
	}
	if err = conn.Dial(conn.ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ID is a unique identifier of connection.
func (conn *Connection) ID() string {
	return conn.id
}

// Ctx returns context of this connection
func (conn *Connection) Ctx() context.Context {
	return conn.ctx
}

// ConnectedNow answers if connection is certainly connected.
func (conn *Connection) ConnectedNow() bool {
	return atomic.LoadUint32(&conn.state) == connConnected
}

// MayBeConnected answers if connection either connected or connecting at the moment.
func (conn *Connection) MayBeConnected() bool {
	s := atomic.LoadUint32(&conn.state)
	return s == connConnected || s == connConnecting
}

// Close closes connection forever.
// Requests in flight and queued requests are failed.
func (conn *Connection) Close() {
	conn.cancel()
	<-conn.stopped
}

// RemoteAddr is address of Redis socket
// Attention: do not call this method from Logger.Report, because it could lead to deadlock!
func (conn *Connection) RemoteAddr() string {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.remote
}

// LocalAddr is outgoing socket addr
// Attention: do not call this method from Logger.Report, because it could lead to deadlock!
func (conn *Connection) LocalAddr() string {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.local
}

// Addr retuns configured address
func (conn *Connection) Addr() string {
	return conn.addr
}

// Handle returns user specified handle from Opts
func (conn *Connection) Handle() interface{} {
	return conn.opts.Handle
}

func (conn *Connection) String() string {
	return fmt.Sprintf("*redisconn.Connection{addr: %s, id: %s}", conn.addr, conn.id)
}

// On subscribes fn to events of kind.
func (conn *Connection) On(kind EventKind, fn func(error)) error {
	if fn == nil {
		return redis.ErrNilListener.New("listener is nil").WithProperty(redis.EKConnection, conn)
	}
	if kind < 0 || kind >= eventKindMax {
		return errorx.IllegalArgument.New("unknown event kind %d", int(kind))
	}
	conn.mu.Lock()
	conn.listeners[kind] = append(conn.listeners[kind], fn)
	conn.mu.Unlock()
	return nil
}

// Ping sends ping request synchronously
func (conn *Connection) Ping() error {
	res, err := redis.Sync{S: conn}.Do("PING")
	if err != nil {
		return err
	}
	if err = redis.AsError(res); err != nil {
		return err
	}
	if str, ok := res.(string); !ok || str != "PONG" {
		return redis.ErrPing.New("ping response mismatch").
			WithProperty(redis.EKConnection, conn).
			WithProperty(redis.EKReply, res)
	}
	return nil
}

var dumb redis.Callback = func(interface{}, error, uint64) {}

// Send implements redis.Sender.Send
// It never blocks: cb is called later from connection's callback queue.
func (conn *Connection) Send(req redis.Request, cb redis.Callback, n uint64) {
	if cb == nil {
		cb = dumb
	}
	c, err := conn.newCall(req, cb, n)
	if err != nil {
		conn.queue.Go(func() { cb(nil, err, n) })
		return
	}
	if !conn.post(event{typ: evSend, calls: []*call{c}}) {
		err := conn.closedErr()
		conn.queue.Go(func() { cb(nil, err, n) })
	}
}

// SendMany implements redis.Sender.SendMany
// Requests are queued together: no other request is written in between.
// If any request could not be serialized, whole batch fails.
func (conn *Connection) SendMany(requests []redis.Request, cb redis.Callback, start uint64) {
	if len(requests) == 0 {
		return
	}
	if cb == nil {
		cb = dumb
	}
	calls := make([]*call, len(requests))
	for i, req := range requests {
		c, err := conn.newCall(req, cb, start+uint64(i))
		if err != nil {
			batchErr := redis.ErrBatchFormat.Wrap(err, "batch has malformed request").
				WithProperty(redis.EKConnection, conn)
			conn.queue.Go(func() {
				for j := range requests {
					if j == i {
						cb(nil, err, start+uint64(j))
					} else {
						cb(nil, batchErr, start+uint64(j))
					}
				}
			})
			return
		}
		calls[i] = c
	}
	if !conn.post(event{typ: evSend, calls: calls}) {
		err := conn.closedErr()
		conn.queue.Go(func() {
			for _, c := range calls {
				c.cb(nil, err, c.n)
			}
		})
	}
}

// Dial establishes new transport if connection is not connected.
// Requests queued while connection were disconnected are sent after that.
func (conn *Connection) Dial(ctx context.Context) error {
	conn.dialMu.Lock()
	defer conn.dialMu.Unlock()

	if conn.isClosed() {
		return conn.closedErr()
	}
	if atomic.LoadUint32(&conn.state) == connConnected {
		return nil
	}
	atomic.CompareAndSwapUint32(&conn.state, connDisconnected, connConnecting)
	conn.report(LogConnecting)

	network, address := splitAddr(conn.addr)
	nc, err := conn.opts.Dialer.DialContext(ctx, network, address)
	if err != nil {
		err = redis.ErrDial.Wrap(err, "could not connect").WithProperty(redis.EKConnection, conn)
		atomic.CompareAndSwapUint32(&conn.state, connConnecting, connDisconnected)
		conn.report(LogConnectFailed, err)
		conn.post(event{typ: evError, err: err})
		return err
	}

	t := newTransport(nc, conn.opts.IOTimeout, conn)
	ack := make(chan bool, 1)
	if !conn.post(event{typ: evConnect, t: t, ack: ack}) {
		nc.Close()
		return conn.closedErr()
	}
	var installed bool
	select {
	case installed = <-ack:
	case <-conn.stopped:
		return conn.closedErr()
	}
	if conn.isClosed() {
		return conn.closedErr()
	}
	if !installed {
		// other transport is already in place
		return nil
	}
	t.start()
	return nil
}

func splitAddr(addr string) (network, address string) {
	switch {
	case strings.HasPrefix(addr, "unix://"):
		return "unix", addr[len("unix://"):]
	case strings.HasPrefix(addr, "tcp://"):
		return "tcp", addr[len("tcp://"):]
	case addr[0] == '.' || addr[0] == '/':
		return "unix", addr
	}
	return "tcp", addr
}

/********** private api **************/

func (conn *Connection) report(event LogKind, v ...interface{}) {
	conn.opts.Logger.Report(event, conn, v...)
}

func (conn *Connection) newCall(req redis.Request, cb redis.Callback, n uint64) (*call, error) {
	frame, err := resp.AppendRequest(nil, req)
	if err != nil {
		return nil, withConn(err, conn)
	}
	return &call{frame: frame, project: req.Project, cb: cb, n: n}, nil
}

func (conn *Connection) closedErr() error {
	return redis.ErrContextClosed.Wrap(conn.ctx.Err(), "connection is closed").
		WithProperty(redis.EKConnection, conn)
}

func (conn *Connection) isClosed() bool {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.closed
}

// post puts event into inbox and wakes loop. It returns false if connection is closed.
func (conn *Connection) post(ev event) bool {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return false
	}
	conn.inbox = append(conn.inbox, ev)
	conn.mu.Unlock()
	select {
	case conn.wake <- struct{}{}:
	default:
	}
	return true
}

func (conn *Connection) takeEvents(buf []event) []event {
	conn.mu.Lock()
	evs := conn.inbox
	conn.inbox = buf[:0]
	conn.mu.Unlock()
	return evs
}

// deliver completes call from callback queue.
func (conn *Connection) deliver(c *call, res interface{}, err error) {
	conn.queue.Go(func() { c.finish(res, err) })
}

func (conn *Connection) notify(kind EventKind, err error) {
	conn.mu.Lock()
	fns := conn.listeners[kind]
	conn.mu.Unlock()
	if len(fns) == 0 {
		return
	}
	conn.queue.Go(func() {
		for _, fn := range fns {
			fn(err)
		}
	})
}

// transportSink implementation

func (conn *Connection) onData(t *transport, data []byte) {
	conn.post(event{typ: evData, t: t, data: data})
}

func (conn *Connection) onError(t *transport, err error) {
	conn.post(event{typ: evError, t: t, err: err})
}

func (conn *Connection) onTimeout(t *transport) {
	conn.post(event{typ: evTimeout, t: t})
}

func (conn *Connection) onClose(t *transport, err error) {
	conn.post(event{typ: evClose, t: t, err: err})
}

// writeFrame implements frameWriter for pipeline.
func (conn *Connection) writeFrame(frame []byte) error {
	if conn.opts.Verbose {
		conn.report(LogTraceFrame, frame)
	}
	if conn.t == nil {
		return redis.ErrIO.New("not connected").WithProperty(redis.EKConnection, conn)
	}
	if err := conn.t.writeFrame(frame); err != nil {
		return withConn(err, conn)
	}
	return nil
}

func (conn *Connection) loop() {
	defer close(conn.stopped)
	var evs []event
	for {
		if conn.ctx.Err() != nil {
			conn.shutdown()
			return
		}
		evs = conn.takeEvents(evs)
		for i := range evs {
			conn.apply(evs[i])
			evs[i] = event{}
		}
		if conn.pipe.pending() && conn.step() {
			continue
		}
		select {
		case <-conn.wake:
		case <-conn.ctx.Done():
		}
	}
}

// step runs single pipeline step and reports if it made progress.
func (conn *Connection) step() bool {
	r := conn.pipe.step(conn)
	if r.err != nil {
		err := withConn(r.err, conn)
		if errorx.IsOfType(r.err, redis.ErrReplyOverflow) {
			conn.report(LogOverflow, err)
		} else {
			// stream position is lost: nothing could be matched anymore
			conn.report(LogProtocolError, err)
			if conn.t != nil {
				conn.t.close(err)
			}
		}
		conn.notify(EventError, err)
	}
	return r.progress()
}

func (conn *Connection) apply(ev event) {
	switch ev.typ {
	case evSend:
		conn.pipe.enqueue(ev.calls...)
	case evConnect:
		if conn.t != nil {
			ev.t.close(nil)
			ev.ack <- false
			return
		}
		ev.ack <- true
		conn.setTransport(ev.t)
		conn.pipe.reset(true)
		atomic.StoreUint32(&conn.state, connConnected)
		conn.report(LogConnected, ev.t.localAddr(), ev.t.remoteAddr())
		conn.notify(EventConnected, nil)
	case evData:
		if ev.t != conn.t {
			return
		}
		if conn.opts.Verbose {
			conn.report(LogTraceData, ev.data)
		}
		conn.pipe.feed(ev.data)
	case evError:
		if ev.t != nil && ev.t != conn.t {
			return
		}
		err := withConn(ev.err, conn)
		if ev.t != nil {
			conn.report(LogError, err)
		}
		conn.notify(EventError, err)
	case evTimeout:
		if ev.t == conn.t {
			conn.report(LogTimeout)
		}
	case evClose:
		if ev.t != conn.t {
			return
		}
		cause := ev.err
		if cause == io.EOF {
			cause = nil
		}
		conn.setTransport(nil)
		conn.pipe.reset(false)
		atomic.StoreUint32(&conn.state, connDisconnected)
		var err *errorx.Error
		if cause != nil {
			err = redis.ErrConnectionClosed.Wrap(cause, "connection closed")
		} else {
			err = redis.ErrConnectionClosed.New("connection closed")
		}
		err = err.WithProperty(redis.EKConnection, conn)
		conn.pipe.failAll(err, err)
		conn.report(LogDisconnected, cause)
		conn.notify(EventClosed, cause)
	}
}

func (conn *Connection) setTransport(t *transport) {
	conn.t = t
	conn.mu.Lock()
	if t != nil {
		conn.local, conn.remote = t.localAddr(), t.remoteAddr()
	} else {
		conn.local, conn.remote = "", ""
	}
	conn.mu.Unlock()
}

// shutdown closes connection forever. Called from loop only.
func (conn *Connection) shutdown() {
	conn.mu.Lock()
	conn.closed = true
	evs := conn.inbox
	conn.inbox = nil
	conn.mu.Unlock()
	atomic.StoreUint32(&conn.state, connClosed)

	closedErr := conn.closedErr()
	for _, ev := range evs {
		switch ev.typ {
		case evSend:
			conn.pipe.enqueue(ev.calls...)
		case evConnect:
			ev.t.close(closedErr)
			ev.ack <- false
		}
	}
	if conn.t != nil {
		conn.t.close(closedErr)
		conn.setTransport(nil)
	}
	replyErr := redis.ErrConnectionClosed.Wrap(closedErr, "connection closed").
		WithProperty(redis.EKConnection, conn)
	conn.pipe.reset(false)
	conn.pipe.failAll(replyErr, closedErr)
	conn.report(LogContextClosed)
	conn.notify(EventClosed, closedErr)
}
