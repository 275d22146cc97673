package redisconn

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/joomcode/redisfifo/redis"
)

// transportSink receives transport events.
// Every method may be called from transport's goroutines.
type transportSink interface {
	onData(t *transport, data []byte)
	onError(t *transport, err error)
	onTimeout(t *transport)
	// onClose is called exactly once, after all onData calls.
	onClose(t *transport, err error)
}

const (
	writeBufSize = 128 * 1024
	readBufSize  = 64 * 1024
	// writer drops its scratch buffer if it grows larger.
	maxKeptPacket = 1024 * 1024
)

// transport is a byte stream over net.Conn.
// Writes are buffered and flushed by writer goroutine; reads are delivered to sink
// by reader goroutine.
type transport struct {
	c       net.Conn
	sink    transportSink
	timeout time.Duration

	mu     sync.Mutex
	out    []byte
	closed bool
	cause  error

	kick chan struct{}
	done chan struct{}
}

func newTransport(c net.Conn, timeout time.Duration, sink transportSink) *transport {
	return &transport{
		c:       c,
		sink:    sink,
		timeout: timeout,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (t *transport) start() {
	go t.writer()
	go t.reader()
}

func (t *transport) localAddr() string {
	return t.c.LocalAddr().String()
}

func (t *transport) remoteAddr() string {
	return t.c.RemoteAddr().String()
}

// writeFrame queues frame for writing. It never blocks on network.
func (t *transport) writeFrame(frame []byte) error {
	t.mu.Lock()
	if t.closed {
		cause := t.cause
		t.mu.Unlock()
		if cause == nil {
			return redis.ErrIO.New("transport is closed")
		}
		return redis.ErrIO.Wrap(cause, "transport is closed")
	}
	t.out = append(t.out, frame...)
	t.mu.Unlock()
	select {
	case t.kick <- struct{}{}:
	default:
	}
	return nil
}

// close closes transport. Only first call has effect; it reports true.
func (t *transport) close(err error) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	t.closed = true
	t.cause = err
	t.mu.Unlock()
	close(t.done)
	t.c.Close()
	return true
}

func (t *transport) closeCause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cause
}

func (t *transport) writer() {
	w := bufio.NewWriterSize(newDeadlineIO(t.c, t.timeout), writeBufSize)
	var packet []byte
	for {
		select {
		case <-t.kick:
		case <-t.done:
			return
		default:
			// nothing more to write right now: push buffered frames out before sleeping
			if w.Buffered() > 0 {
				if err := w.Flush(); err != nil {
					t.fail(err)
					return
				}
			}
			select {
			case <-t.kick:
			case <-t.done:
				return
			}
		}

		t.mu.Lock()
		packet, t.out = t.out, packet[:0]
		t.mu.Unlock()
		if len(packet) == 0 {
			continue
		}

		if _, err := w.Write(packet); err != nil {
			t.fail(err)
			return
		}
		if cap(packet) > maxKeptPacket {
			packet = nil
		}
	}
}

// fail closes transport after write error.
func (t *transport) fail(err error) {
	if t.close(err) {
		t.sink.onError(t, err)
	}
}

func (t *transport) reader() {
	buf := make([]byte, readBufSize)
	for {
		if t.timeout > 0 {
			t.c.SetReadDeadline(time.Now().Add(t.timeout))
		}
		n, err := t.c.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			t.sink.onData(t, data)
		}
		if err == nil {
			continue
		}
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() && !t.isClosed() {
			t.sink.onTimeout(t)
			continue
		}
		if t.close(err) && err != io.EOF {
			t.sink.onError(t, err)
		}
		t.sink.onClose(t, t.closeCause())
		return
	}
}

func (t *transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type deadlineIO struct {
	to time.Duration
	c  net.Conn
}

// newDeadlineIO sets write deadline before every write.
func newDeadlineIO(c net.Conn, to time.Duration) io.Writer {
	if to > 0 {
		return &deadlineIO{c: c, to: to}
	}
	return c
}

func (d *deadlineIO) Write(b []byte) (int, error) {
	d.c.SetWriteDeadline(time.Now().Add(d.to))
	return d.c.Write(b)
}
