package redisconn

import (
	"go.uber.org/zap"
)

// LogKind is a kind of event reported to Logger.
type LogKind int

const (
	// LogConnecting - dial started.
	LogConnecting LogKind = iota
	// LogConnected - transport established. v: localAddr string, remoteAddr string.
	LogConnected
	// LogConnectFailed - dial failed. v: error.
	LogConnectFailed
	// LogDisconnected - transport closed. v: error (may be nil).
	LogDisconnected
	// LogContextClosed - connection closed forever.
	LogContextClosed
	// LogError - transport reported error. v: error.
	LogError
	// LogTimeout - transport were idle longer than IOTimeout.
	LogTimeout
	// LogOverflow - reply arrived while no request waits for it. v: error.
	LogOverflow
	// LogProtocolError - reply could not be decoded. v: error.
	LogProtocolError
	// LogTraceFrame - frame written to transport (verbose only). v: []byte.
	LogTraceFrame
	// LogTraceData - bytes received from transport (verbose only). v: []byte.
	LogTraceData
	LogMAX
)

var logKindNames = [...]string{
	LogConnecting:    "connecting",
	LogConnected:     "connected",
	LogConnectFailed: "connect_failed",
	LogDisconnected:  "disconnected",
	LogContextClosed: "context_closed",
	LogError:         "error",
	LogTimeout:       "timeout",
	LogOverflow:      "overflow",
	LogProtocolError: "protocol_error",
	LogTraceFrame:    "trace_frame",
	LogTraceData:     "trace_data",
}

func (k LogKind) String() string {
	if k >= 0 && k < LogMAX {
		return logKindNames[k]
	}
	return "unknown"
}

// Logger is a type for custom event and stat reporter.
type Logger interface {
	// Report will be called when some events happens during connection's lifetime.
	// Default implementation just prints this information using zap.
	Report(event LogKind, conn *Connection, v ...interface{})
}

// ZapLogger reports events to zap logger.
type ZapLogger struct {
	L *zap.Logger
}

// NewZapLogger returns ZapLogger. nil l means zap.L().
func NewZapLogger(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.L()
	}
	return ZapLogger{L: l.Named("redisfifo")}
}

// Report implements Logger.Report
func (z ZapLogger) Report(event LogKind, conn *Connection, v ...interface{}) {
	l := z.L
	if l == nil {
		l = zap.L()
	}
	l = l.With(zap.String("conn", conn.ID()), zap.String("addr", conn.Addr()))
	switch event {
	case LogConnecting:
		l.Info("connecting")
	case LogConnected:
		l.Info("connected",
			zap.String("local_addr", v[0].(string)),
			zap.String("remote_addr", v[1].(string)))
	case LogConnectFailed:
		l.Warn("connection failed", zap.Error(v[0].(error)))
	case LogDisconnected:
		err, _ := v[0].(error)
		l.Warn("connection broken", zap.Error(err))
	case LogContextClosed:
		l.Info("connection explicitly closed")
	case LogError:
		l.Warn("transport error", zap.Error(v[0].(error)))
	case LogTimeout:
		l.Debug("transport is idle")
	case LogOverflow:
		l.Error("reply without request", zap.Error(v[0].(error)))
	case LogProtocolError:
		l.Error("malformed reply", zap.Error(v[0].(error)))
	case LogTraceFrame:
		l.Debug("frame", zap.ByteString("out", v[0].([]byte)))
	case LogTraceData:
		l.Debug("data", zap.ByteString("in", v[0].([]byte)))
	default:
		l.Warn("unexpected event", zap.Stringer("event", event), zap.Any("v", v))
	}
}

// NoopLogger is a noop implementation of Logger.
type NoopLogger struct{}

// Report implements Logger.Report
func (NoopLogger) Report(LogKind, *Connection, ...interface{}) {}
