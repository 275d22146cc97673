package redis

import (
	"github.com/joomcode/errorx"
)

// Errors is the namespace of every error produced by redisfifo.
var Errors = errorx.NewNamespace("redis")

var (
	// ErrTraitNotSent signals request were definitely not written to the socket.
	ErrTraitNotSent = errorx.RegisterTrait("not_sent")
	// ErrTraitConnectivity marks all networking and io errors.
	ErrTraitConnectivity = errorx.RegisterTrait("connectivity")
)

var (
	// ErrOpts - options are wrong
	ErrOpts = Errors.NewType("opts", ErrTraitNotSent)
	// ErrContextIsNil - context is not passed to constructor
	ErrContextIsNil = ErrOpts.NewSubtype("context_is_nil")
	// ErrNoAddressProvided - no address is given to constructor
	ErrNoAddressProvided = ErrOpts.NewSubtype("no_address")
	// ErrNilListener - nil function passed as event listener
	ErrNilListener = ErrOpts.NewSubtype("nil_listener")
	// ErrUnknownCharset - charset name is not known
	ErrUnknownCharset = ErrOpts.NewSubtype("unknown_charset")

	// ErrContextClosed - connection were explicitly closed (or context were cancelled).
	// Request is definitely not sent anywhere.
	ErrContextClosed = Errors.NewType("context_closed", ErrTraitNotSent, ErrTraitConnectivity)

	// ErrConnection - connection related errors.
	ErrConnection = Errors.NewType("connection", ErrTraitConnectivity)
	// ErrDial - could not connect.
	ErrDial = ErrConnection.NewSubtype("dial", ErrTraitNotSent)
	// ErrConnectionClosed - transport were closed while request were pending.
	// It is not known if request were processed or not.
	ErrConnectionClosed = ErrConnection.NewSubtype("closed")

	// ErrIO - write to transport failed.
	ErrIO = Errors.NewType("io", ErrTraitConnectivity)

	// ErrRequest - request malformed. Can not serialize request, no reason to retry.
	ErrRequest = Errors.NewType("request", ErrTraitNotSent)
	// ErrArgumentType - argument is not serializable.
	ErrArgumentType = ErrRequest.NewSubtype("argument_type")
	// ErrBatchFormat - some other command in batch is malformed.
	ErrBatchFormat = ErrRequest.NewSubtype("batch_format")

	// ErrResponse - response is not what we expect.
	ErrResponse = Errors.NewType("response")
	// ErrResponseFormat - response is not valid RESP.
	ErrResponseFormat = ErrResponse.NewSubtype("format")
	// ErrUnknownHeaderType - unknown type tag.
	ErrUnknownHeaderType = ErrResponseFormat.NewSubtype("unknown_header_type")
	// ErrNoFinalRN - \r is not followed by \n, or bulk is not terminated with \r\n.
	ErrNoFinalRN = ErrResponseFormat.NewSubtype("no_final_rn")
	// ErrIntegerParsing - length header or integer reply is malformed.
	ErrIntegerParsing = ErrResponseFormat.NewSubtype("integer_parsing")
	// ErrTruncated - buffer ends before reply is complete. Decoder should be retried
	// when more bytes arrive.
	ErrTruncated = ErrResponse.NewSubtype("truncated")
	// ErrReplyOverflow - reply arrived while no request waits for it.
	ErrReplyOverflow = ErrResponse.NewSubtype("reply_overflow")
	// ErrResponseUnexpected - response is valid, but its structure is unexpected.
	ErrResponseUnexpected = ErrResponse.NewSubtype("unexpected")
	// ErrProjection - result projector failed to convert reply.
	ErrProjection = ErrResponse.NewSubtype("projection")
	// ErrPing - ping received something other than PONG.
	ErrPing = ErrResponse.NewSubtype("ping")

	// ErrResult - just regular redis error reply.
	// It is returned as a value, not as a failure.
	ErrResult = Errors.NewType("result")
)

var (
	// EKConnection - connection that handled request.
	EKConnection = errorx.RegisterProperty("connection")
	// EKRequest - request that caused error.
	EKRequest = errorx.RegisterProperty("request")
	// EKArgPos - position of bad argument.
	EKArgPos = errorx.RegisterProperty("argpos")
	// EKVal - bad argument value.
	EKVal = errorx.RegisterProperty("val")
	// EKLine - malformed header line.
	EKLine = errorx.RegisterProperty("line")
	// EKReply - reply that could not be handled.
	EKReply = errorx.RegisterProperty("reply")
)

// AsError casts result to error if it is error.
func AsError(v interface{}) error {
	e, _ := v.(error)
	return e
}

// AsErrorx casts result to *errorx.Error if it is.
func AsErrorx(v interface{}) *errorx.Error {
	e, _ := v.(*errorx.Error)
	return e
}

// IsResultError reports whether v is an error reply sent by redis itself.
func IsResultError(v interface{}) bool {
	e := AsErrorx(v)
	return e != nil && e.IsOfType(ErrResult)
}
