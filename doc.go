/*
Package redisfifo - client side of redis protocol with strictly ordered pipelining.

https://redis.io/topics/protocol

All requests of a connection are written to single socket in order they were sent, and
replies are matched to requests by their position: first reply completes first request
still awaiting reply. Callers never wait for each other: request is queued immediately,
and its callback is called when reply arrives or connection is closed.

Capabilities

- thread-safe: no need to lock around connection, no need to "return to pool", etc,

- pipelining is implicit,

- replies split across reads (or arriving byte by byte) are reassembled,

- text values could be decoded from non utf-8 charset,

- events (connected, closed, error) are delivered to registered listeners,

- logging through zap, with optional tracing of every frame and received chunk.

Limitations

- there is no automatic reconnect: after connection is closed, pending requests are failed,
new requests are queued, and Dial should be called to establish connection again,

- subscribe mode, RESP3, clustering and TLS are not supported,

- nested arrays are flattened one level, and nil elements are dropped from arrays,

- bulk strings looking like decimal numbers are returned as numbers ("00501" becomes 501).

Structure

- root package is empty

- common types (requests, values, errors, synchronous wrappers) are in redis subpackage

- wire format (frame encoder and reply decoder) is in resp subpackage

- single connection is in redisconn subpackage

- command line client is in cmd/redisfifo

Usage

redisconn.Connect creates implementation of redis.Sender. redis.Sender provides asynchronous
api: every request is completed with callback called exactly once.
To use convenient synchronous api, one should wrap "sender" with one of wrappers:

- redis.Sync{sender} - provides simple synchronous api,

- redis.SyncCtx{sender} - provides same api, but all methods accept context.Context, and
methods return immediately if that context is closed,

- redis.ChanFutured{sender} - provides api with future through channel closing.

Types accepted as command arguments: nil, []byte, string, int (and all other integer types),
*big.Int, float64, float32, bool and redis.Value. Numbers are sent in decimal notation,
bool as "1"/"0", nil as null bulk string. Argument of other type fails request with
redis.ErrArgumentType.

Results are de-serialized into plain go types and are returned as interface{}:

  redis                    | go
  -------------------------|-------
  simple string            | string
  bulk string              | string, int64 or float64
  integer                  | int64
  null bulk, null array    | nil
  array                    | []interface{}
  error                    | *errorx.Error of type redis.ErrResult

Error replies are values, not errors: request failure (connection closed, malformed
argument) is reported separately through error argument of callback.
*/
package redisfifo
