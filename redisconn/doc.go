/*
Package redisconn implements connection to single redis server.

Connection is "wrapper" around single tcp (unix-socket) connection. All requests are fed into
single connection, and replies are matched to requests strictly in the order requests were written.

Connection is thread-safe, ie it doesn't need external synchronization: Send only appends
request to inbox, and single goroutine owns queues and receive buffer. Each turn of that goroutine
writes at most one request and decodes at most one reply, then it looks at new events again.

Connection doesn't reconnect by itself. When transport is closed, every request in flight and
every queued request is failed with redis.ErrConnectionClosed, and EventClosed listeners are
notified. Requests sent after that are queued until Dial establishes new transport.
Close shuts connection forever.

Callbacks and listeners are called one by one from separate goroutine, in order of completion.
*/
package redisconn
