package adapter

import "errors"

var (
	// ErrTransport covers network failures, timeouts and transient server
	// errors. The request may succeed if repeated later.
	ErrTransport = errors.New("transport error")

	// ErrAuth means the remote side refused the credentials, or the client
	// knows its token has expired. Repeating the request will not help until
	// the token is refreshed.
	ErrAuth = errors.New("authorization error")

	// ErrPermanent means the remote side rejected the request as a whole.
	ErrPermanent = errors.New("permanent remote error")

	ErrTokenExpired     = errors.New("token expired")
	ErrMalformedReply   = errors.New("malformed response")
	ErrEmptyHTTPAddress = errors.New("empty remote address")
)
