package stream

import "errors"

// ErrEmptyResponse indicates the token stream ended without producing any
// content. The user receives the error notice instead of a response.
var ErrEmptyResponse = errors.New("stream: empty response")
