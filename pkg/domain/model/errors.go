package model

import "github.com/m-mizutani/goerr/v2"

// ErrRunNotFound is returned by run stores when a run id has no record.
// It lives in the domain so callers can match it without depending on a
// particular store implementation.
var ErrRunNotFound = goerr.New("run not found")
