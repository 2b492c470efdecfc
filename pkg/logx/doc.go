// Package logx wraps zerolog behind a small value-type Logger with
// closure-based fields, so call sites stay terse and the zero value is a
// safe no-op.
package logx
