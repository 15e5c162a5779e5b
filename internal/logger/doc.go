// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder suited for a long-running daemon,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.),
//   - an io.Writer bridge for libraries that only accept writers.
//
// All services accept a context and extract the logger from it, enabling
// scoped, structured logging throughout the codebase.
package logger
