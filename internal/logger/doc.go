// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger that prints "[LEVEL] message" lines,
//   - context helpers (ToContext/FromContext/WithName),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, Errorf, etc.).
//
// Services accept a context and extract the logger from it, so tests can
// capture output by placing their own logger into the context.
package logger
