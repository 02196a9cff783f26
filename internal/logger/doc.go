// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration, parsing and runtime reconfiguration,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Every scheduler, adapter and transport accepts a context and extracts the
// logger from it, so alarm ids and platform names travel with the log lines.
package logger
