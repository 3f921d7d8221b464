// Package logx configures barstatus's structured logging.
//
// A small wrapper (logx.Logger) on top of zerolog keeps:
//   - Console output readable (short timestamp + short caller) on stderr
//   - File output JSON-structured
//
// Stdout belongs to the status line and is never used for logs.
package logx
