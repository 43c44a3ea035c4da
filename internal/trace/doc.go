// Package trace provides request and process tracing for juvixmode.
//
// Every LSP request is a request span and every external compiler
// invocation is a process span nested under it, so a slow highlight can be
// attributed to the juvix process or to index building.
//
// # Usage
//
//	juvixmode lsp --trace=- --trace-level=process
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: failed spans only
//   - LevelRequest: server lifecycle and requests
//   - LevelProcess: plus external process invocations
//   - LevelDebug: plus index builds
package trace
