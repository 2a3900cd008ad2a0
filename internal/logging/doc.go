// Package logging provides structured JSON logging for paymentsmcp.
//
// Every record is a single JSON line carrying "type" (debug|info|warn|error)
// and "message" fields. Records go to stderr so stdout stays reserved for
// MCP framing, and optionally to a size-rotated file under
// ~/.paymentsmcp/logs/ when --debug or server.log_file is set.
package logging
