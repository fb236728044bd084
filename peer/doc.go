// Package peer implements the s3270 line protocol (spec §4.2, §6.1,
// §6.2): the framer that tells native syntax from JSON, the native
// tokenizer/quoter, the dual-mode output shaper, and the session and
// listener types that wire a socket or pipe pair into a
// dispatch.Dispatcher.
//
// Structurally grounded on engine/acp/conn.go's mutex-protected writer
// and bufio.Scanner reader, adapted from JSON-RPC's id-correlated
// request/response model to the peer protocol's one-command-at-a-time
// synchronous shaping — see DESIGN.md.
package peer
