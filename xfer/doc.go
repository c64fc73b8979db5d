// Package xfer implements the client side of the serial log-retrieval
// protocol spoken by the device firmware.
//
// The protocol is a text/binary hybrid on a single duplex byte stream.
// Textual control messages are CRLF-terminated lines; a file payload is raw
// binary whose length is announced in advance by the preceding header line,
// so the reader never scans binary data for delimiters:
//
//	Client → Device:  "#LIST"
//	Device → Client:  "LIST:<path>:<size>" ... (one entry per line)
//	Client → Device:  "#GET <path>"
//	Device → Client:  "FILEBEGIN <path> <size>" + <size raw bytes> + "FILEEND"
//	Device → Client:  "ERR:<message>" (on any failure)
//
// The exchange is strictly half-duplex at the application level: one command
// is outstanding at a time, and a new command is never sent before the prior
// response has been fully consumed or has timed out.
//
// # Timeouts
//
// All reads are bounded by wall-clock deadlines so the client never blocks
// indefinitely on a silent or disconnected device:
//
//   - line timeout: maximum wait for a single response line
//   - list poll timeout: shorter per-line wait during listing, where
//     responses are expected promptly
//   - list grace period: startup latency tolerated before concluding the
//     device has no files
//   - download timeout: absolute ceiling for one file payload, a fixed
//     generous bound rather than a per-byte budget, since link latency
//     dominates size
//
// # Error Handling
//
// Failures are local to the operation that produced them: a malformed list
// entry is skipped with a warning, and one file's download failure never
// aborts a batch. A short read keeps the partial file on disk for
// inspection; a matched byte count with a missing FILEEND footer is still a
// failure, since it indicates stream desynchronization that would corrupt
// the next command's framing.
package xfer
