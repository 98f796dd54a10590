// Package siril drives the Siril image-processing application through its
// command-pipe mode (siril started with -p).
//
// The package owns only the transport: writing command lines to the inbound
// FIFO and interpreting the outbound stream's ready/log/progress/status
// framing. The command vocabulary itself (convert, calibrate, stack,
// register, subsky, rl, ...) belongs to Siril and is treated as opaque
// strings formatted by the stage packages; flag names and value formatting
// are a compatibility contract with the host version declared through the
// requires command.
package siril
