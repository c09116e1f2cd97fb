// Package drtio defines the shared vocabulary of the distributed real-time
// I/O control path: channel selector conventions and the protocol error
// taxonomy.
//
// A chain is made of one master node and N satellite nodes connected by
// point-to-point serial links. The master encodes timestamped I/O commands
// into wire frames, intermediate repeaters forward them verbatim, and the
// satellite that owns the addressed channel executes them. Every error a
// node can detect is represented by a type in this package, so that no
// timestamped command is ever lost silently.
package drtio
