//go:build linux

// Package wayland implements a pure Go Wayland client.
//
// This package provides a Wayland client implementation that communicates
// directly with the Wayland compositor over Unix sockets, without using
// libwayland-client.so. This enables zero-CGO builds on Linux.
//
// # Wire Protocol
//
// Wayland uses a binary wire protocol over Unix domain sockets. Messages
// consist of a header (object ID + size/opcode) followed by arguments.
// All values are encoded as 32-bit little-endian words.
//
// The wire format is:
//
//	+--------+--------+--------+--------+
//	| Object ID (4 bytes)               |
//	+--------+--------+--------+--------+
//	| Size (16 bits) | Opcode (16 bits) |
//	+--------+--------+--------+--------+
//	| Arguments...                      |
//	+--------+--------+--------+--------+
//
// # Argument Types
//
// The protocol supports several argument types:
//   - int: Signed 32-bit integer
//   - uint: Unsigned 32-bit integer
//   - fixed: Signed 24.8 fixed-point number
//   - string: Length-prefixed UTF-8 string (padded to 4 bytes)
//   - object: Object ID (uint32)
//   - new_id: New object ID (uint32), sometimes with interface+version
//   - array: Length-prefixed byte array (padded to 4 bytes)
//   - fd: File descriptor (passed via SCM_RIGHTS)
//
// # Core Interfaces
//
// This package implements the core Wayland interfaces:
//   - wl_display: The connection to the compositor (object ID 1)
//   - wl_registry: Global registry for binding to interfaces
//
// Additional interfaces (wl_compositor, wl_surface, wl_shm, wl_seat,
// zwlr_layer_shell_v1, etc.) are implemented in separate files; there is
// no xdg-shell implementation.
//
// # Usage
//
// Connect to the compositor and bind to required interfaces:
//
//	display, err := wayland.Connect()
//	if err != nil {
//	    return err
//	}
//	defer display.Close()
//
//	registry, err := display.GetRegistry()
//	if err != nil {
//	    return err
//	}
//
//	// Wait for globals to be advertised
//	display.Roundtrip()
//
// # File Descriptors
//
// Wayland uses SCM_RIGHTS to pass file descriptors for shared memory
// buffers and DMA-BUF handles. This requires special socket handling
// via the golang.org/x/sys/unix package.
//
// # Thread Safety
//
// Display and every object it owns are single-threaded: all sends,
// reads and dispatch must happen from one cooperative goroutine. The
// connection exposes the prepare_read / read_events / dispatch_pending /
// cancel_read cycle so that goroutine can multiplex the Wayland socket
// with other event sources (timers, a control-channel listener) through
// one poll loop without ever blocking inside a socket read.
package wayland
