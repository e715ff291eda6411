// Package ipc implements the control-socket wire protocol between the
// helper and its rendering client: a fixed 12-byte header (magic, type,
// payload length) followed by a typed, length-prefixed payload.
//
// The encoding mirrors the internal/wayland wire package's Encoder/Decoder
// idiom, but in the host's native byte order rather than Wayland's
// mandated little-endian — this protocol never crosses a machine boundary,
// so there is nothing to normalize.
package ipc
