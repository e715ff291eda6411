//go:build linux

// Package wayland implements just enough of the core Wayland wire protocol,
// plus the globals this helper actually binds (wl_compositor, wl_shm,
// wl_seat, wl_output, zwlr_layer_shell_v1), to drive one layer-shell
// surface. It is not a general-purpose client library: there is no
// registry auto-binding of arbitrary interfaces, no xdg-shell, and no
// support for more than one surface per Display.
package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ObjectID identifies a Wayland protocol object. 0 is the null/invalid ID;
// 1 is always wl_display.
type ObjectID uint32

// Opcode identifies a request (client→server) or event (server→client)
// within an interface's message set. Requests and events are numbered
// independently, so the same Opcode value means different things
// depending on which direction a Message travels.
type Opcode uint16

// Fixed is a Wayland 24.8 signed fixed-point number: the low 8 bits are
// the fractional part. Pointer coordinates are the only place this helper
// uses it.
type Fixed int32

const fixedScale = 256.0

// FixedFromFloat converts a float64 surface coordinate to wire format.
func FixedFromFloat(f float64) Fixed {
	return Fixed(f * fixedScale)
}

// Float converts a Fixed back to a float64.
func (f Fixed) Float() float64 {
	return float64(f) / fixedScale
}

// Int truncates a Fixed to its integer part, discarding the fraction.
func (f Fixed) Int() int32 {
	return int32(f) >> 8
}

const (
	// headerSize is the object ID (4 bytes) plus the packed size/opcode
	// word (4 bytes) every message begins with.
	headerSize = 8

	// maxMessageSize bounds both a single message and any length-prefixed
	// string or array argument within it, per the wire format.
	maxMessageSize = 64 * 1024
)

// Wire-level decode failures. These are distinct from protocol-level
// errors (wl_display.error) decoded elsewhere: they mean the byte stream
// itself could not be parsed as Wayland messages.
var (
	ErrMessageTooLarge     = errors.New("wayland: message exceeds maximum size")
	ErrMessageTooSmall     = errors.New("wayland: message smaller than header")
	ErrBufferTooSmall      = errors.New("wayland: buffer too small for message")
	ErrInvalidStringLen    = errors.New("wayland: invalid string length")
	ErrInvalidArrayLen     = errors.New("wayland: invalid array length")
	ErrUnexpectedEOF       = errors.New("wayland: unexpected end of message")
	ErrStringNotTerminated = errors.New("wayland: string not null-terminated")
)

// Message is one decoded wire message: a request bound for ObjectID, or an
// event originating from it. FDs holds any descriptors carried alongside
// it via SCM_RIGHTS (wl_shm.create_pool's fd argument, wl_keyboard.keymap's
// fd); these travel out of band and are never part of Args.
type Message struct {
	ObjectID ObjectID
	Opcode   Opcode
	Args     []byte
	FDs      []int
}

// Size returns the message's total wire size, header included.
func (m *Message) Size() int {
	return headerSize + len(m.Args)
}

// Encoder appends wire-format argument values to an internal buffer.
// MessageBuilder wraps one to give callers a fluent, per-request API; code
// that needs raw argument bytes without a Message wrapper can use an
// Encoder directly.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an Encoder with capacity pre-reserved for a message of
// roughly that many bytes.
func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, 0, capacity)}
}

// Reset empties the encoder so it can be reused for the next message.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the bytes encoded so far.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) PutInt32(v int32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v))
}

func (e *Encoder) PutUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) PutFixed(v Fixed) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v))
}

func (e *Encoder) PutObject(id ObjectID) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(id))
}

// PutNewID appends a bare new_id argument: just the allocated object ID,
// with no interface name or version. Every interface this helper binds
// directly (as opposed to through wl_registry.bind) uses this form.
func (e *Encoder) PutNewID(id ObjectID) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(id))
}

// PutNewIDFull appends a new_id argument in the interface+version+id form
// wl_registry.bind requires, since the registry's new_id argument does not
// pin an interface at the protocol level.
func (e *Encoder) PutNewIDFull(iface string, version uint32, id ObjectID) {
	e.PutString(iface)
	e.PutUint32(version)
	e.PutUint32(uint32(id))
}

// PutString appends a length-prefixed, null-terminated, 4-byte-padded
// string. length counts the trailing NUL, matching how the wire format
// defines it.
func (e *Encoder) PutString(s string) {
	length := uint32(len(s) + 1)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, length)
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
	for i := 0; i < paddingFor(int(length)); i++ {
		e.buf = append(e.buf, 0)
	}
}

// PutArray appends a length-prefixed, 4-byte-padded byte array.
func (e *Encoder) PutArray(data []byte) {
	length := uint32(len(data))
	e.buf = binary.LittleEndian.AppendUint32(e.buf, length)
	e.buf = append(e.buf, data...)
	for i := 0; i < paddingFor(int(length)); i++ {
		e.buf = append(e.buf, 0)
	}
}

// Decoder reads wire-format argument values out of a buffer in order. It
// holds no knowledge of which interface or opcode produced the buffer;
// each object's dispatch method is responsible for reading fields in the
// order its protocol XML declares them.
type Decoder struct {
	buf    []byte
	offset int
	fds    []int
	fdIdx  int
}

// NewDecoder creates a Decoder positioned at the start of buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Reset repositions the decoder at the start of a new buffer and FD set,
// so a hot dispatch path can reuse one Decoder instead of allocating.
func (d *Decoder) Reset(buf []byte, fds []int) {
	d.buf = buf
	d.offset = 0
	d.fds = fds
	d.fdIdx = 0
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.offset
}

// HasMore reports whether any unread bytes remain.
func (d *Decoder) HasMore() bool {
	return d.offset < len(d.buf)
}

// Skip advances past n bytes without interpreting them.
func (d *Decoder) Skip(n int) error {
	if d.offset+n > len(d.buf) {
		return ErrUnexpectedEOF
	}
	d.offset += n
	return nil
}

func (d *Decoder) Int32() (int32, error) {
	if d.offset+4 > len(d.buf) {
		return 0, ErrUnexpectedEOF
	}
	v := int32(binary.LittleEndian.Uint32(d.buf[d.offset:]))
	d.offset += 4
	return v, nil
}

func (d *Decoder) Uint32() (uint32, error) {
	if d.offset+4 > len(d.buf) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(d.buf[d.offset:])
	d.offset += 4
	return v, nil
}

func (d *Decoder) Fixed() (Fixed, error) {
	v, err := d.Uint32()
	return Fixed(v), err
}

func (d *Decoder) Object() (ObjectID, error) {
	v, err := d.Uint32()
	return ObjectID(v), err
}

// NewID reads a bare new_id argument (events never carry the full
// interface+version form; only wl_registry.global's advertisement and
// requests like bind do, and those are decoded with String/Uint32
// directly).
func (d *Decoder) NewID() (ObjectID, error) {
	return d.Object()
}

// String reads a length-prefixed, null-terminated, 4-byte-padded string,
// the inverse of Encoder.PutString.
func (d *Decoder) String() (string, error) {
	length, err := d.Uint32()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	if length > maxMessageSize {
		return "", ErrInvalidStringLen
	}

	paddedLen := int(length) + paddingFor(int(length))
	if d.offset+paddedLen > len(d.buf) {
		return "", ErrUnexpectedEOF
	}

	data := d.buf[d.offset : d.offset+int(length)-1]
	if d.buf[d.offset+int(length)-1] != 0 {
		return "", ErrStringNotTerminated
	}

	d.offset += paddedLen
	return string(data), nil
}

// Array reads a length-prefixed, 4-byte-padded byte array, the inverse of
// Encoder.PutArray. Used for wl_keyboard.enter's array of pressed keys.
func (d *Decoder) Array() ([]byte, error) {
	length, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	if length > maxMessageSize {
		return nil, ErrInvalidArrayLen
	}

	paddedLen := int(length) + paddingFor(int(length))
	if d.offset+paddedLen > len(d.buf) {
		return nil, ErrUnexpectedEOF
	}

	data := make([]byte, length)
	copy(data, d.buf[d.offset:d.offset+int(length)])
	d.offset += paddedLen
	return data, nil
}

// FD consumes the next file descriptor carried alongside this message via
// SCM_RIGHTS (e.g. wl_keyboard.keymap's fd). FDs are tracked separately
// from Args because they arrive through ancillary control data, not the
// message body.
func (d *Decoder) FD() (int, error) {
	if d.fdIdx >= len(d.fds) {
		return -1, fmt.Errorf("wayland: no more file descriptors available")
	}
	fd := d.fds[d.fdIdx]
	d.fdIdx++
	return fd, nil
}

// DecodeHeader decodes the 8-byte object-ID/size/opcode header at the
// decoder's current position without consuming any argument bytes.
func (d *Decoder) DecodeHeader() (ObjectID, Opcode, int, error) {
	if d.Remaining() < headerSize {
		return 0, 0, 0, ErrMessageTooSmall
	}

	objectID, err := d.Object()
	if err != nil {
		return 0, 0, 0, err
	}

	sizeAndOpcode, err := d.Uint32()
	if err != nil {
		return 0, 0, 0, err
	}

	size := int(sizeAndOpcode >> 16)
	opcode := Opcode(sizeAndOpcode & 0xFFFF)

	if size < headerSize {
		return 0, 0, 0, ErrMessageTooSmall
	}
	if size > maxMessageSize {
		return 0, 0, 0, ErrMessageTooLarge
	}

	return objectID, opcode, size, nil
}

// DecodeMessage decodes one complete message (header and argument bytes)
// starting at the decoder's current position, advancing past it. Any FDs
// for the message must already have been associated with the decoder via
// Reset and are consumed separately through FD, since the wire format
// carries no FD count in the message body itself.
func (d *Decoder) DecodeMessage() (*Message, error) {
	objectID, opcode, size, err := d.DecodeHeader()
	if err != nil {
		return nil, err
	}

	argsSize := size - headerSize
	if d.offset+argsSize > len(d.buf) {
		return nil, ErrBufferTooSmall
	}

	args := make([]byte, argsSize)
	copy(args, d.buf[d.offset:d.offset+argsSize])
	d.offset += argsSize

	return &Message{ObjectID: objectID, Opcode: opcode, Args: args}, nil
}

// paddingFor returns the number of zero bytes needed to round length up to
// a 4-byte boundary.
func paddingFor(length int) int {
	return (4 - (length % 4)) % 4
}

// MessageBuilder assembles one request's arguments and any FDs it carries,
// then produces a Message ready for Display.SendMessage. Every request
// method across the wl_* and zwlr_* bindings in this package follows the
// same pattern: build, then BuildMessage with the object's ID and the
// request's opcode.
type MessageBuilder struct {
	encoder *Encoder
	fds     []int
}

// NewMessageBuilder creates an empty builder sized for a typical request.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{encoder: NewEncoder(256)}
}

// Reset clears the builder for reuse.
func (b *MessageBuilder) Reset() {
	b.encoder.Reset()
	b.fds = b.fds[:0]
}

func (b *MessageBuilder) PutInt32(v int32) *MessageBuilder {
	b.encoder.PutInt32(v)
	return b
}

func (b *MessageBuilder) PutUint32(v uint32) *MessageBuilder {
	b.encoder.PutUint32(v)
	return b
}

func (b *MessageBuilder) PutFixed(v Fixed) *MessageBuilder {
	b.encoder.PutFixed(v)
	return b
}

func (b *MessageBuilder) PutObject(id ObjectID) *MessageBuilder {
	b.encoder.PutObject(id)
	return b
}

func (b *MessageBuilder) PutNewID(id ObjectID) *MessageBuilder {
	b.encoder.PutNewID(id)
	return b
}

func (b *MessageBuilder) PutNewIDFull(iface string, version uint32, id ObjectID) *MessageBuilder {
	b.encoder.PutNewIDFull(iface, version, id)
	return b
}

func (b *MessageBuilder) PutString(s string) *MessageBuilder {
	b.encoder.PutString(s)
	return b
}

func (b *MessageBuilder) PutArray(data []byte) *MessageBuilder {
	b.encoder.PutArray(data)
	return b
}

// PutFD queues a descriptor to be sent alongside the message via
// SCM_RIGHTS once Display.SendMessage writes it. wl_shm.create_pool is the
// only request this helper issues that needs one.
func (b *MessageBuilder) PutFD(fd int) *MessageBuilder {
	b.fds = append(b.fds, fd)
	return b
}

// Build returns the built argument bytes and queued FDs directly, for
// callers that need them without a Message wrapper.
func (b *MessageBuilder) Build() ([]byte, []int) {
	return b.encoder.Bytes(), b.fds
}

// BuildMessage copies the builder's current argument bytes and FDs into a
// new Message addressed to objectID/opcode. Copying (rather than handing
// out the builder's internal slices) lets the same builder be Reset and
// reused for the next request without aliasing a Message already queued
// for send.
func (b *MessageBuilder) BuildMessage(objectID ObjectID, opcode Opcode) *Message {
	args := make([]byte, len(b.encoder.Bytes()))
	copy(args, b.encoder.Bytes())

	fds := make([]int, len(b.fds))
	copy(fds, b.fds)

	return &Message{ObjectID: objectID, Opcode: opcode, Args: args, FDs: fds}
}

// EncodeMessage serializes msg's header and Args to wire format. FDs are
// never part of the returned bytes; Display.sendWithFDs transmits them
// separately through SCM_RIGHTS ancillary data.
func EncodeMessage(msg *Message) ([]byte, error) {
	totalSize := headerSize + len(msg.Args)
	if totalSize > maxMessageSize {
		return nil, ErrMessageTooLarge
	}

	buf := make([]byte, totalSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(msg.ObjectID))
	sizeAndOpcode := uint32(totalSize)<<16 | uint32(msg.Opcode)
	binary.LittleEndian.PutUint32(buf[4:8], sizeAndOpcode)
	copy(buf[8:], msg.Args)

	return buf, nil
}
