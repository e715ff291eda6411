//go:build linux

package wayland

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// wl_display opcodes (requests)
const (
	displaySync        Opcode = 0 // sync(callback: new_id)
	displayGetRegistry Opcode = 1 // get_registry(registry: new_id)
)

// wl_display event opcodes
const (
	displayEventError    Opcode = 0 // error(object_id: object, code: uint, message: string)
	displayEventDeleteID Opcode = 1 // delete_id(id: uint)
)

// Display error codes (from wayland.xml).
const (
	DisplayErrorInvalidObject  Opcode = 0 // server couldn't find object
	DisplayErrorInvalidMethod  Opcode = 1 // method doesn't exist on the specified interface
	DisplayErrorNoMemory       Opcode = 2 // server is out of memory
	DisplayErrorImplementation Opcode = 3 // implementation error in compositor
)

// Callback interface opcodes (wl_callback).
const (
	callbackEventDone Opcode = 0 // done(callback_data: uint)
)

// Errors returned by Display operations.
var (
	ErrDisplayNotConnected = errors.New("wayland: display not connected")
	ErrNoWaylandSocket     = errors.New("wayland: no wayland socket found")
	ErrProtocolError       = errors.New("wayland: protocol error from compositor")
	ErrConnectionClosed    = errors.New("wayland: connection closed")
	ErrNoMessage           = errors.New("wayland: no message available")
	ErrEventsQueued        = errors.New("wayland: undispatched events queued, dispatch pending before reading")
	ErrReadNotPrepared     = errors.New("wayland: read not prepared")
)

// dispatcher is implemented by any bound object that can route an incoming
// message addressed to its object ID.
type dispatcher interface {
	dispatch(msg *Message) error
}

// Display represents a connection to the Wayland compositor.
// It is always object ID 1 in the Wayland protocol.
//
// Display is built for the single cooperative-thread event loop used by
// this helper: there is exactly one goroutine ever calling into it, so it
// carries no locks. Do not share a Display across goroutines.
type Display struct {
	conn     net.Conn
	connFile *os.File

	nextID uint32

	readBuf   []byte
	fdBuf     []int
	callbacks map[ObjectID]chan uint32
	closed    bool

	// dispatchers routes events for any bound object beyond the display,
	// registry, and sync callbacks (wl_surface, wl_buffer, wl_seat,
	// wl_pointer, wl_keyboard, zwlr_layer_surface_v1, frame callbacks, ...).
	dispatchers map[ObjectID]dispatcher

	// pending holds messages already read off the wire (ReadEvents) but not
	// yet handed to their listeners (DispatchPending). This split is what
	// lets the event loop poll the Wayland fd and the IPC control socket
	// without racing a listener callback against queue mutation.
	pending []*Message
	reading bool

	// Protocol error state
	protocolError error
	protocolSeen  bool

	// Event handlers
	registry *Registry
	onError  func(objectID ObjectID, code uint32, message string)

	// Delete ID tracking
	deletedIDs []ObjectID
}

// Connect establishes a connection to the Wayland compositor.
// It looks for the socket at $XDG_RUNTIME_DIR/$WAYLAND_DISPLAY.
// If WAYLAND_DISPLAY is not set, it defaults to "wayland-0".
func Connect() (*Display, error) {
	socketPath, err := getSocketPath()
	if err != nil {
		return nil, err
	}

	return ConnectTo(socketPath)
}

// ConnectTo establishes a connection to the Wayland compositor at the given socket path.
func ConnectTo(socketPath string) (*Display, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("wayland: failed to connect to %s: %w", socketPath, err)
	}

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("wayland: expected unix socket, got %T", conn)
	}

	file, err := unixConn.File()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wayland: failed to get socket file: %w", err)
	}

	d := &Display{
		conn:        conn,
		connFile:    file,
		readBuf:     make([]byte, maxMessageSize),
		fdBuf:       make([]int, 0, 16),
		callbacks:   make(map[ObjectID]chan uint32),
		dispatchers: make(map[ObjectID]dispatcher),
	}

	// wl_display is always object ID 1, so start allocating from 2
	d.nextID = 2

	return d, nil
}

// getSocketPath returns the path to the Wayland socket.
func getSocketPath() (string, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("%w: XDG_RUNTIME_DIR not set", ErrNoWaylandSocket)
	}

	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}

	if filepath.IsAbs(display) {
		return display, nil
	}

	return filepath.Join(runtimeDir, display), nil
}

// Close closes the connection to the compositor.
func (d *Display) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	for _, ch := range d.callbacks {
		close(ch)
	}
	d.callbacks = nil

	if d.connFile != nil {
		_ = d.connFile.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}

	return nil
}

// AllocID allocates a new object ID.
func (d *Display) AllocID() ObjectID {
	id := d.nextID
	d.nextID++
	return ObjectID(id)
}

// RegisterObject makes d route future messages addressed to id to disp.
// Object constructors (WlSurface, WlSeat, ZwlrLayerSurfaceV1, frame
// callbacks, ...) call this once they know their bound ID.
func (d *Display) RegisterObject(id ObjectID, disp dispatcher) {
	d.dispatchers[id] = disp
}

// UnregisterObject stops routing messages for id. Called when an object is
// destroyed so a reused ID (after delete_id) cannot hit a stale dispatcher.
func (d *Display) UnregisterObject(id ObjectID) {
	delete(d.dispatchers, id)
}

// Sync sends a sync request and returns a channel that receives the callback data.
// This is used for roundtrip synchronization with the compositor.
func (d *Display) Sync() (<-chan uint32, error) {
	callbackID := d.AllocID()

	ch := make(chan uint32, 1)
	d.callbacks[callbackID] = ch

	builder := NewMessageBuilder()
	builder.PutNewID(callbackID)
	msg := builder.BuildMessage(1, displaySync) // wl_display is always object 1

	if err := d.SendMessage(msg); err != nil {
		delete(d.callbacks, callbackID)
		close(ch)
		return nil, err
	}

	return ch, nil
}

// Roundtrip performs a synchronous roundtrip to the compositor.
func (d *Display) Roundtrip() error {
	ch, err := d.Sync()
	if err != nil {
		return err
	}

	for {
		if err := d.DispatchOne(); err != nil {
			return err
		}

		select {
		case _, ok := <-ch:
			if !ok {
				return ErrConnectionClosed
			}
			return nil
		default:
		}
	}
}

// GetRegistry requests the global registry from the compositor.
func (d *Display) GetRegistry() (*Registry, error) {
	if d.registry != nil {
		return d.registry, nil
	}

	registryID := d.AllocID()

	builder := NewMessageBuilder()
	builder.PutNewID(registryID)
	msg := builder.BuildMessage(1, displayGetRegistry)

	if err := d.SendMessage(msg); err != nil {
		return nil, err
	}

	d.registry = newRegistry(d, registryID)
	return d.registry, nil
}

// SendMessage sends a message to the compositor.
func (d *Display) SendMessage(msg *Message) error {
	if d.closed {
		return ErrDisplayNotConnected
	}
	if d.protocolError != nil {
		return d.protocolError
	}

	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	if len(msg.FDs) > 0 {
		return d.sendWithFDs(data, msg.FDs)
	}

	_, err = d.conn.Write(data)
	return err
}

// sendWithFDs sends data with file descriptors via SCM_RIGHTS.
func (d *Display) sendWithFDs(data []byte, fds []int) error {
	fd := int(d.connFile.Fd())
	rights := unix.UnixRights(fds...)
	return unix.Sendmsg(fd, data, rights, nil, 0)
}

// recvMessage receives a single message from the compositor. flags is
// passed through to recvmsg(2); pass unix.MSG_DONTWAIT to drain without
// blocking once the fd has been reported readable by poll.
func (d *Display) recvMessage(flags int) (*Message, error) {
	if d.closed {
		return nil, ErrDisplayNotConnected
	}

	fd := int(d.connFile.Fd())
	oob := make([]byte, 256)

	n, oobn, _, _, err := unix.Recvmsg(fd, d.readBuf, oob, flags)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrNoMessage
		}
		return nil, fmt.Errorf("wayland: recvmsg failed: %w", err)
	}

	if n == 0 {
		return nil, ErrConnectionClosed
	}

	fds, err := parseFileDescriptors(oob[:oobn])
	if err != nil {
		return nil, err
	}

	decoder := NewDecoder(d.readBuf[:n])
	decoder.fds = fds

	msg, err := decoder.DecodeMessage()
	if err != nil {
		return nil, err
	}

	msg.FDs = fds
	return msg, nil
}

// RecvMessage receives a message from the compositor, blocking if none is
// queued on the socket. Kept for Roundtrip/DispatchOne; the event loop
// itself uses PrepareRead/ReadEvents/DispatchPending/CancelRead instead.
func (d *Display) RecvMessage() (*Message, error) {
	return d.recvMessage(0)
}

// DispatchOne reads and dispatches a single event from the compositor.
func (d *Display) DispatchOne() error {
	msg, err := d.RecvMessage()
	if err != nil {
		if errors.Is(err, ErrNoMessage) {
			return nil
		}
		return err
	}

	return d.dispatch(msg)
}

// Dispatch reads and dispatches all pending events from the compositor.
func (d *Display) Dispatch() error {
	for {
		msg, err := d.recvMessage(unix.MSG_DONTWAIT)
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				return nil
			}
			return err
		}

		if err := d.dispatch(msg); err != nil {
			return err
		}
	}
}

// PrepareRead announces intent to read the wire for new events. It must be
// called before poll()-ing the display fd. If events are already queued
// from a prior ReadEvents that have not yet been handed to listeners via
// DispatchPending, it returns ErrEventsQueued — the caller must
// DispatchPending and call PrepareRead again. This is the atomic handoff
// that keeps socket polling from racing listener-driven queue mutation.
func (d *Display) PrepareRead() error {
	if len(d.pending) > 0 {
		return ErrEventsQueued
	}
	d.reading = true
	return nil
}

// CancelRead abandons a PrepareRead that will not be followed by ReadEvents
// (e.g. the poll timed out or the Wayland fd was not the one that woke up).
// A successful PrepareRead that is neither followed by ReadEvents nor
// cancelled leaves the read-intent flag set, so a later ReadEvents runs
// without a fresh PrepareRead. A refused PrepareRead sets nothing.
func (d *Display) CancelRead() {
	d.reading = false
}

// ReadEvents drains every message currently available on the wire into the
// pending queue without dispatching any of them. Call only after a
// successful PrepareRead, and only once poll has reported the display fd
// readable. Dispatch the drained messages with DispatchPending.
func (d *Display) ReadEvents() error {
	if !d.reading {
		return ErrReadNotPrepared
	}
	defer func() { d.reading = false }()

	for {
		msg, err := d.recvMessage(unix.MSG_DONTWAIT)
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				return nil
			}
			return err
		}
		d.pending = append(d.pending, msg)
	}
}

// DispatchPending hands every message queued by ReadEvents to its listener,
// in the order received. Messages appended to the queue while this runs are
// drained in turn; a nested Roundtrip from a listener dispatches what it
// reads directly and does not go through the queue.
func (d *Display) DispatchPending() error {
	for len(d.pending) > 0 {
		msg := d.pending[0]
		d.pending = d.pending[1:]
		if err := d.dispatch(msg); err != nil {
			return err
		}
	}
	return nil
}

// dispatch routes a message to the appropriate handler.
func (d *Display) dispatch(msg *Message) error {
	if msg.ObjectID == 1 {
		return d.dispatchDisplayEvent(msg)
	}

	if ch, ok := d.callbacks[msg.ObjectID]; ok && msg.Opcode == callbackEventDone {
		decoder := NewDecoder(msg.Args)
		data, err := decoder.Uint32()
		if err != nil {
			return err
		}

		delete(d.callbacks, msg.ObjectID)
		ch <- data
		close(ch)
		return nil
	}

	if disp, ok := d.dispatchers[msg.ObjectID]; ok {
		return disp.dispatch(msg)
	}

	if d.registry != nil && msg.ObjectID == d.registry.id {
		return d.registry.dispatch(msg)
	}

	// Unknown object - this is not necessarily an error; it may have been
	// destroyed and its ID recycled by the compositor already.
	return nil
}

// dispatchDisplayEvent handles wl_display events.
func (d *Display) dispatchDisplayEvent(msg *Message) error {
	switch msg.Opcode {
	case displayEventError:
		return d.handleError(msg)

	case displayEventDeleteID:
		return d.handleDeleteID(msg)

	default:
		return nil
	}
}

// handleError handles the wl_display.error event.
func (d *Display) handleError(msg *Message) error {
	decoder := NewDecoder(msg.Args)

	objectID, err := decoder.Object()
	if err != nil {
		return err
	}

	code, err := decoder.Uint32()
	if err != nil {
		return err
	}

	message, err := decoder.String()
	if err != nil {
		return err
	}

	if !d.protocolSeen {
		d.protocolSeen = true
		d.protocolError = fmt.Errorf("%w: object %d code %d: %s",
			ErrProtocolError, objectID, code, message)
	}

	if d.onError != nil {
		d.onError(objectID, code, message)
	}

	return d.protocolError
}

// handleDeleteID handles the wl_display.delete_id event.
func (d *Display) handleDeleteID(msg *Message) error {
	decoder := NewDecoder(msg.Args)

	id, err := decoder.Uint32()
	if err != nil {
		return err
	}

	d.deletedIDs = append(d.deletedIDs, ObjectID(id))
	d.UnregisterObject(ObjectID(id))

	return nil
}

// SetErrorHandler sets a callback for protocol errors.
func (d *Display) SetErrorHandler(handler func(objectID ObjectID, code uint32, message string)) {
	d.onError = handler
}

// GetProtocolError returns any protocol error received from the compositor.
func (d *Display) GetProtocolError() error {
	return d.protocolError
}

// Flush sends any buffered data to the compositor.
// This is currently a no-op: SendMessage writes immediately.
func (d *Display) Flush() error {
	return nil
}

// DisplayID returns the object ID of the display (always 1).
func (d *Display) DisplayID() ObjectID {
	return 1
}

// Fd returns the file descriptor of the socket connection, for use with poll.
func (d *Display) Fd() int {
	if d.connFile == nil {
		return -1
	}
	return int(d.connFile.Fd())
}

// parseFileDescriptors extracts file descriptors from socket control messages.
func parseFileDescriptors(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}

	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("wayland: parse control message failed: %w", err)
	}

	var fds []int
	for _, scm := range scms {
		if scm.Header.Level != unix.SOL_SOCKET || scm.Header.Type != unix.SCM_RIGHTS {
			continue
		}
		gotFDs, err := unix.ParseUnixRights(&scm)
		if err != nil {
			return nil, fmt.Errorf("wayland: parse unix rights failed: %w", err)
		}
		fds = append(fds, gotFDs...)
	}

	return fds, nil
}
