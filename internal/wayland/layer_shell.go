//go:build linux

package wayland

import "fmt"

// zwlr_layer_shell_v1 layer values. A surface's layer picks its stacking
// band relative to normal toplevels; it does not by itself grant input.
type LayerShellLayer uint32

const (
	LayerShellLayerBackground LayerShellLayer = 0
	LayerShellLayerBottom     LayerShellLayer = 1
	LayerShellLayerTop        LayerShellLayer = 2
	LayerShellLayerOverlay    LayerShellLayer = 3
)

// zwlr_layer_surface_v1 anchor bitmask. Anchoring all four edges stretches
// the surface to fill the output in that dimension.
const (
	LayerSurfaceAnchorTop    uint32 = 1
	LayerSurfaceAnchorBottom uint32 = 2
	LayerSurfaceAnchorLeft   uint32 = 4
	LayerSurfaceAnchorRight  uint32 = 8
)

// zwlr_layer_surface_v1 keyboard_interactivity values.
const (
	LayerSurfaceKeyboardInteractivityNone     uint32 = 0
	LayerSurfaceKeyboardInteractivityExclusive uint32 = 1
	LayerSurfaceKeyboardInteractivityOnDemand uint32 = 2
)

// zwlr_layer_shell_v1 opcodes (requests).
const (
	layerShellGetLayerSurface Opcode = 0 // get_layer_surface(id: new_id, surface: object, output: object, layer: uint, namespace: string)
	layerShellDestroy         Opcode = 1 // destroy()
)

// zwlr_layer_surface_v1 opcodes (requests).
const (
	layerSurfaceSetSize                Opcode = 0 // set_size(width: uint, height: uint)
	layerSurfaceSetAnchor              Opcode = 1 // set_anchor(anchor: uint)
	layerSurfaceSetExclusiveZone       Opcode = 2 // set_exclusive_zone(zone: int)
	layerSurfaceSetMargin              Opcode = 3 // set_margin(top, right, bottom, left: int)
	layerSurfaceSetKeyboardInteractivity Opcode = 4 // set_keyboard_interactivity(keyboard_interactivity: uint)
	layerSurfaceGetPopup               Opcode = 5 // get_popup(popup: object<xdg_popup>)
	layerSurfaceAckConfigure           Opcode = 6 // ack_configure(serial: uint)
	layerSurfaceDestroy                Opcode = 7 // destroy()
	layerSurfaceSetLayer               Opcode = 8 // set_layer(layer: uint) [v2+]
)

// zwlr_layer_surface_v1 event opcodes.
const (
	layerSurfaceEventConfigure Opcode = 0 // configure(serial: uint, width: uint, height: uint)
	layerSurfaceEventClosed    Opcode = 1 // closed()
)

// ZwlrLayerShellV1 represents the zwlr_layer_shell_v1 global. It is the
// factory the helper uses to give its one wl_surface a layer-shell role.
type ZwlrLayerShellV1 struct {
	display *Display
	id      ObjectID
}

// NewZwlrLayerShellV1 creates a ZwlrLayerShellV1 from a bound object ID.
// The objectID should be obtained from Registry.BindLayerShell().
func NewZwlrLayerShellV1(display *Display, objectID ObjectID) *ZwlrLayerShellV1 {
	return &ZwlrLayerShellV1{
		display: display,
		id:      objectID,
	}
}

// ID returns the object ID of the layer shell global.
func (l *ZwlrLayerShellV1) ID() ObjectID {
	return l.id
}

// GetLayerSurface assigns the layer-shell role to surface, anchored to the
// given output (pass 0 to let the compositor pick one) on the given layer.
// namespace identifies the client for compositor-side policy and debugging.
func (l *ZwlrLayerShellV1) GetLayerSurface(surface *WlSurface, output ObjectID, layer LayerShellLayer, namespace string) (*ZwlrLayerSurfaceV1, error) {
	layerSurfaceID := l.display.AllocID()

	builder := NewMessageBuilder()
	builder.PutNewID(layerSurfaceID)
	builder.PutObject(surface.ID())
	builder.PutObject(output)
	builder.PutUint32(uint32(layer))
	builder.PutString(namespace)
	msg := builder.BuildMessage(l.id, layerShellGetLayerSurface)

	if err := l.display.SendMessage(msg); err != nil {
		return nil, err
	}

	layerSurface := newZwlrLayerSurfaceV1(l.display, layerSurfaceID)
	l.display.RegisterObject(layerSurfaceID, layerSurface)
	return layerSurface, nil
}

// Destroy destroys the layer shell global binding. Layer surfaces created
// from it remain valid.
func (l *ZwlrLayerShellV1) Destroy() error {
	builder := NewMessageBuilder()
	msg := builder.BuildMessage(l.id, layerShellDestroy)

	if err := l.display.SendMessage(msg); err != nil {
		return err
	}
	l.display.UnregisterObject(l.id)
	return nil
}

// ZwlrLayerSurfaceV1 represents the zwlr_layer_surface_v1 interface: a
// wl_surface given layer-shell placement, sizing, and exclusivity
// semantics. Mirrors the request/configure/ack_configure/serial pattern
// xdg_surface uses, minus the XDG window-management extras this protocol
// has no use for.
type ZwlrLayerSurfaceV1 struct {
	display *Display
	id      ObjectID

	pendingSerial uint32
	configured    bool

	onConfigure func(serial uint32, width, height uint32)
	onClosed    func()
}

// newZwlrLayerSurfaceV1 creates a ZwlrLayerSurfaceV1 from an object ID.
func newZwlrLayerSurfaceV1(display *Display, objectID ObjectID) *ZwlrLayerSurfaceV1 {
	return &ZwlrLayerSurfaceV1{
		display: display,
		id:      objectID,
	}
}

// ID returns the object ID of the layer surface.
func (s *ZwlrLayerSurfaceV1) ID() ObjectID {
	return s.id
}

// Configured reports whether the first configure event has been received
// and acknowledged. The surface state machine must not commit a buffer
// before this is true.
func (s *ZwlrLayerSurfaceV1) Configured() bool {
	return s.configured
}

// SetSize requests the surface's logical size. 0 in either dimension asks
// the compositor to pick that dimension (typically because the surface is
// anchored to opposite edges).
func (s *ZwlrLayerSurfaceV1) SetSize(width, height uint32) error {
	builder := NewMessageBuilder()
	builder.PutUint32(width)
	builder.PutUint32(height)
	msg := builder.BuildMessage(s.id, layerSurfaceSetSize)

	return s.display.SendMessage(msg)
}

// SetAnchor sets which output edges the surface is anchored to.
func (s *ZwlrLayerSurfaceV1) SetAnchor(anchor uint32) error {
	builder := NewMessageBuilder()
	builder.PutUint32(anchor)
	msg := builder.BuildMessage(s.id, layerSurfaceSetAnchor)

	return s.display.SendMessage(msg)
}

// SetExclusiveZone reserves space along the anchored edge so other
// surfaces (and the compositor's own reserved regions) don't overlap it.
// Pass -1 to request the surface be exempted from other surfaces'
// exclusive zones entirely.
func (s *ZwlrLayerSurfaceV1) SetExclusiveZone(zone int32) error {
	builder := NewMessageBuilder()
	builder.PutInt32(zone)
	msg := builder.BuildMessage(s.id, layerSurfaceSetExclusiveZone)

	return s.display.SendMessage(msg)
}

// SetMargin sets the distance from the anchored edges, in surface-local
// coordinates. Only margins on edges the surface is anchored to apply.
func (s *ZwlrLayerSurfaceV1) SetMargin(top, right, bottom, left int32) error {
	builder := NewMessageBuilder()
	builder.PutInt32(top)
	builder.PutInt32(right)
	builder.PutInt32(bottom)
	builder.PutInt32(left)
	msg := builder.BuildMessage(s.id, layerSurfaceSetMargin)

	return s.display.SendMessage(msg)
}

// SetKeyboardInteractivity controls whether and how the surface can
// receive keyboard focus.
func (s *ZwlrLayerSurfaceV1) SetKeyboardInteractivity(interactivity uint32) error {
	builder := NewMessageBuilder()
	builder.PutUint32(interactivity)
	msg := builder.BuildMessage(s.id, layerSurfaceSetKeyboardInteractivity)

	return s.display.SendMessage(msg)
}

// SetLayer moves the surface to a different stacking layer (v2+).
func (s *ZwlrLayerSurfaceV1) SetLayer(layer LayerShellLayer) error {
	builder := NewMessageBuilder()
	builder.PutUint32(uint32(layer))
	msg := builder.BuildMessage(s.id, layerSurfaceSetLayer)

	return s.display.SendMessage(msg)
}

// AckConfigure acknowledges a configure event by serial. Must be called,
// with the serial from the most recent configure, before or in the same
// commit as the first buffer attach.
func (s *ZwlrLayerSurfaceV1) AckConfigure(serial uint32) error {
	builder := NewMessageBuilder()
	builder.PutUint32(serial)
	msg := builder.BuildMessage(s.id, layerSurfaceAckConfigure)

	if err := s.display.SendMessage(msg); err != nil {
		return err
	}

	if serial == s.pendingSerial {
		s.configured = true
	}
	return nil
}

// Destroy destroys the layer surface. The underlying wl_surface is
// unaffected and must be destroyed separately.
func (s *ZwlrLayerSurfaceV1) Destroy() error {
	builder := NewMessageBuilder()
	msg := builder.BuildMessage(s.id, layerSurfaceDestroy)

	if err := s.display.SendMessage(msg); err != nil {
		return err
	}
	s.display.UnregisterObject(s.id)
	return nil
}

// SetConfigureHandler sets the callback invoked on every configure event.
// width/height are 0 when the compositor leaves the corresponding
// dimension up to the client.
func (s *ZwlrLayerSurfaceV1) SetConfigureHandler(handler func(serial uint32, width, height uint32)) {
	s.onConfigure = handler
}

// SetClosedHandler sets the callback invoked when the compositor asks the
// client to destroy the surface (output removed, layer shell policy,
// compositor shutting down).
func (s *ZwlrLayerSurfaceV1) SetClosedHandler(handler func()) {
	s.onClosed = handler
}

// dispatch handles zwlr_layer_surface_v1 events.
func (s *ZwlrLayerSurfaceV1) dispatch(msg *Message) error {
	switch msg.Opcode {
	case layerSurfaceEventConfigure:
		return s.handleConfigure(msg)
	case layerSurfaceEventClosed:
		return s.handleClosed(msg)
	default:
		return nil
	}
}

func (s *ZwlrLayerSurfaceV1) handleConfigure(msg *Message) error {
	decoder := NewDecoder(msg.Args)

	serial, err := decoder.Uint32()
	if err != nil {
		return fmt.Errorf("wayland: zwlr_layer_surface_v1.configure: failed to decode serial: %w", err)
	}

	width, err := decoder.Uint32()
	if err != nil {
		return fmt.Errorf("wayland: zwlr_layer_surface_v1.configure: failed to decode width: %w", err)
	}

	height, err := decoder.Uint32()
	if err != nil {
		return fmt.Errorf("wayland: zwlr_layer_surface_v1.configure: failed to decode height: %w", err)
	}

	s.pendingSerial = serial

	if s.onConfigure != nil {
		s.onConfigure(serial, width, height)
	}

	return nil
}

func (s *ZwlrLayerSurfaceV1) handleClosed(msg *Message) error {
	_ = msg // closed event has no arguments

	if s.onClosed != nil {
		s.onClosed()
	}

	return nil
}
