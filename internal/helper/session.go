package helper

import (
	"io"

	"github.com/rs/zerolog/log"

	"github.com/OShane-McKenzie/waylandhelper/internal/ipc"
	"github.com/OShane-McKenzie/waylandhelper/internal/wayland"
)

// keymapState is the compiled-keymap/modifier-state surface Session needs.
// *xkb.State satisfies it; tests substitute a fake so key translation and
// modifier mapping can be exercised without a compiled libxkbcommon keymap.
type keymapState interface {
	Close()
	UpdateMask(depressed, latched, locked, group uint32)
	Keysym(evdevCode uint32) uint32
	Modifiers() uint32
}

// sessionState is the surface session's lifecycle position.
type sessionState int

const (
	stateUnbound sessionState = iota
	stateBinding
	stateAwaitConfig
	stateLive
	stateResizePending
	stateTerminated
)

const bothHorizontal = wayland.LayerSurfaceAnchorLeft | wayland.LayerSurfaceAnchorRight
const bothVertical = wayland.LayerSurfaceAnchorTop | wayland.LayerSurfaceAnchorBottom

// Session is the singleton surface session: it owns every Wayland object,
// the frame buffer binding, and the input state for the one layer surface
// this process manages. It is driven exclusively from the event loop
// goroutine and holds no locks.
type Session struct {
	display *wayland.Display
	conn    io.Writer

	registry   *wayland.Registry
	compositor *wayland.WlCompositor
	shm        *wayland.WlShm
	layerShell *wayland.ZwlrLayerShellV1
	seat       *wayland.WlSeat
	outputID   wayland.ObjectID

	pointer  *wayland.WlPointer
	keyboard *wayland.WlKeyboard
	xkbState keymapState

	surface      *wayland.WlSurface
	layerSurface *wayland.ZwlrLayerSurfaceV1
	fb           *FrameBuffer

	state sessionState

	layer           uint32
	anchor          uint32
	exclusiveZone   int32
	kbInteractivity uint32
	namespace       string
	sharedPath      string
	width, height   uint32

	callbackPending bool
	readyQueue      []int64

	resizePending               bool
	pendingSerial                uint32
	pendingWidth, pendingHeight uint32

	lastPtrX, lastPtrY float32
}

// NewSession constructs a Session over an already-connected Wayland display
// and the client's control-socket connection, used to send every H→C
// message.
func NewSession(display *wayland.Display, conn io.Writer) *Session {
	return &Session{display: display, conn: conn, state: stateUnbound}
}

// State reports the session's current lifecycle position.
func (s *Session) State() sessionState { return s.state }

// send writes a typed message to the control socket.
func (s *Session) send(typ ipc.Type, payload []byte) error {
	if err := ipc.WriteMessage(s.conn, typ, payload); err != nil {
		return newError(SocketIO, typ.String(), err)
	}
	return nil
}

// fail classifies a failure, reports it, and returns it.
func (s *Session) fail(kind Kind, detail string, cause error) error {
	return s.reportFailure(newError(kind, detail, cause))
}

// reportFailure sends an ERROR message for fatal kinds (when the control
// socket is still usable) and logs non-fatal kinds, returning e either way
// so the caller can propagate it to the event loop.
func (s *Session) reportFailure(e *Error) error {
	if !e.Kind.Fatal() {
		log.Warn().Str("kind", string(e.Kind)).Msg(e.Error())
		return e
	}
	log.Error().Str("kind", string(e.Kind)).Msg(e.Error())
	if e.Kind == BadMagic || e.Kind == SocketIO {
		// The control socket itself is the thing that's broken; there is
		// nowhere to send an ERROR.
		return e
	}
	_ = ipc.WriteMessage(s.conn, ipc.TypeError, (&ipc.ErrorMsg{
		Code:    e.Code(),
		Message: e.Error(),
	}).Encode())
	return e
}

// BindGlobals binds the globals the helper requires and opportunistically
// binds an output and a seat. It performs the two roundtrips needed to
// receive global advertisement and, for the seat, its capabilities.
func (s *Session) BindGlobals() error {
	s.state = stateBinding

	registry, err := s.display.GetRegistry()
	if err != nil {
		return s.fail(WaylandConnect, "get_registry", err)
	}
	s.registry = registry

	if err := s.display.Roundtrip(); err != nil {
		return s.fail(WaylandConnect, "roundtrip", err)
	}

	for i, iface := range wayland.RequiredGlobals() {
		if !registry.HasGlobal(iface) {
			return s.reportFailure(&Error{Kind: MissingGlobal, Detail: iface, Index: i})
		}
	}

	compositorID, err := registry.BindCompositor(4)
	if err != nil {
		return s.fail(WaylandConnect, "bind wl_compositor", err)
	}
	s.compositor = wayland.NewWlCompositor(s.display, compositorID)

	shmID, err := registry.BindShm(1)
	if err != nil {
		return s.fail(WaylandConnect, "bind wl_shm", err)
	}
	s.shm = wayland.NewWlShm(s.display, shmID)

	layerShellID, err := registry.BindLayerShell(4)
	if err != nil {
		return s.fail(WaylandConnect, "bind zwlr_layer_shell_v1", err)
	}
	s.layerShell = wayland.NewZwlrLayerShellV1(s.display, layerShellID)

	if registry.HasGlobal(wayland.InterfaceWlOutput) {
		if outID, err := registry.BindOutput(clampVersion(registry.GlobalVersion(wayland.InterfaceWlOutput), 3)); err != nil {
			log.Warn().Err(err).Msg("bind wl_output failed, proceeding without it")
		} else {
			s.outputID = outID
		}
	}

	if registry.HasGlobal(wayland.InterfaceWlSeat) {
		if seatID, err := registry.BindSeat(clampVersion(registry.GlobalVersion(wayland.InterfaceWlSeat), 5)); err != nil {
			log.Warn().Err(err).Msg("bind wl_seat failed, proceeding without it")
		} else {
			s.seat = wayland.NewWlSeat(s.display, seatID, clampVersion(registry.GlobalVersion(wayland.InterfaceWlSeat), 5))
		}
	}

	// A second roundtrip delivers wl_shm's format advertisement and the
	// seat's capabilities/name, both needed before GetPointer/GetKeyboard.
	if err := s.display.Roundtrip(); err != nil {
		return s.fail(WaylandConnect, "roundtrip", err)
	}

	if s.seat != nil {
		if s.seat.HasPointer() {
			if ptr, err := s.seat.GetPointer(); err != nil {
				log.Warn().Err(err).Msg("get_pointer failed")
			} else {
				s.pointer = ptr
				s.wirePointer()
			}
		}
		if s.seat.HasKeyboard() {
			if kb, err := s.seat.GetKeyboard(); err != nil {
				log.Warn().Err(err).Msg("get_keyboard failed")
			} else {
				s.keyboard = kb
				s.wireKeyboard()
			}
		}
	}

	return nil
}

func clampVersion(available, max uint32) uint32 {
	if available > max {
		return max
	}
	return available
}

// HandleClientMessage dispatches one decoded IPC message from the client.
// It returns shutdown=true when the loop should exit cleanly.
func (s *Session) HandleClientMessage(msg *ipc.Message) (shutdown bool, err error) {
	switch msg.Type {
	case ipc.TypeConfigure:
		cfg, decErr := ipc.DecodeConfigure(msg.Payload)
		if decErr != nil {
			return false, s.fail(SocketIO, "decode CONFIGURE", decErr)
		}
		return false, s.handleConfigure(cfg)
	case ipc.TypeFrameReady:
		fr, decErr := ipc.DecodeFrameReady(msg.Payload)
		if decErr != nil {
			return false, s.fail(SocketIO, "decode FRAME_READY", decErr)
		}
		return false, s.handleFrameReady(fr)
	case ipc.TypeShutdown:
		return true, nil
	default:
		log.Warn().Stringer("type", msg.Type).Msg("unknown or unexpected IPC message type")
		return false, nil
	}
}

// handleConfigure implements the Binding → AwaitConfig → Live transition
// (§4.D "Configure").
func (s *Session) handleConfigure(cfg *ipc.Configure) error {
	s.layer = cfg.Layer
	s.anchor = cfg.Anchor
	s.exclusiveZone = cfg.ExclusiveZone
	s.kbInteractivity = cfg.KeyboardInteractivity
	s.namespace = cfg.Namespace
	s.sharedPath = cfg.SharedPath

	surface, err := s.compositor.CreateSurface()
	if err != nil {
		return s.fail(SurfaceCreate, "create_surface", err)
	}
	s.surface = surface

	layerSurface, err := s.layerShell.GetLayerSurface(surface, s.outputID, wayland.LayerShellLayer(cfg.Layer), cfg.Namespace)
	if err != nil {
		return s.fail(LayerSurfaceCreate, "get_layer_surface", err)
	}
	s.layerSurface = layerSurface
	layerSurface.SetConfigureHandler(s.onLayerConfigure)
	layerSurface.SetClosedHandler(s.onLayerClosed)

	if err := layerSurface.SetAnchor(cfg.Anchor); err != nil {
		return s.fail(LayerSurfaceCreate, "set_anchor", err)
	}
	if err := layerSurface.SetExclusiveZone(cfg.ExclusiveZone); err != nil {
		return s.fail(LayerSurfaceCreate, "set_exclusive_zone", err)
	}
	if err := layerSurface.SetKeyboardInteractivity(cfg.KeyboardInteractivity); err != nil {
		return s.fail(LayerSurfaceCreate, "set_keyboard_interactivity", err)
	}

	reqWidth, reqHeight := cfg.Width, cfg.Height
	if cfg.Anchor&bothHorizontal == bothHorizontal {
		reqWidth = 0
	}
	if cfg.Anchor&bothVertical == bothVertical {
		reqHeight = 0
	}
	if err := layerSurface.SetSize(reqWidth, reqHeight); err != nil {
		return s.fail(LayerSurfaceCreate, "set_size", err)
	}

	if err := surface.Commit(); err != nil {
		return s.fail(LayerSurfaceCreate, "initial commit", err)
	}

	s.state = stateAwaitConfig
	s.pendingSerial, s.pendingWidth, s.pendingHeight = 0, 0, 0
	if err := s.display.Roundtrip(); err != nil {
		return s.fail(ConfigureTimeout, "waiting for initial configure", err)
	}
	if !layerSurface.Configured() && s.pendingSerial == 0 {
		return s.fail(ConfigureTimeout, "no configure event received", nil)
	}

	finalWidth := s.pendingWidth
	if finalWidth == 0 {
		finalWidth = cfg.Width
	}
	finalHeight := s.pendingHeight
	if finalHeight == 0 {
		finalHeight = cfg.Height
	}

	if err := layerSurface.AckConfigure(s.pendingSerial); err != nil {
		return s.fail(SocketIO, "ack_configure", err)
	}

	fb, err := Open(s.shm, cfg.SharedPath, finalWidth, finalHeight)
	if err != nil {
		return s.reportFailure(err.(*Error))
	}
	fb.Blank()
	s.fb = fb
	s.width, s.height = finalWidth, finalHeight

	if err := surface.Attach(fb.Buffer().ID(), 0, 0); err != nil {
		return s.fail(SocketIO, "attach", err)
	}
	if err := surface.Damage(0, 0, int32(finalWidth), int32(finalHeight)); err != nil {
		return s.fail(SocketIO, "damage", err)
	}

	// The implicit first frame carries sequence 0; it is acknowledged by
	// the compositor's own frame callback, not by a client FRAME_READY.
	s.readyQueue = append(s.readyQueue, 0)
	cb, err := surface.Frame()
	if err != nil {
		return s.fail(SocketIO, "frame", err)
	}
	cb.SetDoneHandler(s.onFrameCallbackDone)
	s.callbackPending = true

	if err := surface.Commit(); err != nil {
		return s.fail(SocketIO, "commit", err)
	}
	_ = s.display.Flush()

	s.state = stateLive
	return s.send(ipc.TypeCfgAck, (&ipc.CfgAck{Width: finalWidth, Height: finalHeight}).Encode())
}

// onLayerConfigure handles every zwlr_layer_surface_v1.configure event. The
// initial one, awaited synchronously inside handleConfigure, is only
// stashed here; handleConfigure acks it.
func (s *Session) onLayerConfigure(serial uint32, width, height uint32) {
	if s.state == stateAwaitConfig {
		s.pendingSerial, s.pendingWidth, s.pendingHeight = serial, width, height
		return
	}

	newWidth, newHeight := width, height
	if newWidth == 0 {
		newWidth = s.width
	}
	if newHeight == 0 {
		newHeight = s.height
	}

	if newWidth == s.width && newHeight == s.height {
		// Same dimensions: ack and commit immediately, no buffer rebuild.
		if err := s.layerSurface.AckConfigure(serial); err != nil {
			_ = s.fail(SocketIO, "ack_configure", err)
			return
		}
		if err := s.surface.Commit(); err != nil {
			_ = s.fail(SocketIO, "commit", err)
		}
		return
	}

	// A resize must not be handled inline from within event dispatch; it
	// is stashed and applied at the top of the next loop iteration.
	s.resizePending = true
	s.pendingSerial = serial
	s.pendingWidth = newWidth
	s.pendingHeight = newHeight
	s.state = stateResizePending
}

func (s *Session) onLayerClosed() {
	s.state = stateTerminated
}

// Terminated reports whether a compositor-initiated close was observed.
func (s *Session) Terminated() bool {
	return s.state == stateTerminated
}

// ApplyPendingResize performs the rebuild a stashed resize requires. Called
// at the top of every event loop iteration (§4.E step 1).
func (s *Session) ApplyPendingResize() error {
	if !s.resizePending {
		return nil
	}
	s.resizePending = false

	if err := s.layerSurface.AckConfigure(s.pendingSerial); err != nil {
		return s.fail(SocketIO, "ack_configure", err)
	}

	old := s.fb
	fb, err := Open(s.shm, s.sharedPath, s.pendingWidth, s.pendingHeight)
	if err != nil {
		return s.reportFailure(err.(*Error))
	}
	old.Close()
	fb.Blank()
	s.fb = fb
	s.width, s.height = s.pendingWidth, s.pendingHeight

	if err := s.surface.Attach(fb.Buffer().ID(), 0, 0); err != nil {
		return s.fail(SocketIO, "attach", err)
	}
	if err := s.surface.Damage(0, 0, int32(s.width), int32(s.height)); err != nil {
		return s.fail(SocketIO, "damage", err)
	}

	if !s.callbackPending {
		cb, err := s.surface.Frame()
		if err != nil {
			return s.fail(SocketIO, "frame", err)
		}
		cb.SetDoneHandler(s.onFrameCallbackDone)
		s.callbackPending = true
	}

	if err := s.surface.Commit(); err != nil {
		return s.fail(SocketIO, "commit", err)
	}
	_ = s.display.Flush()

	s.state = stateLive
	return s.send(ipc.TypeResize, (&ipc.Resize{Width: s.width, Height: s.height}).Encode())
}

// handleFrameReady implements "Frame submission" (§4.D): the frame is
// queued and submitted immediately if no callback is currently pending.
func (s *Session) handleFrameReady(fr *ipc.FrameReady) error {
	if s.state != stateLive {
		log.Warn().Int64("seq", fr.Seq).Msg("FRAME_READY received outside Live state, ignoring")
		return nil
	}
	s.readyQueue = append(s.readyQueue, fr.Seq)
	return s.pumpFrameQueue()
}

func (s *Session) pumpFrameQueue() error {
	if s.callbackPending || len(s.readyQueue) == 0 {
		return nil
	}

	if err := s.surface.Attach(s.fb.Buffer().ID(), 0, 0); err != nil {
		return s.fail(SocketIO, "attach", err)
	}
	if err := s.surface.Damage(0, 0, int32(s.width), int32(s.height)); err != nil {
		return s.fail(SocketIO, "damage", err)
	}
	cb, err := s.surface.Frame()
	if err != nil {
		return s.fail(SocketIO, "frame", err)
	}
	cb.SetDoneHandler(s.onFrameCallbackDone)
	s.callbackPending = true

	if err := s.surface.Commit(); err != nil {
		return s.fail(SocketIO, "commit", err)
	}
	_ = s.display.Flush()
	return nil
}

// onFrameCallbackDone is the frame pacing token: the compositor's "done"
// event is the only permission the client has to write the shared mapping
// again, and it is forwarded as exactly one FRAME_DONE per queued
// FRAME_READY, in order.
func (s *Session) onFrameCallbackDone(_ uint32) {
	s.callbackPending = false
	if len(s.readyQueue) == 0 {
		return
	}
	seq := s.readyQueue[0]
	s.readyQueue = s.readyQueue[1:]
	if err := s.send(ipc.TypeFrameDone, (&ipc.FrameDone{Seq: seq}).Encode()); err != nil {
		return
	}
	_ = s.pumpFrameQueue()
}

// Close tears down, in reverse creation order, the frame buffer binding,
// the layer surface, the surface, the keymap state, the keyboard, the
// pointer and the layer shell. The wl_seat, wl_shm and wl_compositor
// bindings are not destroyed here; they go away with the connection.
func (s *Session) Close() {
	s.fb.Close()
	if s.layerSurface != nil {
		_ = s.layerSurface.Destroy()
	}
	if s.surface != nil {
		_ = s.surface.Destroy()
	}
	if s.xkbState != nil {
		s.xkbState.Close()
	}
	if s.keyboard != nil {
		_ = s.keyboard.Release()
	}
	if s.pointer != nil {
		_ = s.pointer.Release()
	}
	if s.layerShell != nil {
		_ = s.layerShell.Destroy()
	}
	_ = s.display.Flush()
}
