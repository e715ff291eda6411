package helper

import (
	"golang.org/x/sys/unix"

	"github.com/rs/zerolog/log"

	"github.com/OShane-McKenzie/waylandhelper/internal/ipc"
	"github.com/OShane-McKenzie/waylandhelper/internal/wayland"
	"github.com/OShane-McKenzie/waylandhelper/internal/xkb"
)

var _ keymapState = (*xkb.State)(nil)

// wirePointer installs the pointer event translator (§4.C "Pointer").
// Axis, frame, axis-source, axis-stop, and axis-discrete handlers are
// deliberately left unset: those events are decoded off the wire by
// WlPointer to keep its frame grouping intact but are never forwarded.
func (s *Session) wirePointer() {
	p := s.pointer

	p.SetEnterHandler(func(ev *wayland.PointerEnterEvent) {
		s.lastPtrX, s.lastPtrY = float32(ev.SurfaceX), float32(ev.SurfaceY)
		s.emitPtrEvent(&ipc.PtrEvent{Subtype: ipc.PtrEnter, X: s.lastPtrX, Y: s.lastPtrY})
	})

	p.SetLeaveHandler(func(ev *wayland.PointerLeaveEvent) {
		// Open question (spec §9): LEAVE carries zeros, not the last-known
		// position. Preserved deliberately for wire compatibility.
		s.emitPtrEvent(&ipc.PtrEvent{Subtype: ipc.PtrLeave, X: 0, Y: 0})
	})

	p.SetMotionHandler(func(ev *wayland.PointerMotionEvent) {
		s.lastPtrX, s.lastPtrY = float32(ev.SurfaceX), float32(ev.SurfaceY)
		s.emitPtrEvent(&ipc.PtrEvent{Subtype: ipc.PtrMotion, X: s.lastPtrX, Y: s.lastPtrY})
	})

	p.SetButtonHandler(func(ev *wayland.PointerButtonEvent) {
		// wl_pointer.button carries no coordinates; the last motion
		// position is cached for exactly this purpose.
		s.emitPtrEvent(&ipc.PtrEvent{
			Subtype:    ipc.PtrButton,
			X:          s.lastPtrX,
			Y:          s.lastPtrY,
			Button:     ev.Button,
			PressState: ev.State,
		})
	})
}

func (s *Session) emitPtrEvent(ev *ipc.PtrEvent) {
	if err := s.send(ipc.TypePtrEvent, ev.Encode()); err != nil {
		log.Error().Err(err).Msg("failed to forward pointer event")
	}
}

// wireKeyboard installs the keyboard event translator (§4.C "Keyboard").
func (s *Session) wireKeyboard() {
	k := s.keyboard

	k.SetKeymapHandler(func(ev *wayland.KeyboardKeymapEvent) {
		defer unix.Close(ev.FD)

		if ev.Format != wayland.KeyboardKeymapFormatXKBV1 {
			_ = s.reportFailure(newError(KeymapFormatUnsupported, "", nil))
			return
		}

		state, err := xkb.NewStateFromFD(ev.FD, ev.Size)
		if err != nil {
			log.Error().Err(err).Msg("keymap compilation failed")
			return
		}

		// A new keymap discards any prior compiled state wholesale.
		if s.xkbState != nil {
			s.xkbState.Close()
		}
		s.xkbState = state
	})

	k.SetModifiersHandler(s.applyModifiers)
	k.SetKeyHandler(s.emitKeyEvent)

	k.SetRepeatInfoHandler(func(info *wayland.KeyboardRepeatInfo) {
		log.Debug().Int32("rate", info.Rate).Int32("delay", info.Delay).Msg("keyboard repeat_info")
	})
}

// applyModifiers feeds a wl_keyboard.modifiers event into the compiled
// keymap state. A no-op before the first keymap arrives.
func (s *Session) applyModifiers(ev *wayland.KeyboardModifiersEvent) {
	if s.xkbState != nil {
		s.xkbState.UpdateMask(ev.ModsDepressed, ev.ModsLatched, ev.ModsLocked, ev.Group)
	}
}

// emitKeyEvent resolves a wl_keyboard.key event's keysym and effective
// modifier mask through the compiled keymap state (Testable Property #6)
// and forwards it as a KEY_EVENT. Dropped entirely before any keymap has
// arrived, since there is nothing yet to resolve the keysym against.
func (s *Session) emitKeyEvent(ev *wayland.KeyboardKeyEvent) {
	if s.xkbState == nil {
		return
	}
	keyEvent := &ipc.KeyEvent{
		EvdevCode:  ev.Key,
		PressState: ev.State,
		Modifiers:  s.xkbState.Modifiers(),
		Keysym:     s.xkbState.Keysym(ev.Key),
	}
	if err := s.send(ipc.TypeKeyEvent, keyEvent.Encode()); err != nil {
		log.Error().Err(err).Msg("failed to forward key event")
	}
}
