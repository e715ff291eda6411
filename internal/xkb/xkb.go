//go:build linux

// Package xkb compiles Wayland keymap descriptors and resolves keysyms and
// modifier state through libxkbcommon.
package xkb

/*
#cgo pkg-config: xkbcommon
#include <stdlib.h>
#include <xkbcommon/xkbcommon.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Modifier bits match the wire bitmask sent in KEY_EVENT: bit 0 Shift, bit
// 1 Ctrl, bit 2 Alt, bit 3 Super/Logo.
const (
	ModShift uint32 = 1 << 0
	ModCtrl  uint32 = 1 << 1
	ModAlt   uint32 = 1 << 2
	ModLogo  uint32 = 1 << 3
)

var (
	modNameCtrl  = []byte("Control\x00")
	modNameShift = []byte("Shift\x00")
	modNameAlt   = []byte("Mod1\x00")
	modNameLogo  = []byte("Mod4\x00")
)

// keycodeOffset is the fixed difference between a Wayland/evdev keycode and
// its xkb keycode, per the wl_keyboard protocol documentation.
const keycodeOffset = 8

// State holds a compiled keymap and its live modifier/group state. A State
// is replaced wholesale whenever the compositor sends a new keymap; it is
// not safe for concurrent use and is only ever touched from the helper's
// single event-loop goroutine.
type State struct {
	ctx    *C.struct_xkb_context
	keymap *C.struct_xkb_keymap
	state  *C.struct_xkb_state
}

// NewStateFromFD compiles an xkb-v1 text keymap from fd (as delivered by
// wl_keyboard.keymap) and returns a ready State. fd is memory-mapped
// read-only for the duration of compilation and unmapped before returning;
// the caller retains ownership of fd and must close it itself.
func NewStateFromFD(fd int, size uint32) (*State, error) {
	if size == 0 {
		return nil, errors.New("xkb: zero-length keymap")
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("xkb: mmap keymap: %w", err)
	}
	defer unix.Munmap(data)

	ctx := C.xkb_context_new(C.XKB_CONTEXT_NO_FLAGS)
	if ctx == nil {
		return nil, errors.New("xkb: xkb_context_new failed")
	}

	// size-1 drops the NUL terminator wl_keyboard.keymap's fd includes.
	keymap := C.xkb_keymap_new_from_buffer(
		ctx,
		(*C.char)(unsafe.Pointer(&data[0])),
		C.size_t(size-1),
		C.XKB_KEYMAP_FORMAT_TEXT_V1,
		C.XKB_KEYMAP_COMPILE_NO_FLAGS,
	)
	if keymap == nil {
		C.xkb_context_unref(ctx)
		return nil, errors.New("xkb: xkb_keymap_new_from_buffer failed")
	}

	state := C.xkb_state_new(keymap)
	if state == nil {
		C.xkb_keymap_unref(keymap)
		C.xkb_context_unref(ctx)
		return nil, errors.New("xkb: xkb_state_new failed")
	}

	return &State{ctx: ctx, keymap: keymap, state: state}, nil
}

// Close releases the underlying xkbcommon objects. Safe to call on a nil
// receiver or an already-closed State.
func (s *State) Close() {
	if s == nil {
		return
	}
	if s.state != nil {
		C.xkb_state_unref(s.state)
		s.state = nil
	}
	if s.keymap != nil {
		C.xkb_keymap_unref(s.keymap)
		s.keymap = nil
	}
	if s.ctx != nil {
		C.xkb_context_unref(s.ctx)
		s.ctx = nil
	}
}

// UpdateMask applies a wl_keyboard.modifiers event to the state.
func (s *State) UpdateMask(depressed, latched, locked, group uint32) {
	g := C.xkb_layout_index_t(group)
	C.xkb_state_update_mask(
		s.state,
		C.xkb_mod_mask_t(depressed),
		C.xkb_mod_mask_t(latched),
		C.xkb_mod_mask_t(locked),
		g, g, g,
	)
}

// Keysym resolves the xkb keysym currently bound to an evdev keycode under
// the state's active layout and group.
func (s *State) Keysym(evdevCode uint32) uint32 {
	sym := C.xkb_state_key_get_one_sym(s.state, C.xkb_keycode_t(evdevCode+keycodeOffset))
	return uint32(sym)
}

// Modifiers returns the effective Shift/Ctrl/Alt/Logo bitmask (see the Mod*
// constants) for the state's current modifier mask.
func (s *State) Modifiers() uint32 {
	var mods uint32
	if modNameActive(s.state, modNameShift) {
		mods |= ModShift
	}
	if modNameActive(s.state, modNameCtrl) {
		mods |= ModCtrl
	}
	if modNameActive(s.state, modNameAlt) {
		mods |= ModAlt
	}
	if modNameActive(s.state, modNameLogo) {
		mods |= ModLogo
	}
	return mods
}

func modNameActive(state *C.struct_xkb_state, name []byte) bool {
	return C.xkb_state_mod_name_is_active(
		state,
		(*C.char)(unsafe.Pointer(&name[0])),
		C.XKB_STATE_MODS_EFFECTIVE,
	) == 1
}
