package ipc

// PtrSubtype distinguishes the pointer event carried in a PTR_EVENT message.
type PtrSubtype uint32

const (
	PtrEnter  PtrSubtype = 0
	PtrLeave  PtrSubtype = 1
	PtrMotion PtrSubtype = 2
	PtrButton PtrSubtype = 3
)

// Configure is the CONFIGURE (C→H) payload: the client's requested layer
// surface parameters plus the shared pixel file it wants bound.
type Configure struct {
	Layer                 uint32
	Anchor                uint32
	ExclusiveZone         int32
	KeyboardInteractivity uint32
	Width                 uint32
	Height                uint32
	MarginTop             int32
	MarginRight           int32
	MarginBottom          int32
	MarginLeft            int32
	Namespace             string
	SharedPath            string
}

// Encode serializes c as a CONFIGURE payload.
func (c *Configure) Encode() []byte {
	e := newEncoder()
	e.putUint32(c.Layer)
	e.putUint32(c.Anchor)
	e.putInt32(c.ExclusiveZone)
	e.putUint32(c.KeyboardInteractivity)
	e.putUint32(c.Width)
	e.putUint32(c.Height)
	e.putInt32(c.MarginTop)
	e.putInt32(c.MarginRight)
	e.putInt32(c.MarginBottom)
	e.putInt32(c.MarginLeft)
	e.putString(c.Namespace)
	e.putString(c.SharedPath)
	return e.bytes()
}

// DecodeConfigure parses a CONFIGURE payload.
func DecodeConfigure(payload []byte) (*Configure, error) {
	d := newDecoder(payload)
	c := &Configure{}

	var err error
	if c.Layer, err = d.uint32(); err != nil {
		return nil, fmtErr("CONFIGURE", "layer", err)
	}
	if c.Anchor, err = d.uint32(); err != nil {
		return nil, fmtErr("CONFIGURE", "anchor", err)
	}
	if c.ExclusiveZone, err = d.int32(); err != nil {
		return nil, fmtErr("CONFIGURE", "exclusive_zone", err)
	}
	if c.KeyboardInteractivity, err = d.uint32(); err != nil {
		return nil, fmtErr("CONFIGURE", "keyboard_interactivity", err)
	}
	if c.Width, err = d.uint32(); err != nil {
		return nil, fmtErr("CONFIGURE", "width", err)
	}
	if c.Height, err = d.uint32(); err != nil {
		return nil, fmtErr("CONFIGURE", "height", err)
	}
	if c.MarginTop, err = d.int32(); err != nil {
		return nil, fmtErr("CONFIGURE", "margin_top", err)
	}
	if c.MarginRight, err = d.int32(); err != nil {
		return nil, fmtErr("CONFIGURE", "margin_right", err)
	}
	if c.MarginBottom, err = d.int32(); err != nil {
		return nil, fmtErr("CONFIGURE", "margin_bottom", err)
	}
	if c.MarginLeft, err = d.int32(); err != nil {
		return nil, fmtErr("CONFIGURE", "margin_left", err)
	}
	if c.Namespace, err = d.string(); err != nil {
		return nil, fmtErr("CONFIGURE", "namespace", err)
	}
	if c.SharedPath, err = d.string(); err != nil {
		return nil, fmtErr("CONFIGURE", "shared_path", err)
	}
	return c, nil
}

// CfgAck is the CFG_ACK (H→C) payload: the final size the surface was
// configured to.
type CfgAck struct {
	Width  uint32
	Height uint32
}

func (a *CfgAck) Encode() []byte {
	e := newEncoder()
	e.putUint32(a.Width)
	e.putUint32(a.Height)
	return e.bytes()
}

func DecodeCfgAck(payload []byte) (*CfgAck, error) {
	d := newDecoder(payload)
	a := &CfgAck{}
	var err error
	if a.Width, err = d.uint32(); err != nil {
		return nil, fmtErr("CFG_ACK", "width", err)
	}
	if a.Height, err = d.uint32(); err != nil {
		return nil, fmtErr("CFG_ACK", "height", err)
	}
	return a, nil
}

// FrameReady is the FRAME_READY (C→H) payload: the sequence number of the
// frame the client just finished writing into the shared buffer.
type FrameReady struct {
	Seq int64
}

func (f *FrameReady) Encode() []byte {
	e := newEncoder()
	e.putInt64(f.Seq)
	return e.bytes()
}

func DecodeFrameReady(payload []byte) (*FrameReady, error) {
	d := newDecoder(payload)
	f := &FrameReady{}
	var err error
	if f.Seq, err = d.int64(); err != nil {
		return nil, fmtErr("FRAME_READY", "seq", err)
	}
	return f, nil
}

// FrameDone is the FRAME_DONE (H→C) payload: the sequence number the
// compositor has finished presenting, and the client's permission to write
// the next frame.
type FrameDone struct {
	Seq int64
}

func (f *FrameDone) Encode() []byte {
	e := newEncoder()
	e.putInt64(f.Seq)
	return e.bytes()
}

func DecodeFrameDone(payload []byte) (*FrameDone, error) {
	d := newDecoder(payload)
	f := &FrameDone{}
	var err error
	if f.Seq, err = d.int64(); err != nil {
		return nil, fmtErr("FRAME_DONE", "seq", err)
	}
	return f, nil
}

// PtrEvent is the PTR_EVENT (H→C) payload. Field meaning depends on
// Subtype: ENTER/LEAVE/MOTION use X/Y only (Button and PressState are
// zero); BUTTON uses X/Y/Button/PressState.
type PtrEvent struct {
	Subtype    PtrSubtype
	X          float32
	Y          float32
	Button     uint32
	PressState uint32
}

func (p *PtrEvent) Encode() []byte {
	e := newEncoder()
	e.putUint32(uint32(p.Subtype))
	switch p.Subtype {
	case PtrButton:
		e.putUint32(uint32Bits(p.X))
		e.putUint32(uint32Bits(p.Y))
		e.putUint32(p.Button)
		e.putUint32(p.PressState)
	default:
		e.putUint32(uint32Bits(p.X))
		e.putUint32(uint32Bits(p.Y))
		e.putUint32(0)
	}
	return e.bytes()
}

func DecodePtrEvent(payload []byte) (*PtrEvent, error) {
	d := newDecoder(payload)
	p := &PtrEvent{}

	subtype, err := d.uint32()
	if err != nil {
		return nil, fmtErr("PTR_EVENT", "subtype", err)
	}
	p.Subtype = PtrSubtype(subtype)

	xBits, err := d.uint32()
	if err != nil {
		return nil, fmtErr("PTR_EVENT", "x", err)
	}
	p.X = floatFromBits(xBits)

	yBits, err := d.uint32()
	if err != nil {
		return nil, fmtErr("PTR_EVENT", "y", err)
	}
	p.Y = floatFromBits(yBits)

	switch p.Subtype {
	case PtrButton:
		if p.Button, err = d.uint32(); err != nil {
			return nil, fmtErr("PTR_EVENT", "button", err)
		}
		if p.PressState, err = d.uint32(); err != nil {
			return nil, fmtErr("PTR_EVENT", "press_state", err)
		}
	default:
		if _, err := d.uint32(); err != nil {
			return nil, fmtErr("PTR_EVENT", "padding", err)
		}
	}
	return p, nil
}

// KeyEvent is the KEY_EVENT (H→C) payload.
type KeyEvent struct {
	EvdevCode  uint32
	PressState uint32 // 0=released, 1=pressed, 2=repeat
	Modifiers  uint32 // bit 0 Shift, bit 1 Ctrl, bit 2 Alt, bit 3 Super/Logo
	Keysym     uint32
}

func (k *KeyEvent) Encode() []byte {
	e := newEncoder()
	e.putUint32(k.EvdevCode)
	e.putUint32(k.PressState)
	e.putUint32(k.Modifiers)
	e.putUint32(k.Keysym)
	return e.bytes()
}

func DecodeKeyEvent(payload []byte) (*KeyEvent, error) {
	d := newDecoder(payload)
	k := &KeyEvent{}
	var err error
	if k.EvdevCode, err = d.uint32(); err != nil {
		return nil, fmtErr("KEY_EVENT", "evdev_code", err)
	}
	if k.PressState, err = d.uint32(); err != nil {
		return nil, fmtErr("KEY_EVENT", "press_state", err)
	}
	if k.Modifiers, err = d.uint32(); err != nil {
		return nil, fmtErr("KEY_EVENT", "modifiers", err)
	}
	if k.Keysym, err = d.uint32(); err != nil {
		return nil, fmtErr("KEY_EVENT", "keysym", err)
	}
	return k, nil
}

// Resize is the RESIZE (H→C) payload: the dimensions the client must
// reallocate its shared buffer to before the next FRAME_READY.
type Resize struct {
	Width  uint32
	Height uint32
}

func (r *Resize) Encode() []byte {
	e := newEncoder()
	e.putUint32(r.Width)
	e.putUint32(r.Height)
	return e.bytes()
}

func DecodeResize(payload []byte) (*Resize, error) {
	d := newDecoder(payload)
	r := &Resize{}
	var err error
	if r.Width, err = d.uint32(); err != nil {
		return nil, fmtErr("RESIZE", "width", err)
	}
	if r.Height, err = d.uint32(); err != nil {
		return nil, fmtErr("RESIZE", "height", err)
	}
	return r, nil
}

// ErrorMsg is the ERROR (H→C) payload sent immediately before the helper
// tears down a fatal session.
type ErrorMsg struct {
	Code    uint32
	Message string
}

func (e *ErrorMsg) Encode() []byte {
	enc := newEncoder()
	enc.putUint32(e.Code)
	enc.putString(e.Message)
	return enc.bytes()
}

func DecodeError(payload []byte) (*ErrorMsg, error) {
	d := newDecoder(payload)
	m := &ErrorMsg{}
	var err error
	if m.Code, err = d.uint32(); err != nil {
		return nil, fmtErr("ERROR", "code", err)
	}
	if m.Message, err = d.string(); err != nil {
		return nil, fmtErr("ERROR", "message", err)
	}
	return m, nil
}
