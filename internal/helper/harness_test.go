package helper

import (
	"io"
	"net"
	"path/filepath"
	"testing"

	"github.com/OShane-McKenzie/waylandhelper/internal/wayland"
)

// newTestDisplay gives a test a *wayland.Display whose writes actually
// succeed, without simulating the compositor's side of the protocol. A
// background goroutine accepts the one connection and discards everything
// written to it, so SendMessage never blocks or errors. Nothing is ever
// read back, so this cannot stand in for a test that needs a real reply
// (configure events, format advertisement): those are injected directly by
// calling the relevant unexported handler instead.
func newTestDisplay(t *testing.T) *wayland.Display {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "test.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
		_, _ = io.Copy(io.Discard, conn)
	}()

	display, err := wayland.ConnectTo(sockPath)
	if err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	t.Cleanup(func() {
		_ = display.Close()
		if conn, ok := <-accepted; ok && conn != nil {
			_ = conn.Close()
		}
	})
	return display
}

// newLiveSession builds a Session whose surface and layer surface are real
// objects bound over a drained test display, and whose frame buffer is a
// minimal stand-in with no backing shared memory. It is positioned exactly
// as handleConfigure leaves one on entry to stateLive, which is as far as
// any test needs to go without faking the compositor's half of the
// handshake.
func newLiveSession(t *testing.T, width, height uint32) (*Session, *testConn) {
	t.Helper()

	display := newTestDisplay(t)
	compositor := wayland.NewWlCompositor(display, display.AllocID())
	layerShell := wayland.NewZwlrLayerShellV1(display, display.AllocID())

	surface, err := compositor.CreateSurface()
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	layerSurface, err := layerShell.GetLayerSurface(surface, wayland.ObjectID(0), wayland.LayerShellLayerTop, "test")
	if err != nil {
		t.Fatalf("GetLayerSurface: %v", err)
	}

	fb := &FrameBuffer{
		fd:     -1,
		width:  width,
		height: height,
		data:   make([]byte, int(width)*int(height)*bytesPerPixel),
		buffer: wayland.NewWlBuffer(display, display.AllocID()),
	}

	conn := &testConn{}
	s := &Session{
		display:      display,
		conn:         conn,
		compositor:   compositor,
		layerShell:   layerShell,
		surface:      surface,
		layerSurface: layerSurface,
		fb:           fb,
		width:        width,
		height:       height,
		state:        stateLive,
	}
	return s, conn
}

// testConn is an io.Writer standing in for the client control-socket
// connection, capturing every H→C message written through Session.send.
type testConn struct {
	buf []byte
}

func (c *testConn) Write(p []byte) (int, error) {
	c.buf = append(c.buf, p...)
	return len(p), nil
}
