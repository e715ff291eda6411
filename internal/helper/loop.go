package helper

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/rs/zerolog/log"

	"github.com/OShane-McKenzie/waylandhelper/internal/ipc"
	"github.com/OShane-McKenzie/waylandhelper/internal/wayland"
)

// pollTimeoutMillis is a liveness heartbeat only; a timeout is never an
// error (§4.E step 5).
const pollTimeoutMillis = 5000

// Loop is the race-free event loop (§4.E): it multiplexes the Wayland
// display's fd and the client control socket's fd with the Wayland
// library's prepare-read / read-events / dispatch-pending idiom, so a
// listener callback firing mid-dispatch can never race a concurrent read
// off the wire.
type Loop struct {
	display *wayland.Display
	ctrlFD  int
	conn    *rawConn
	session *Session
}

// NewLoop builds a Loop over an already-bound display and an already
// connected control-socket descriptor.
func NewLoop(display *wayland.Display, ctrlFD int) *Loop {
	conn := &rawConn{fd: ctrlFD}
	return &Loop{
		display: display,
		ctrlFD:  ctrlFD,
		conn:    conn,
		session: NewSession(display, conn),
	}
}

// Session returns the loop's session, so a caller can bind globals on it
// before entering Run.
func (l *Loop) Session() *Session {
	return l.session
}

// Run drives the event loop until a clean shutdown (SHUTDOWN message or a
// closed-surface event) or a fatal error.
func (l *Loop) Run() error {
	defer l.session.Close()
	defer unix.Close(l.ctrlFD)

	for {
		if err := l.session.ApplyPendingResize(); err != nil {
			return err
		}
		if l.session.Terminated() {
			return nil
		}

		if err := l.prepareRead(); err != nil {
			return err
		}

		// Flush is currently a no-op (SendMessage writes immediately) but
		// is called here so a future buffered Flush implementation slots
		// into the loop without changing this call site.
		if err := l.display.Flush(); err != nil {
			l.display.CancelRead()
			return l.session.fail(SocketIO, "flush", err)
		}

		pfds := []unix.PollFd{
			{Fd: int32(l.display.Fd()), Events: unix.POLLIN},
			{Fd: int32(l.ctrlFD), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pfds, pollTimeoutMillis)
		if err != nil {
			l.display.CancelRead()
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return l.session.fail(SocketIO, "poll", err)
		}
		if n == 0 {
			l.display.CancelRead()
			continue
		}

		if pfds[0].Revents&unix.POLLIN != 0 {
			if err := l.display.ReadEvents(); err != nil {
				return l.session.fail(SocketIO, "read_events", err)
			}
			if err := l.display.DispatchPending(); err != nil {
				return err
			}
		} else {
			l.display.CancelRead()
		}

		if l.session.Terminated() {
			return nil
		}

		if pfds[1].Revents&(unix.POLLIN|unix.POLLHUP) != 0 {
			shutdown, err := l.dispatchControlMessage()
			if err != nil {
				return err
			}
			if shutdown {
				return nil
			}
		}

		if l.session.Terminated() {
			return nil
		}
	}
}

// prepareRead implements the "while it refuses, drain and retry" handoff
// (§4.E step 2): PrepareRead fails with ErrEventsQueued while undispatched
// events remain, so dispatching and retrying is the only way to reach the
// locked-for-read state atomically.
func (l *Loop) prepareRead() error {
	for {
		err := l.display.PrepareRead()
		if err == nil {
			return nil
		}
		if !errors.Is(err, wayland.ErrEventsQueued) {
			return l.session.fail(SocketIO, "prepare_read", err)
		}
		if derr := l.display.DispatchPending(); derr != nil {
			return derr
		}
	}
}

func (l *Loop) dispatchControlMessage() (shutdown bool, err error) {
	msg, err := ipc.ReadMessage(l.conn)
	if err != nil {
		if errors.Is(err, ipc.ErrBadMagic) {
			return false, l.session.fail(BadMagic, "", err)
		}
		return false, l.session.fail(SocketIO, "read control message", err)
	}

	shutdown, err = l.session.HandleClientMessage(msg)
	if err != nil {
		return false, err
	}
	if shutdown {
		log.Info().Msg("SHUTDOWN received, exiting cleanly")
	}
	return shutdown, nil
}
