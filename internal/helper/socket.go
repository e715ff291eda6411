package helper

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// rawConn adapts a raw Unix domain socket descriptor to io.Reader/io.Writer
// so the ipc package's framing functions can use it directly. The event
// loop polls the same descriptor with golang.org/x/sys/unix.Poll, so reads
// and writes stay at the syscall layer rather than going through net.Conn's
// own internal poller.
type rawConn struct {
	fd int
}

func (c *rawConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (c *rawConn) Write(p []byte) (int, error) {
	return unix.Write(c.fd, p)
}

// DialControlSocket connects to the client's listening control socket at
// path, retrying up to attempts times at the given interval (spec: 10
// attempts at 100ms). The client must already be listening; the helper is
// always the connecting side.
func DialControlSocket(path string, attempts int, interval time.Duration) (int, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		if err != nil {
			return -1, fmt.Errorf("helper: socket: %w", err)
		}

		addr := &unix.SockaddrUnix{Name: path}
		if err := unix.Connect(fd, addr); err != nil {
			unix.Close(fd)
			lastErr = err
			time.Sleep(interval)
			continue
		}
		return fd, nil
	}
	return -1, fmt.Errorf("helper: connect to %s after %d attempts: %w", path, attempts, lastErr)
}
