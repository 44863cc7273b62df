package tentacle

import (
	"fmt"
	"net"
)

// assignPort binds a throwaway TCP socket to 127.0.0.1:0, reads back
// the port the kernel assigned, and closes the socket. There is an
// inherent TOCTOU window before the started service rebinds the same
// port; this is accepted rather than retried (see Design Notes).
func assignPort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("tentacle: assign port: %w", err)
	}
	defer l.Close()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("tentacle: assign port: unexpected listener address type %T", l.Addr())
	}
	return addr.Port, nil
}
