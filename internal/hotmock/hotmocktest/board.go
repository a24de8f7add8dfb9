// Package hotmocktest provides a loopback stand-in for a HOTMOCK board.
package hotmocktest

import (
	"bytes"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// Board accepts client connections on 127.0.0.1, records every byte it
// receives and, for connectors with a configured value, answers REQUEST
// commands the way the firmware does.
type Board struct {
	t  testing.TB
	ln net.Listener

	mu       sync.Mutex
	conn     net.Conn
	received bytes.Buffer
	values   map[string]string
	accepts  int
	silent   bool

	wg sync.WaitGroup
}

// NewBoard starts a board listening on an ephemeral port. It is closed
// automatically when the test ends.
func NewBoard(t testing.TB) *Board {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("hotmocktest: listen: %v", err)
	}

	b := &Board{
		t:      t,
		ln:     ln,
		values: make(map[string]string),
	}

	b.wg.Add(1)
	go b.acceptLoop()

	t.Cleanup(b.Close)
	return b
}

// Host returns the listening host.
func (b *Board) Host() string {
	return b.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening port.
func (b *Board) Port() int {
	return b.ln.Addr().(*net.TCPAddr).Port
}

// SetValue makes the board answer REQUEST for connector (e.g. "AI03") with
// the given comma-separated values.
func (b *Board) SetValue(connector string, values ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[connector] = strings.Join(values, ",")
}

// SetSilent stops automatic answers, leaving requests unanswered.
func (b *Board) SetSilent(silent bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.silent = silent
}

// Send writes raw protocol bytes to the connected client.
func (b *Board) Send(data string) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return net.ErrClosed
	}
	_, err := conn.Write([]byte(data))
	return err
}

// Received returns everything received from clients so far.
func (b *Board) Received() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.received.String()
}

// Frames returns the received commands without their delimiters.
func (b *Board) Frames() []string {
	raw := b.Received()
	parts := strings.Split(raw, "&")
	return parts[:len(parts)-1]
}

// Accepts returns how many connections were accepted.
func (b *Board) Accepts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accepts
}

// WaitConnected blocks until a client is connected or the timeout expires.
func (b *Board) WaitConnected(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		connected := b.conn != nil
		b.mu.Unlock()
		if connected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// Drop closes the current client connection from the board side.
func (b *Board) Drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Close stops the board.
func (b *Board) Close() {
	b.ln.Close()
	b.Drop()
	b.wg.Wait()
}

func (b *Board) acceptLoop() {
	defer b.wg.Done()

	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}

		b.mu.Lock()
		if b.conn != nil {
			b.conn.Close()
		}
		b.conn = conn
		b.accepts++
		b.mu.Unlock()

		b.wg.Add(1)
		go b.serve(conn)
	}
}

func (b *Board) serve(conn net.Conn) {
	defer b.wg.Done()

	var pending []byte
	buf := make([]byte, 256)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			b.mu.Lock()
			b.received.Write(buf[:n])
			b.mu.Unlock()

			pending = append(pending, buf[:n]...)
			for {
				end := bytes.IndexByte(pending, '&')
				if end < 0 {
					break
				}
				b.answer(conn, string(pending[:end]))
				pending = pending[end+1:]
			}
		}
		if err != nil {
			return
		}
	}
}

func (b *Board) answer(conn net.Conn, command string) {
	fields := strings.Split(command, ",")
	if len(fields) < 2 || fields[0] != "REQUEST" {
		return
	}

	b.mu.Lock()
	value, ok := b.values[fields[1]]
	silent := b.silent
	b.mu.Unlock()

	if !ok || silent {
		return
	}
	conn.Write([]byte(fields[1] + "," + value + "&"))
}
