package hotmock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// recvBufferSize is the scratch size of a single receive call.
const recvBufferSize = 256

// ConnState is the state of the board connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Options tunes the transport of a Client.
type Options struct {
	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration
	// PollWindow is how long a receive waits for bytes before reporting
	// "no data". Keep it far below the cycle period.
	PollWindow time.Duration
	// WriteTimeout bounds a single command write.
	WriteTimeout time.Duration
}

// DefaultOptions returns the transport settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		DialTimeout:  3 * time.Second,
		PollWindow:   time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
	}
}

// SendResult describes the outcome of a command that passed validation.
type SendResult struct {
	// Bytes is the number of bytes written.
	Bytes int
	// Suppressed is set when a REQUEST was skipped because the previous one
	// for the same connector is still unanswered. Nothing was written.
	Suppressed bool
}

// Client talks to one HOTMOCK board.
//
// A Client is driven by a single control loop: commands for a cycle are sent
// first, then PollAndReceive is called once, then the decoded values are read.
// It performs no locking and must not be used from several goroutines.
type Client struct {
	opts   Options
	logger *zap.Logger
	dial   func(ctx context.Context, network, address string) (net.Conn, error)

	state     ConnState
	sessionID uuid.UUID
	address   string
	conn      net.Conn
	layout    Layout

	decoder Decoder
	scratch [recvBufferSize]byte

	diData *Store[uint8]
	aiData *Store[float64]
	piData *Store[float64]
	tsData *Store[float64]
	gsData *Store[Vector3]

	gates [numConnectorTypes]RequestGate
}

// NewClient creates a disconnected client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = def.DialTimeout
	}
	if opts.PollWindow <= 0 {
		opts.PollWindow = def.PollWindow
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}

	var d net.Dialer
	return &Client{
		opts:   opts,
		logger: logger,
		dial:   d.DialContext,
		diData: NewStore[uint8](DI, logger),
		aiData: NewStore[float64](AI, logger),
		piData: NewStore[float64](PI, logger),
		tsData: NewStore[float64](TS, logger),
		gsData: NewStore[Vector3](GS, logger),
	}
}

// State returns the connection state.
func (c *Client) State() ConnState { return c.state }

// SessionID identifies the current connection; it is uuid.Nil when disconnected.
func (c *Client) SessionID() uuid.UUID { return c.sessionID }

// Layout returns the connector table selected by the last Initialize.
func (c *Client) Layout() Layout { return c.layout }

// Address returns the host:port of the board.
func (c *Client) Address() string { return c.address }

// Initialize resets all buffers for the board variant and connects to host:port.
// Any failure leaves the client disconnected. There is no automatic reconnect.
func (c *Client) Initialize(ctx context.Context, board BoardType, host string, port int) error {
	c.Finalize()

	layout, err := LayoutFor(board)
	if err != nil {
		c.logger.Error("Unsupported board type", zap.Int("board", int(board)))
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	c.layout = layout
	c.sizeBuffers()

	c.address = net.JoinHostPort(host, strconv.Itoa(port))
	c.state = Connecting

	c.logger.Info("Connecting to board",
		zap.String("address", c.address),
		zap.Stringer("board", board))

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	conn, err := c.dial(dialCtx, "tcp", c.address)
	if err != nil {
		c.Finalize()
		c.logger.Error("Connection to board failed",
			zap.String("address", c.address),
			zap.Error(err))
		return fmt.Errorf("%w: connect %s: %w", ErrInitialization, c.address, err)
	}

	c.conn = conn
	c.state = Connected
	c.sessionID = uuid.New()

	c.logger.Info("Connected to board",
		zap.String("address", c.address),
		zap.String("session_id", c.sessionID.String()))

	return nil
}

// Finalize closes the connection and drops all buffered data.
// It is safe to call at any time, including when already disconnected.
func (c *Client) Finalize() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("Close failed", zap.Error(err))
		}
		c.conn = nil
		c.logger.Info("Disconnected from board",
			zap.String("address", c.address),
			zap.String("session_id", c.sessionID.String()))
	}

	c.state = Disconnected
	c.sessionID = uuid.Nil
	c.decoder.Reset()

	c.diData.Clear()
	c.aiData.Clear()
	c.piData.Clear()
	c.tsData.Clear()
	c.gsData.Clear()
	for i := range c.gates {
		c.gates[i].Clear()
	}
}

func (c *Client) sizeBuffers() {
	l := c.layout
	c.diData.Initialize(l.Range(DI).Count, l.Range(DI).First)
	c.aiData.Initialize(l.Range(AI).Count, l.Range(AI).First)
	c.piData.Initialize(l.Range(PI).Count, l.Range(PI).First)
	c.tsData.Initialize(l.Range(TS).Count, l.Range(TS).First)
	c.gsData.Initialize(l.Range(GS).Count, l.Range(GS).First)

	for _, t := range ConnectorTypes {
		if t.Requestable() {
			r := l.Range(t)
			c.gates[t].Initialize(r.Count, r.First)
		}
	}
}

// SendCommand validates and transmits one command.
//
// Validation failures return a *ValidationError and leave the session untouched.
// A REQUEST for a connector whose previous REQUEST is unanswered is skipped and
// reported through SendResult.Suppressed with a nil error.
func (c *Client) SendCommand(cmd Command, t ConnectorType, id int, param int) (SendResult, error) {
	if c.state != Connected || c.conn == nil {
		return SendResult{}, ErrNotConnected
	}

	if err := c.validate(cmd, t, id, param); err != nil {
		c.logger.Warn("Command rejected", zap.Error(err))
		return SendResult{}, err
	}

	addr := Address{Type: t, ID: id}

	if cmd == Request && !c.gates[t].Ready(id) {
		c.logger.Debug("Request suppressed, response pending",
			zap.Stringer("connector", addr))
		return SendResult{Suppressed: true}, nil
	}

	frame := EncodeCommand(cmd, t, id, param)

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return SendResult{}, fmt.Errorf("hotmock: set write deadline: %w", err)
	}

	n, err := c.conn.Write(frame)
	if err != nil {
		c.logger.Error("Send failed",
			zap.ByteString("frame", frame),
			zap.Error(err))
		if isWouldBlock(err) {
			return SendResult{Bytes: n}, fmt.Errorf("hotmock: write timed out: %w", err)
		}
		c.state = Disconnected
		return SendResult{Bytes: n}, fmt.Errorf("%w: write: %w", ErrDisconnected, err)
	}

	if cmd == Request {
		c.gates[t].Hold(id)
	}

	c.logger.Debug("Command sent",
		zap.ByteString("frame", frame),
		zap.Int("bytes", n))

	return SendResult{Bytes: n}, nil
}

func (c *Client) validate(cmd Command, t ConnectorType, id int, param int) error {
	fail := func(kind error) error {
		return &ValidationError{Kind: kind, Command: cmd, Type: t, ID: id, Param: param}
	}

	if !t.Valid() {
		return fail(ErrInvalidConnectorType)
	}
	if !c.layout.Contains(t, id) {
		return fail(ErrConnectorOutOfRange)
	}

	switch cmd {
	case Request:
		if !t.Requestable() {
			return fail(ErrInvalidCommandForType)
		}
		if param != RequestRaw && param != RequestProcessed {
			return fail(ErrInvalidParameter)
		}
	case Output:
		if t != DO {
			return fail(ErrInvalidCommandForType)
		}
	case Init:
		if t != PI {
			return fail(ErrInvalidCommandForType)
		}
	default:
		return fail(ErrInvalidCommandForType)
	}

	return nil
}

// PollAndReceive reads whatever the board has sent and decodes all complete
// frames before returning. It returns (0, nil) when no data is available yet.
// ErrDisconnected is fatal for the session: finalize and reinitialize.
func (c *Client) PollAndReceive() (int, error) {
	if c.state != Connected || c.conn == nil {
		return 0, ErrNotConnected
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.PollWindow)); err != nil {
		c.state = Disconnected
		return 0, fmt.Errorf("%w: %w", ErrDisconnected, err)
	}

	n, err := c.conn.Read(c.scratch[:])
	if n > 0 {
		c.logger.Debug("Received", zap.ByteString("data", c.scratch[:n]))
		c.decoder.Feed(c.scratch[:n])
		c.parse()
	}

	if err != nil {
		if isWouldBlock(err) {
			return n, nil
		}
		c.state = Disconnected
		c.logger.Error("Board connection lost",
			zap.String("address", c.address),
			zap.Error(err))
		return n, fmt.Errorf("%w: %w", ErrDisconnected, err)
	}

	return n, nil
}

func isWouldBlock(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) parse() {
	for {
		f, err := c.decoder.Next()
		if errors.Is(err, ErrNoFrame) {
			return
		}
		if err != nil {
			c.logger.Warn("Invalid message received", zap.Error(err))
			continue
		}
		c.store(f)
	}
}

func (c *Client) store(f Frame) {
	var err error
	switch f.Type {
	case DI:
		err = c.diData.SetData(f.ID, f.Sample.Digital)
	case AI:
		err = c.aiData.SetData(f.ID, f.Sample.Scalar)
	case PI:
		err = c.piData.SetData(f.ID, f.Sample.Scalar)
	case TS:
		err = c.tsData.SetData(f.ID, f.Sample.Scalar)
	case GS:
		err = c.gsData.SetData(f.ID, f.Sample.Vector)
	}
	if err != nil {
		return
	}

	if f.Type.Requestable() {
		c.gates[f.Type].Release(f.ID)
	}
}

// GateState reports whether a REQUEST may currently be sent for (t, id).
func (c *Client) GateState(t ConnectorType, id int) GateState {
	if !t.Requestable() {
		return ReadyToRequest
	}
	return c.gates[t].State(id)
}

// PendingBytes returns the buffered bytes of an incomplete frame.
func (c *Client) PendingBytes() []byte {
	return c.decoder.Pending()
}

// IsNewValue reports whether unread values are buffered for (t, id).
func (c *Client) IsNewValue(t ConnectorType, id int) bool {
	switch t {
	case DI:
		return c.diData.IsNew(id)
	case AI:
		return c.aiData.IsNew(id)
	case PI:
		return c.piData.IsNew(id)
	case TS:
		return c.tsData.IsNew(id)
	case GS:
		return c.gsData.IsNew(id)
	default:
		return false
	}
}

// PopOldestValue removes and returns the oldest buffered value of (t, id).
func (c *Client) PopOldestValue(t ConnectorType, id int) (Sample, bool) {
	s := Sample{Type: t}
	var ok bool
	switch t {
	case DI:
		s.Digital, ok = c.diData.NextData(id)
	case AI:
		s.Scalar, ok = c.aiData.NextData(id)
	case PI:
		s.Scalar, ok = c.piData.NextData(id)
	case TS:
		s.Scalar, ok = c.tsData.NextData(id)
	case GS:
		s.Vector, ok = c.gsData.NextData(id)
	}
	return s, ok
}

// PopLatestValue returns the newest buffered value of (t, id) and drops the backlog.
func (c *Client) PopLatestValue(t ConnectorType, id int) (Sample, bool) {
	s := Sample{Type: t}
	var ok bool
	switch t {
	case DI:
		s.Digital, ok = c.diData.LatestData(id)
	case AI:
		s.Scalar, ok = c.aiData.LatestData(id)
	case PI:
		s.Scalar, ok = c.piData.LatestData(id)
	case TS:
		s.Scalar, ok = c.tsData.LatestData(id)
	case GS:
		s.Vector, ok = c.gsData.LatestData(id)
	}
	return s, ok
}
