package ports

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
)

var (
	ErrUnknownPort = errors.New("ports: unknown port")
	ErrNotInput    = errors.New("ports: port is not writable")
)

// Kind distinguishes the two ports a connector can own.
type Kind int

const (
	// ValuePort carries the connector value (DO input, DI/AI/PI/TS/GS output).
	ValuePort Kind = iota
	// ResetPort clears a pulse counter.
	ResetPort
)

// Direction is seen from the bridge: inputs are written by clients and sent
// to the board, outputs carry values received from the board.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Port is a snapshot of one registered port.
type Port struct {
	Name      string
	Address   hotmock.Address
	Kind      Kind
	Direction Direction

	// Output ports only.
	Sample    hotmock.Sample
	HasValue  bool
	UpdatedAt time.Time
}

// Update is delivered to the Publisher whenever an output port changes.
type Update struct {
	Port      string    `json:"port"`
	Connector string    `json:"connector"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher receives output port updates.
type Publisher interface {
	PublishPortValue(Update)
}

type portKey struct {
	addr hotmock.Address
	kind Kind
}

// Registry holds the ports of the active connectors.
// All methods are safe for concurrent use.
type Registry struct {
	logger    *zap.Logger
	publisher Publisher

	mu     sync.RWMutex
	board  hotmock.BoardType
	active ActiveSet
	ports  map[portKey]*Port
	byName map[string]portKey

	pending *xsync.MapOf[portKey, float64]
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:  logger,
		ports:   make(map[portKey]*Port),
		byName:  make(map[string]portKey),
		pending: xsync.NewMapOf[portKey, float64](),
	}
}

// SetPublisher installs the receiver of output updates. Call before the
// first cycle runs.
func (r *Registry) SetPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publisher = p
}

// Board returns the board the ports are named for.
func (r *Registry) Board() hotmock.BoardType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.board
}

// Active returns the connectors registered by the last Apply.
func (r *Registry) Active() ActiveSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.active)
}

// Apply registers ports for newly active connectors and unregisters those
// no longer in use. Ports of kept connectors retain their last value.
// Switching the board renames every port, so all are re-registered.
func (r *Registry) Apply(board hotmock.BoardType, current ActiveSet) Changes {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ch Changes
	if board != r.board && len(r.active) > 0 {
		ch = Changes{Added: slices.Clone(current), Removed: slices.Clone(r.active)}
	} else {
		ch = Diff(r.active, current)
	}

	for _, addr := range ch.Removed {
		r.unregister(addr)
	}

	r.board = board
	for _, addr := range ch.Added {
		r.register(addr)
	}
	r.active = slices.Clone(current)

	r.logger.Info("Ports updated",
		zap.Stringer("board", board),
		zap.Int("added", len(ch.Added)),
		zap.Int("kept", len(ch.Kept)),
		zap.Int("removed", len(ch.Removed)))

	return ch
}

func (r *Registry) register(addr hotmock.Address) {
	switch addr.Type {
	case hotmock.DO:
		r.add(addr, ValuePort, Input, PortName(r.board, addr))
	case hotmock.PI:
		r.add(addr, ValuePort, Output, PortName(r.board, addr))
		r.add(addr, ResetPort, Input, ResetPortName(r.board, addr))
	default:
		r.add(addr, ValuePort, Output, PortName(r.board, addr))
	}
}

func (r *Registry) add(addr hotmock.Address, kind Kind, dir Direction, name string) {
	key := portKey{addr: addr, kind: kind}
	r.ports[key] = &Port{Name: name, Address: addr, Kind: kind, Direction: dir}
	r.byName[name] = key
	r.logger.Debug("Port registered",
		zap.String("port", name),
		zap.Stringer("direction", dir))
}

func (r *Registry) unregister(addr hotmock.Address) {
	for _, kind := range []Kind{ValuePort, ResetPort} {
		key := portKey{addr: addr, kind: kind}
		p, ok := r.ports[key]
		if !ok {
			continue
		}
		delete(r.ports, key)
		delete(r.byName, p.Name)
		r.pending.Delete(key)
		r.logger.Debug("Port removed", zap.String("port", p.Name))
	}
}

// Lookup returns the port registered under name.
func (r *Registry) Lookup(name string) (Port, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byName[name]
	if !ok {
		return Port{}, false
	}
	return *r.ports[key], true
}

// List returns all ports ordered by connector, value port before reset port.
func (r *Registry) List() []Port {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Port, 0, len(r.ports))
	for _, p := range r.ports {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b Port) int {
		if c := compareAddress(a.Address, b.Address); c != 0 {
			return c
		}
		return int(a.Kind) - int(b.Kind)
	})
	return out
}

// Write stores a value for an input port. It is sent to the board by the
// next cycle; a later write before that replaces it.
func (r *Registry) Write(name string, value float64) error {
	r.mu.RLock()
	key, ok := r.byName[name]
	var dir Direction
	if ok {
		dir = r.ports[key].Direction
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPort, name)
	}
	if dir != Input {
		return fmt.Errorf("%w: %s", ErrNotInput, name)
	}

	r.pending.Store(key, value)
	r.logger.Debug("Port written", zap.String("port", name), zap.Float64("value", value))
	return nil
}

// TakeInput returns and clears the pending value of an input port.
func (r *Registry) TakeInput(addr hotmock.Address, kind Kind) (float64, bool) {
	return r.pending.LoadAndDelete(portKey{addr: addr, kind: kind})
}

// Publish records a value received for addr and forwards it to the publisher.
// Values for unregistered connectors are dropped.
func (r *Registry) Publish(addr hotmock.Address, s hotmock.Sample) {
	now := time.Now()

	r.mu.Lock()
	p, ok := r.ports[portKey{addr: addr, kind: ValuePort}]
	if !ok || p.Direction != Output {
		r.mu.Unlock()
		r.logger.Debug("Value for unregistered port dropped", zap.Stringer("connector", addr))
		return
	}
	p.Sample = s
	p.HasValue = true
	p.UpdatedAt = now
	name := p.Name
	pub := r.publisher
	r.mu.Unlock()

	if pub != nil {
		pub.PublishPortValue(Update{
			Port:      name,
			Connector: addr.String(),
			Value:     s.Value(),
			Timestamp: now,
		})
	}
}

// Reset drops all ports and pending inputs.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ports = make(map[portKey]*Port)
	r.byName = make(map[string]portKey)
	r.active = nil
	r.pending.Clear()
}
