package hotmock

// GateState is the request-acceptance state of one connector.
type GateState int

const (
	ReadyToRequest GateState = iota
	AwaitingResponse
)

func (s GateState) String() string {
	switch s {
	case ReadyToRequest:
		return "ready"
	case AwaitingResponse:
		return "awaiting"
	default:
		return "unknown"
	}
}

// RequestGate keeps at most one REQUEST outstanding per connector.
// A connector leaves AwaitingResponse only when a response for it is decoded.
type RequestGate struct {
	first   int
	waiting []bool
}

// Initialize sizes the gate for count connectors starting at firstID, all ready.
func (g *RequestGate) Initialize(count, firstID int) {
	if count < 0 {
		count = 0
	}
	g.first = firstID
	g.waiting = make([]bool, count)
}

// Clear drops all connectors.
func (g *RequestGate) Clear() {
	g.waiting = nil
}

func (g *RequestGate) index(id int) (int, bool) {
	i := id - g.first
	if i < 0 || i >= len(g.waiting) {
		return 0, false
	}
	return i, true
}

// State returns the state of id. Unknown IDs report AwaitingResponse so that
// nothing is ever requested for them.
func (g *RequestGate) State(id int) GateState {
	i, ok := g.index(id)
	if !ok || g.waiting[i] {
		return AwaitingResponse
	}
	return ReadyToRequest
}

// Ready reports whether a REQUEST may be sent for id.
func (g *RequestGate) Ready(id int) bool {
	return g.State(id) == ReadyToRequest
}

// Hold marks a REQUEST for id as outstanding.
func (g *RequestGate) Hold(id int) bool {
	i, ok := g.index(id)
	if !ok {
		return false
	}
	g.waiting[i] = true
	return true
}

// Release marks the outstanding REQUEST for id as answered.
func (g *RequestGate) Release(id int) bool {
	i, ok := g.index(id)
	if !ok {
		return false
	}
	g.waiting[i] = false
	return true
}
