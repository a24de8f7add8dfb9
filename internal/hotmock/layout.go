package hotmock

import (
	"fmt"
	"strings"
)

// BoardType identifies the HOTMOCK kit variant.
type BoardType int

const (
	BoardLegacy BoardType = iota
	BoardDigital
	BoardAnalog
)

func (b BoardType) String() string {
	switch b {
	case BoardLegacy:
		return "legacy"
	case BoardDigital:
		return "digital"
	case BoardAnalog:
		return "analog"
	default:
		return "unknown"
	}
}

// ParseBoardType maps a configuration value to a BoardType.
func ParseBoardType(s string) (BoardType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy":
		return BoardLegacy, nil
	case "digital":
		return BoardDigital, nil
	case "analog":
		return BoardAnalog, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidBoardType, s)
	}
}

// ConnectorType is the two-letter connector code used on the wire.
type ConnectorType int

const (
	DI ConnectorType = iota // digital input
	DO                      // digital output
	AI                      // analog input
	PI                      // pulse input
	GS                      // onboard accelerometer
	TS                      // onboard temperature sensor

	numConnectorTypes
)

// ConnectorTypes lists every recognized connector type in wire order.
var ConnectorTypes = []ConnectorType{DI, DO, AI, PI, GS, TS}

var connectorCodes = [numConnectorTypes]string{"DI", "DO", "AI", "PI", "GS", "TS"}

// Valid reports whether t is one of the six recognized connector types.
func (t ConnectorType) Valid() bool {
	return t >= DI && t < numConnectorTypes
}

func (t ConnectorType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ConnectorType(%d)", int(t))
	}
	return connectorCodes[t]
}

// ParseConnectorType maps a two-letter code to a ConnectorType.
func ParseConnectorType(code string) (ConnectorType, error) {
	code = strings.ToUpper(code)
	for i, c := range connectorCodes {
		if c == code {
			return ConnectorType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidConnectorType, code)
}

// Requestable reports whether REQUEST commands apply to t.
func (t ConnectorType) Requestable() bool {
	switch t {
	case AI, PI, GS, TS:
		return true
	}
	return false
}

// Range is a contiguous block of connector IDs.
type Range struct {
	First int
	Count int
}

// Contains reports whether id falls inside the range.
func (r Range) Contains(id int) bool {
	return id >= r.First && id < r.First+r.Count
}

// Last returns the highest valid ID, or First-1 for an empty range.
func (r Range) Last() int {
	return r.First + r.Count - 1
}

// IDs returns every ID in the range in ascending order.
func (r Range) IDs() []int {
	ids := make([]int, 0, r.Count)
	for id := r.First; id < r.First+r.Count; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Layout is the connector numbering of one board variant.
// The values are protocol constants of the HOTMOCK firmware.
type Layout struct {
	Board  BoardType
	ranges [numConnectorTypes]Range
	// AO is reserved by the analog kit but has no wire type yet.
	AO Range
}

// Range returns the ID range for t. Unknown types yield an empty range.
func (l Layout) Range(t ConnectorType) Range {
	if !t.Valid() {
		return Range{}
	}
	return l.ranges[t]
}

// Contains reports whether the address is valid on this layout.
func (l Layout) Contains(t ConnectorType, id int) bool {
	return l.Range(t).Contains(id)
}

// LayoutFor returns the connector table of a board variant.
func LayoutFor(board BoardType) (Layout, error) {
	l := Layout{Board: board}

	switch board {
	case BoardLegacy, BoardDigital:
		l.ranges[DI] = Range{First: 1, Count: 15}
		l.ranges[DO] = Range{First: 1, Count: 5}
		l.ranges[AI] = Range{First: 1, Count: 1}
		l.ranges[PI] = Range{First: 1, Count: 2}
		l.ranges[GS] = Range{First: 1, Count: 1}
		l.ranges[TS] = Range{First: 1, Count: 1}
		l.AO = Range{First: 0, Count: 0}
	case BoardAnalog:
		l.ranges[DI] = Range{First: 16, Count: 10}
		l.ranges[DO] = Range{First: 6, Count: 5}
		l.ranges[AI] = Range{First: 1, Count: 5}
		l.ranges[PI] = Range{First: 0, Count: 0}
		l.ranges[GS] = Range{First: 1, Count: 1}
		l.ranges[TS] = Range{First: 1, Count: 1}
		l.AO = Range{First: 1, Count: 2}
	default:
		return Layout{Board: board}, fmt.Errorf("%w: %d", ErrInvalidBoardType, int(board))
	}

	return l, nil
}

// Address identifies one connector on the board.
type Address struct {
	Type ConnectorType
	ID   int
}

// String renders the address the way it appears on the wire, e.g. "AI03".
func (a Address) String() string {
	return fmt.Sprintf("%s%02d", a.Type, a.ID)
}
