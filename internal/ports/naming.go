package ports

import (
	"fmt"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
)

// DisplayID returns the number printed next to a connector on the board.
// The analog kit labels its outputs one higher and its analog inputs one
// lower than the IDs used on the wire.
func DisplayID(board hotmock.BoardType, addr hotmock.Address) int {
	if board != hotmock.BoardAnalog {
		return addr.ID
	}
	switch addr.Type {
	case hotmock.DO:
		return addr.ID + 1
	case hotmock.AI:
		return addr.ID - 1
	}
	return addr.ID
}

// PortName returns the value port name of addr, e.g. "DO7".
func PortName(board hotmock.BoardType, addr hotmock.Address) string {
	return fmt.Sprintf("%s%d", addr.Type, DisplayID(board, addr))
}

// ResetPortName returns the counter reset port name of a pulse input.
func ResetPortName(board hotmock.BoardType, addr hotmock.Address) string {
	return "Reset_" + PortName(board, addr)
}
