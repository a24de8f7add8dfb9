package hotmock

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Delimiter terminates every frame in both directions.
const Delimiter = '&'

// Command is an outbound command verb.
type Command int

const (
	Request Command = iota // ask for the current value of an input
	Output                 // drive a digital output
	Init                   // reset a pulse counter
)

func (c Command) String() string {
	switch c {
	case Request:
		return "REQUEST"
	case Output:
		return "OUTPUT"
	case Init:
		return "INIT"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// Command parameters.
const (
	NoParam = -1

	RequestRaw       = 0
	RequestProcessed = 1

	OutputOff = 0
	OutputOn  = 1
)

// Digital input states reported by tact switches.
const (
	DIPress     = 1
	DIRelease   = 2
	DILongPress = 3
)

// Vector3 is one accelerometer reading.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sample is a decoded connector value. Which field is meaningful depends on Type:
// Digital for DI, Scalar for AI, PI and TS, Vector for GS.
type Sample struct {
	Type    ConnectorType
	Digital uint8
	Scalar  float64
	Vector  Vector3
}

// Value returns the meaningful payload of the sample.
func (s Sample) Value() any {
	switch s.Type {
	case DI:
		return s.Digital
	case GS:
		return s.Vector
	default:
		return s.Scalar
	}
}

// Frame is one decoded inbound message.
type Frame struct {
	Address
	Sample Sample
}

// EncodeCommand formats an outbound command, e.g. "REQUEST,AI03,1&".
// The parameter is omitted when negative.
func EncodeCommand(cmd Command, t ConnectorType, id int, param int) []byte {
	b := make([]byte, 0, 24)
	b = append(b, cmd.String()...)
	b = append(b, ',')
	b = append(b, t.String()...)
	b = fmt.Appendf(b, "%02d", id)
	if param >= 0 {
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(param), 10)
	}
	return append(b, Delimiter)
}

// Decoder accumulates received bytes and splits them into frames.
type Decoder struct {
	pending []byte
}

// Feed appends received bytes to the pending buffer.
func (d *Decoder) Feed(p []byte) {
	d.pending = append(d.pending, p...)
}

// Pending returns the bytes of the incomplete trailing frame.
func (d *Decoder) Pending() []byte {
	return d.pending
}

// Reset drops all pending bytes.
func (d *Decoder) Reset() {
	d.pending = d.pending[:0]
}

// Next removes the next complete frame from the buffer and parses it.
// It returns ErrNoFrame when no delimiter is buffered. A malformed frame is
// consumed as well and reported as *FrameError, so callers can keep going.
func (d *Decoder) Next() (Frame, error) {
	end := bytes.IndexByte(d.pending, Delimiter)
	if end < 0 {
		return Frame{}, ErrNoFrame
	}

	raw := string(d.pending[:end])
	n := copy(d.pending, d.pending[end+1:])
	d.pending = d.pending[:n]

	return ParseFrame(raw)
}

// ParseFrame decodes a frame body without its delimiter:
// "<TT><NN>,<v1>" or, for GS, "<TT><NN>,<x>,<y>,<z>".
func ParseFrame(body string) (Frame, error) {
	fields := strings.Split(body, ",")
	head := strings.TrimSpace(fields[0])

	if len(head) < 3 {
		return Frame{}, &FrameError{Raw: body, Reason: "connector token too short"}
	}

	t, ok := inboundType(head[:2])
	if !ok {
		return Frame{}, &FrameError{Raw: body, Reason: "unknown connector type " + head[:2]}
	}

	id, err := strconv.Atoi(head[2:])
	if err != nil {
		return Frame{}, &FrameError{Raw: body, Reason: "bad connector id", Err: err}
	}

	values := fields[1:]
	want := 1
	if t == GS {
		want = 3
	}
	if len(values) != want {
		return Frame{}, &FrameError{
			Raw:    body,
			Reason: fmt.Sprintf("%s expects %d values, got %d", t, want, len(values)),
		}
	}

	f := Frame{Address: Address{Type: t, ID: id}, Sample: Sample{Type: t}}

	switch t {
	case DI:
		v, err := parseNumber(values[0])
		if err != nil {
			return Frame{}, &FrameError{Raw: body, Reason: "bad digital value", Err: err}
		}
		f.Sample.Digital = uint8(int64(v))
	case GS:
		var xyz [3]float64
		for i := range xyz {
			xyz[i], err = parseNumber(values[i])
			if err != nil {
				return Frame{}, &FrameError{Raw: body, Reason: "bad vector component", Err: err}
			}
		}
		f.Sample.Vector = Vector3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	default:
		f.Sample.Scalar, err = parseNumber(values[0])
		if err != nil {
			return Frame{}, &FrameError{Raw: body, Reason: "bad value", Err: err}
		}
	}

	return f, nil
}

// inboundType accepts only the types the board reports. DO is output-only.
func inboundType(code string) (ConnectorType, bool) {
	switch code {
	case "DI":
		return DI, true
	case "AI":
		return AI, true
	case "PI":
		return PI, true
	case "GS":
		return GS, true
	case "TS":
		return TS, true
	}
	return 0, false
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
