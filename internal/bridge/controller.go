// Package bridge runs the periodic exchange between the port registry and
// the board.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
	"github.com/KevinKickass/HotmockBridge/internal/ports"
)

// BoardClient is the part of hotmock.Client a cycle needs.
type BoardClient interface {
	SendCommand(cmd hotmock.Command, t hotmock.ConnectorType, id int, param int) (hotmock.SendResult, error)
	PollAndReceive() (int, error)
	IsNewValue(t hotmock.ConnectorType, id int) bool
	PopLatestValue(t hotmock.ConnectorType, id int) (hotmock.Sample, bool)
}

// RequestModes holds the REQUEST parameter used per requestable type.
type RequestModes struct {
	AI int
	PI int
	TS int
	GS int
}

// RequestModesFrom reads modes in the order AI, PI, TS, GS. Missing entries
// default to raw.
func RequestModesFrom(modes []int) (RequestModes, error) {
	var out [4]int
	if len(modes) > len(out) {
		return RequestModes{}, fmt.Errorf("bridge: %d request modes given, at most %d allowed", len(modes), len(out))
	}
	for i, m := range modes {
		if m != hotmock.RequestRaw && m != hotmock.RequestProcessed {
			return RequestModes{}, fmt.Errorf("bridge: request mode %d at index %d must be 0 or 1", m, i)
		}
		out[i] = m
	}
	return RequestModes{AI: out[0], PI: out[1], TS: out[2], GS: out[3]}, nil
}

func (m RequestModes) For(t hotmock.ConnectorType) int {
	switch t {
	case hotmock.AI:
		return m.AI
	case hotmock.PI:
		return m.PI
	case hotmock.TS:
		return m.TS
	case hotmock.GS:
		return m.GS
	}
	return hotmock.NoParam
}

// Stats summarizes the cycles run by a Controller.
type Stats struct {
	Cycles     uint64    `json:"cycles"`
	Sent       uint64    `json:"sent"`
	Suppressed uint64    `json:"suppressed"`
	Rejected   uint64    `json:"rejected"`
	Published  uint64    `json:"published"`
	LastCycle  time.Time `json:"last_cycle"`
}

// Controller executes one exchange cycle per call to Execute.
type Controller struct {
	client   BoardClient
	registry *ports.Registry
	modes    RequestModes
	logger   *zap.Logger

	cycles     atomic.Uint64
	sent       atomic.Uint64
	suppressed atomic.Uint64
	rejected   atomic.Uint64
	published  atomic.Uint64
	lastCycle  atomic.Int64
}

func NewController(client BoardClient, registry *ports.Registry, modes RequestModes, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		client:   client,
		registry: registry,
		modes:    modes,
		logger:   logger,
	}
}

// inboundOrder is the order values are published in.
var inboundOrder = []hotmock.ConnectorType{hotmock.DI, hotmock.AI, hotmock.PI, hotmock.TS, hotmock.GS}

// requestOrder is the order inputs are requested in.
var requestOrder = []hotmock.ConnectorType{hotmock.AI, hotmock.PI, hotmock.TS, hotmock.GS}

// Execute sends pending outputs and counter resets, requests every active
// input, receives once and publishes the newest value of each input.
// It fails only when the board connection is unusable.
func (c *Controller) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	active := c.registry.Active()

	// 1. Ausgänge
	for _, id := range active.IDs(hotmock.DO) {
		addr := hotmock.Address{Type: hotmock.DO, ID: id}
		v, ok := c.registry.TakeInput(addr, ports.ValuePort)
		if !ok {
			continue
		}
		param, ok := outputParam(v)
		if !ok {
			c.logger.Warn("Ignoring output value",
				zap.Stringer("connector", addr),
				zap.Float64("value", v))
			continue
		}
		if err := c.send(hotmock.Output, addr, param); err != nil {
			return err
		}
	}

	// 2. Zählerrücksetzung
	for _, id := range active.IDs(hotmock.PI) {
		addr := hotmock.Address{Type: hotmock.PI, ID: id}
		v, ok := c.registry.TakeInput(addr, ports.ResetPort)
		if !ok {
			continue
		}
		param := hotmock.OutputOff
		if v != 0 {
			param = hotmock.OutputOn
		}
		if err := c.send(hotmock.Init, addr, param); err != nil {
			return err
		}
	}

	// 3. Anfragen
	for _, t := range requestOrder {
		for _, id := range active.IDs(t) {
			if err := c.send(hotmock.Request, hotmock.Address{Type: t, ID: id}, c.modes.For(t)); err != nil {
				return err
			}
		}
	}

	// 4. Empfang
	if _, err := c.client.PollAndReceive(); err != nil {
		return fmt.Errorf("bridge: receive: %w", err)
	}

	// 5. Veröffentlichen
	for _, t := range inboundOrder {
		for _, id := range active.IDs(t) {
			if !c.client.IsNewValue(t, id) {
				continue
			}
			s, ok := c.client.PopLatestValue(t, id)
			if !ok {
				continue
			}
			c.registry.Publish(hotmock.Address{Type: t, ID: id}, s)
			c.published.Add(1)
		}
	}

	c.cycles.Add(1)
	c.lastCycle.Store(time.Now().UnixNano())
	return nil
}

// outputParam maps a DO port value to OUTPUT's parameter: 1 switches on,
// 0 and 2 switch off.
func outputParam(v float64) (int, bool) {
	switch v {
	case 1:
		return hotmock.OutputOn, true
	case 0, 2:
		return hotmock.OutputOff, true
	}
	return 0, false
}

// send logs and skips rejected commands; transport failures are returned.
func (c *Controller) send(cmd hotmock.Command, addr hotmock.Address, param int) error {
	res, err := c.client.SendCommand(cmd, addr.Type, addr.ID, param)

	var ve *hotmock.ValidationError
	switch {
	case errors.As(err, &ve):
		c.rejected.Add(1)
		c.logger.Warn("Command rejected",
			zap.Stringer("command", cmd),
			zap.Stringer("connector", addr),
			zap.Error(err))
		return nil
	case err != nil:
		return fmt.Errorf("bridge: send %s %s: %w", cmd, addr, err)
	case res.Suppressed:
		c.suppressed.Add(1)
	default:
		c.sent.Add(1)
	}
	return nil
}

// Stats returns counters since the controller was created.
func (c *Controller) Stats() Stats {
	s := Stats{
		Cycles:     c.cycles.Load(),
		Sent:       c.sent.Load(),
		Suppressed: c.suppressed.Load(),
		Rejected:   c.rejected.Load(),
		Published:  c.published.Load(),
	}
	if ns := c.lastCycle.Load(); ns != 0 {
		s.LastCycle = time.Unix(0, ns)
	}
	return s
}
