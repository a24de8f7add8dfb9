package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
	"github.com/KevinKickass/HotmockBridge/internal/hotmock/hotmocktest"
	"github.com/KevinKickass/HotmockBridge/internal/ports"
)

type recorder struct {
	mu      sync.Mutex
	updates map[string]ports.Update
}

func (r *recorder) PublishPortValue(u ports.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updates == nil {
		r.updates = make(map[string]ports.Update)
	}
	r.updates[u.Port] = u
}

func (r *recorder) get(port string) (ports.Update, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.updates[port]
	return u, ok
}

type fixture struct {
	board      *hotmocktest.Board
	client     *hotmock.Client
	registry   *ports.Registry
	controller *Controller
	published  *recorder
}

func newFixture(t *testing.T, boardType hotmock.BoardType, active ports.ActiveSet, modes RequestModes) *fixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	board := hotmocktest.NewBoard(t)

	client := hotmock.NewClient(hotmock.DefaultOptions(), logger)
	require.NoError(t, client.Initialize(context.Background(), boardType, board.Host(), board.Port()))
	t.Cleanup(client.Finalize)
	require.True(t, board.WaitConnected(2*time.Second))

	registry := ports.NewRegistry(logger)
	rec := &recorder{}
	registry.SetPublisher(rec)
	registry.Apply(boardType, active)

	return &fixture{
		board:      board,
		client:     client,
		registry:   registry,
		controller: NewController(client, registry, modes, logger),
		published:  rec,
	}
}

// runUntil executes cycles until cond holds.
func (f *fixture) runUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		require.NoError(t, f.controller.Execute(context.Background()))
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func digitalSet() ports.ActiveSet {
	return ports.NewActiveSet(
		hotmock.Address{Type: hotmock.DI, ID: 1},
		hotmock.Address{Type: hotmock.DO, ID: 2},
		hotmock.Address{Type: hotmock.AI, ID: 1},
		hotmock.Address{Type: hotmock.PI, ID: 1},
		hotmock.Address{Type: hotmock.GS, ID: 1},
		hotmock.Address{Type: hotmock.TS, ID: 1},
	)
}

func TestRequestModesFrom(t *testing.T) {
	require := require.New(t)

	m, err := RequestModesFrom([]int{1})
	require.NoError(err)
	require.Equal(RequestModes{AI: 1}, m)
	require.Equal(1, m.For(hotmock.AI))
	require.Equal(hotmock.NoParam, m.For(hotmock.DO))

	m, err = RequestModesFrom([]int{0, 1, 0, 1})
	require.NoError(err)
	require.Equal(RequestModes{PI: 1, GS: 1}, m)

	_, err = RequestModesFrom([]int{0, 3})
	require.Error(err)
	_, err = RequestModesFrom([]int{0, 0, 0, 0, 0})
	require.Error(err)
}

func TestExecuteRequestsAndPublishes(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, hotmock.BoardDigital, digitalSet(), RequestModes{AI: 1, GS: 1})

	f.board.SetValue("AI01", "2.5")
	f.board.SetValue("PI01", "12")
	f.board.SetValue("TS01", "21.0")
	f.board.SetValue("GS01", "0", "0", "9.8")

	require.NoError(f.controller.Execute(context.Background()))
	require.Eventually(func() bool { return len(f.board.Frames()) == 4 }, time.Second, 5*time.Millisecond)
	require.Equal([]string{
		"REQUEST,AI01,1",
		"REQUEST,PI01,0",
		"REQUEST,TS01,0",
		"REQUEST,GS01,1",
	}, f.board.Frames()[:4])

	f.runUntil(t, func() bool {
		_, ok := f.published.get("GS1")
		_, ok2 := f.published.get("TS1")
		return ok && ok2
	})

	u, ok := f.published.get("AI1")
	require.True(ok)
	require.Equal(2.5, u.Value)
	u, ok = f.published.get("PI1")
	require.True(ok)
	require.Equal(12.0, u.Value)
	u, _ = f.published.get("GS1")
	require.Equal(hotmock.Vector3{Z: 9.8}, u.Value)

	p, ok := f.registry.Lookup("TS1")
	require.True(ok)
	require.True(p.HasValue)
	require.InDelta(21.0, p.Sample.Scalar, 1e-9)

	require.NotZero(f.controller.Stats().Cycles)
	require.NotZero(f.controller.Stats().Published)
}

func TestExecuteDoesNotRepeatPendingRequests(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, hotmock.BoardDigital, ports.NewActiveSet(
		hotmock.Address{Type: hotmock.PI, ID: 2},
	), RequestModes{})
	f.board.SetSilent(true)

	for i := 0; i < 5; i++ {
		require.NoError(f.controller.Execute(context.Background()))
	}

	require.Eventually(func() bool { return len(f.board.Frames()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Equal([]string{"REQUEST,PI02,0"}, f.board.Frames())
	require.EqualValues(4, f.controller.Stats().Suppressed)
}

func TestExecuteSendsInputsFirst(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, hotmock.BoardDigital, ports.NewActiveSet(
		hotmock.Address{Type: hotmock.DO, ID: 2},
		hotmock.Address{Type: hotmock.PI, ID: 1},
	), RequestModes{})
	f.board.SetSilent(true)

	require.NoError(f.registry.Write("DO2", 1))
	require.NoError(f.registry.Write("Reset_PI1", 1))
	require.NoError(f.controller.Execute(context.Background()))

	require.Eventually(func() bool { return len(f.board.Frames()) == 3 }, time.Second, 5*time.Millisecond)
	require.Equal([]string{"OUTPUT,DO02,1", "INIT,PI01,1", "REQUEST,PI01,0"}, f.board.Frames())

	// Inputs are consumed once.
	require.NoError(f.controller.Execute(context.Background()))
	time.Sleep(20 * time.Millisecond)
	require.Len(f.board.Frames(), 3)
}

func TestExecuteOutputValues(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, hotmock.BoardDigital, ports.NewActiveSet(
		hotmock.Address{Type: hotmock.DO, ID: 1},
	), RequestModes{})

	for _, v := range []float64{2, 5, 0} {
		require.NoError(f.registry.Write("DO1", v))
		require.NoError(f.controller.Execute(context.Background()))
	}

	require.Eventually(func() bool { return len(f.board.Frames()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal([]string{"OUTPUT,DO01,0", "OUTPUT,DO01,0"}, f.board.Frames())
}

func TestExecuteAnalogNaming(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, hotmock.BoardAnalog, ports.NewActiveSet(
		hotmock.Address{Type: hotmock.DO, ID: 6},
		hotmock.Address{Type: hotmock.AI, ID: 2},
	), RequestModes{})
	f.board.SetValue("AI02", "4.0")

	require.NoError(f.registry.Write("DO7", 1))
	f.runUntil(t, func() bool {
		_, ok := f.published.get("AI1")
		return ok
	})

	require.Equal("OUTPUT,DO06,1", f.board.Frames()[0])
}

func TestExecuteSkipsRejectedCommands(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, hotmock.BoardDigital, ports.NewActiveSet(
		hotmock.Address{Type: hotmock.AI, ID: 4},
		hotmock.Address{Type: hotmock.TS, ID: 1},
	), RequestModes{})
	f.board.SetValue("TS01", "20")

	f.runUntil(t, func() bool {
		_, ok := f.published.get("TS1")
		return ok
	})
	require.NotZero(f.controller.Stats().Rejected)
}

func TestExecuteFailsOnDisconnect(t *testing.T) {
	f := newFixture(t, hotmock.BoardDigital, digitalSet(), RequestModes{})
	f.board.SetSilent(true)
	f.board.Drop()

	deadline := time.Now().Add(2 * time.Second)
	var err error
	for err == nil && time.Now().Before(deadline) {
		err = f.controller.Execute(context.Background())
		time.Sleep(2 * time.Millisecond)
	}
	require.ErrorIs(t, err, hotmock.ErrDisconnected)
}

func TestExecuteHonorsContext(t *testing.T) {
	f := newFixture(t, hotmock.BoardDigital, digitalSet(), RequestModes{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, f.controller.Execute(ctx), context.Canceled)
	require.Zero(t, f.controller.Stats().Cycles)
}
