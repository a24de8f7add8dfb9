package system

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/KevinKickass/HotmockBridge/internal/config"
	"github.com/KevinKickass/HotmockBridge/internal/hotmock/hotmocktest"
)

func newManager(t *testing.T, settingBody string) (*LifecycleManager, *hotmocktest.Board) {
	t.Helper()

	board := hotmocktest.NewBoard(t)

	settingFile := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(settingFile, []byte(settingBody), 0o644))

	cfg := &config.Config{
		Server: config.ServerConfig{HTTPPort: 8080, GRPCPort: 50051},
		Hotmock: config.HotmockConfig{
			SettingFile:   settingFile,
			Host:          board.Host(),
			Port:          board.Port(),
			DialTimeout:   time.Second,
			PollWindow:    time.Millisecond,
			WriteTimeout:  100 * time.Millisecond,
			CycleInterval: 5 * time.Millisecond,
			RequestTypes:  []int{0, 0, 0, 0},
		},
	}

	lm, err := NewLifecycleManager(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { lm.Shutdown(context.Background()) })
	return lm, board
}

func servingStatusOf(t *testing.T, lm *LifecycleManager) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := lm.Health().Check(context.Background(), &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	return resp.Status
}

const digitalSetting = `
board: digital
connectors:
  DO: [1]
  AI: [1]
`

func TestActivateDeactivate(t *testing.T) {
	require := require.New(t)
	lm, board := newManager(t, digitalSetting)
	board.SetValue("TS01", "22.5")

	require.Equal(StateInactive, lm.State())
	require.Equal(healthpb.HealthCheckResponse_NOT_SERVING, servingStatusOf(t, lm))

	require.NoError(lm.Activate(context.Background()))
	require.Equal(StateActive, lm.State())
	require.Equal(healthpb.HealthCheckResponse_SERVING, servingStatusOf(t, lm))
	require.ErrorIs(lm.Activate(context.Background()), ErrInvalidTransition)

	status := lm.GetCurrentStatus()
	require.Equal("ACTIVE", status.State)
	require.Equal("digital", status.Board)
	require.NotEmpty(status.SessionID)
	require.Equal(4, status.ActivePorts)

	require.Eventually(func() bool {
		p, ok := lm.Registry().Lookup("TS1")
		return ok && p.HasValue
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(lm.Registry().Write("DO1", 1))
	require.Eventually(func() bool {
		for _, f := range board.Frames() {
			if f == "OUTPUT,DO01,1" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(lm.Deactivate())
	require.Equal(StateInactive, lm.State())
	require.Equal(healthpb.HealthCheckResponse_NOT_SERVING, servingStatusOf(t, lm))
	require.Empty(lm.GetCurrentStatus().SessionID)
	require.Len(lm.Registry().List(), 4, "ports survive deactivation")

	require.ErrorIs(lm.Deactivate(), ErrInvalidTransition)
	require.ErrorIs(lm.Reset(), ErrInvalidTransition)
}

func TestDisconnectMovesToError(t *testing.T) {
	require := require.New(t)
	lm, board := newManager(t, digitalSetting)

	require.NoError(lm.Activate(context.Background()))
	require.True(board.WaitConnected(2 * time.Second))

	board.Drop()

	require.Eventually(func() bool { return lm.State() == StateError }, 2*time.Second, 5*time.Millisecond)
	require.Equal(healthpb.HealthCheckResponse_NOT_SERVING, servingStatusOf(t, lm))
	require.NotEmpty(lm.GetCurrentStatus().Error)
	require.ErrorIs(lm.Activate(context.Background()), ErrInvalidTransition)

	require.NoError(lm.Reset())
	require.Equal(StateInactive, lm.State())
	require.Empty(lm.Registry().List())

	require.NoError(lm.Activate(context.Background()))
	require.Eventually(func() bool { return board.Accepts() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestActivateFailures(t *testing.T) {
	t.Run("invalid setting", func(t *testing.T) {
		lm, board := newManager(t, "board: digital\nconnectors:\n  DO: [9]\n")

		require.Error(t, lm.Activate(context.Background()))
		require.Equal(t, StateError, lm.State())
		require.Zero(t, board.Accepts())
	})

	t.Run("board unreachable", func(t *testing.T) {
		lm, board := newManager(t, digitalSetting)
		board.Close()

		require.Error(t, lm.Activate(context.Background()))
		require.Equal(t, StateError, lm.State())
		require.Contains(t, lm.GetCurrentStatus().Error, "initialization failed")

		require.NoError(t, lm.Reset())
	})
}
