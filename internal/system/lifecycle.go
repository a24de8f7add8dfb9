package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/KevinKickass/HotmockBridge/internal/api/rest"
	"github.com/KevinKickass/HotmockBridge/internal/api/websocket"
	"github.com/KevinKickass/HotmockBridge/internal/bridge"
	"github.com/KevinKickass/HotmockBridge/internal/config"
	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
	"github.com/KevinKickass/HotmockBridge/internal/interfaces"
	"github.com/KevinKickass/HotmockBridge/internal/ports"
	"github.com/KevinKickass/HotmockBridge/internal/setting"
)

// LifecycleManager owns the board session and the API servers.
// Activate, Deactivate and Reset are serialized; only the poller goroutine
// touches the board client while the component is active.
type LifecycleManager struct {
	config   *config.Config
	loader   *setting.Loader
	registry *ports.Registry
	client   *hotmock.Client
	wsHub    *websocket.Hub
	health   *health.Server
	logger   *zap.Logger

	restServer *rest.Server
	grpcServer *grpc.Server
	hubCancel  context.CancelFunc

	stateMu      sync.Mutex
	currentState ComponentState
	lastErr      error
	setting      *setting.Setting
	controller   *bridge.Controller
	poller       *bridge.Poller
	sessionID    string
	address      string

	shutdownOnce sync.Once
}

func NewLifecycleManager(cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	loader, err := setting.NewLoader(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create setting loader: %w", err)
	}

	hub := websocket.NewHub(logger)
	registry := ports.NewRegistry(logger)
	registry.SetPublisher(hub)

	client := hotmock.NewClient(hotmock.Options{
		DialTimeout:  cfg.Hotmock.DialTimeout,
		PollWindow:   cfg.Hotmock.PollWindow,
		WriteTimeout: cfg.Hotmock.WriteTimeout,
	}, logger)

	return &LifecycleManager{
		config:       cfg,
		loader:       loader,
		registry:     registry,
		client:       client,
		wsHub:        hub,
		health:       newHealthServer(),
		logger:       logger,
		currentState: StateInactive,
	}, nil
}

// Start runs the websocket hub and the API servers. The board component
// stays INACTIVE until Activate.
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting HotmockBridge")

	hubCtx, cancel := context.WithCancel(context.Background())
	lm.hubCancel = cancel
	go lm.wsHub.Run(hubCtx)

	if err := lm.startGRPCServer(); err != nil {
		return fmt.Errorf("failed to start gRPC: %w", err)
	}

	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub)
	if err := lm.restServer.Start(); err != nil {
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	lm.logger.Info("System started successfully",
		zap.Int("grpc_port", lm.config.Server.GRPCPort),
		zap.Int("http_port", lm.config.Server.HTTPPort))

	return nil
}

func (lm *LifecycleManager) startGRPCServer() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", lm.config.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	lm.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(lm.grpcServer, lm.health)

	go func() {
		lm.logger.Info("gRPC server listening",
			zap.Int("port", lm.config.Server.GRPCPort),
			zap.String("services", "grpc.health.v1.Health"))
		if err := lm.grpcServer.Serve(lis); err != nil {
			lm.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	return nil
}

// Activate loads the board setting, registers ports, connects to the board
// and starts the cycle.
func (lm *LifecycleManager) Activate(ctx context.Context) error {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, StateActive); err != nil {
		return err
	}

	if err := lm.activate(ctx); err != nil {
		lm.logger.Error("Activation failed", zap.Error(err))
		lm.client.Finalize()
		lm.setState(StateError, err)
		return err
	}

	lm.setState(StateActive, nil)
	return nil
}

func (lm *LifecycleManager) activate(ctx context.Context) error {
	cfg := lm.config.Hotmock

	s, err := lm.loader.Load(cfg.SettingFile)
	if err != nil {
		return err
	}

	modes, err := bridge.RequestModesFrom(cfg.RequestTypes)
	if err != nil {
		return err
	}

	lm.registry.Apply(s.Board, s.Active)
	if len(s.AO) > 0 {
		lm.logger.Warn("Analog outputs configured but not supported by the firmware",
			zap.Ints("ao", s.AO))
	}

	if err := lm.client.Initialize(ctx, s.Board, cfg.Host, cfg.Port); err != nil {
		return err
	}

	sessionID := lm.client.SessionID().String()
	address := lm.client.Address()

	controller := bridge.NewController(lm.client, lm.registry, modes, lm.logger)

	var poller *bridge.Poller
	poller = bridge.NewPoller(controller, cfg.CycleInterval, func(err error) {
		lm.handleCycleError(poller, err)
	}, lm.logger)

	// ab hier gehört der Client dem Poller
	if err := poller.Start(); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}

	lm.setting = s
	lm.controller = controller
	lm.poller = poller
	lm.sessionID = sessionID
	lm.address = address

	lm.logger.Info("Component activated",
		zap.Stringer("board", s.Board),
		zap.String("address", address),
		zap.String("session_id", sessionID))

	return nil
}

// handleCycleError moves the component to ERROR when the running poller failed.
func (lm *LifecycleManager) handleCycleError(p *bridge.Poller, err error) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if lm.currentState != StateActive || lm.poller != p {
		return
	}

	lm.logger.Error("Board session lost", zap.Error(err))
	lm.stop()
	lm.setState(StateError, err)
}

// Deactivate stops the cycle and disconnects. Ports stay registered so the
// next activation only applies the difference.
func (lm *LifecycleManager) Deactivate() error {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if lm.currentState != StateActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, lm.currentState, StateInactive)
	}

	lm.stop()
	lm.setState(StateInactive, nil)
	lm.logger.Info("Component deactivated")
	return nil
}

// Reset leaves ERROR, dropping the session and all ports.
func (lm *LifecycleManager) Reset() error {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if lm.currentState != StateError {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, lm.currentState, StateInactive)
	}

	lm.stop()
	lm.registry.Reset()
	lm.setting = nil
	lm.setState(StateInactive, nil)
	lm.logger.Info("Component reset")
	return nil
}

// stop must be called with stateMu held.
func (lm *LifecycleManager) stop() {
	if lm.poller != nil {
		lm.poller.Stop()
		lm.poller = nil
	}
	lm.client.Finalize()
	lm.sessionID = ""
}

// setState must be called with stateMu held.
func (lm *LifecycleManager) setState(state ComponentState, err error) {
	previous := lm.currentState
	lm.currentState = state
	lm.lastErr = err

	lm.health.SetServingStatus(HealthService, servingStatus(state))
	lm.wsHub.PublishComponentState(state.String(), previous.String(), err)
}

// State returns the component state.
func (lm *LifecycleManager) State() ComponentState {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	return lm.currentState
}

// GetCurrentStatus returns current component status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.ComponentStatus {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	status := interfaces.ComponentStatus{
		State:       lm.currentState.String(),
		SessionID:   lm.sessionID,
		ActivePorts: len(lm.registry.List()),
	}
	if lm.setting != nil {
		status.Board = lm.setting.Board.String()
		status.Address = lm.address
	}
	if lm.lastErr != nil {
		status.Error = lm.lastErr.Error()
	}
	if lm.controller != nil {
		stats := lm.controller.Stats()
		status.Cycles = &stats
	}
	return status
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.stateMu.Lock()
		lm.stop()
		if lm.currentState == StateActive {
			lm.setState(StateInactive, nil)
		}
		lm.stateMu.Unlock()

		shutdownErr = lm.shutdownServers(ctx)

		if lm.hubCancel != nil {
			lm.hubCancel()
		}
	})

	return shutdownErr
}

func (lm *LifecycleManager) shutdownServers(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	// REST API Server graceful shutdown
	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	// gRPC Server graceful stop
	if lm.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.health.Shutdown()
			lm.grpcServer.GracefulStop()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(errChan)
		var errs []error
		for err := range errChan {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		lm.logger.Info("Graceful shutdown completed")
		return nil
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		if lm.grpcServer != nil {
			lm.grpcServer.Stop()
		}
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

// Registry returns the port registry
func (lm *LifecycleManager) Registry() *ports.Registry {
	return lm.registry
}

// Health returns the gRPC health server tracking the component state
func (lm *LifecycleManager) Health() *health.Server {
	return lm.health
}
