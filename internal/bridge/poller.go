package bridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller runs a Controller on a fixed interval until stopped or until a
// cycle fails.
type Poller struct {
	controller *Controller
	interval   time.Duration
	onError    func(error)
	logger     *zap.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewPoller creates a stopped poller. onError is called once, from its own
// goroutine, with the error that ended the loop.
func NewPoller(controller *Controller, interval time.Duration, onError func(error), logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		controller: controller,
		interval:   interval,
		onError:    onError,
		logger:     logger,
	}
}

// Start startet das zyklische Polling
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.wg.Add(1)

	go p.pollLoop(p.stopChan)

	p.logger.Info("Poller started", zap.Duration("interval", p.interval))

	return nil
}

// Stop stoppt das Polling und wartet auf das Ende des laufenden Zyklus
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()

	p.logger.Info("Poller stopped")
}

func (p *Poller) pollLoop(stop chan struct{}) {
	defer p.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := p.controller.Execute(ctx); err != nil {
				p.logger.Error("Cycle failed", zap.Error(err))
				p.fail(err)
				return
			}
		}
	}
}

func (p *Poller) fail(err error) {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	if p.onError != nil {
		go p.onError(err)
	}
}

// IsRunning gibt an ob Poller läuft
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
