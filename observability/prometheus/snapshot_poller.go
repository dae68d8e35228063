package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-coop-task/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
// *core.Scheduler satisfies it.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	registered *prom.GaugeVec
	queued     *prom.GaugeVec
	passes     *prom.GaugeVec
	finished   *prom.GaugeVec
	panicked   *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	registered := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "cooptask",
		Name:      "scheduler_registered",
		Help:      "Tasks registered and not yet finalized, per scheduler.",
	}, []string{"scheduler"})
	queued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "cooptask",
		Name:      "scheduler_backend_tasks",
		Help:      "Tasks owned by each backend, per scheduler.",
	}, []string{"scheduler", "backend"})
	passes := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "cooptask",
		Name:      "scheduler_passes",
		Help:      "Cooperative passes run so far, per scheduler.",
	}, []string{"scheduler"})
	finished := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "cooptask",
		Name:      "scheduler_finished",
		Help:      "Finalized task count snapshot, per scheduler and state.",
	}, []string{"scheduler", "state"})
	panicked := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "cooptask",
		Name:      "scheduler_panicked",
		Help:      "Recovered panic count snapshot, per scheduler.",
	}, []string{"scheduler"})

	var err error
	if registered, err = registerCollector(reg, registered); err != nil {
		return nil, err
	}
	if queued, err = registerCollector(reg, queued); err != nil {
		return nil, err
	}
	if passes, err = registerCollector(reg, passes); err != nil {
		return nil, err
	}
	if finished, err = registerCollector(reg, finished); err != nil {
		return nil, err
	}
	if panicked, err = registerCollector(reg, panicked); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:   interval,
		schedulers: make(map[string]SchedulerSnapshotProvider),
		registered: registered,
		queued:     queued,
		passes:     passes,
		finished:   finished,
		panicked:   panicked,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.registered.WithLabelValues(name).Set(float64(stats.Registered))
		p.queued.WithLabelValues(name, backendLabel(core.Cooperative)).Set(float64(stats.Cooperative))
		p.queued.WithLabelValues(name, backendLabel(core.Background)).Set(float64(stats.Background))
		p.passes.WithLabelValues(name).Set(float64(stats.Passes))
		p.finished.WithLabelValues(name, stateLabel(core.TaskStateCompleted)).Set(float64(stats.Completed))
		p.finished.WithLabelValues(name, stateLabel(core.TaskStateAborted)).Set(float64(stats.Aborted))
		p.panicked.WithLabelValues(name).Set(float64(stats.Panicked))
	}
}
