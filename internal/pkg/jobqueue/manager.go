package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// PeriodicTask is background work the manager runs on a fixed interval
// alongside the queue workers.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Manager owns the job queue and periodic background tasks
type Manager struct {
	queue   *Queue
	tasks   []PeriodicTask
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewManager(queue *Queue, tasks ...PeriodicTask) *Manager {
	return &Manager{
		queue: queue,
		tasks: tasks,
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// IsRunning reports whether Start has been called without a matching Stop.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	for _, task := range m.tasks {
		if task.Interval <= 0 || task.Run == nil {
			log.Warnf("[JobQueue Manager] Skipping task %q: no interval or function", task.Name)
			continue
		}
		m.wg.Add(1)
		go m.runTask(task, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")
	close(m.stopCh)
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) runTask(task PeriodicTask, stopCh <-chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	log.Infof("[JobQueue Manager] Started %s (interval: %s)", task.Name, task.Interval)

	for {
		select {
		case <-stopCh:
			// final run so buffered state is not lost on shutdown
			m.runOnce(task)
			log.Infof("[JobQueue Manager] %s stopping", task.Name)
			return
		case <-ticker.C:
			m.runOnce(task)
		}
	}
}

func (m *Manager) runOnce(task PeriodicTask) {
	ctx, cancel := context.WithTimeout(context.Background(), task.Interval+30*time.Second)
	defer cancel()
	if err := task.Run(ctx); err != nil {
		log.Errorf("[JobQueue Manager] %s failed: %v", task.Name, err)
	}
}
