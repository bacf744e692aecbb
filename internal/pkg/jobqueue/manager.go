package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/plateful/plateful/app/repository"
	"github.com/plateful/plateful/internal/pkg/env"
)

const (
	// Webhook rows older than this with no processed_at are assumed to
	// have lost their enqueue and are picked up again.
	webhookReapAge = 5 * time.Minute

	reaperBatchSize = 100
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue        *Queue
	reaperTicker *time.Ticker
	syncTicker   *time.Ticker
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 5
		if v, err := strconv.Atoi(env.GetEnv("JOB_QUEUE_WORKERS", "5")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
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

	// Start the job queue
	m.queue.Start()

	// Pending-webhook reaper: requeues stored events whose enqueue was
	// lost between the HTTP handler and the worker.
	m.reaperTicker = time.NewTicker(time.Minute)
	m.wg.Add(1)
	go m.webhookReaper()

	// Periodic full availability sync for every POS-connected tenant.
	syncInterval := 6 * time.Hour
	if v, err := strconv.Atoi(env.GetEnv("AVAILABILITY_SYNC_INTERVAL_MINUTES", "360")); err == nil && v > 0 {
		syncInterval = time.Duration(v) * time.Minute
	}
	m.syncTicker = time.NewTicker(syncInterval)
	m.wg.Add(1)
	go m.availabilitySyncWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.reaperTicker != nil {
		m.reaperTicker.Stop()
	}
	if m.syncTicker != nil {
		m.syncTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// webhookReaper periodically requeues webhook events that were stored
// but never processed
func (m *Manager) webhookReaper() {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Webhook reaper running (age threshold %s)", webhookReapAge)

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Webhook reaper stopping")
			return
		case <-m.reaperTicker.C:
			if err := m.reapPendingWebhooksOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Webhook reaper error: %v", err)
			}
		}
	}
}

func (m *Manager) reapPendingWebhooksOnce() error {
	repos := repository.GetGlobalRepositories()
	cutoff := time.Now().Add(-webhookReapAge)
	pending, err := repos.WebhookEvent.ListPending(cutoff, reaperBatchSize)
	if err != nil {
		return err
	}
	for _, event := range pending {
		payload := WebhookProcessJobPayload{EventID: event.ID, TenantID: event.TenantID}
		if _, err := m.queue.EnqueueJob(JobTypeWebhookProcess, payload.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Failed to requeue webhook event %d: %v", event.ID, err)
			continue
		}
		log.Infof("[JobQueue Manager] Requeued stale webhook event %d (tenant=%s)", event.ID, event.TenantID)
	}
	return nil
}

// availabilitySyncWorker periodically schedules a full catalog sync for
// every tenant with a POS connection
func (m *Manager) availabilitySyncWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Availability sync worker stopping")
			return
		case <-m.syncTicker.C:
			if err := m.scheduleAvailabilitySyncsOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Availability sync scheduling error: %v", err)
			}
		}
	}
}

func (m *Manager) scheduleAvailabilitySyncsOnce() error {
	repos := repository.GetGlobalRepositories()
	profiles, err := repos.Profile.ListWithPOS()
	if err != nil {
		return err
	}
	for _, profile := range profiles {
		payload := AvailabilitySyncJobPayload{TenantID: profile.TenantID}
		if _, err := m.queue.EnqueueJob(JobTypeAvailabilitySync, payload.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue sync for tenant %s: %v", profile.TenantID, err)
		}
	}
	if len(profiles) > 0 {
		log.Infof("[JobQueue Manager] Scheduled availability sync for %d tenants", len(profiles))
	}
	return nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
