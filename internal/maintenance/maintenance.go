// Package maintenance runs scheduled cleanup of expired sessions and old
// login audit records
package maintenance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"sentinel/internal/repository"
)

// Audit records older than this are pruned
const attemptRetention = 90 * 24 * time.Hour

// Manager schedules the periodic cleanup jobs
type Manager struct {
	sessionRepo repository.SessionRepository
	attemptRepo repository.LoginAttemptRepository
	cron        *cron.Cron
}

// NewManager creates a new maintenance manager
func NewManager(sessionRepo repository.SessionRepository, attemptRepo repository.LoginAttemptRepository) *Manager {
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	return &Manager{
		sessionRepo: sessionRepo,
		attemptRepo: attemptRepo,
		cron:        c,
	}
}

// Start schedules the cleanup jobs and starts the scheduler. Expired
// sessions are purged hourly; old login attempts daily.
func (m *Manager) Start(ctx context.Context) error {
	if _, err := m.cron.AddFunc("0 * * * *", func() {
		m.PurgeExpiredSessions(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule session cleanup: %w", err)
	}

	if _, err := m.cron.AddFunc("30 3 * * *", func() {
		m.PurgeOldLoginAttempts(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule login attempt cleanup: %w", err)
	}

	m.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
}

// PurgeExpiredSessions removes sessions whose expiry has passed
func (m *Manager) PurgeExpiredSessions(ctx context.Context) {
	removed, err := m.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		log.Printf("Error purging expired sessions: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Purged %d expired sessions", removed)
	}
}

// PurgeOldLoginAttempts removes audit records past the retention window
func (m *Manager) PurgeOldLoginAttempts(ctx context.Context) {
	removed, err := m.attemptRepo.DeleteOlderThan(ctx, time.Now().Add(-attemptRetention))
	if err != nil {
		log.Printf("Error purging old login attempts: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Purged %d old login attempts", removed)
	}
}
