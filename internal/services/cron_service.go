package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Schedules use the seconds-precision cron format:
// second minute hour day month weekday
const (
	reconcileSchedule    = "0 0 3 * * *" // 03:00 every day
	purgeSchedule        = "0 0 * * * *" // top of every hour
	auditCleanupSchedule = "0 0 4 * * 0" // 04:00 every Sunday

	auditRetention = 90 * 24 * time.Hour
	jobTimeout     = 10 * time.Minute
)

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	ratings    *RatingService
	users      *database.UserRepository
	rateLimits *RateLimitService
	audit      *AuditService
	logger     *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(
	ratings *RatingService,
	users *database.UserRepository,
	rateLimits *RateLimitService,
	audit *AuditService,
	logger *logrus.Logger,
) *CronService {
	return &CronService{
		cron:       cron.New(cron.WithSeconds()),
		ratings:    ratings,
		users:      users,
		rateLimits: rateLimits,
		audit:      audit,
		logger:     logger,
	}
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start() error {
	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"Reconcile average ratings", reconcileSchedule, s.reconcileRatingsJob},
		{"Purge expired reset tokens", purgeSchedule, s.purgeExpiredJob},
		{"Cleanup old audit logs", auditCleanupSchedule, s.cleanupAuditLogsJob},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.schedule, job.run); err != nil {
			return fmt.Errorf("failed to schedule %q: %w", job.name, err)
		}
		s.logger.WithFields(logrus.Fields{
			"job":      job.name,
			"schedule": job.schedule,
		}).Info("Scheduled cron job")
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop waits for running jobs and stops the scheduler
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// reconcileRatingsJob rewrites every facility's average rating
func (s *CronService) reconcileRatingsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	startTime := time.Now()
	updated, err := s.ratings.ReconcileAll(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("updated", updated).Error("[CRON] Rating reconcile failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"updated":  updated,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Ratings reconciled")
}

// purgeExpiredJob clears lapsed reset tokens and old throttle records
func (s *CronService) purgeExpiredJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	tokens, err := s.users.PurgeExpiredResetTokens(ctx, time.Now())
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to purge expired reset tokens")
	}

	throttles, err := s.rateLimits.CleanupExpiredRateLimits(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to cleanup reset rate limits")
	}

	s.logger.WithFields(logrus.Fields{
		"reset_tokens": tokens,
		"rate_limits":  throttles,
	}).Debug("[CRON] Expired records purged")
}

func (s *CronService) cleanupAuditLogsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := s.audit.CleanupOldAuditLogs(ctx, auditRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to cleanup audit logs")
		return
	}
	s.logger.WithField("removed", removed).Info("[CRON] Old audit logs removed")
}

// RunReconcileNow runs the rating reconcile immediately
func (s *CronService) RunReconcileNow() {
	s.logger.Info("[MANUAL] Running rating reconcile now")
	s.reconcileRatingsJob()
}

// RunPurgeNow runs the expiry purge immediately
func (s *CronService) RunPurgeNow() {
	s.logger.Info("[MANUAL] Running expiry purge now")
	s.purgeExpiredJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
