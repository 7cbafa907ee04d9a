package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/m88-digital/idea-intake-api/internal/models"
	"github.com/m88-digital/idea-intake-api/pkg/config"
	"github.com/m88-digital/idea-intake-api/pkg/jobs"
)

const jobTypeSubmissionNotice = "submission_notice"

// NotificationService delivers submission confirmations out of band. A
// failed or skipped delivery never affects the submission that
// triggered it.
type NotificationService struct {
	cfg    config.NotificationsConfig
	queue  *jobs.Queue
	mailer *sendgrid.Client
	rest   *resty.Client
	logger *zap.Logger
}

// NewNotificationService wires the delivery channels and the worker
// queue behind them.
func NewNotificationService(cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &NotificationService{
		cfg:    cfg,
		logger: logger,
	}

	if cfg.EmailEnabled && cfg.SendGridAPIKey != "" {
		s.mailer = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}
	if cfg.WebhookURL != "" {
		s.rest = resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(0)
	}

	s.queue = jobs.NewQueue("notifications", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerCount,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})

	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifySubmission queues a confirmation for an accepted idea. Enqueue
// failures are logged and swallowed.
func (s *NotificationService) NotifySubmission(notice models.SubmissionNotification) {
	if s.mailer == nil && s.rest == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeSubmissionNotice,
		Payload: notice,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue submission notification",
			zap.String("reference_id", notice.ReferenceID), zap.Error(err))
	}
}

func (s *NotificationService) process(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(models.SubmissionNotification)
	if !ok {
		s.logger.Error("dropping notification job with unexpected payload",
			zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	var firstErr error
	if s.mailer != nil {
		if err := s.sendEmail(notice); err != nil {
			firstErr = err
		}
	}
	if s.rest != nil {
		if err := s.postWebhook(ctx, notice); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *NotificationService) sendEmail(notice models.SubmissionNotification) error {
	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	to := mail.NewEmail(notice.SubmitterName, notice.SubmitterEmail)
	subject := fmt.Sprintf("Idea %s received", notice.ReferenceID)

	plain := fmt.Sprintf(
		"Hi %s,\n\nYour idea %q has been received and assigned reference %s.\n"+
			"Use the reference to track its review status.\n\nDepartment: %s\nSubmitted: %s\n",
		notice.SubmitterName, notice.Title, notice.ReferenceID, notice.Department, notice.DateSubmitted)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your idea <strong>%s</strong> has been received and assigned reference <strong>%s</strong>. "+
			"Use the reference to track its review status.</p><p>Department: %s<br>Submitted: %s</p>",
		notice.SubmitterName, notice.Title, notice.ReferenceID, notice.Department, notice.DateSubmitted)

	message := mail.NewSingleEmail(from, subject, to, plain, html)
	resp, err := s.mailer.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: unexpected status %d", resp.StatusCode)
	}

	s.logger.Info("submission confirmation sent",
		zap.String("reference_id", notice.ReferenceID), zap.Int("status", resp.StatusCode))
	return nil
}

func (s *NotificationService) postWebhook(ctx context.Context, notice models.SubmissionNotification) error {
	resp, err := s.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(notice).
		Post(s.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("submission webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("submission webhook: unexpected status %d", resp.StatusCode())
	}

	s.logger.Info("submission webhook delivered",
		zap.String("reference_id", notice.ReferenceID), zap.Int("status", resp.StatusCode()))
	return nil
}
