package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/jobs"
	"github.com/noah-isme/campus-connect-api/pkg/mailer"
)

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Notifier fans a workflow event out to the in-app notification table and,
// when mail is enabled, to the background email queue. Every path is
// best-effort: failures are logged and never propagate to the caller's
// request.
type Notifier struct {
	notifications notificationWriter
	queue         *jobs.Queue
	logger        *zap.Logger
}

// NewNotifier constructs a Notifier. queue may be nil when mail is disabled.
func NewNotifier(notifications notificationWriter, queue *jobs.Queue, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{notifications: notifications, queue: queue, logger: logger}
}

// Notify writes an in-app notification for the user.
func (n *Notifier) Notify(ctx context.Context, userID, notificationType, title, body string) {
	if n == nil || n.notifications == nil {
		return
	}
	err := n.notifications.Create(ctx, &models.Notification{
		UserID: userID,
		Type:   notificationType,
		Title:  title,
		Body:   body,
	})
	if err != nil {
		n.logger.Warn("failed to create notification", zap.String("user_id", userID), zap.Error(err))
	}
}

// Email queues an email for asynchronous delivery.
func (n *Notifier) Email(to, subject, body string) {
	if n == nil || n.queue == nil {
		return
	}
	err := n.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: "email",
		Payload: mailer.Message{
			To:      to,
			Subject: subject,
			Body:    body,
		},
	})
	if err != nil {
		n.logger.Warn("failed to enqueue email", zap.String("to", to), zap.Error(err))
	}
}

// MailHandler adapts a Mailer into a queue handler.
func MailHandler(m mailer.Mailer, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(mailer.Message)
		if !ok {
			logger.Warn("dropping email job with unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return m.Send(msg)
	}
}
