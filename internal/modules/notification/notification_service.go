package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"logmene/internal/metrics"
	"logmene/internal/models"
	"logmene/pkg/email"
	"logmene/pkg/events"
	"logmene/pkg/logger"
)

const emailTimeout = 15 * time.Second

// UserDirectory resolves notification recipients.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
}

// Broadcaster pushes a payload to a user's live connections.
type Broadcaster interface {
	Push(userID string, v any) int
}

// ServiceInterface defines the contract for the notification service.
type ServiceInterface interface {
	Notify(ctx context.Context, event models.NotificationEvent) bool
	List(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]*models.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, id int) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// CreatedEvent is the message published on events.NotificationCreated.
type CreatedEvent struct {
	*models.Notification
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Service implements the notification service.
type Service struct {
	repo      RepositoryInterface
	users     UserDirectory
	hub       Broadcaster
	publisher events.Publisher
	mailer    email.ServiceInterface
	templates *email.TemplateManager
	appURL    string

	emails sync.WaitGroup
}

// NewService creates a new notification service. appURL is the frontend origin used in email links.
func NewService(
	repo RepositoryInterface,
	users UserDirectory,
	hub Broadcaster,
	publisher events.Publisher,
	mailer email.ServiceInterface,
	templates *email.TemplateManager,
	appURL string,
) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		hub:       hub,
		publisher: publisher,
		mailer:    mailer,
		templates: templates,
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

// Notify writes one in-app notification per recipient and fans it out to the
// live feed, the event bus and, when requested, email. It returns true only if
// every in-app write succeeded; the other channels never affect the result.
func (s *Service) Notify(ctx context.Context, event models.NotificationEvent) bool {
	recipients, err := s.recipients(ctx, event)
	if err != nil {
		logger.Error("resolving notification recipients failed",
			"user_id", event.UserID, "role", event.Role, "type", event.Type, "error", err)
		metrics.RecordNotification("in_app", false)
		return false
	}

	ok := true
	for _, user := range recipients {
		n := &models.Notification{
			UserID:    user.ID,
			RequestID: event.RequestID,
			Type:      event.Type,
			Message:   event.Message,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			logger.Error("in-app notification write failed", "user_id", user.ID, "type", event.Type, "error", err)
			metrics.RecordNotification("in_app", false)
			ok = false
		} else {
			metrics.RecordNotification("in_app", true)
			if s.hub.Push(user.ID, n) > 0 {
				metrics.RecordNotification("websocket", true)
			}
			s.publish(ctx, user, n)
		}

		if event.SendEmail {
			s.sendEmailAsync(user, event)
		}
	}
	return ok
}

func (s *Service) recipients(ctx context.Context, event models.NotificationEvent) ([]*models.User, error) {
	if event.UserID != "" {
		user, err := s.users.FindByID(ctx, event.UserID)
		if err != nil {
			return nil, fmt.Errorf("service.recipients: %w", err)
		}
		return []*models.User{user}, nil
	}
	if event.Role != "" {
		users, err := s.users.ListByRole(ctx, event.Role)
		if err != nil {
			return nil, fmt.Errorf("service.recipients: %w", err)
		}
		return users, nil
	}
	return nil, fmt.Errorf("%w: notification has no recipient", models.ErrValidation)
}

func (s *Service) publish(ctx context.Context, user *models.User, n *models.Notification) {
	err := s.publisher.Publish(ctx, events.NotificationCreated, CreatedEvent{
		Notification: n,
		Email:        user.Email,
		Phone:        user.Phone,
	})
	if err != nil {
		logger.Warn("publishing notification event failed", "notification_id", n.ID, "error", err)
	}
	metrics.RecordNotification("amqp", err == nil)
}

// sendEmailAsync sends in the background; the request context may already be gone when it runs.
func (s *Service) sendEmailAsync(user *models.User, event models.NotificationEvent) {
	subject := event.Subject
	if subject == "" {
		subject = "LogMene notification"
	}
	link := ""
	if event.RequestID != nil && s.appURL != "" {
		link = fmt.Sprintf("%s/requests/%d", s.appURL, *event.RequestID)
	}

	s.emails.Add(1)
	go func() {
		defer s.emails.Done()

		htmlBody, err := s.templates.GenerateNotificationEmailHTML(email.TemplateData{
			Name:    user.Name,
			Title:   subject,
			Message: event.Message,
			Link:    link,
		})
		if err != nil {
			logger.Error("rendering notification email failed", "user_id", user.ID, "error", err)
			metrics.RecordNotification("email", false)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		err = s.mailer.SendEmail(ctx, user.Email, subject, event.Message, htmlBody)
		if err != nil {
			logger.Warn("notification email failed", "user_id", user.ID, "to", user.Email, "error", err)
		}
		metrics.RecordNotification("email", err == nil)
	}()
}

// Wait blocks until every background email has been attempted.
func (s *Service) Wait() {
	s.emails.Wait()
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]*models.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, unreadOnly, page, limit)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID string, id int) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if err == models.ErrNotFound {
			return fmt.Errorf("%w: notification %d", models.ErrNotFound, id)
		}
		return err
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
