// Package notifier dispatches outbound email and SMS messages.
//
// Dispatch is fire-and-forget from the caller's perspective: messages are
// submitted to a bounded worker pool and never block the request goroutine
// while the queue has room. A full queue applies a caller-runs policy instead
// of dropping the message. Delivery failures are logged and recorded in the
// delivery log; they never unwind the operation that triggered them.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/id"
)

// Mailer is the email delivery collaborator.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// SMSSender is the SMS delivery collaborator.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// DeliveryLog records the outcome of each dispatched message.
type DeliveryLog interface {
	Put(ctx context.Context, n *domain.Notification) error
}

// Service exposes the notification contracts used by the account flows.
// All methods are asynchronous and never return delivery errors.
type Service interface {
	SendAccountVerification(name, email, url string)
	SendMfaCodeEmail(name, email, code string)
	SendMfaCodeSMS(name, phone, code string)
	SendResetPasswordURL(name, email, url string)
	SendResetConfirmation(name, email string)
	SendAccountVerifiedConfirmation(name, email string)
	Stop()
}

type message struct {
	channel     string
	destination string
	subject     string
	body        string
}

type service struct {
	mailer Mailer
	sms    SMSSender
	log    DeliveryLog

	queue chan message
	wg    sync.WaitGroup
	once  sync.Once
}

// NewService starts workers goroutines consuming a queue of depth queueDepth.
func NewService(mailer Mailer, sms SMSSender, log DeliveryLog, workers, queueDepth int) Service {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	s := &service{
		mailer: mailer,
		sms:    sms,
		log:    log,
		queue:  make(chan message, queueDepth),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *service) worker() {
	defer s.wg.Done()
	for msg := range s.queue {
		s.deliver(msg)
	}
}

// dispatch enqueues msg, falling back to delivering on the calling goroutine
// when the queue is full.
func (s *service) dispatch(msg message) {
	select {
	case s.queue <- msg:
	default:
		slog.Warn("notifier queue full, delivering on caller", "channel", msg.channel)
		s.deliver(msg)
	}
}

func (s *service) deliver(msg message) {
	var err error
	switch msg.channel {
	case domain.ChannelSMS:
		if s.sms == nil {
			err = fmt.Errorf("sms sender not configured: %w", domain.ErrNotificationFailed)
		} else {
			err = s.sms.SendSMS(context.Background(), msg.destination, msg.body)
		}
	default:
		err = s.mailer.SendEmail(msg.destination, msg.subject, msg.body)
	}

	entry := &domain.Notification{
		NotificationID: id.New(),
		Channel:        msg.channel,
		Destination:    msg.destination,
		Subject:        msg.subject,
		Status:         domain.DeliverySent,
		CreatedAt:      time.Now().UTC(),
	}
	if err != nil {
		entry.Status = domain.DeliveryFailed
		entry.Error = err.Error()
		slog.Error("notification delivery failed",
			"channel", msg.channel, "destination", msg.destination, "err", err)
	}
	if s.log != nil {
		if logErr := s.log.Put(context.Background(), entry); logErr != nil {
			slog.Warn("could not record notification delivery", "err", logErr)
		}
	}
}

// Stop drains the queue and waits for in-flight deliveries to finish.
func (s *service) Stop() {
	s.once.Do(func() {
		close(s.queue)
		s.wg.Wait()
	})
}

func (s *service) SendAccountVerification(name, email, url string) {
	s.dispatch(message{
		channel:     domain.ChannelEmail,
		destination: email,
		subject:     "Verify your account",
		body: fmt.Sprintf("Hello %s,\n\nPlease click the link below to verify your account:\n\n%s\n\nThe Support Team", name, url),
	})
}

func (s *service) SendMfaCodeEmail(name, email, code string) {
	s.dispatch(message{
		channel:     domain.ChannelEmail,
		destination: email,
		subject:     "Login verification code",
		body:        fmt.Sprintf("Hello %s,\n\nYour login verification code is: %s\n\nThe Support Team", name, code),
	})
}

func (s *service) SendMfaCodeSMS(name, phone, code string) {
	s.dispatch(message{
		channel:     domain.ChannelSMS,
		destination: phone,
		body:        fmt.Sprintf("Hello %s, your login verification code is: %s", name, code),
	})
}

func (s *service) SendResetPasswordURL(name, email, url string) {
	s.dispatch(message{
		channel:     domain.ChannelEmail,
		destination: email,
		subject:     "Reset your password",
		body: fmt.Sprintf("Hello %s,\n\nPlease click the link below to reset your password. The link expires shortly.\n\n%s\n\nThe Support Team", name, url),
	})
}

func (s *service) SendResetConfirmation(name, email string) {
	s.dispatch(message{
		channel:     domain.ChannelEmail,
		destination: email,
		subject:     "Password changed",
		body:        fmt.Sprintf("Hello %s,\n\nYour password has been changed. If this wasn't you, contact support immediately.\n\nThe Support Team", name),
	})
}

func (s *service) SendAccountVerifiedConfirmation(name, email string) {
	s.dispatch(message{
		channel:     domain.ChannelEmail,
		destination: email,
		subject:     "Account verified",
		body:        fmt.Sprintf("Hello %s,\n\nYour account has been verified. You can now log in.\n\nThe Support Team", name),
	})
}
