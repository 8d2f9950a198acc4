package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"couples-backend/internal/metrics"
	"couples-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const deliveryTimeout = 5 * time.Second

// Notification kinds
const (
	NotificationQuick  = "quick"
	NotificationCustom = "custom"
)

// Notification is a signal from one partner to the other
type Notification struct {
	Kind       string
	FromUserID int64
	ToUserID   int64
	Message    string
	CreatedAt  time.Time
}

// Deliverer hands a notification to the outside world
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// LogDeliverer only logs notifications
type LogDeliverer struct{}

// Deliver implements Deliverer
func (LogDeliverer) Deliver(_ context.Context, n Notification) error {
	log.Info().
		Str("kind", n.Kind).
		Int64("from_user_id", n.FromUserID).
		Int64("to_user_id", n.ToUserID).
		Str("message", n.Message).
		Msg("Partner notification")
	return nil
}

// Relay delivers notifications on a background worker. Enqueue never blocks;
// when the queue is full the notification is dropped.
type Relay struct {
	deliverer Deliverer
	queue     chan Notification
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRelay starts a relay worker with a queue of queueSize notifications
func NewRelay(deliverer Deliverer, queueSize int) *Relay {
	r := &Relay{
		deliverer: deliverer,
		queue:     make(chan Notification, queueSize),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Relay) run() {
	defer close(r.done)

	for n := range r.queue {
		if err := r.deliver(n); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Int64("to_user_id", n.ToUserID).Msg("Failed to deliver notification")
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
	}
}

// deliver hands n to the deliverer, turning a panic into an error
func (r *Relay) deliver(n Notification) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("deliverer panicked: %v", p)
		}
	}()

	return r.deliverer.Deliver(ctx, n)
}

// Enqueue schedules n for delivery and reports whether it was accepted
func (r *Relay) Enqueue(n Notification) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false
	}

	select {
	case r.queue <- n:
		return true
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		log.Warn().Int64("to_user_id", n.ToUserID).Msg("Notification queue full, dropping notification")
		return false
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered
func (r *Relay) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	<-r.done
}

// NotificationService sends best-effort signals to the caller's partner
type NotificationService struct {
	store repository.Store
	relay *Relay
	now   func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(store repository.Store, relay *Relay) *NotificationService {
	return &NotificationService{
		store: store,
		relay: relay,
		now:   time.Now,
	}
}

// Notify hands message to the relay for the caller's partner. Delivery
// failures never reach the caller.
func (s *NotificationService) Notify(ctx context.Context, userID int64, kind, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}

	couple, err := coupleOf(ctx, s.store, userID)
	if err != nil {
		return err
	}

	s.relay.Enqueue(Notification{
		Kind:       kind,
		FromUserID: userID,
		ToUserID:   couple.PartnerOf(userID),
		Message:    message,
		CreatedAt:  s.now(),
	})
	return nil
}
