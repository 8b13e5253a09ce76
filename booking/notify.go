package booking

import (
	"context"

	"go.uber.org/zap"
)

// NotificationType categorizes a notification request.
type NotificationType string

const (
	NotifyBooking      NotificationType = "booking"
	NotifyPayment      NotificationType = "payment"
	NotifyCancellation NotificationType = "cancellation"
	NotifyStatus       NotificationType = "status"
)

// NotificationRequest is an ephemeral value handed to the external
// dispatcher. The engine never persists it and never delivers it.
type NotificationRequest struct {
	UserID    string
	Title     string
	Message   string
	Type      NotificationType
	BookingID BookingID
}

// Dispatcher consumes notification requests. Delivery mechanics are out
// of scope; implementations may queue, log, or drop. Emit failures are
// non-fatal to the operation that produced the request.
type Dispatcher interface {
	Emit(ctx context.Context, n NotificationRequest) error
}

// LogDispatcher writes notification requests to the structured log.
// Useful in development and as the default sink when no real dispatcher
// is wired.
type LogDispatcher struct {
	Log *zap.Logger
}

func (d *LogDispatcher) Emit(_ context.Context, n NotificationRequest) error {
	d.Log.Info("notification",
		zap.String("user_id", n.UserID),
		zap.String("type", string(n.Type)),
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.String("booking_id", string(n.BookingID)),
	)
	return nil
}
