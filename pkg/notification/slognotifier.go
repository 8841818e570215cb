package notification

import "log/slog"

// SlogNotifier logs deliveries instead of sending them. Used by the demo
// and by tests that need to observe dispatched codes.
type SlogNotifier struct{}

func NewSlogNotifier() *SlogNotifier {
	return &SlogNotifier{}
}

func (n *SlogNotifier) Send(noticeType NoticeType, notification NotificationData) error {
	slog.Info("Notification", "type", noticeType, "to", notification.To, "body", notification.Body, "data", notification.Data)
	return nil
}
