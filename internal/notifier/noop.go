package notifier

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier logs messages instead of sending them. Used when SMTP is
// not configured, so development environments behave end to end.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds the logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message and reports success.
func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.Info("notification (not sent, smtp disabled)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
