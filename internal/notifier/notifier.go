package notifier

import (
	"context"
	"time"

	"kelabpetani/internal/metrics"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Mailer delivers a plain-text email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Gateway is the best-effort notification channel. Send never returns an
// error and never panics: a message that cannot be delivered is dropped.
type Gateway struct {
	enabled bool
	mailer  Mailer
	timeout time.Duration
	log     *zap.Logger
}

func NewGateway(enabled bool, mailer Mailer, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{enabled: enabled, mailer: mailer, timeout: defaultTimeout, log: log}
}

// Send reports whether the message was handed to the mail server. It is a
// no-op returning false when email is switched off, no mailer is configured
// or the recipient address is empty.
func (g *Gateway) Send(ctx context.Context, to, subject, body string) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("notification panicked", zap.Any("panic", r), zap.String("to", to))
			delivered = false
		}
		if delivered {
			metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
		} else {
			metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		}
	}()

	if g == nil || !g.enabled || g.mailer == nil || to == "" {
		return false
	}

	// The transition that triggered this has already committed; a cancelled
	// request must not cut delivery short, but a hung mail server must.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	if err := g.mailer.SendEmail(sendCtx, to, subject, body); err != nil {
		g.log.Warn("email delivery failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return false
	}
	return true
}
