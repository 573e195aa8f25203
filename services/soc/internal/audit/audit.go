// Package audit records auth events published on the event bus.
package audit

import (
	"github.com/securepulse/securepulse/pkg/events"
	"github.com/securepulse/securepulse/pkg/logger"
)

// QueueGroup spreads events across SOC replicas so each is logged once.
const QueueGroup = "soc-audit"

type Consumer struct {
	sub events.Subscriber
}

func NewConsumer(sub events.Subscriber) *Consumer {
	return &Consumer{sub: sub}
}

// Start subscribes to every auth subject.
func (c *Consumer) Start() error {
	return c.sub.QueueSubscribe(events.AuthWildcard, QueueGroup, c.Handle)
}

// Handle logs one event. Known payloads are decoded so their fields land in
// the structured record; anything else is logged raw.
func (c *Consumer) Handle(msg *events.Message) {
	switch msg.Subject {
	case events.UserRegistered:
		var e events.UserRegisteredEvent
		if err := msg.Decode(&e); err != nil {
			c.malformed(msg, err)
			return
		}
		logger.Info("Audit: user registered",
			"subject", msg.Subject,
			"event_id", msg.ID,
			"user_id", e.UserID,
			"email", e.Email,
			"role", e.Role,
			"at", e.RegisteredAt,
		)
	case events.UserLoggedIn:
		var e events.UserLoggedInEvent
		if err := msg.Decode(&e); err != nil {
			c.malformed(msg, err)
			return
		}
		logger.Info("Audit: user logged in",
			"subject", msg.Subject,
			"event_id", msg.ID,
			"user_id", e.UserID,
			"email", e.Email,
			"at", e.LoggedInAt,
		)
	default:
		logger.Info("Audit: auth event", "subject", msg.Subject, "event_id", msg.ID, "payload", string(msg.Data))
	}
}

func (c *Consumer) malformed(msg *events.Message, err error) {
	logger.Warn("Audit: malformed event", "subject", msg.Subject, "event_id", msg.ID, "error", err)
}
