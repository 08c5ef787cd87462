package consumer

import (
	"context"
	"encoding/json"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/domain"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/repository"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/logger"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/mq"
)

// UserEvent is the versioned contract published by the user service on
// registration and profile updates. Delivery is at-least-once; the consumer
// dedupes on EventID.
type UserEvent struct {
	Event   string `json:"event"` // "user.registered" | "user.updated"
	Version int    `json:"version"`
	Data    struct {
		EventID   string `json:"event_id"`
		UserID    string `json:"user_id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Role      string `json:"role"`
	} `json:"data"`
}

// UserConsumer projects user events into the local members table.
type UserConsumer struct {
	repo *repository.MemberRepo
	cons *mq.Consumer
	log  logger.Logger
}

func NewUserConsumer(repo *repository.MemberRepo, cons *mq.Consumer, log logger.Logger) *UserConsumer {
	return &UserConsumer{repo: repo, cons: cons, log: log}
}

func (c *UserConsumer) Run(ctx context.Context) error {
	msgs, err := c.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	go func() {
		for d := range msgs {
			switch d.RoutingKey {
			case "user.registered", "user.updated":
				var evt UserEvent
				if err := json.Unmarshal(d.Body, &evt); err != nil {
					c.log.Error("unmarshal user event", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				if evt.Data.UserID == "" || evt.Data.EventID == "" {
					c.log.Warn("user event missing ids, dropping", "key", d.RoutingKey)
					_ = d.Ack(false)
					continue
				}
				m := &domain.Member{
					ID:        evt.Data.UserID,
					Email:     evt.Data.Email,
					FirstName: evt.Data.FirstName,
					LastName:  evt.Data.LastName,
					Role:      evt.Data.Role,
				}
				processed, err := c.repo.UpsertIfNotProcessed(ctx, m, evt.Data.EventID, d.RoutingKey)
				if err != nil {
					c.log.Error("upsert member", "user_id", evt.Data.UserID, "error", err)
					_ = d.Nack(false, true)
					continue
				}
				if !processed {
					c.log.Debug("duplicate user event skipped", "event_id", evt.Data.EventID)
				}
				_ = d.Ack(false)
			default:
				_ = d.Ack(false)
			}
		}
	}()
	return nil
}
