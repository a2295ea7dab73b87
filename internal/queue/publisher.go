package queue

import (
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/models"
)

const exchangeName = "booking.events"

// Publisher emits booking lifecycle events to RabbitMQ. An empty URL
// disables publishing. Each publish dials a fresh connection; event
// volume is low and a persistent channel would need reconnect handling
// the events do not justify.
type Publisher struct {
	url    string
	logger *logrus.Logger
}

func NewPublisher(url string, logger *logrus.Logger) *Publisher {
	if url == "" {
		logger.Info("Event publishing disabled, no AMQP URL configured")
	}
	return &Publisher{url: url, logger: logger}
}

// HoldCreated publishes a hold-created event.
func (p *Publisher) HoldCreated(lock *models.SeatLock) {
	p.publish(EventHoldCreated, HoldEvent{
		LockID:    lock.ID,
		UserID:    lock.UserID,
		SeatCount: len(lock.Seats),
		ExpiresAt: lock.ExpiresAt,
	})
}

// TicketsPurchased publishes one purchase event covering all tickets of a
// committed hold.
func (p *Publisher) TicketsPurchased(tickets []models.Ticket) {
	if len(tickets) == 0 {
		return
	}
	event := PurchaseEvent{
		LockID:      tickets[0].SeatLockID,
		UserID:      tickets[0].UserID,
		TicketCount: len(tickets),
	}
	for i := range tickets {
		event.TicketIDs = append(event.TicketIDs, tickets[i].ID)
		event.TotalPrice += tickets[i].Price
	}
	p.publish(EventTicketsPurchased, event)
}

// TicketCancelled publishes a ticket-cancelled event.
func (p *Publisher) TicketCancelled(ticket *models.Ticket) {
	p.publish(EventTicketCancelled, CancelEvent{
		TicketID:        ticket.ID,
		UserID:          ticket.UserID,
		ConcreteRouteID: ticket.ConcreteRouteID,
		Price:           ticket.Price,
	})
}

// publish sends one event. Failures are logged and swallowed so broker
// outages never affect the booking path.
func (p *Publisher) publish(eventType string, payload interface{}) {
	if p.url == "" {
		return
	}

	body, err := json.Marshal(Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		p.logger.WithError(err).WithField("event", eventType).Error("Failed to marshal event")
		return
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.WithError(err).WithField("event", eventType).Error("Failed to connect to broker")
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.WithError(err).WithField("event", eventType).Error("Failed to open channel")
		return
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		p.logger.WithError(err).WithField("event", eventType).Error("Failed to declare exchange")
		return
	}

	err = ch.Publish(exchangeName, eventType, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		p.logger.WithError(err).WithField("event", eventType).Error("Failed to publish event")
		return
	}

	p.logger.WithField("event", eventType).Debug("Event published")
}
