package relay

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/chat"
)

// envelope mirrors the websocket frame so relayed events replay through
// remote hubs unchanged.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// AMQPRelay republishes realtime events on a fanout exchange so hubs on
// other API instances can deliver them to their own sockets. Implements
// chat.Relay.
type AMQPRelay struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	// instanceID tags published events so the consume loop can skip the
	// instance's own traffic; the local hub already delivered it.
	instanceID string
	logger     core.Logger
}

func NewAMQPRelay(conf *core.Config, logger core.Logger) (*AMQPRelay, error) {
	conn, err := amqp.Dial(conf.AMQP.URL)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "opening amqp channel")
	}
	if err = ch.ExchangeDeclare(conf.AMQP.Exchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "declaring exchange %q", conf.AMQP.Exchange)
	}
	return &AMQPRelay{
		conn:       conn,
		ch:         ch,
		exchange:   conf.AMQP.Exchange,
		instanceID: uuid.NewString(),
		logger:     logger,
	}, nil
}

func (r *AMQPRelay) Close() error {
	r.ch.Close()
	return r.conn.Close()
}

// PublishMessage implements chat.Relay.
func (r *AMQPRelay) PublishMessage(ctx context.Context, ev chat.MessageEvent) error {
	return r.publish(ctx, chat.EventMessage, ev)
}

// PublishTyping implements chat.Relay.
func (r *AMQPRelay) PublishTyping(ctx context.Context, ev chat.TypingEvent) error {
	return r.publish(ctx, chat.EventTyping, ev)
}

func (r *AMQPRelay) publish(ctx context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding relay payload")
	}
	body, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return errors.Wrap(err, "encoding relay envelope")
	}
	err = r.ch.PublishWithContext(ctx, r.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		AppId:       r.instanceID,
		Body:        body,
	})
	return errors.Wrapf(err, "publishing %s", event)
}

// Consume binds an exclusive queue to the exchange and replays remote
// events through the given broadcaster until ctx is cancelled. Run it on
// its own goroutine.
func (r *AMQPRelay) Consume(ctx context.Context, bcast chat.Broadcaster) error {
	q, err := r.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return errors.Wrap(err, "declaring relay queue")
	}
	if err = r.ch.QueueBind(q.Name, "", r.exchange, false, nil); err != nil {
		return errors.Wrapf(err, "binding relay queue to %q", r.exchange)
	}
	deliveries, err := r.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consuming relay queue")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("relay delivery channel closed")
			}
			if d.AppId == r.instanceID {
				continue
			}
			r.dispatch(d.Body, bcast)
		}
	}
}

func (r *AMQPRelay) dispatch(body []byte, bcast chat.Broadcaster) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		r.logger.Warn("relay: discarding malformed envelope", "error", err)
		return
	}
	switch env.Event {
	case chat.EventMessage:
		var ev chat.MessageEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			r.logger.Warn("relay: discarding malformed message event", "error", err)
			return
		}
		bcast.BroadcastMessage(ev, ev.ClientRef)
	case chat.EventTyping:
		var ev chat.TypingEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			r.logger.Warn("relay: discarding malformed typing event", "error", err)
			return
		}
		bcast.BroadcastTyping(ev)
	default:
		r.logger.Debug("relay: ignoring unknown event", "event", env.Event)
	}
}
