package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// metaKeyTopic carries Message.Topic through watermill metadata.
const metaKeyTopic = "topic"

// WatermillBridge implements Publisher and Subscriber on watermill's
// in-memory GoChannel. Messages published while nobody is subscribed are
// dropped.
type WatermillBridge struct {
	pub message.Publisher
	sub message.Subscriber
	log zerolog.Logger
}

// NewWatermillBridge returns a bridge that logs through log.
func NewWatermillBridge(log zerolog.Logger) *WatermillBridge {
	adapter := NewZerologAdapter(log)
	goChannel := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, adapter)

	return &WatermillBridge{
		pub: goChannel,
		sub: goChannel,
		log: log,
	}
}

func toWatermill(msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)
	return wmMsg
}

func fromWatermill(wmMsg *message.Message) Message {
	metadata := make(map[string]string, len(wmMsg.Metadata))
	for k, v := range wmMsg.Metadata {
		if k != metaKeyTopic {
			metadata[k] = v
		}
	}
	return Message{
		Topic:    wmMsg.Metadata.Get(metaKeyTopic),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// Publish implements Publisher.
func (wb *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	wmMsg := toWatermill(msg)
	wmMsg.SetContext(ctx)
	return wb.pub.Publish(msg.Topic, wmMsg)
}

// Subscribe implements Subscriber. It returns once the subscription is
// active; handler runs on a background goroutine until ctx is cancelled or
// the bridge is closed.
func (wb *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := wb.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for wmMsg := range messages {
			if err := handler(ctx, fromWatermill(wmMsg)); err != nil {
				wb.log.Error().Err(err).Str("topic", topic).Str("msg_id", wmMsg.UUID).Msg("Feed handler failed")
				// The feed is best effort: a nack would make gochannel redeliver.
			}
			wmMsg.Ack()
		}
		wb.log.Debug().Str("topic", topic).Msg("Feed subscription ended")
	}()

	return nil
}

// Close shuts down the underlying channel and ends all subscriptions.
func (wb *WatermillBridge) Close() error {
	return wb.pub.Close()
}
