// Package events carries in-process notifications between the sync layer and
// its listeners.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const TopicItemMerged = "sync.item.merged"

// ItemMerged is published after a remote record was merged into the store.
type ItemMerged struct {
	Item models.Content `json:"item"`
}

// Bus is a typed publish/subscribe surface over an in-memory watermill
// channel.
type Bus struct {
	pubSub *gochannel.GoChannel
	log    logging.Logger
}

func NewBus(log logging.Logger) *Bus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	)
	return &Bus{pubSub: pubSub, log: log}
}

func (b *Bus) PublishItemMerged(ctx context.Context, item models.Content) error {
	payload, err := json.Marshal(ItemMerged{Item: item})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := b.pubSub.Publish(TopicItemMerged, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicItemMerged, err)
	}
	return nil
}

// SubscribeItemMerged delivers merge events until ctx is done or the returned
// unsubscribe func is called. The channel is closed afterwards.
func (b *Bus) SubscribeItemMerged(ctx context.Context) (<-chan ItemMerged, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	messages, err := b.pubSub.Subscribe(ctx, TopicItemMerged)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("subscribe %s: %w", TopicItemMerged, err)
	}

	out := make(chan ItemMerged)
	go func() {
		defer close(out)
		for msg := range messages {
			var ev ItemMerged
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.log.Warn(ctx, "dropping malformed event", "topic", TopicItemMerged, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
