package kafka

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/queues"
)

type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds a writer shared by all command topics. Messages are
// hashed by key, so every message of one saga lands on the same partition
// of its topic.
func NewProducer(brokers string) *Producer {
	return &Producer{
		&kafka.Writer{
			Addr:     kafka.TCP(strings.Split(brokers, ",")...),
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type Consumer struct {
	reader *kafka.Reader
	group  string
}

func NewConsumer(brokers string, topics []string, group string) *Consumer {
	return &Consumer{
		kafka.NewReader(kafka.ReaderConfig{
			Brokers:     strings.Split(brokers, ","),
			GroupTopics: topics,
			GroupID:     group,
		}),
		group,
	}
}

// Listen pulls messages one at a time and commits the offset only after
// consumeFunc accepted the message. On a consume error the listener stops
// without committing, so the message is redelivered after restart.
func (c *Consumer) Listen(ctx context.Context, consumeFunc func(m queues.InboundMessage) error) error {
	log.Info("running events listener for group `" + c.group + "`")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("stopping bus listener")
				return nil
			}
			log.WithError(err).Error("could not read message. stopping bus listener")
			return err
		}

		if err = consumeFunc(queues.InboundMessage{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Value:     msg.Value,
		}); err != nil {
			return err
		}

		if err = c.reader.CommitMessages(ctx, msg); err != nil {
			log.WithError(err).Error("failed to commit message offset")
		}
	}
}

func (c *Consumer) Close() error {
	log.Info("closing consumer for `" + c.group + "` group...")
	return c.reader.Close()
}
