package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// transportClient issues metadata requests the way a producer does before its
// first send, bounded by max.block.ms.
type transportClient struct {
	client    *kafka.Client
	transport *kafka.Transport
}

func newTransportClient(cfg ClientConfig) (*transportClient, error) {
	if err := checkFormats(cfg, kafkaGoFormats, KeySerializer, ValueSerializer); err != nil {
		return nil, err
	}
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	maxBlock, ok, err := cfg.Duration(MaxBlockMs)
	if err != nil {
		return nil, err
	}
	if !ok {
		maxBlock = defaultMaxBlockMs * time.Millisecond
	}
	transport := &kafka.Transport{
		ClientID:    cfg.GetString(ClientID),
		DialTimeout: maxBlock,
	}
	return &transportClient{
		client: &kafka.Client{
			Addr:      kafka.TCP(brokers...),
			Timeout:   maxBlock,
			Transport: transport,
		},
		transport: transport,
	}, nil
}

func (c *transportClient) PartitionsFor(ctx context.Context, topic string) ([]PartitionInfo, error) {
	res, err := c.client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{topic}})
	if err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", topic, err)
	}
	return topicPartitions(res, topic)
}

// topicPartitions picks topic out of a metadata response. An unknown topic
// yields a nil list and no error.
func topicPartitions(res *kafka.MetadataResponse, topic string) ([]PartitionInfo, error) {
	for _, t := range res.Topics {
		if t.Name != topic {
			continue
		}
		if t.Error != nil {
			if errors.Is(t.Error, kafka.UnknownTopicOrPartition) {
				return nil, nil
			}
			return nil, fmt.Errorf("metadata for %s: %w", topic, t.Error)
		}
		return fromKafkaGo(t.Partitions), nil
	}
	return nil, nil
}

func (c *transportClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
