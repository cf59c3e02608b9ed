package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/spf13/cast"
)

var saramaFormats = map[SerializationFormat]bool{
	StringFormat:    true,
	ByteArrayFormat: true,
}

type saramaFactory struct{}

func newSaramaConfig(clientID string) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V0_9_0_0
	sc.ClientID = clientID
	return sc
}

// saramaConsumerConfig maps a consumer metadata config onto sarama.
func saramaConsumerConfig(cfg ClientConfig) (*sarama.Config, error) {
	if err := checkFormats(cfg, saramaFormats, KeyDeserializer, ValueDeserializer); err != nil {
		return nil, err
	}
	sc := newSaramaConfig(cfg.GetString(GroupID))
	autoCommit, _ := cfg.Get(EnableAutoCommit)
	sc.Consumer.Offsets.AutoCommit.Enable = cast.ToBool(autoCommit)
	timeout, ok, err := cfg.Duration(RequestTimeoutMs)
	if err != nil {
		return nil, err
	}
	if ok {
		sc.Net.DialTimeout = timeout
		sc.Net.ReadTimeout = timeout
	}
	return sc, nil
}

// saramaProducerConfig maps a producer metadata config onto sarama.
func saramaProducerConfig(cfg ClientConfig) (*sarama.Config, error) {
	if err := checkFormats(cfg, saramaFormats, KeySerializer, ValueSerializer); err != nil {
		return nil, err
	}
	sc := newSaramaConfig(cfg.GetString(ClientID))
	maxBlock, ok, err := cfg.Duration(MaxBlockMs)
	if err != nil {
		return nil, err
	}
	if ok {
		sc.Metadata.Timeout = maxBlock
	}
	return sc, nil
}

func (saramaFactory) NewConsumer(cfg ClientConfig) (MetadataClient, error) {
	sc, err := saramaConsumerConfig(cfg)
	if err != nil {
		return nil, err
	}
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	consumer, err := sarama.NewConsumer(brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	return &saramaConsumer{consumer: consumer}, nil
}

func (saramaFactory) NewProducer(cfg ClientConfig) (MetadataClient, error) {
	sc, err := saramaProducerConfig(cfg)
	if err != nil {
		return nil, err
	}
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	client, err := sarama.NewClient(brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &saramaClient{client: client}, nil
}

// saramaConsumer and saramaClient check ctx only before the call. sarama takes
// no context, so an in-flight query is bounded by the dial, read and metadata
// timeouts in the client config, not by ctx's deadline.
type saramaConsumer struct {
	consumer sarama.Consumer
}

func (c *saramaConsumer) PartitionsFor(ctx context.Context, topic string) ([]PartitionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := c.consumer.Partitions(topic)
	return fromSarama(topic, ids, err)
}

func (c *saramaConsumer) Close() error {
	return c.consumer.Close()
}

type saramaClient struct {
	client sarama.Client
}

func (c *saramaClient) PartitionsFor(ctx context.Context, topic string) ([]PartitionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := c.client.Partitions(topic)
	return fromSarama(topic, ids, err)
}

func (c *saramaClient) Close() error {
	return c.client.Close()
}

func fromSarama(topic string, ids []int32, err error) ([]PartitionInfo, error) {
	if err != nil {
		if errors.Is(err, sarama.ErrUnknownTopicOrPartition) {
			return nil, nil
		}
		return nil, fmt.Errorf("partitions of %s: %w", topic, err)
	}
	if ids == nil {
		return nil, nil
	}
	out := make([]PartitionInfo, len(ids))
	for i, id := range ids {
		out[i] = PartitionInfo{Topic: topic, ID: int(id)}
	}
	return out, nil
}
