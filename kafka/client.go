package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var errNoBrokers = errors.New("no bootstrap servers configured")

// MetadataClient is a short lived client used only to ask the cluster about a
// topic. A nil partition list with a nil error means the broker does not know
// the topic.
type MetadataClient interface {
	PartitionsFor(ctx context.Context, topic string) ([]PartitionInfo, error)
	Close() error
}

// ClientFactory builds metadata clients for each role.
type ClientFactory interface {
	NewConsumer(cfg ClientConfig) (MetadataClient, error)
	NewProducer(cfg ClientConfig) (MetadataClient, error)
}

// Library names a Kafka client library binding.
type Library string

const (
	KafkaGo Library = "kafka-go"
	Sarama  Library = "sarama"
)

// NewClientFactory returns the binding for lib. An empty name selects kafka-go.
func NewClientFactory(lib Library) (ClientFactory, error) {
	switch Library(strings.ToLower(strings.TrimSpace(string(lib)))) {
	case KafkaGo, "":
		return kafkaGoFactory{}, nil
	case Sarama:
		return saramaFactory{}, nil
	}
	return nil, fmt.Errorf("unknown kafka client library %q", lib)
}

type kafkaGoFactory struct{}

func (kafkaGoFactory) NewConsumer(cfg ClientConfig) (MetadataClient, error) {
	return newDialerClient(cfg)
}

func (kafkaGoFactory) NewProducer(cfg ClientConfig) (MetadataClient, error) {
	return newTransportClient(cfg)
}

// checkFormats rejects serialization formats a binding cannot honour.
func checkFormats(cfg ClientConfig, supported map[SerializationFormat]bool, keys ...string) error {
	for _, key := range keys {
		f, err := cfg.Serialization(key)
		if err != nil {
			return err
		}
		if !supported[f] {
			return fmt.Errorf("%s: serialization format %s is not supported", key, f)
		}
	}
	return nil
}
