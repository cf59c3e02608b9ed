package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const defaultDialTimeout = 10 * time.Second

var kafkaGoFormats = map[SerializationFormat]bool{
	StringFormat:    true,
	ByteArrayFormat: true,
}

// dialerClient reads topic metadata over a single connection, the way a
// consumer bootstraps. kafka-go has no consumer group on a plain connection so
// the group id is sent as the client id.
type dialerClient struct {
	dialer  *kafka.Dialer
	brokers []string
}

func newDialerClient(cfg ClientConfig) (*dialerClient, error) {
	if err := checkFormats(cfg, kafkaGoFormats, KeyDeserializer, ValueDeserializer); err != nil {
		return nil, err
	}
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	timeout, ok, err := cfg.Duration(RequestTimeoutMs)
	if err != nil {
		return nil, err
	}
	if !ok {
		timeout = defaultDialTimeout
	}
	return &dialerClient{
		dialer: &kafka.Dialer{
			ClientID:  cfg.GetString(GroupID),
			Timeout:   timeout,
			DualStack: true,
		},
		brokers: brokers,
	}, nil
}

func (c *dialerClient) PartitionsFor(ctx context.Context, topic string) ([]PartitionInfo, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}
	partitions, err := conn.ReadPartitions(topic)
	return readPartitions(topic, partitions, err)
}

// readPartitions converts the result of Conn.ReadPartitions. An unknown topic
// yields a nil list and no error.
func readPartitions(topic string, partitions []kafka.Partition, err error) ([]PartitionInfo, error) {
	if err != nil {
		if errors.Is(err, kafka.UnknownTopicOrPartition) {
			return nil, nil
		}
		return nil, fmt.Errorf("read partitions of %s: %w", topic, err)
	}
	return fromKafkaGo(partitions), nil
}

// dial tries each bootstrap server in order.
func (c *dialerClient) dial(ctx context.Context) (*kafka.Conn, error) {
	var lastErr error
	for _, address := range c.brokers {
		conn, err := c.dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("dial %s: %w", strings.Join(c.brokers, ","), lastErr)
}

func (c *dialerClient) Close() error {
	return nil
}

func fromKafkaGo(partitions []kafka.Partition) []PartitionInfo {
	if partitions == nil {
		return nil
	}
	out := make([]PartitionInfo, len(partitions))
	for i, p := range partitions {
		out[i] = PartitionInfo{
			Topic:    p.Topic,
			ID:       p.ID,
			Leader:   brokerAddress(p.Leader),
			Replicas: brokerAddresses(p.Replicas),
			Isr:      brokerAddresses(p.Isr),
		}
	}
	return out
}

func brokerAddress(b kafka.Broker) string {
	if b.Host == "" {
		return ""
	}
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

func brokerAddresses(bs []kafka.Broker) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, brokerAddress(b))
	}
	return out
}
