package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Client property keys.
const (
	BootstrapServers  = "bootstrap.servers"
	GroupID           = "group.id"
	ClientID          = "client.id"
	EnableAutoCommit  = "enable.auto.commit"
	KeyDeserializer   = "key.deserializer"
	ValueDeserializer = "value.deserializer"
	KeySerializer     = "key.serializer"
	ValueSerializer   = "value.serializer"
	MaxBlockMs        = "max.block.ms"
	RequestTimeoutMs  = "request.timeout.ms"

	// StreamsRPCTimeoutMs is read from the caller's client configs.
	StreamsRPCTimeoutMs = "streams.rpc.timeout.ms"
)

const (
	metadataGroupID   = "sdcTopicMetadataClient"
	metadataClientID  = "topicMetadataClient"
	defaultMaxBlockMs = 60000
)

// SerializationFormat replaces serializer class names. Bindings decide which
// formats they can honour.
type SerializationFormat int

const (
	StringFormat SerializationFormat = iota
	ByteArrayFormat
)

func (f SerializationFormat) String() string {
	switch f {
	case StringFormat:
		return "string"
	case ByteArrayFormat:
		return "bytearray"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

func ParseSerializationFormat(s string) (SerializationFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return StringFormat, nil
	case "bytearray", "bytes":
		return ByteArrayFormat, nil
	}
	return 0, fmt.Errorf("unknown serialization format %q", s)
}

// Role selects which kind of metadata client is built.
type Role int

const (
	ConsumerRole Role = iota
	ProducerRole
)

func (r Role) String() string {
	if r == ProducerRole {
		return "producer"
	}
	return "consumer"
}

// ClientConfig is an immutable set of client properties.
type ClientConfig struct {
	props map[string]interface{}
}

func newClientConfig(props map[string]interface{}) ClientConfig {
	return ClientConfig{props: props}
}

// Get returns the raw value stored for key.
func (c ClientConfig) Get(key string) (interface{}, bool) {
	v, ok := c.props[key]
	return v, ok
}

func (c ClientConfig) GetString(key string) string {
	return cast.ToString(c.props[key])
}

// Brokers returns the bootstrap servers as a list.
func (c ClientConfig) Brokers() []string {
	return splitBrokers(c.GetString(BootstrapServers))
}

// Serialization returns the serialization format stored under key.
func (c ClientConfig) Serialization(key string) (SerializationFormat, error) {
	switch v := c.props[key].(type) {
	case SerializationFormat:
		return v, nil
	case string:
		return ParseSerializationFormat(v)
	case nil:
		return 0, fmt.Errorf("%s is not set", key)
	default:
		return 0, fmt.Errorf("%s has unsupported value %v", key, v)
	}
}

// Duration interprets the value under key as milliseconds. ok is false when
// the key is absent.
func (c ClientConfig) Duration(key string) (d time.Duration, ok bool, err error) {
	v, ok := c.props[key]
	if !ok {
		return 0, false, nil
	}
	ms, err := cast.ToInt64E(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	if ms < 0 {
		return 0, true, fmt.Errorf("%s must not be negative, got %d", key, ms)
	}
	return time.Duration(ms) * time.Millisecond, true, nil
}

// Props returns a copy of the properties.
func (c ClientConfig) Props() map[string]interface{} {
	out := make(map[string]interface{}, len(c.props))
	for k, v := range c.props {
		out[k] = v
	}
	return out
}

// consumerMetadataConfig builds the properties of a consumer used only to
// read topic metadata.
func consumerMetadataConfig(bootstrap []string, clientConfigs map[string]interface{}) ClientConfig {
	props := map[string]interface{}{
		BootstrapServers:  strings.Join(bootstrap, ","),
		GroupID:           metadataGroupID,
		EnableAutoCommit:  false,
		KeyDeserializer:   StringFormat,
		ValueDeserializer: StringFormat,
	}
	if v, ok := clientConfigs[StreamsRPCTimeoutMs]; ok {
		props[RequestTimeoutMs] = v
	}
	return newClientConfig(props)
}

// producerMetadataConfig builds the properties of a producer used only to
// read topic metadata. The caller's RPC timeout, if set, becomes the block
// timeout unchanged.
func producerMetadataConfig(bootstrap []string, clientConfigs map[string]interface{}) ClientConfig {
	props := map[string]interface{}{
		BootstrapServers: strings.Join(bootstrap, ","),
		ClientID:         metadataClientID,
		KeySerializer:    StringFormat,
		ValueSerializer:  StringFormat,
	}
	if v, ok := clientConfigs[StreamsRPCTimeoutMs]; ok {
		props[MaxBlockMs] = v
	} else {
		props[MaxBlockMs] = defaultMaxBlockMs
	}
	return newClientConfig(props)
}

// bootstrapServers prefers the metadata broker list and falls back to the
// host:port broker list.
func bootstrapServers(metadataBrokerList string, brokers []string) []string {
	if servers := splitBrokers(metadataBrokerList); len(servers) > 0 {
		return servers
	}
	var servers []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			servers = append(servers, b)
		}
	}
	return servers
}

func splitBrokers(list string) []string {
	var out []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
