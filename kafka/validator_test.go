package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stundzia/streamcheck/issue"
)

type fakeClient struct {
	partitions []PartitionInfo
	err        error
	closed     bool
}

func (c *fakeClient) PartitionsFor(_ context.Context, _ string) ([]PartitionInfo, error) {
	return c.partitions, c.err
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

type fakeFactory struct {
	lock       sync.Mutex
	partitions []PartitionInfo
	queryErr   error
	createErr  error
	consumers  []ClientConfig
	producers  []ClientConfig
	clients    []*fakeClient
}

func (f *fakeFactory) newClient() (MetadataClient, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	c := &fakeClient{partitions: f.partitions, err: f.queryErr}
	f.clients = append(f.clients, c)
	return c, nil
}

func (f *fakeFactory) NewConsumer(cfg ClientConfig) (MetadataClient, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.consumers = append(f.consumers, cfg)
	return f.newClient()
}

func (f *fakeFactory) NewProducer(cfg ClientConfig) (MetadataClient, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.producers = append(f.producers, cfg)
	return f.newClient()
}

func (f *fakeFactory) created() int {
	return len(f.consumers) + len(f.producers)
}

func partitions(topic string, n int) []PartitionInfo {
	ps := make([]PartitionInfo, n)
	for i := range ps {
		ps[i] = PartitionInfo{Topic: topic, ID: i}
	}
	return ps
}

func validate(v *Validator, topic string, producer bool, clientConfigs map[string]interface{}) (bool, issue.Issues) {
	var issues issue.Issues
	ok := v.ValidateTopicExistence(context.Background(), issue.NewStageContext("stage"), "KAFKA", "topic",
		[]string{"localhost:9092"}, "", topic, clientConfigs, &issues, producer)
	return ok, issues
}

func TestValidateEmptyTopic(t *testing.T) {
	for _, topic := range []string{"", "   "} {
		factory := &fakeFactory{partitions: partitions("x", 1)}
		v := NewValidator(factory, nil)
		ok, issues := validate(v, topic, false, nil)
		require.False(t, ok)
		require.Len(t, issues, 1)
		require.Equal(t, issue.MissingTopicName, issues[0].Code)
		require.Equal(t, "topic", issues[0].Config)
		require.Equal(t, 0, factory.created())
	}
}

func TestValidateTopicExists(t *testing.T) {
	for _, producer := range []bool{false, true} {
		factory := &fakeFactory{partitions: partitions("events", 3)}
		v := NewValidator(factory, nil)
		ok, issues := validate(v, "events", producer, nil)
		require.True(t, ok)
		require.Empty(t, issues)
		require.Len(t, factory.clients, 1)
		require.True(t, factory.clients[0].closed)
	}
}

func TestValidateTopicNotFound(t *testing.T) {
	for _, parts := range [][]PartitionInfo{nil, {}} {
		for _, producer := range []bool{false, true} {
			factory := &fakeFactory{partitions: parts}
			v := NewValidator(factory, nil)
			ok, issues := validate(v, "missing", producer, nil)
			require.False(t, ok)
			require.Len(t, issues, 1)
			require.Equal(t, issue.TopicNotFound, issues[0].Code)
			require.Equal(t, ConfigBeanPrefix+"topic", issues[0].Config)
			require.Contains(t, issues[0].Message, "missing")
		}
	}
}

func TestValidateBrokerFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	factory := &fakeFactory{queryErr: errors.New("connection refused")}
	v := NewValidator(factory, zap.New(core))

	ok, issues := validate(v, "events", false, nil)
	require.False(t, ok)
	require.Len(t, issues, 1)
	require.Equal(t, issue.BrokerQueryFailed, issues[0].Code)
	require.Equal(t, "topic", issues[0].Config)
	require.Contains(t, issues[0].Message, "events")
	require.Contains(t, issues[0].Message, "connection refused")
	require.Equal(t, 1, logs.Len())
	require.True(t, factory.clients[0].closed)
}

func TestValidateClientCreationFailure(t *testing.T) {
	factory := &fakeFactory{createErr: errors.New("no route to host")}
	v := NewValidator(factory, nil)

	ok, issues := validate(v, "events", true, nil)
	require.False(t, ok)
	require.Len(t, issues, 1)
	require.Equal(t, issue.BrokerQueryFailed, issues[0].Code)
	require.Contains(t, issues[0].Message, "no route to host")
}

func TestValidateRoleSelectsClient(t *testing.T) {
	consumerFactory := &fakeFactory{partitions: partitions("events", 2)}
	producerFactory := &fakeFactory{partitions: partitions("events", 2)}

	okC, issuesC := validate(NewValidator(consumerFactory, nil), "events", false, nil)
	okP, issuesP := validate(NewValidator(producerFactory, nil), "events", true, nil)

	require.Len(t, consumerFactory.consumers, 1)
	require.Empty(t, consumerFactory.producers)
	require.Len(t, producerFactory.producers, 1)
	require.Empty(t, producerFactory.consumers)
	require.Equal(t, okC, okP)
	require.Equal(t, issuesC, issuesP)
}

func TestValidateConsumerConfig(t *testing.T) {
	factory := &fakeFactory{partitions: partitions("events", 1)}
	v := NewValidator(factory, nil)
	validate(v, "events", false, nil)

	cfg := factory.consumers[0]
	groupID, _ := cfg.Get(GroupID)
	require.Equal(t, "sdcTopicMetadataClient", groupID)
	autoCommit, _ := cfg.Get(EnableAutoCommit)
	require.Equal(t, false, autoCommit)
	for _, key := range []string{KeyDeserializer, ValueDeserializer} {
		f, err := cfg.Serialization(key)
		require.NoError(t, err)
		require.Equal(t, StringFormat, f)
	}
	require.Equal(t, []string{"localhost:9092"}, cfg.Brokers())
}

func TestValidateProducerBlockTimeout(t *testing.T) {
	factory := &fakeFactory{partitions: partitions("events", 1)}
	v := NewValidator(factory, nil)

	validate(v, "events", true, map[string]interface{}{StreamsRPCTimeoutMs: "1500"})
	validate(v, "events", true, nil)

	require.Len(t, factory.producers, 2)
	overridden, ok := factory.producers[0].Get(MaxBlockMs)
	require.True(t, ok)
	require.Equal(t, "1500", overridden)
	defaulted, ok := factory.producers[1].Get(MaxBlockMs)
	require.True(t, ok)
	require.Equal(t, 60000, defaulted)

	clientID, _ := factory.producers[0].Get(ClientID)
	require.Equal(t, "topicMetadataClient", clientID)
}

func TestMetadataBrokerListPreferred(t *testing.T) {
	factory := &fakeFactory{partitions: partitions("events", 1)}
	v := NewValidator(factory, nil)
	var issues issue.Issues
	v.ValidateTopicExistence(context.Background(), issue.NewStageContext("stage"), "KAFKA", "topic",
		[]string{"ignored:9092"}, " a:9092, b:9092 ", "events", nil, &issues, false)
	require.Equal(t, []string{"a:9092", "b:9092"}, factory.consumers[0].Brokers())
}

func TestPartitionCount(t *testing.T) {
	factory := &fakeFactory{partitions: partitions("events", 4)}
	v := NewValidator(factory, nil)
	count, err := v.PartitionCount(context.Background(), "localhost:9092", "events", nil, 10, 100)
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.Len(t, factory.consumers, 1)
}

func TestPartitionCountUnknown(t *testing.T) {
	factory := &fakeFactory{}
	v := NewValidator(factory, nil)
	count, err := v.PartitionCount(context.Background(), "localhost:9092", "events", nil, 0, 0)
	require.NoError(t, err)
	require.Equal(t, -1, count)
}

func TestPartitionCountEmpty(t *testing.T) {
	factory := &fakeFactory{partitions: []PartitionInfo{}}
	v := NewValidator(factory, nil)
	count, err := v.PartitionCount(context.Background(), "localhost:9092", "events", nil, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestPartitionCountBrokerFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	factory := &fakeFactory{queryErr: errors.New("broker not available")}
	v := NewValidator(factory, zap.New(core))

	count, err := v.PartitionCount(context.Background(), "localhost:9092", "events", nil, 0, 0)
	require.Equal(t, -1, count)
	var stageErr *issue.StageError
	require.True(t, errors.As(err, &stageErr))
	require.Equal(t, issue.PartitionCountFailed, stageErr.Code)
	require.Contains(t, stageErr.Message, "events")
	require.Contains(t, stageErr.Message, "broker not available")
	require.Equal(t, 1, logs.Len())
}

func TestValidateConcurrent(t *testing.T) {
	factory := &fakeFactory{partitions: partitions("events", 2)}
	v := NewValidator(factory, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(producer bool) {
			defer wg.Done()
			out := v.Validate(context.Background(), Request{
				Brokers: []string{"localhost:9092"},
				Topic:   "events",
				Role:    map[bool]Role{true: ProducerRole, false: ConsumerRole}[producer],
			})
			assert.True(t, out.Valid)
			assert.Equal(t, 2, out.PartitionCount)
		}(i%2 == 0)
	}
	wg.Wait()
	require.Equal(t, 10, factory.created())
}

func TestVersion(t *testing.T) {
	require.Equal(t, "0.9", NewValidator(&fakeFactory{}, nil).Version())
}

func TestValidateLogsClientConfig(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	factory := &fakeFactory{partitions: partitions("events", 1)}
	v := NewValidator(factory, zap.New(core))

	ok, _ := validate(v, "events", true, map[string]interface{}{StreamsRPCTimeoutMs: 750})
	require.True(t, ok)

	entries := logs.FilterMessage("building metadata client").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "events", fields["topic"])
	props, ok := fields["config"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, metadataClientID, props[ClientID])
	require.Equal(t, 750, props[MaxBlockMs])
}
