package kafka

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/stundzia/streamcheck/issue"
)

const (
	// KafkaVersion is the protocol generation the validator targets.
	KafkaVersion = "0.9"

	// ConfigBeanPrefix qualifies the topic config name in TopicNotFound issues.
	ConfigBeanPrefix = "maprStreamsTargetConfigBean.mapRStreamsTargetConfig."
)

// Request describes one topic metadata query.
type Request struct {
	Brokers            []string
	MetadataBrokerList string
	Topic              string
	ClientConfigs      map[string]interface{}
	Role               Role
}

// Failure says why a query did not produce a valid topic.
type Failure struct {
	Code    issue.ErrorCode
	Topic   string
	Message string
}

// Outcome is the result of a single query. PartitionCount is -1 when the
// broker could not report partitions for the topic.
type Outcome struct {
	Valid          bool
	PartitionCount int
	Partitions     []PartitionInfo
	Failure        *Failure
}

// Validator checks topics against a cluster. It holds no per call state and
// is safe for concurrent use.
type Validator struct {
	factory ClientFactory
	logger  *zap.Logger
}

func NewValidator(factory ClientFactory, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{factory: factory, logger: logger}
}

func (v *Validator) Version() string {
	return KafkaVersion
}

// Validate builds a metadata client for the request's role, asks for the
// topic's partitions and closes the client again.
func (v *Validator) Validate(ctx context.Context, req Request) Outcome {
	if strings.TrimSpace(req.Topic) == "" {
		return Outcome{PartitionCount: -1, Failure: &Failure{Code: issue.MissingTopicName}}
	}

	client, err := v.newClient(req)
	if err != nil {
		return brokerFailure(req.Topic, err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			v.logger.Warn("failed to close metadata client", zap.String("topic", req.Topic), zap.Error(err))
		}
	}()

	partitions, err := client.PartitionsFor(ctx, req.Topic)
	if err != nil {
		return brokerFailure(req.Topic, err)
	}
	v.logger.Debug("read topic metadata",
		zap.String("topic", req.Topic),
		zap.Stringer("role", req.Role),
		zap.Int("partitions", len(partitions)))

	out := Outcome{PartitionCount: -1, Partitions: partitions}
	if partitions != nil {
		out.PartitionCount = len(partitions)
	}
	if len(partitions) == 0 {
		out.Failure = &Failure{Code: issue.TopicNotFound, Topic: req.Topic}
		return out
	}
	out.Valid = true
	return out
}

func (v *Validator) newClient(req Request) (MetadataClient, error) {
	servers := bootstrapServers(req.MetadataBrokerList, req.Brokers)
	if req.Role == ProducerRole {
		cfg := producerMetadataConfig(servers, req.ClientConfigs)
		v.logClientConfig(req, cfg)
		return v.factory.NewProducer(cfg)
	}
	cfg := consumerMetadataConfig(servers, req.ClientConfigs)
	v.logClientConfig(req, cfg)
	return v.factory.NewConsumer(cfg)
}

func (v *Validator) logClientConfig(req Request, cfg ClientConfig) {
	if ce := v.logger.Check(zap.DebugLevel, "building metadata client"); ce != nil {
		ce.Write(
			zap.String("topic", req.Topic),
			zap.Stringer("role", req.Role),
			zap.Any("config", cfg.Props()))
	}
}

func brokerFailure(topic string, err error) Outcome {
	return Outcome{
		PartitionCount: -1,
		Failure:        &Failure{Code: issue.BrokerQueryFailed, Topic: topic, Message: err.Error()},
	}
}

// PartitionCount returns the number of partitions of topic, or -1 if the
// broker reports no partition list for it. Broker failures are returned as an
// *issue.StageError.
//
// maxRetries and retryBackoffMs are accepted for interface compatibility and
// are not applied; every failure is reported on the first attempt.
func (v *Validator) PartitionCount(
	ctx context.Context,
	metadataBrokerList string,
	topic string,
	clientConfigs map[string]interface{},
	maxRetries int,
	retryBackoffMs int64,
) (int, error) {
	out := v.Validate(ctx, Request{
		MetadataBrokerList: metadataBrokerList,
		Topic:              topic,
		ClientConfigs:      clientConfigs,
		Role:               ConsumerRole,
	})
	if out.Failure == nil {
		return out.PartitionCount, nil
	}
	switch out.Failure.Code {
	case issue.MissingTopicName:
		return -1, issue.NewStageError(issue.MissingTopicName)
	case issue.BrokerQueryFailed:
		err := issue.NewStageError(issue.PartitionCountFailed, topic, out.Failure.Message)
		v.logger.Error(err.Message, zap.String("topic", topic), zap.String("error", out.Failure.Message))
		return -1, err
	}
	return out.PartitionCount, nil
}

// ValidateTopicExistence reports whether topic exists, appending any problem
// found to issues. It never returns an error; broker failures become issues.
func (v *Validator) ValidateTopicExistence(
	ctx context.Context,
	stage issue.Context,
	groupName string,
	configName string,
	brokers []string,
	metadataBrokerList string,
	topic string,
	clientConfigs map[string]interface{},
	issues issue.Sink,
	producer bool,
) bool {
	role := ConsumerRole
	if producer {
		role = ProducerRole
	}
	out := v.Validate(ctx, Request{
		Brokers:            brokers,
		MetadataBrokerList: metadataBrokerList,
		Topic:              topic,
		ClientConfigs:      clientConfigs,
		Role:               role,
	})
	if out.Failure == nil {
		return true
	}

	f := out.Failure
	switch f.Code {
	case issue.MissingTopicName:
		issues.Add(stage.CreateConfigIssue(groupName, configName, issue.MissingTopicName))
	case issue.TopicNotFound:
		issues.Add(stage.CreateConfigIssue(groupName, ConfigBeanPrefix+"topic", issue.TopicNotFound, f.Topic))
	case issue.BrokerQueryFailed:
		v.logger.Error(issue.BrokerQueryFailed.Format(f.Topic, f.Message),
			zap.String("topic", f.Topic),
			zap.Stringer("role", role),
			zap.String("error", f.Message))
		issues.Add(stage.CreateConfigIssue(groupName, configName, issue.BrokerQueryFailed, f.Topic, f.Message))
	}
	return false
}
