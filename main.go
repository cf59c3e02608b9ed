package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/stundzia/streamcheck/config"
	"github.com/stundzia/streamcheck/issue"
	"github.com/stundzia/streamcheck/kafka"
	"github.com/stundzia/streamcheck/logger"
)

type arguments struct {
	ConfigDir          string   `help:"Directory holding the base config file." default:"conf"`
	LogLevel           string   `help:"Lowest log level that will be emitted, overrides the config file."`
	LogFormat          string   `help:"Format to write log lines in, overrides the config file."`
	Library            string   `help:"Kafka client library used for metadata queries (kafka-go or sarama)."`
	Brokers            []string `help:"Broker host:port list."`
	MetadataBrokerList string   `help:"Comma separated metadata broker list, preferred over --brokers."`

	Validate struct {
		Topic    string `arg:"" optional:"" help:"Topic to validate, defaults to the configured topic."`
		Producer bool   `help:"Query metadata with a producer role client."`
	} `cmd:"" help:"Check that a topic exists."`

	Partitions struct {
		Topic string `arg:"" optional:"" help:"Topic to inspect, defaults to the configured topic."`
	} `cmd:"" help:"Print the partition count of a topic."`

	Describe struct {
		Topic string `arg:"" optional:"" help:"Topic to describe, defaults to the configured topic."`
	} `cmd:"" help:"Print partition and replication details of a topic as JSON."`
}

func main() {
	code, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func run(args []string, out io.Writer) (int, error) {
	cli := &arguments{}
	parser, err := kong.New(cli, kong.Name("streamcheck"), kong.Description("Validate topics on a Kafka or MapR Streams cluster."))
	if err != nil {
		return 2, err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return 2, err
	}

	cfg, err := config.Load(cli.ConfigDir)
	if err != nil {
		return 2, err
	}
	applyOverrides(cfg, cli)

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return 2, err
	}
	defer func() {
		_ = log.Sync()
	}()

	factory, err := kafka.NewClientFactory(kafka.Library(cfg.Kafka.Library))
	if err != nil {
		return 2, issue.NewStageError(issue.InvalidConfiguration, err.Error())
	}
	validator := kafka.NewValidator(factory, log)
	ctx := context.Background()

	switch strings.Fields(kctx.Command())[0] {
	case "validate":
		topic := firstNonEmpty(cli.Validate.Topic, cfg.Kafka.Topic)
		return validate(ctx, validator, cfg.Kafka, topic, cli.Validate.Producer || cfg.Kafka.Producer, out), nil
	case "describe":
		return describe(ctx, validator, cfg.Kafka, firstNonEmpty(cli.Describe.Topic, cfg.Kafka.Topic), out)
	case "partitions":
		topic := firstNonEmpty(cli.Partitions.Topic, cfg.Kafka.Topic)
		count, err := validator.PartitionCount(ctx, metadataBrokers(cfg.Kafka), topic, cfg.Kafka.ClientConfigs, 0, 0)
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(out, count)
		return 0, nil
	}
	return 2, fmt.Errorf("unknown command %q", kctx.Command())
}

func validate(ctx context.Context, v *kafka.Validator, kc *config.Kafka, topic string, producer bool, out io.Writer) int {
	var issues issue.Issues
	valid := v.ValidateTopicExistence(ctx, issue.NewStageContext(kc.Stage), kc.GroupName, kc.ConfigName,
		kc.Brokers, kc.MetadataBrokerList, topic, kc.ClientConfigs, &issues, producer)
	if !valid {
		for _, i := range issues {
			fmt.Fprintln(out, i.String())
		}
		return 1
	}
	fmt.Fprintf(out, "topic %s is valid\n", topic)
	return 0
}

func describe(ctx context.Context, v *kafka.Validator, kc *config.Kafka, topic string, out io.Writer) (int, error) {
	outcome := v.Validate(ctx, kafka.Request{
		Brokers:            kc.Brokers,
		MetadataBrokerList: kc.MetadataBrokerList,
		Topic:              topic,
		ClientConfigs:      kc.ClientConfigs,
		Role:               kafka.ConsumerRole,
	})
	if f := outcome.Failure; f != nil {
		args := []interface{}{}
		if f.Code != issue.MissingTopicName {
			args = append(args, f.Topic)
		}
		if f.Code == issue.BrokerQueryFailed {
			args = append(args, f.Message)
		}
		return 1, issue.NewStageError(f.Code, args...)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "\t")
	return 0, enc.Encode(kafka.NewTopicMetadata(topic, outcome.Partitions))
}

func applyOverrides(cfg *config.Config, cli *arguments) {
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
	if cli.Library != "" {
		cfg.Kafka.Library = cli.Library
	}
	if len(cli.Brokers) > 0 {
		cfg.Kafka.Brokers = cli.Brokers
	}
	if cli.MetadataBrokerList != "" {
		cfg.Kafka.MetadataBrokerList = cli.MetadataBrokerList
	}
}

// metadataBrokers returns the metadata broker list, or the broker list joined
// when none is configured.
func metadataBrokers(kc *config.Kafka) string {
	if strings.TrimSpace(kc.MetadataBrokerList) != "" {
		return kc.MetadataBrokerList
	}
	return strings.Join(kc.Brokers, ",")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
