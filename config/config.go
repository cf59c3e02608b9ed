package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Kafka *Kafka `mapstructure:"kafka"`
	Log   *Log   `mapstructure:"log"`
}

type Kafka struct {
	Brokers            []string `mapstructure:"brokers"`
	MetadataBrokerList string   `mapstructure:"metadataBrokerList"`
	Topic              string   `mapstructure:"topic"`
	Producer           bool     `mapstructure:"producer"`
	Library            string   `mapstructure:"library"`
	Stage              string   `mapstructure:"stage"`
	GroupName          string   `mapstructure:"groupName"`
	ConfigName         string   `mapstructure:"configName"`

	// ClientConfigs are passed to the validator as is. Keys keep their dots
	// but viper lowercases them, so a mixed case property name such as
	// Streams.RPC.Timeout.Ms arrives as streams.rpc.timeout.ms.
	ClientConfigs map[string]interface{} `mapstructure:"clientConfigs"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	envPrefix = "STREAMCHECK"
	// keyDelimiter replaces viper's default "." so client config keys such as
	// streams.rpc.timeout.ms are not split into nested maps.
	keyDelimiter = "::"
)

// Load reads base.{yaml,json,toml} from dir. A missing file is not an error;
// defaults and STREAMCHECK_* environment variables still apply.
func Load(dir string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetConfigName("base")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.Kafka.ClientConfigs == nil {
		cfg.Kafka.ClientConfigs = map[string]interface{}{}
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	key := func(parts ...string) string { return strings.Join(parts, keyDelimiter) }
	v.SetDefault(key("kafka", "brokers"), []string{"localhost:9092"})
	v.SetDefault(key("kafka", "metadataBrokerList"), "")
	v.SetDefault(key("kafka", "topic"), "")
	v.SetDefault(key("kafka", "producer"), false)
	v.SetDefault(key("kafka", "library"), "kafka-go")
	v.SetDefault(key("kafka", "stage"), "streamcheck")
	v.SetDefault(key("kafka", "groupName"), "KAFKA")
	v.SetDefault(key("kafka", "configName"), "topic")
	v.SetDefault(key("log", "level"), "info")
	v.SetDefault(key("log", "format"), "console")
}
