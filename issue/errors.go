package issue

import "fmt"

// ErrorCode identifies a configuration or stage failure.
type ErrorCode int

const (
	InvalidConfiguration ErrorCode = iota
	MissingTopicName
	PartitionCountFailed
	BrokerQueryFailed
	TopicNotFound
)

var codeNames = map[ErrorCode]string{
	InvalidConfiguration: "CONFIG_00",
	MissingTopicName:     "KAFKA_05",
	PartitionCountFailed: "KAFKA_41",
	BrokerQueryFailed:    "MAPRSTREAMS_01",
	TopicNotFound:        "MAPRSTREAMS_02",
}

var codeMessages = map[ErrorCode]string{
	InvalidConfiguration: "Invalid configuration: %s",
	MissingTopicName:     "Topic cannot be empty",
	PartitionCountFailed: "Could not get partition count for topic '%s' : %s",
	BrokerQueryFailed:    "Error validating topic '%s': %s",
	TopicNotFound:        "Topic '%s' does not exist",
}

// String returns the catalog name of the code, e.g. KAFKA_05.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_%d", int(c))
}

func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Format renders the code's message template with args.
func (c ErrorCode) Format(args ...interface{}) string {
	tmpl, ok := codeMessages[c]
	if !ok {
		return fmt.Sprint(args...)
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// StageError is returned from operations that fail outright rather than
// reporting a config issue.
type StageError struct {
	Code    ErrorCode
	Message string
}

func NewStageError(code ErrorCode, args ...interface{}) *StageError {
	return &StageError{Code: code, Message: code.Format(args...)}
}

func (e *StageError) Error() string {
	return e.Code.String() + " - " + e.Message
}
