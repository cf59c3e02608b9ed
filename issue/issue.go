package issue

import "fmt"

// ConfigIssue is a single problem found while validating stage configuration.
type ConfigIssue struct {
	Stage   string    `json:"stage"`
	Group   string    `json:"group"`
	Config  string    `json:"config"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (i ConfigIssue) String() string {
	return fmt.Sprintf("%s [%s/%s] %s - %s", i.Stage, i.Group, i.Config, i.Code, i.Message)
}

// Context creates issues bound to a stage.
type Context interface {
	CreateConfigIssue(group, config string, code ErrorCode, args ...interface{}) ConfigIssue
}

// Sink collects issues. Validation accumulates every issue before failing.
type Sink interface {
	Add(ConfigIssue)
}

// Issues is a slice backed Sink.
type Issues []ConfigIssue

func (is *Issues) Add(i ConfigIssue) {
	*is = append(*is, i)
}

type stageContext struct {
	stage string
}

// NewStageContext returns a Context that stamps issues with stage.
func NewStageContext(stage string) Context {
	return &stageContext{stage: stage}
}

func (s *stageContext) CreateConfigIssue(group, config string, code ErrorCode, args ...interface{}) ConfigIssue {
	return ConfigIssue{
		Stage:   s.stage,
		Group:   group,
		Config:  config,
		Code:    code,
		Message: code.Format(args...),
	}
}
