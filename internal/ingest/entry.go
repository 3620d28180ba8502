package ingest

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Known levels.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Defaults applied to incoming entries.
const (
	DefaultLevel  = LevelInfo
	DefaultSource = "client"
)

// Entry is a single client log entry as received and echoed back.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Source    string          `json:"source"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ApplyDefaults fills the level and source when absent and stamps the entry
// with the receipt time. Any client-supplied timestamp is overwritten.
func (e *Entry) ApplyDefaults(receivedAt time.Time) {
	if e.Level == "" {
		e.Level = DefaultLevel
	}
	if e.Source == "" {
		e.Source = DefaultSource
	}
	if bytes.Equal(bytes.TrimSpace(e.Data), []byte("null")) {
		e.Data = nil
	}
	e.Timestamp = receivedAt.UTC()
}

// Validate checks the fields a client must supply.
func (e Entry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Message, validation.Required),
	)
}

// NormalizedLevel maps the entry level onto a known level. Unrecognized
// levels map to the default.
func (e Entry) NormalizedLevel() string {
	switch l := strings.ToLower(e.Level); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l
	default:
		return DefaultLevel
	}
}
