package ingest

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Sink formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Sink writes client entries to a dedicated logrus logger, keeping them apart
// from the service's own logs, and publishes them to a broker.
type Sink struct {
	logger *logrus.Logger
	broker *Broker
	json   bool
}

// NewSink creates a sink writing to w in the given format (FormatJSON or
// FormatText). broker may be nil.
func NewSink(w io.Writer, format string, broker *Broker) *Sink {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)

	isJSON := format != FormatText
	if isJSON {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	return &Sink{logger: l, broker: broker, json: isJSON}
}

// Logger returns the underlying logrus logger.
func (s *Sink) Logger() *logrus.Logger {
	return s.logger
}

// Ingest emits e at the level it maps to and publishes it to subscribers.
func (s *Sink) Ingest(e Entry) {
	fields := logrus.Fields{
		"source": e.Source,
	}
	if e.Level != e.NormalizedLevel() {
		fields["client_level"] = e.Level
	}
	if len(e.Data) > 0 {
		if s.json {
			fields["data"] = e.Data
		} else {
			fields["data"] = string(e.Data)
		}
	}

	s.logger.WithFields(fields).WithTime(e.Timestamp).Log(sinkLevel(e.NormalizedLevel()), e.Message)

	if s.broker != nil {
		s.broker.Publish(e)
	}
}

func sinkLevel(level string) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
