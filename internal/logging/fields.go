// Package logging provides a fluent structured-field builder on top of
// logrus, mirroring the teacher's pkg/shared/logging.Fields idiom, extended
// with streaming-pipeline-specific helpers (step, version range, request
// metadata).
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a chainable structured-logging field set.
type Fields map[string]interface{}

// NewFields returns an empty Fields set.
func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

func (f Fields) Resource(kind, name string) Fields {
	f["resource_type"] = kind
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

func (f Fields) Size(bytes int) Fields {
	f["size_bytes"] = int64(bytes)
	return f
}

func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// ToLogrus adapts Fields to logrus.Fields for use with logrus.WithFields.
func (f Fields) ToLogrus() logrus.Fields {
	out := make(logrus.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// StepFields builds the field set shared by every pipeline step log line:
// component, the step name, and the [start,end] version range it covers.
func StepFields(step string, startVersion, endVersion int64) Fields {
	f := NewFields().Component("data_service").Operation(step)
	if startVersion >= 0 {
		f["start_version"] = startVersion
	}
	if endVersion >= 0 {
		f["end_version"] = endVersion
	}
	return f
}

// RequestFields builds the standard per-connection label set used across
// logs and metrics: api key name, email, processor name, connection id, and
// user classification.
func RequestFields(apiKeyName, email, processorName, connectionID, userClassification string) Fields {
	return NewFields().
		Custom("request_api_key_name", apiKeyName).
		Custom("request_email", email).
		Custom("processor_name", processorName).
		Custom("connection_id", connectionID).
		Custom("request_user_classification", userClassification)
}
