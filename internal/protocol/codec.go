package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformed marks a payload that does not parse into the structure its type requires.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownKind marks a payload whose type discriminator is not part of the protocol.
	ErrUnknownKind = errors.New("unknown message type")
)

type envelope struct {
	Type Kind `json:"type"`
}

type clusterDetailsWire struct {
	ProcessedAt Stamp `json:"processedAt"`
	RequestedAt Stamp `json:"requestedAt"`
	Data        *struct {
		Clusters []Cluster `json:"clusters"`
	} `json:"data"`
}

type executionResultWire struct {
	CorrelationID string `json:"correlationId"`
	RequestedAt   Stamp  `json:"requestedAt"`
	ProcessedAt   Stamp  `json:"processedAt"`
	Data          *struct {
		Result *CommandResult `json:"result"`
	} `json:"data"`
}

// DecodeInbound parses one inbound payload. Errors wrap ErrMalformed or
// ErrUnknownKind; callers drop the message and keep the channel open.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case KindClusterDetails:
		var w clusterDetailsWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: cluster_details: %v", ErrMalformed, err)
		}
		if w.Data == nil {
			return nil, fmt.Errorf("%w: cluster_details without data", ErrMalformed)
		}
		return ClusterDetails{
			Snapshot:    ClusterSnapshot{ProcessedAt: w.ProcessedAt, Clusters: w.Data.Clusters},
			RequestedAt: w.RequestedAt,
		}, nil

	case KindLogMessage:
		record, err := decodeLogRecord(data)
		if err != nil {
			return nil, err
		}
		return LogMessage{Record: record}, nil

	case KindExecutionResult:
		var w executionResultWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: execution_result: %v", ErrMalformed, err)
		}
		if w.Data == nil || w.Data.Result == nil {
			return nil, fmt.Errorf("%w: execution_result without data.result", ErrMalformed)
		}
		return ExecutionResult{
			Result:        *w.Data.Result,
			CorrelationID: w.CorrelationID,
			RequestedAt:   w.RequestedAt,
			ProcessedAt:   w.ProcessedAt,
		}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
}

func decodeLogRecord(data []byte) (LogRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return LogRecord{}, fmt.Errorf("%w: log_message: %v", ErrMalformed, err)
	}

	var record LogRecord
	raw, ok := fields["data"]
	if !ok {
		return LogRecord{}, fmt.Errorf("%w: log_message without data", ErrMalformed)
	}
	if err := json.Unmarshal(raw, &record.Data); err != nil {
		return LogRecord{}, fmt.Errorf("%w: log_message data is not a string", ErrMalformed)
	}

	stamps := map[string]*Stamp{
		"requestedAt": &record.RequestedAt,
		"receivedAt":  &record.ReceivedAt,
		"processedAt": &record.ProcessedAt,
	}
	for name, target := range stamps {
		if raw, ok := fields[name]; ok {
			if err := json.Unmarshal(raw, target); err != nil {
				return LogRecord{}, fmt.Errorf("%w: log_message %s: %v", ErrMalformed, name, err)
			}
		}
	}

	for name, raw := range fields {
		if name == "type" || name == "data" {
			continue
		}
		if _, known := stamps[name]; known {
			continue
		}
		if record.Extra == nil {
			record.Extra = make(map[string]json.RawMessage)
		}
		record.Extra[name] = raw
	}
	return record, nil
}

type queryWire struct {
	Type        Kind   `json:"type"`
	RequestedAt string `json:"requestedAt"`
}

type executeWire struct {
	Type           Kind         `json:"type"`
	TargetHostname string       `json:"targetHostname"`
	TargetPort     int          `json:"targetPort"`
	RepeatTimes    int          `json:"repeatTimes"`
	RequestedAt    string       `json:"requestedAt"`
	RuntimeName    string       `json:"runtimeName"`
	Input          CommandInput `json:"input"`
	CorrelationID  string       `json:"correlationId,omitempty"`
}

// now is swapped in tests.
var now = time.Now

// EncodeOutbound serializes a request. A zero RequestedAt is stamped with the current time.
func EncodeOutbound(msg Outbound) ([]byte, error) {
	switch m := msg.(type) {
	case QueryClusterDetails:
		return json.Marshal(queryWire{
			Type:        KindQueryClusterDetails,
			RequestedAt: FormatTime(stampOrNow(m.RequestedAt)),
		})

	case ExecuteCommand:
		req := m.Request
		input := req.Input
		if input.PositionalArguments == nil {
			input.PositionalArguments = []string{}
		}
		if input.Options == nil {
			input.Options = map[string]string{}
		}
		repeat := req.RepeatTimes
		if repeat < 0 {
			repeat = 0
		}
		return json.Marshal(executeWire{
			Type:           KindExecuteCommand,
			TargetHostname: req.TargetHostname,
			TargetPort:     req.TargetPort,
			RepeatTimes:    repeat,
			RequestedAt:    FormatTime(stampOrNow(req.RequestedAt)),
			RuntimeName:    req.RuntimeName,
			Input:          input,
			CorrelationID:  m.CorrelationID,
		})

	default:
		return nil, fmt.Errorf("cannot encode %T", msg)
	}
}

func stampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return now()
	}
	return t
}
