package db

import "time"

// ResultEnvelope is the wire form of a Result shared by the servers and
// the C bindings.
type ResultEnvelope struct {
	TimeMs float64        `json:"time_ms"`
	Type   string         `json:"type"`
	Result *ValueEnvelope `json:"result,omitempty"`
}

// ValueEnvelope carries the value of a GET; Value is null for absent keys.
type ValueEnvelope struct {
	Value *string `json:"value"`
}

func Envelope(result Result) ResultEnvelope {
	envelope := ResultEnvelope{
		TimeMs: float64(result.Elapsed()) / float64(time.Millisecond),
		Type:   result.Type().String(),
	}

	if get, ok := result.(GetResult); ok {
		envelope.Result = &ValueEnvelope{Value: get.Value}
	}

	return envelope
}
