// Package stdf builds STDF v2 envelopes from CloudWatch log events.
package stdf

import (
	"encoding/json"
	"fmt"

	"github.com/lsm/cloudwatch-stdf/internal/awslogs"
	"github.com/lsm/cloudwatch-stdf/internal/config"
)

// Fixed envelope values.
const (
	Provider = "AWS"
	Service  = "CloudWatch"
	Version  = 2
)

// envelopeKeys are the settings copied into every envelope.
var envelopeKeys = []string{
	config.EnvMessageTitle,
	config.EnvMessageDescription,
	config.EnvSourceAccountNumber,
	config.EnvSourceRegion,
	config.EnvAppName,
}

// Envelope is the normalized message published for each log event.
type Envelope struct {
	Payload     Payload `json:"payload"`
	Meta        Meta    `json:"meta"`
	STDFVersion int     `json:"stdf_version"`
}

// Payload carries the alert text and the untouched log line.
type Payload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	RawData     string `json:"raw_data"`
}

// Meta describes when and where the log line originated.
type Meta struct {
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch, as received
	Source    Source `json:"source"`
}

// Source identifies the emitting account and application.
type Source struct {
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
	Region    string `json:"region"`
	Service   string `json:"service"`
	EventID   string `json:"event_id"`
	AppName   string `json:"app_name"`
}

// Format maps one log event onto an envelope. Settings values are copied
// verbatim; an absent value fails with a *config.MissingError.
func Format(rec awslogs.LogEvent, s *config.Settings) (*Envelope, error) {
	if err := s.Require(envelopeKeys...); err != nil {
		return nil, err
	}

	return &Envelope{
		Payload: Payload{
			Title:       *s.MessageTitle,
			Description: *s.MessageDescription,
			RawData:     rec.Message,
		},
		Meta: Meta{
			Timestamp: rec.Timestamp,
			Source: Source{
				Provider:  Provider,
				AccountID: *s.SourceAccountNumber,
				Region:    *s.SourceRegion,
				Service:   Service,
				EventID:   rec.ID,
				AppName:   *s.AppName,
			},
		},
		STDFVersion: Version,
	}, nil
}

// Marshal renders the envelope as JSON text.
func Marshal(e *Envelope) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("envelope is nil")
	}
	return json.Marshal(e)
}

// Unmarshal parses JSON text produced by Marshal.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &e, nil
}
