// Package kafka holds the producer-side Kafka cluster settings shared by the
// Kafka transport.
package kafka

import (
	"errors"
	"fmt"
	"time"
)

// SASL mechanisms accepted in AuthConfig.Mechanism.
const (
	MechanismPlain       = "PLAIN"
	MechanismScramSHA256 = "SCRAM-SHA-256"
	MechanismScramSHA512 = "SCRAM-SHA-512"
)

// ClusterConfig describes the cluster envelopes are produced to.
type ClusterConfig struct {
	Brokers        []string      `yaml:"brokers"`
	ClientID       string        `yaml:"clientID,omitempty"`
	ProduceTimeout time.Duration `yaml:"produceTimeout,omitempty"`
	Auth           AuthConfig    `yaml:"auth,omitempty"`
	TLS            TLSConfig     `yaml:"tls,omitempty"`
}

// AuthConfig defines SASL authentication.
type AuthConfig struct {
	Mechanism string `yaml:"mechanism"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// TLSConfig defines TLS settings for broker connections.
type TLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CAFile     string `yaml:"caFile,omitempty"`
	CertFile   string `yaml:"certFile,omitempty"` // mTLS
	KeyFile    string `yaml:"keyFile,omitempty"`  // mTLS
	SkipVerify bool   `yaml:"skipVerify,omitempty"`
}

// Validate checks the cluster configuration. All problems are reported.
func (c *ClusterConfig) Validate() error {
	var errs []error

	if len(c.Brokers) == 0 {
		errs = append(errs, errors.New("brokers are required"))
	}
	if c.ProduceTimeout < 0 {
		errs = append(errs, errors.New("produceTimeout must not be negative"))
	}

	switch c.Auth.Mechanism {
	case "":
	case MechanismPlain, MechanismScramSHA256, MechanismScramSHA512:
		if c.Auth.Username == "" {
			errs = append(errs, errors.New("auth.username is required when mechanism is set"))
		}
		if c.Auth.Password == "" {
			errs = append(errs, errors.New("auth.password is required when mechanism is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mechanism %q is not valid (must be PLAIN, SCRAM-SHA-256, or SCRAM-SHA-512)", c.Auth.Mechanism))
	}

	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls.certFile and tls.keyFile must be set together"))
	}

	return errors.Join(errs...)
}
