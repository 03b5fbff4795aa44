package kafka

import (
	"strings"
	"testing"
)

func TestClusterConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClusterConfig
		wantErr string
	}{
		{
			name: "minimal",
			cfg:  ClusterConfig{Brokers: []string{"localhost:9092"}},
		},
		{
			name: "scram",
			cfg: ClusterConfig{
				Brokers: []string{"localhost:9092"},
				Auth:    AuthConfig{Mechanism: MechanismScramSHA512, Username: "u", Password: "p"},
			},
		},
		{
			name:    "no brokers",
			cfg:     ClusterConfig{},
			wantErr: "brokers are required",
		},
		{
			name: "unknown mechanism",
			cfg: ClusterConfig{
				Brokers: []string{"localhost:9092"},
				Auth:    AuthConfig{Mechanism: "GSSAPI", Username: "u", Password: "p"},
			},
			wantErr: `auth.mechanism "GSSAPI" is not valid`,
		},
		{
			name: "mechanism without credentials",
			cfg: ClusterConfig{
				Brokers: []string{"localhost:9092"},
				Auth:    AuthConfig{Mechanism: MechanismPlain},
			},
			wantErr: "auth.username is required",
		},
		{
			name: "cert without key",
			cfg: ClusterConfig{
				Brokers: []string{"localhost:9092"},
				TLS:     TLSConfig{Enabled: true, CertFile: "/tmp/cert.pem"},
			},
			wantErr: "tls.certFile and tls.keyFile must be set together",
		},
		{
			name: "negative timeout",
			cfg: ClusterConfig{
				Brokers:        []string{"localhost:9092"},
				ProduceTimeout: -1,
			},
			wantErr: "produceTimeout must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestClusterConfig_Validate_ReportsAll(t *testing.T) {
	cfg := ClusterConfig{Auth: AuthConfig{Mechanism: MechanismPlain}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"brokers", "username", "password"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}
