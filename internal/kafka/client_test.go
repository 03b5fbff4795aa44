package kafka

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// generateTestKeyPair generates a self-signed cert/key pair.
func generateTestKeyPair(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"Test"}},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func TestProducerOptions_Basic(t *testing.T) {
	opts, err := ProducerOptions(&ClusterConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// seed brokers, client id, acks, record retries, idempotency
	if len(opts) != 5 {
		t.Errorf("expected 5 options, got %d", len(opts))
	}
}

func TestProducerOptions_SingleAttempt(t *testing.T) {
	opts, err := ProducerOptions(&ClusterConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cl, err := kgo.NewClient(opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer cl.Close()

	if v, _ := cl.OptValue(kgo.DisableIdempotentWrite).(bool); !v {
		t.Error("expected idempotent writes disabled")
	}
	if v, _ := cl.OptValue(kgo.RecordRetries).(int64); v != 1 {
		t.Errorf("expected 1 record retry, got %d", v)
	}
}

func TestProducerOptions_InvalidConfig(t *testing.T) {
	if _, err := ProducerOptions(&ClusterConfig{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestProducerOptions_WithSASLAndTimeout(t *testing.T) {
	for _, mech := range []string{MechanismPlain, MechanismScramSHA256, MechanismScramSHA512} {
		t.Run(mech, func(t *testing.T) {
			opts, err := ProducerOptions(&ClusterConfig{
				Brokers:        []string{"localhost:9092"},
				ProduceTimeout: 5 * time.Second,
				Auth:           AuthConfig{Mechanism: mech, Username: "u", Password: "p"},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(opts) != 7 {
				t.Errorf("expected 7 options, got %d", len(opts))
			}
		})
	}
}

func TestSaslMechanism_Unsupported(t *testing.T) {
	if _, err := saslMechanism(AuthConfig{Mechanism: "OAUTHBEARER"}); err == nil {
		t.Fatal("expected error for unsupported mechanism")
	}
}

func TestBuildTLSConfig_WithCAAndClientCert(t *testing.T) {
	dir := t.TempDir()
	certPEM, keyPEM := generateTestKeyPair(t)
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, certPEM, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := buildTLSConfig(TLSConfig{Enabled: true, CAFile: certPath, CertFile: certPath, KeyFile: keyPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RootCAs == nil {
		t.Error("expected RootCAs to be set")
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("expected 1 client certificate, got %d", len(cfg.Certificates))
	}
}

func TestBuildTLSConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	badCA := filepath.Join(dir, "bad.pem")
	if err := os.WriteFile(badCA, []byte("not a cert"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  TLSConfig
	}{
		{name: "missing CA file", cfg: TLSConfig{CAFile: filepath.Join(dir, "missing.pem")}},
		{name: "invalid CA PEM", cfg: TLSConfig{CAFile: badCA}},
		{name: "missing client cert", cfg: TLSConfig{CertFile: filepath.Join(dir, "c.pem"), KeyFile: filepath.Join(dir, "k.pem")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildTLSConfig(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
