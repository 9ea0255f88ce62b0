package kafka

import (
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/bibbank/leasing/pkg/tlsutil"
)

// saslMechanism resolves the configured SASL mechanism.
func saslMechanism(cfg Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.SASLUsername, cfg.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.SASLUsername, cfg.SASLPassword)
	case "PLAIN", "":
		return plain.Mechanism{
			Username: cfg.SASLUsername,
			Password: cfg.SASLPassword,
		}, nil
	default:
		return nil, fmt.Errorf("kafka: unsupported SASL mechanism %q", cfg.SASLMechanism)
	}
}

// newTransport builds the writer transport. Nil means kafka-go defaults.
func newTransport(cfg Config) (*kafkago.Transport, error) {
	if !cfg.TLS && !cfg.SASLEnabled && cfg.ClientID == "" {
		return nil, nil
	}
	t := &kafkago.Transport{ClientID: cfg.ClientID}
	if cfg.TLS {
		tlsCfg, err := tlsutil.ClientConfig(cfg.TLSCAFile, false)
		if err != nil {
			return nil, err
		}
		t.TLS = tlsCfg
	}
	if cfg.SASLEnabled {
		m, err := saslMechanism(cfg)
		if err != nil {
			return nil, err
		}
		t.SASL = m
	}
	return t, nil
}

// newDialer builds the reader dialer. Nil means kafka-go defaults.
func newDialer(cfg Config) (*kafkago.Dialer, error) {
	if !cfg.TLS && !cfg.SASLEnabled && cfg.ClientID == "" {
		return nil, nil
	}
	d := &kafkago.Dialer{ClientID: cfg.ClientID, DualStack: true}
	if cfg.TLS {
		tlsCfg, err := tlsutil.ClientConfig(cfg.TLSCAFile, false)
		if err != nil {
			return nil, err
		}
		d.TLS = tlsCfg
	}
	if cfg.SASLEnabled {
		m, err := saslMechanism(cfg)
		if err != nil {
			return nil, err
		}
		d.SASLMechanism = m
	}
	return d, nil
}
