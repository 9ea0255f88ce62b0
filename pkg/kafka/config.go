package kafka

import (
	"errors"
	"fmt"
)

// Config holds Kafka connection parameters.
type Config struct {
	ConsumerGroup string
	ClientID      string

	// SASL configuration for authentication.
	SASLMechanism string // "PLAIN" or "SCRAM-SHA-256" or "SCRAM-SHA-512"
	SASLUsername  string
	SASLPassword  string

	// TLSCAFile optionally pins the broker CA.
	TLSCAFile string

	Brokers []string

	// TLS enables TLS for Kafka connections.
	TLS         bool
	SASLEnabled bool
}

// Validate reports configuration that cannot produce a working client.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka: at least one broker is required")
	}
	if c.SASLEnabled {
		switch c.SASLMechanism {
		case "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("kafka: unsupported SASL mechanism %q", c.SASLMechanism)
		}
		if c.SASLUsername == "" {
			return errors.New("kafka: SASL username is required")
		}
	}
	return nil
}
