package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/Bren2010/ktverify/crypto/suites"
	"github.com/Bren2010/ktverify/keytrans"
)

// Config is the file format of the demo CLI's configuration file: which
// log it talks to, and where to persist verifier state between runs.
type Config struct {
	CipherSuite uint16 `yaml:"cipher-suite"`
	Mode        string `yaml:"mode"`     // "contact-monitoring", "third-party-management", "third-party-auditing"
	ModeKey     string `yaml:"mode-key"` // hex-encoded, required unless mode is contact-monitoring

	SignatureKey string `yaml:"signature-key"` // hex-encoded public key
	VrfKey       string `yaml:"vrf-key"`        // hex-encoded public key

	StoragePath string `yaml:"storage-path"`
	MetricsAddr string `yaml:"metrics-addr"`

	public *keytrans.PublicConfig
}

// ReadConfig loads and validates a Config from filename.
func ReadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	if cfg.StoragePath == "" {
		return nil, fmt.Errorf("field not provided: storage-path")
	} else if cfg.SignatureKey == "" {
		return nil, fmt.Errorf("field not provided: signature-key")
	} else if cfg.VrfKey == "" {
		return nil, fmt.Errorf("field not provided: vrf-key")
	}

	suite, ok := suites.ById(cfg.CipherSuite)
	if !ok {
		return nil, fmt.Errorf("unknown cipher suite: %d", cfg.CipherSuite)
	}

	var mode keytrans.DeploymentMode
	switch cfg.Mode {
	case "", "contact-monitoring":
		mode = keytrans.DeploymentMode{Kind: keytrans.ContactMonitoring}
	case "third-party-management":
		mode = keytrans.DeploymentMode{Kind: keytrans.ThirdPartyManagement}
	case "third-party-auditing":
		mode = keytrans.DeploymentMode{Kind: keytrans.ThirdPartyAuditing}
	default:
		return nil, fmt.Errorf("unknown deployment mode: %s", cfg.Mode)
	}
	if mode.HasAssociatedKey() {
		if cfg.ModeKey == "" {
			return nil, fmt.Errorf("field not provided: mode-key")
		}
		key, err := hex.DecodeString(cfg.ModeKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mode-key: %v", err)
		}
		mode.Key = key
	}

	sigKey, err := hex.DecodeString(cfg.SignatureKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signature-key: %v", err)
	}
	vrfKey, err := hex.DecodeString(cfg.VrfKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vrf-key: %v", err)
	}

	public, err := keytrans.NewPublicConfig(suite, mode, sigKey, vrfKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build public config: %v", err)
	}
	cfg.public = public

	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = "localhost:9090"
	}
	return &cfg, nil
}
