package common

import (
	"errors"
	"fmt"
	"os"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"gopkg.in/yaml.v3"
)

const (
	EthNetworkMainnet = "mainnet"
	EthNetworkHolesky = "holesky"
	EthNetworkSepolia = "sepolia"
	EthNetworkHelder  = "helder"
	EthNetworkCustom  = "custom"

	GenesisForkVersionMainnet = "0x00000000"
	GenesisForkVersionHolesky = "0x01017000"
	GenesisForkVersionSepolia = "0x90000069"
	GenesisForkVersionHelder  = "0x10000000"
)

// DomainTypeAppBuilder is DOMAIN_APPLICATION_BUILDER. Constraints, delegations and
// revocations are all signed over the builder domain, which is independent of the
// genesis validators root.
var DomainTypeAppBuilder = phase0.DomainType{0x00, 0x00, 0x00, 0x01}

var ErrUnknownNetwork = errors.New("unknown network")

// EthNetworkDetails is the chain context used for signature verification.
// It is immutable after construction and safe to share between requests.
type EthNetworkDetails struct {
	Name               string
	GenesisForkVersion string

	DomainBuilder phase0.Domain
}

// NetworkConfig is the on-disk YAML shape of a custom network.
type NetworkConfig struct {
	Name               string `yaml:"name"`
	GenesisForkVersion string `yaml:"genesis_fork_version"`
}

// NewEthNetworkDetails returns the details of a well-known network.
func NewEthNetworkDetails(networkName string) (*EthNetworkDetails, error) {
	var forkVersion string
	switch networkName {
	case EthNetworkMainnet:
		forkVersion = GenesisForkVersionMainnet
	case EthNetworkHolesky:
		forkVersion = GenesisForkVersionHolesky
	case EthNetworkSepolia:
		forkVersion = GenesisForkVersionSepolia
	case EthNetworkHelder:
		forkVersion = GenesisForkVersionHelder
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, networkName)
	}
	return newEthNetworkDetails(networkName, forkVersion)
}

// LoadEthNetworkDetails reads a custom network definition from a YAML file.
func LoadEthNetworkDetails(path string) (*EthNetworkDetails, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network config: %w", err)
	}

	var cfg NetworkConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse network config: %w", err)
	}

	if cfg.GenesisForkVersion == "" {
		return nil, errors.New("genesis_fork_version must not be empty")
	}
	if cfg.Name == "" {
		cfg.Name = EthNetworkCustom
	}
	return newEthNetworkDetails(cfg.Name, cfg.GenesisForkVersion)
}

func newEthNetworkDetails(name, forkVersion string) (*EthNetworkDetails, error) {
	domainBuilder, err := ComputeDomain(DomainTypeAppBuilder, forkVersion, phase0.Root{})
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", name, err)
	}
	return &EthNetworkDetails{
		Name:               name,
		GenesisForkVersion: forkVersion,
		DomainBuilder:      domainBuilder,
	}, nil
}

func (e *EthNetworkDetails) String() string {
	return fmt.Sprintf("EthNetworkDetails{Name: %s, GenesisForkVersion: %s, DomainBuilder: %x}",
		e.Name, e.GenesisForkVersion, e.DomainBuilder)
}
