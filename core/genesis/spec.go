package genesis

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stakeledger/native/staking"
)

// Spec is the YAML genesis document of a local ledger.
type Spec struct {
	GenesisTime string            `yaml:"genesisTime"`
	ChainID     uint64            `yaml:"chainId"`
	Alloc       map[string]uint64 `yaml:"alloc"`
	Mints       []MintSpec        `yaml:"mints"`
	Collections []CollectionSpec  `yaml:"collections"`
	Staking     *StakingSpec      `yaml:"staking,omitempty"`

	genesisTimestamp time.Time
}

// MintSpec declares a fungible mint and its initial balances.
type MintSpec struct {
	Name      string            `yaml:"name"`
	Decimals  uint8             `yaml:"decimals"`
	Authority string            `yaml:"authority"`
	Balances  map[string]uint64 `yaml:"balances"`
}

// CollectionSpec declares an NFT collection and its members.
type CollectionSpec struct {
	Name      string       `yaml:"name"`
	URI       string       `yaml:"uri"`
	Authority string       `yaml:"authority"`
	Members   []MemberSpec `yaml:"members"`
}

// MemberSpec declares a single NFT inside a collection.
type MemberSpec struct {
	Name     string `yaml:"name"`
	URI      string `yaml:"uri"`
	Owner    string `yaml:"owner"`
	Verified bool   `yaml:"verified"`
}

// StakingSpec optionally creates the staking config at genesis. Collection is
// either the name of a genesis collection or a bech32 mint address.
type StakingSpec struct {
	Authority             string `yaml:"authority"`
	PointsPerNFT          uint8  `yaml:"pointsPerNft"`
	PointsPerNativeUnit   uint8  `yaml:"pointsPerNativeUnit"`
	PointsPerFungibleUnit uint8  `yaml:"pointsPerFungibleUnit"`
	MinFreezePeriod       uint32 `yaml:"minFreezePeriod"`
	NativePolicy          string `yaml:"nativePolicy"`
	Collection            string `yaml:"collection"`
}

// LoadSpec reads and validates a genesis YAML file.
func LoadSpec(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseSpec decodes and validates a genesis YAML document.
func ParseSpec(raw []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

// GenesisTimestamp returns the parsed genesis time.
func (s *Spec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

func parseGenesisTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("genesisTime: %w", err)
	}
	return ts.UTC(), nil
}

func (s *Spec) validate() error {
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = ts

	for addr := range s.Alloc {
		if _, err := ParseBech32Account(addr); err != nil {
			return fmt.Errorf("alloc %q: %w", addr, err)
		}
	}
	names := make(map[string]struct{}, len(s.Mints))
	for i := range s.Mints {
		m := &s.Mints[i]
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("mint[%d]: name must be provided", i)
		}
		if _, exists := names[m.Name]; exists {
			return fmt.Errorf("mint[%d]: duplicate name %q", i, m.Name)
		}
		names[m.Name] = struct{}{}
		if _, err := ParseBech32Account(m.Authority); err != nil {
			return fmt.Errorf("mint[%d] authority: %w", i, err)
		}
		for owner := range m.Balances {
			if _, err := ParseBech32Account(owner); err != nil {
				return fmt.Errorf("mint[%d] balance %q: %w", i, owner, err)
			}
		}
	}
	collections := make(map[string]struct{}, len(s.Collections))
	for i := range s.Collections {
		c := &s.Collections[i]
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("collection[%d]: name must be provided", i)
		}
		if _, exists := collections[c.Name]; exists {
			return fmt.Errorf("collection[%d]: duplicate name %q", i, c.Name)
		}
		collections[c.Name] = struct{}{}
		if _, err := ParseBech32Account(c.Authority); err != nil {
			return fmt.Errorf("collection[%d] authority: %w", i, err)
		}
		members := make(map[string]struct{}, len(c.Members))
		for j := range c.Members {
			member := &c.Members[j]
			if strings.TrimSpace(member.Name) == "" {
				return fmt.Errorf("collection[%d] member[%d]: name must be provided", i, j)
			}
			if _, exists := members[member.Name]; exists {
				return fmt.Errorf("collection[%d] member[%d]: duplicate name %q", i, j, member.Name)
			}
			members[member.Name] = struct{}{}
			if _, err := ParseBech32Account(member.Owner); err != nil {
				return fmt.Errorf("collection[%d] member[%d] owner: %w", i, j, err)
			}
		}
	}
	if s.Staking != nil {
		if _, err := ParseBech32Account(s.Staking.Authority); err != nil {
			return fmt.Errorf("staking authority: %w", err)
		}
		if _, ok := staking.ParseNativePolicy(s.Staking.NativePolicy); !ok {
			return fmt.Errorf("staking nativePolicy: unknown value %q", s.Staking.NativePolicy)
		}
		if s.Staking.Collection != "" {
			if _, named := collections[s.Staking.Collection]; !named {
				if _, err := ParseBech32Mint(s.Staking.Collection); err != nil {
					return fmt.Errorf("staking collection: %w", err)
				}
			}
		}
	}
	return nil
}
