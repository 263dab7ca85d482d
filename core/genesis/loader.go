package genesis

import (
	"fmt"
	"sort"

	"stakeledger/core/state"
	"stakeledger/crypto"
	"stakeledger/native/nft"
	"stakeledger/native/staking"
	"stakeledger/native/token"
)

// MintAddress returns the address assigned to a genesis fungible mint.
func MintAddress(name string) [20]byte {
	return crypto.DeriveAddress(crypto.TokenProgram, []byte("genesis-mint"), []byte(name))
}

// CollectionAddress returns the mint address of a genesis collection.
func CollectionAddress(name string) [20]byte {
	return crypto.DeriveAddress(crypto.NFTProgram, []byte("genesis-collection"), []byte(name))
}

// MemberAddress returns the mint address of a genesis collection member.
func MemberAddress(collection, member string) [20]byte {
	return crypto.DeriveAddress(crypto.NFTProgram, []byte("genesis-member"), []byte(collection), []byte(member))
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply writes the genesis allocations, mints, collections and optional
// staking config into mgr. Map entries are applied in sorted order so the
// resulting state root is deterministic.
func Apply(spec *Spec, mgr *state.Manager) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if mgr == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	ledger := token.NewLedger(mgr)
	registry := nft.NewRegistry(mgr, ledger)

	for _, raw := range sortedKeys(spec.Alloc) {
		addr, err := ParseBech32Account(raw)
		if err != nil {
			return err
		}
		if err := ledger.CreditNative(addr, spec.Alloc[raw]); err != nil {
			return fmt.Errorf("alloc %s: %w", raw, err)
		}
	}

	for _, m := range spec.Mints {
		if err := applyMint(ledger, m); err != nil {
			return fmt.Errorf("mint %s: %w", m.Name, err)
		}
	}

	for _, c := range spec.Collections {
		if err := applyCollection(registry, c); err != nil {
			return fmt.Errorf("collection %s: %w", c.Name, err)
		}
	}

	if spec.Staking != nil {
		if err := applyStaking(spec, mgr, ledger, registry); err != nil {
			return fmt.Errorf("staking: %w", err)
		}
	}
	return mgr.SetStateVersion(state.StateVersion)
}

func applyMint(ledger *token.Ledger, m MintSpec) error {
	authority, err := ParseBech32Account(m.Authority)
	if err != nil {
		return err
	}
	addr := MintAddress(m.Name)
	mintSigner := crypto.DerivedSigner(crypto.TokenProgram, []byte("genesis-mint"), []byte(m.Name))
	if _, err := ledger.CreateMint(mintSigner, m.Decimals, authority, [20]byte{}); err != nil {
		return err
	}
	for _, raw := range sortedKeys(m.Balances) {
		owner, err := ParseBech32Account(raw)
		if err != nil {
			return err
		}
		account, err := ledger.EnsureAccount(crypto.AccountSigner(owner), owner, addr)
		if err != nil {
			return err
		}
		if err := ledger.MintTo(addr, account, m.Balances[raw], crypto.AccountSigner(authority)); err != nil {
			return err
		}
	}
	return nil
}

func applyCollection(registry *nft.Registry, c CollectionSpec) error {
	authority, err := ParseBech32Account(c.Authority)
	if err != nil {
		return err
	}
	collectionSigner := crypto.DerivedSigner(crypto.NFTProgram, []byte("genesis-collection"), []byte(c.Name))
	_, err = registry.CreateCollection(collectionSigner, crypto.AccountSigner(authority), nft.MintRequest{
		Name:            c.Name,
		URI:             c.URI,
		Owner:           authority,
		UpdateAuthority: authority,
	})
	if err != nil {
		return err
	}
	for _, member := range c.Members {
		owner, err := ParseBech32Account(member.Owner)
		if err != nil {
			return err
		}
		memberSigner := crypto.DerivedSigner(crypto.NFTProgram, []byte("genesis-member"), []byte(c.Name), []byte(member.Name))
		meta, err := registry.MintNFT(memberSigner, crypto.AccountSigner(owner), nft.MintRequest{
			Name:            member.Name,
			URI:             member.URI,
			Owner:           owner,
			UpdateAuthority: authority,
			Collection:      collectionSigner.Address(),
		})
		if err != nil {
			return fmt.Errorf("member %s: %w", member.Name, err)
		}
		if member.Verified {
			if err := registry.VerifyCollection(meta.Mint, crypto.AccountSigner(authority)); err != nil {
				return fmt.Errorf("verify %s: %w", member.Name, err)
			}
		}
	}
	return nil
}

func applyStaking(spec *Spec, mgr *state.Manager, ledger *token.Ledger, registry *nft.Registry) error {
	cfg := spec.Staking
	authority, err := ParseBech32Account(cfg.Authority)
	if err != nil {
		return err
	}
	policy, ok := staking.ParseNativePolicy(cfg.NativePolicy)
	if !ok {
		return fmt.Errorf("unknown native policy %q", cfg.NativePolicy)
	}
	var collection [20]byte
	if cfg.Collection != "" {
		collection = CollectionAddress(cfg.Collection)
		if !hasCollection(spec, cfg.Collection) {
			if collection, err = ParseBech32Mint(cfg.Collection); err != nil {
				return err
			}
		}
	}
	engine := staking.NewEngine(mgr, ledger, registry)
	genesisTime := spec.GenesisTimestamp().Unix()
	engine.SetNowFunc(func() int64 { return genesisTime })
	_, err = engine.CreateConfig(crypto.AccountSigner(authority), staking.ConfigParams{
		PointsPerNFT:          cfg.PointsPerNFT,
		PointsPerNativeUnit:   cfg.PointsPerNativeUnit,
		PointsPerFungibleUnit: cfg.PointsPerFungibleUnit,
		MinFreezePeriod:       cfg.MinFreezePeriod,
		NativePolicy:          policy,
		Collection:            collection,
	})
	return err
}

func hasCollection(spec *Spec, name string) bool {
	for _, c := range spec.Collections {
		if c.Name == name {
			return true
		}
	}
	return false
}
