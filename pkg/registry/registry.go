// Package registry loads a YAML address-label book used to identify
// known targets, owners, and modules when a package's target warnings
// and signer warnings are computed (spec §4.7).
package registry

import (
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

// Kind is the closed vocabulary of what a registry entry labels.
type Kind string

const (
	KindContract Kind = "contract"
	KindEOA      Kind = "eoa"
	KindModule   Kind = "module"
	KindSigner   Kind = "signer"
)

// entry is the on-disk YAML shape of one registry row.
type entry struct {
	Address  string   `yaml:"address"`
	Name     string   `yaml:"name"`
	Kind     Kind     `yaml:"kind"`
	ChainIDs []uint64 `yaml:"chainIds,omitempty"`
}

// file is the top-level YAML document shape.
type file struct {
	Entries []entry `yaml:"entries"`
}

// Entry is a resolved registry row.
type Entry struct {
	Address  common.Address
	Name     string
	Kind     Kind
	ChainIDs []uint64 // empty means "applies to every chain"
}

// Registry resolves addresses to human-readable labels, scoped by chain.
type Registry struct {
	byAddress map[common.Address][]Entry
}

// Empty returns a Registry with no entries, so lookups never need a nil
// check at the call site.
func Empty() *Registry {
	return &Registry{byAddress: make(map[common.Address][]Entry)}
}

// Load reads and parses a YAML registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, verrors.New(verrors.CodeSchemaError, "could not read registry file").WithCause(err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, verrors.New(verrors.CodeSchemaError, "could not parse registry YAML").WithCause(err)
	}

	r := Empty()
	for _, e := range f.Entries {
		if !strings.HasPrefix(e.Address, "0x") {
			return nil, verrors.Newf(verrors.CodeSchemaError, "registry entry %q is missing 0x prefix", e.Name)
		}
		addr := common.HexToAddress(e.Address)
		r.byAddress[addr] = append(r.byAddress[addr], Entry{
			Address:  addr,
			Name:     e.Name,
			Kind:     e.Kind,
			ChainIDs: e.ChainIDs,
		})
	}
	return r, nil
}

// Lookup resolves address on chainID, preferring a chain-scoped entry
// over a global one (spec §4.7: "global entries with no chainIds match
// all chains").
func (r *Registry) Lookup(address common.Address, chainID uint64) (Entry, bool) {
	candidates := r.byAddress[address]
	var global *Entry
	for i := range candidates {
		c := candidates[i]
		if len(c.ChainIDs) == 0 {
			if global == nil {
				global = &candidates[i]
			}
			continue
		}
		for _, id := range c.ChainIDs {
			if id == chainID {
				return c, true
			}
		}
	}
	if global != nil {
		return *global, true
	}
	return Entry{}, false
}

// Known reports whether address is present in the registry for chainID,
// regardless of its labeled kind.
func (r *Registry) Known(address common.Address, chainID uint64) bool {
	_, ok := r.Lookup(address, chainID)
	return ok
}
