package registry

import (
	"fmt"
	"strings"
)

// Chain describes a supported EVM network.
type Chain struct {
	Name    string
	Slug    string
	ChainID int64
}

var chainBySlug = map[string]Chain{
	"ethereum": {Name: "Ethereum", Slug: "ethereum", ChainID: 1},
	"mainnet":  {Name: "Ethereum", Slug: "ethereum", ChainID: 1},
	"base":     {Name: "Base", Slug: "base", ChainID: 8453},
	"arbitrum": {Name: "Arbitrum", Slug: "arbitrum", ChainID: 42161},
	"optimism": {Name: "Optimism", Slug: "optimism", ChainID: 10},
	"polygon":  {Name: "Polygon", Slug: "polygon", ChainID: 137},
	"zircuit":  {Name: "Zircuit", Slug: "zircuit", ChainID: 48900},
}

var chainByID = map[int64]Chain{
	1:     chainBySlug["ethereum"],
	10:    chainBySlug["optimism"],
	137:   chainBySlug["polygon"],
	8453:  chainBySlug["base"],
	42161: chainBySlug["arbitrum"],
	48900: chainBySlug["zircuit"],
}

// ParseChain resolves a slug or a numeric chain id into a Chain. Unknown
// numeric ids are accepted so custom networks can be configured by id.
func ParseChain(input string) (Chain, error) {
	raw := strings.ToLower(strings.TrimSpace(input))
	if raw == "" {
		return Chain{}, fmt.Errorf("chain is required")
	}
	if chain, ok := chainBySlug[raw]; ok {
		return chain, nil
	}
	var numeric int64
	if _, err := fmt.Sscanf(raw, "%d", &numeric); err == nil && fmt.Sprintf("%d", numeric) == raw {
		if chain, ok := chainByID[numeric]; ok {
			return chain, nil
		}
		return Chain{Name: fmt.Sprintf("EVM-%d", numeric), Slug: fmt.Sprintf("evm-%d", numeric), ChainID: numeric}, nil
	}
	return Chain{}, fmt.Errorf("unsupported chain input: %s", input)
}

// ChainByID looks up a known chain by its numeric id.
func ChainByID(chainID int64) (Chain, bool) {
	chain, ok := chainByID[chainID]
	return chain, ok
}

// ChainName returns a display name for a chain id, falling back to the
// numeric form for unknown chains.
func ChainName(chainID int64) string {
	if chain, ok := chainByID[chainID]; ok {
		return chain.Name
	}
	return fmt.Sprintf("chain %d", chainID)
}
