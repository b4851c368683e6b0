package session

import (
	"math/big"

	"domain-market-tui/connector"
)

// networks is the fixed descriptor table of chains the client recognizes,
// keyed by chain id. Used to answer add-network requests when a wallet does
// not know the target chain yet.
var networks = map[int64]connector.ChainDescriptor{
	137: {
		ChainID:     big.NewInt(137),
		Name:        "Polygon Mainnet",
		Currency:    "POL",
		RPCURL:      "https://polygon-rpc.com",
		ExplorerURL: "https://polygonscan.com",
	},
	80002: {
		ChainID:     big.NewInt(80002),
		Name:        "Polygon Amoy Testnet",
		Currency:    "POL",
		RPCURL:      "https://rpc-amoy.polygon.technology",
		ExplorerURL: "https://amoy.polygonscan.com",
	},
	31337: {
		ChainID:     big.NewInt(31337),
		Name:        "Localhost 8545",
		Currency:    "ETH",
		RPCURL:      "http://127.0.0.1:8545",
		ExplorerURL: "",
	},
}

// LookupNetwork returns the descriptor for a recognized chain id.
func LookupNetwork(chainID *big.Int) (connector.ChainDescriptor, bool) {
	if chainID == nil || !chainID.IsInt64() {
		return connector.ChainDescriptor{}, false
	}
	desc, ok := networks[chainID.Int64()]
	return desc, ok
}

// SupportedNetworks returns the recognized chain ids in ascending order.
func SupportedNetworks() []*big.Int {
	ids := make([]*big.Int, 0, len(networks))
	for id := range networks {
		ids = append(ids, big.NewInt(id))
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j].Cmp(ids[i]) < 0 {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	return ids
}
