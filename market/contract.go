package market

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Contract ABIs for the fixed external method surface. The contracts
// themselves are a black box; only these signatures are relied on.

const marketplaceABIJSON = `[
	{"type":"function","name":"getListing","stateMutability":"view",
		"inputs":[{"name":"listingId","type":"uint256"}],
		"outputs":[
			{"name":"seller","type":"address"},
			{"name":"nftContract","type":"address"},
			{"name":"tokenId","type":"uint256"},
			{"name":"price","type":"uint256"},
			{"name":"active","type":"bool"}]},
	{"type":"function","name":"lastListingId","stateMutability":"view",
		"inputs":[],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"buy","stateMutability":"payable",
		"inputs":[{"name":"listingId","type":"uint256"}],
		"outputs":[]},
	{"type":"function","name":"listToken","stateMutability":"nonpayable",
		"inputs":[
			{"name":"nftContract","type":"address"},
			{"name":"tokenId","type":"uint256"},
			{"name":"price","type":"uint256"}],
		"outputs":[]},
	{"type":"function","name":"cancelListing","stateMutability":"nonpayable",
		"inputs":[{"name":"listingId","type":"uint256"}],
		"outputs":[]},
	{"type":"function","name":"updateListing","stateMutability":"nonpayable",
		"inputs":[
			{"name":"listingId","type":"uint256"},
			{"name":"newPrice","type":"uint256"}],
		"outputs":[]},
	{"type":"function","name":"withdrawFees","stateMutability":"nonpayable",
		"inputs":[],
		"outputs":[]},
	{"type":"function","name":"accruedFees","stateMutability":"view",
		"inputs":[],
		"outputs":[{"name":"","type":"uint256"}]}
]`

const nftABIJSON = `[
	{"type":"function","name":"ownerOf","stateMutability":"view",
		"inputs":[{"name":"tokenId","type":"uint256"}],
		"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getTokenData","stateMutability":"view",
		"inputs":[{"name":"tokenId","type":"uint256"}],
		"outputs":[
			{"name":"name","type":"string"},
			{"name":"creator","type":"address"},
			{"name":"splitter","type":"address"},
			{"name":"mintedAt","type":"uint256"},
			{"name":"tokenURI","type":"string"},
			{"name":"lastSalePrice","type":"uint256"},
			{"name":"lastSaleTime","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable",
		"inputs":[
			{"name":"to","type":"address"},
			{"name":"tokenId","type":"uint256"}],
		"outputs":[]},
	{"type":"function","name":"getApproved","stateMutability":"view",
		"inputs":[{"name":"tokenId","type":"uint256"}],
		"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"hasRole","stateMutability":"view",
		"inputs":[
			{"name":"role","type":"bytes32"},
			{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable",
		"inputs":[
			{"name":"to","type":"address"},
			{"name":"domainName","type":"string"}],
		"outputs":[]}
]`

const splitterABIJSON = `[
	{"type":"function","name":"ethBalance","stateMutability":"view",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable",
		"inputs":[],
		"outputs":[]}
]`

var (
	marketplaceABI = mustParseABI(marketplaceABIJSON)
	nftABI         = mustParseABI(nftABIJSON)
	splitterABI    = mustParseABI(splitterABIJSON)
)

// Access-control role identifiers used by the privileged mutations.
var (
	// DefaultAdminRole is the zero role of OpenZeppelin-style AccessControl.
	DefaultAdminRole = [32]byte{}
	// MinterRole gates domain minting.
	MinterRole = [32]byte(crypto.Keccak256Hash([]byte("MINTER_ROLE")))
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// Addresses is the per-chain contract address book.
type Addresses struct {
	Marketplace common.Address
	NFT         common.Address
}
