package market

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"
)

// ChainClient is the slice of the chain handle the data layer consumes. The
// session manager owns the underlying handle; this layer is re-pointed
// through SetClient whenever the manager swaps it.
type ChainClient interface {
	Account() common.Address
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Scan bounds. There is no indexer: everything is reconstructed by probing
// an integer id space, so every enumeration carries a hard cap. Tokens
// beyond a cap are silently not enumerated; that is a stated capacity limit
// of the no-indexer design, not a bug.
const (
	listingScanCap = 50
	domainScanCap  = 40
	ownedScanCap   = 30
	countScanCap   = 50

	// callPacing spaces successive RPC reads inside paginated loops to stay
	// under free-tier provider rate limits.
	callPacing = 100 * time.Millisecond

	// tokenCountTTL bounds how long a derived token count is reused before
	// being re-scanned.
	tokenCountTTL = time.Minute
)

var errNoClient = errors.New("no chain client attached")

// notFoundPatterns marks read errors that mean "this id does not exist"
// rather than "the provider is degraded".
var notFoundPatterns = []string{
	"execution reverted",
	"revert",
	"nonexistent",
	"invalid token",
	"not found",
	"out of bounds",
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range notFoundPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// DataAccess answers listing/token queries against the marketplace and NFT
// contracts and submits the marketplace mutations. Read failures degrade to
// partial or empty results; mutation failures degrade to a nil hash. Nothing
// here panics or propagates a provider error to the caller.
type DataAccess struct {
	mu     sync.RWMutex
	client ChainClient
	addrs  Addresses
	logger *log.Logger

	limiter *rate.Limiter

	cachedTokenCount   int
	cachedTokenCountAt time.Time

	// tunables, shortened in tests
	notFoundLimit int
	rpcErrorLimit int
	backoffBase   time.Duration
	backoffMax    time.Duration
	waitMined     time.Duration
}

// New builds a data-access layer over the given chain handle and contract
// address book. The logger may be nil.
func New(client ChainClient, addrs Addresses, logger *log.Logger) *DataAccess {
	return &DataAccess{
		client:        client,
		addrs:         addrs,
		logger:        logger,
		limiter:       rate.NewLimiter(rate.Every(callPacing), 1),
		notFoundLimit: 5,
		rpcErrorLimit: 3,
		backoffBase:   time.Second,
		backoffMax:    5 * time.Second,
		waitMined:     2 * time.Minute,
	}
}

// SetClient re-points the layer at a new chain handle. Called by the owner
// whenever the session manager swaps the handle (connect, network switch,
// disconnect with nil). Cached derived counts belong to the old network and
// are dropped.
func (d *DataAccess) SetClient(client ChainClient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.client = client
	d.cachedTokenCountAt = time.Time{}
}

// SetAddresses replaces the contract address book (per-chain deployments).
func (d *DataAccess) SetAddresses(addrs Addresses) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addrs = addrs
	d.cachedTokenCountAt = time.Time{}
}

// ContractAddresses returns the current contract address book.
func (d *DataAccess) ContractAddresses() Addresses {
	return d.addresses()
}

func (d *DataAccess) getClient() ChainClient {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.client
}

func (d *DataAccess) addresses() Addresses {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.addrs
}

func (d *DataAccess) logf(level log.Level, msg string, kv ...any) {
	if d.logger == nil {
		return
	}
	d.logger.Log(level, msg, kv...)
}

// pace inserts the inter-call delay used by paginated loops.
func (d *DataAccess) pace(ctx context.Context) error {
	return d.limiter.Wait(ctx)
}

// call performs one read-only contract call and unpacks the outputs.
func (d *DataAccess) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	client := d.getClient()
	if client == nil {
		return nil, errNoClient
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return parsed.Unpack(method, out)
}

// scanner tracks the failure counters of one fallback scan. RPC-level
// faults and "id does not exist" results are counted separately: the former
// suggest a degraded provider and slow the scan down, the latter suggest
// the end of the range.
type scanner struct {
	d *DataAccess

	// knownRange marks a scan over a counter-derived id range. Misses inside
	// a known range are cancelled ids, not the end of it, and never stop the
	// scan; only provider faults can.
	knownRange bool

	rpcErrors  int
	consecMiss int
	backoff    time.Duration
}

func (d *DataAccess) newScanner() *scanner {
	return &scanner{d: d}
}

func (d *DataAccess) newRangeScanner() *scanner {
	return &scanner{d: d, knownRange: true}
}

// next reports whether the scan should continue after observing err for the
// previous probe (nil = hit).
func (s *scanner) next(ctx context.Context, err error) bool {
	switch {
	case err == nil:
		s.consecMiss = 0
		// recover slowly once the provider behaves again
		s.backoff /= 2
	case isNotFound(err):
		if s.knownRange {
			break
		}
		s.consecMiss++
		if s.consecMiss >= s.d.notFoundLimit {
			// ran past the end of the id range
			return false
		}
	default:
		s.rpcErrors++
		if s.rpcErrors >= s.d.rpcErrorLimit {
			s.d.logf(log.WarnLevel, "aborting scan, provider looks degraded", "rpc_errors", s.rpcErrors)
			return false
		}
		if s.backoff == 0 {
			s.backoff = s.d.backoffBase
		} else {
			s.backoff *= 2
		}
		if s.backoff > s.d.backoffMax {
			s.backoff = s.d.backoffMax
		}
	}

	if s.backoff > 0 {
		select {
		case <-time.After(s.backoff):
		case <-ctx.Done():
			return false
		}
	}
	return ctx.Err() == nil
}
