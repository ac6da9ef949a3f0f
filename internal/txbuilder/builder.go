package txbuilder

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"automanKit/internal/aggregator"
	"automanKit/internal/automan"
	"automanKit/internal/chain"
	"automanKit/internal/chaininfo"
	"automanKit/internal/dex"
	"automanKit/internal/v3math"
)

var (
	ErrDeadlinePassed     = errors.New("deadline already passed")
	ErrInvalidPercentage  = errors.New("liquidity percentage must be within (0, 1]")
	ErrLimitPriceNotValid = errors.New("specified limit price not applicable")
	ErrNoOptimizer        = errors.New("optimal mint requires an aggregator optimizer")
)

// Tx is an unsigned transaction ready for a wallet to sign.
type Tx struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *big.Int       `json:"value"`
}

// Builder assembles unsigned position transactions for one chain.
type Builder struct {
	sim        chain.Simulator
	info       chaininfo.Info
	automan    *automan.Client
	optimizer  *aggregator.Optimizer
	poolCache  *dex.PoolMetaCache
	tokenCache *dex.TokenMetaCache
	logger     *zap.Logger
	now        func() time.Time
}

// NewBuilder returns a builder. optimizer may be nil when OptimalMintTx is not used.
func NewBuilder(sim chain.Simulator, info chaininfo.Info, optimizer *aggregator.Optimizer, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		sim:        sim,
		info:       info,
		automan:    automan.NewClient(sim, info, logger),
		optimizer:  optimizer,
		poolCache:  dex.NewPoolMetaCache(),
		tokenCache: dex.NewTokenMetaCache(),
		logger:     logger,
		now:        time.Now,
	}
}

func (b *Builder) validateDeadline(deadline *big.Int) error {
	if deadline == nil || deadline.Sign() <= 0 {
		return fmt.Errorf("deadline is required")
	}
	if deadline.Int64() <= b.now().Unix() {
		return fmt.Errorf("%w: %s", ErrDeadlinePassed, deadline)
	}
	return nil
}

func minimums(amount0, amount1 *big.Int, slippage float64) (*big.Int, *big.Int, error) {
	min0, err := v3math.ApplySlippage(amount0, slippage)
	if err != nil {
		return nil, nil, err
	}
	min1, err := v3math.ApplySlippage(amount1, slippage)
	if err != nil {
		return nil, nil, err
	}
	return min0, min1, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
