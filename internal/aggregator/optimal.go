package aggregator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"automanKit/internal/automan"
	"automanKit/internal/chaininfo"
	"automanKit/internal/dex"
	"automanKit/internal/model"
	"automanKit/internal/v3math"
)

const maxSearchIterations = 7

var ErrTokenOrder = errors.New("token0 must sort before token1")

// Quoter is the subset of Client used by the optimizer.
type Quoter interface {
	ApproveTarget(ctx context.Context, chainID uint64) (common.Address, error)
	Quote(ctx context.Context, chainID uint64, src, dst common.Address, amount *big.Int, from common.Address, slippage float64) (Quote, error)
}

// MintSimulator is the subset of automan.Client used by the optimizer.
type MintSimulator interface {
	Info() chaininfo.Info
	GetOptimalSwap(ctx context.Context, pool common.Address, tickLower, tickUpper int32, amount0Desired, amount1Desired *big.Int, block *big.Int) (automan.OptimalSwap, error)
	SimulateMintOptimal(ctx context.Context, from common.Address, params automan.MintParams, swapData []byte, block *big.Int) (automan.MintResult, error)
}

var (
	_ Quoter        = (*Client)(nil)
	_ MintSimulator = (*automan.Client)(nil)
)

// MintRequest describes a two-token deposit into a new position.
type MintRequest struct {
	Token0         model.TokenMeta
	Token1         model.TokenMeta
	Fee            uint32
	TickLower      int32
	TickUpper      int32
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	From           common.Address
	Slippage       float64
	Deadline       *big.Int
}

// MintEstimate is the best simulated mint found.
type MintEstimate struct {
	Amount0      *big.Int
	Amount1      *big.Int
	Liquidity    *big.Int
	SwapData     []byte
	SwapAmountIn *big.Int
	Iterations   int
}

// Optimizer chooses between the pool-only swap and an aggregator swap for mintOptimal.
type Optimizer struct {
	quoter  Quoter
	sim     MintSimulator
	logger  *zap.Logger
	metrics *Metrics
}

func NewOptimizer(quoter Quoter, sim MintSimulator, logger *zap.Logger, metrics *Metrics) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Optimizer{quoter: quoter, sim: sim, logger: logger, metrics: metrics}
}

// MintParams returns the mintOptimal params for req with zero minimums.
func (req MintRequest) MintParams() automan.MintParams {
	deadline := req.Deadline
	if deadline == nil {
		deadline = big.NewInt(time.Now().Add(30 * time.Minute).Unix())
	}
	return automan.MintParams{
		Token0:         common.HexToAddress(req.Token0.Address),
		Token1:         common.HexToAddress(req.Token1.Address),
		Fee:            new(big.Int).SetUint64(uint64(req.Fee)),
		TickLower:      big.NewInt(int64(req.TickLower)),
		TickUpper:      big.NewInt(int64(req.TickUpper)),
		Amount0Desired: orZero(req.Amount0Desired),
		Amount1Desired: orZero(req.Amount1Desired),
		Amount0Min:     new(big.Int),
		Amount1Min:     new(big.Int),
		Recipient:      req.From,
		Deadline:       deadline,
	}
}

// Validate checks the request without touching the network.
func (req MintRequest) Validate() error {
	if !v3math.SortsBefore(req.Token0, req.Token1) {
		return ErrTokenOrder
	}
	if err := v3math.ValidateTicks(req.TickLower, req.TickUpper, req.Fee); err != nil {
		return err
	}
	if err := v3math.ValidateSlippage(req.Slippage); err != nil {
		return err
	}
	a0, a1 := orZero(req.Amount0Desired), orZero(req.Amount1Desired)
	if a0.Sign() < 0 || a1.Sign() < 0 {
		return fmt.Errorf("negative desired amount")
	}
	if a0.Sign() == 0 && a1.Sign() == 0 {
		return fmt.Errorf("both desired amounts are zero")
	}
	return nil
}

// OptimalMint estimates the mint with the highest liquidity.
//
// The pool-only swap computed by Automan is simulated first. When an aggregator quote for the
// same input beats it, the input amount is refined by a bounded binary search; each step costs
// one quote and one simulation. The best liquidity seen never decreases.
func (o *Optimizer) OptimalMint(ctx context.Context, req MintRequest) (MintEstimate, error) {
	if err := req.Validate(); err != nil {
		return MintEstimate{}, err
	}

	info := o.sim.Info()
	chainID := info.ChainID
	token0, token1 := common.HexToAddress(req.Token0.Address), common.HexToAddress(req.Token1.Address)
	pool, err := dex.ComputePoolAddress(info.Factory, token0, token1, req.Fee, info.PoolInitCodeHash)
	if err != nil {
		return MintEstimate{}, err
	}
	params := req.MintParams()

	swap, err := o.sim.GetOptimalSwap(ctx, pool, req.TickLower, req.TickUpper, params.Amount0Desired, params.Amount1Desired, nil)
	if err != nil {
		return MintEstimate{}, err
	}
	poolResult, err := o.sim.SimulateMintOptimal(ctx, req.From, params, nil, nil)
	if err != nil {
		return MintEstimate{}, err
	}
	poolEstimate := MintEstimate{
		Amount0:      poolResult.Amount0,
		Amount1:      poolResult.Amount1,
		Liquidity:    poolResult.Liquidity,
		SwapAmountIn: swap.AmountIn,
	}

	if info.OptimalSwapRouter == (common.Address{}) || swap.AmountIn == nil || swap.AmountIn.Sign() == 0 {
		o.metrics.searchOutcome.WithLabelValues("pool").Inc()
		return poolEstimate, nil
	}

	approveTarget, err := o.quoter.ApproveTarget(ctx, chainID)
	if err != nil {
		return MintEstimate{}, err
	}
	src, dst, in := token0, token1, req.Token0
	maxIn := params.Amount0Desired
	if !swap.ZeroForOne {
		src, dst, in = token1, token0, req.Token1
		maxIn = params.Amount1Desired
	}

	evaluate := func(amountIn *big.Int) (MintEstimate, error) {
		quote, err := o.quoter.Quote(ctx, chainID, src, dst, amountIn, info.OptimalSwapRouter, req.Slippage)
		if err != nil {
			return MintEstimate{}, err
		}
		swapData, err := EncodeOptimalSwapData(info.OptimalSwapRouter, SwapRoute{
			Token0:        token0,
			Token1:        token1,
			Fee:           req.Fee,
			TickLower:     req.TickLower,
			TickUpper:     req.TickUpper,
			ZeroForOne:    swap.ZeroForOne,
			ApproveTarget: approveTarget,
			Router:        quote.To,
			Data:          quote.Data,
		})
		if err != nil {
			return MintEstimate{}, err
		}
		result, err := o.sim.SimulateMintOptimal(ctx, req.From, params, swapData, nil)
		if err != nil {
			return MintEstimate{}, err
		}
		return MintEstimate{
			Amount0:      result.Amount0,
			Amount1:      result.Amount1,
			Liquidity:    result.Liquidity,
			SwapData:     swapData,
			SwapAmountIn: new(big.Int).Set(amountIn),
		}, nil
	}

	best, err := evaluate(swap.AmountIn)
	if err != nil {
		return MintEstimate{}, err
	}
	if best.Liquidity.Cmp(poolEstimate.Liquidity) <= 0 {
		o.metrics.searchOutcome.WithLabelValues("pool").Inc()
		return poolEstimate, nil
	}

	lo, hi := new(big.Int), new(big.Int).Set(maxIn)
	if best.SwapAmountIn.Cmp(hi) > 0 {
		hi.Set(best.SwapAmountIn)
	}
	tolerance := searchTolerance(in.Decimals)

	iterations := 0
	for iterations < maxSearchIterations && new(big.Int).Sub(hi, lo).Cmp(tolerance) > 0 {
		bestIn := best.SwapAmountIn
		left := new(big.Int).Sub(bestIn, lo)
		right := new(big.Int).Sub(hi, bestIn)
		probeLeft := left.Cmp(right) >= 0

		var probe *big.Int
		if probeLeft {
			probe = new(big.Int).Add(lo, bestIn)
		} else {
			probe = new(big.Int).Add(bestIn, hi)
		}
		probe.Rsh(probe, 1)
		if probe.Cmp(bestIn) == 0 || probe.Sign() == 0 {
			break
		}

		iterations++
		candidate, err := evaluate(probe)
		if err != nil {
			return MintEstimate{}, err
		}
		o.logger.Debug("optimal mint probe",
			zap.String("amount_in", probe.String()),
			zap.String("liquidity", candidate.Liquidity.String()),
			zap.String("best", best.Liquidity.String()),
		)

		if candidate.Liquidity.Cmp(best.Liquidity) > 0 {
			if probeLeft {
				hi.Set(bestIn)
			} else {
				lo.Set(bestIn)
			}
			best = candidate
		} else if probeLeft {
			lo.Set(probe)
		} else {
			hi.Set(probe)
		}
	}

	o.metrics.searchIterations.Observe(float64(iterations))
	o.metrics.searchOutcome.WithLabelValues("aggregator").Inc()
	best.Iterations = iterations
	return best, nil
}

// searchTolerance is 0.1% of one whole token of the swapped input.
func searchTolerance(decimals uint8) *big.Int {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	tol := unit.Quo(unit, big.NewInt(1000))
	if tol.Sign() == 0 {
		tol.SetInt64(1)
	}
	return tol
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
