package automan

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"automanKit/internal/chain"
	"automanKit/internal/chaininfo"
	"automanKit/internal/overrides"
)

// Client simulates Automan calls on one chain.
type Client struct {
	sim    chain.Simulator
	info   chaininfo.Info
	logger *zap.Logger
}

// NewClient builds an Automan client for the chain described by info.
func NewClient(sim chain.Simulator, info chaininfo.Info, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{sim: sim, info: info, logger: logger}
}

// Info returns the chain deployment the client targets.
func (c *Client) Info() chaininfo.Info {
	return c.info
}

// GetOptimalSwap asks Automan for the pool-only swap that balances the desired amounts for the range.
func (c *Client) GetOptimalSwap(ctx context.Context, pool common.Address, tickLower, tickUpper int32, amount0Desired, amount1Desired *big.Int, block *big.Int) (OptimalSwap, error) {
	data, err := GetOptimalSwapCalldata(pool, tickLower, tickUpper, amount0Desired, amount1Desired)
	if err != nil {
		return OptimalSwap{}, err
	}
	out, err := c.sim.CallContract(ctx, ethereum.CallMsg{To: &c.info.Automan, Data: data}, block)
	if err != nil {
		return OptimalSwap{}, fmt.Errorf("call getOptimalSwap: %w", err)
	}
	return DecodeOptimalSwap(out)
}

// IsWhiteListedSwapRouter reports whether Automan accepts swaps through router.
func (c *Client) IsWhiteListedSwapRouter(ctx context.Context, router common.Address, block *big.Int) (bool, error) {
	data, err := IsWhiteListedSwapRouterCalldata(router)
	if err != nil {
		return false, err
	}
	out, err := c.sim.CallContract(ctx, ethereum.CallMsg{To: &c.info.Automan, Data: data}, block)
	if err != nil {
		return false, fmt.Errorf("call isWhiteListedSwapRouter: %w", err)
	}
	values, err := unpackOutput("isWhiteListedSwapRouter", out, 1)
	if err != nil {
		return false, err
	}
	ok, _ := values[0].(bool)
	return ok, nil
}

// SimulateMintOptimal simulates mintOptimal from `from` with both token balances and
// allowances forced to the desired amounts.
func (c *Client) SimulateMintOptimal(ctx context.Context, from common.Address, params MintParams, swapData []byte, block *big.Int) (MintResult, error) {
	data, err := MintOptimalCalldata(params, swapData)
	if err != nil {
		return MintResult{}, err
	}

	var set chain.StateOverrides
	if c.info.SupportsStateOverride {
		var set0, set1 chain.StateOverrides
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			set0, err = overrides.ERC20Overrides(gctx, c.sim, params.Token0, from, c.info.Automan, orZero(params.Amount0Desired))
			return err
		})
		g.Go(func() error {
			var err error
			set1, err = overrides.ERC20Overrides(gctx, c.sim, params.Token1, from, c.info.Automan, orZero(params.Amount1Desired))
			return err
		})
		if err := g.Wait(); err != nil {
			return MintResult{}, err
		}
		set = overrides.Merge(set0, set1)
		if len(swapData) > 0 && c.info.OptimalSwapRouter != (common.Address{}) {
			set = overrides.Merge(set, overrides.AutomanWhitelistOverrides(c.info, c.info.OptimalSwapRouter))
		}
	}

	out, err := c.call(ctx, from, data, set, block)
	if err != nil {
		return MintResult{}, fmt.Errorf("simulate mintOptimal: %w", err)
	}
	return DecodeMintResult(out)
}

// SimulateRebalance simulates rebalance as owner with Automan approved on the position manager.
func (c *Client) SimulateRebalance(ctx context.Context, owner common.Address, params MintParams, tokenID, feeBips *big.Int, swapData []byte, block *big.Int) (RebalanceResult, error) {
	data, err := RebalanceCalldata(params, tokenID, feeBips, swapData, nil)
	if err != nil {
		return RebalanceResult{}, err
	}
	out, err := c.call(ctx, owner, data, c.approval(owner), block)
	if err != nil {
		return RebalanceResult{}, fmt.Errorf("simulate rebalance: %w", err)
	}
	return DecodeRebalanceResult(out)
}

// SimulateReinvest simulates reinvest as owner with Automan approved on the position manager.
func (c *Client) SimulateReinvest(ctx context.Context, owner common.Address, params IncreaseLiquidityParams, feeBips *big.Int, swapData []byte, block *big.Int) (ReinvestResult, error) {
	data, err := ReinvestCalldata(params, feeBips, swapData, nil)
	if err != nil {
		return ReinvestResult{}, err
	}
	out, err := c.call(ctx, owner, data, c.approval(owner), block)
	if err != nil {
		return ReinvestResult{}, fmt.Errorf("simulate reinvest: %w", err)
	}
	return DecodeReinvestResult(out)
}

// SimulateDecreaseLiquidity simulates a partial withdrawal as owner.
func (c *Client) SimulateDecreaseLiquidity(ctx context.Context, owner common.Address, params DecreaseLiquidityParams, feeBips *big.Int, block *big.Int) (RemoveLiquidityResult, error) {
	data, err := DecreaseLiquidityCalldata(params, feeBips, nil)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	out, err := c.call(ctx, owner, data, c.approval(owner), block)
	if err != nil {
		return RemoveLiquidityResult{}, fmt.Errorf("simulate decreaseLiquidity: %w", err)
	}
	return DecodeRemoveLiquidityResult(out)
}

// SimulateRemoveLiquidity simulates closing a position as owner.
func (c *Client) SimulateRemoveLiquidity(ctx context.Context, owner common.Address, params DecreaseLiquidityParams, feeBips *big.Int, block *big.Int) (RemoveLiquidityResult, error) {
	data, err := RemoveLiquidityCalldata(params, feeBips, nil)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	out, err := c.call(ctx, owner, data, c.approval(owner), block)
	if err != nil {
		return RemoveLiquidityResult{}, fmt.Errorf("simulate removeLiquidity: %w", err)
	}
	return DecodeRemoveLiquidityResult(out)
}

func (c *Client) approval(owner common.Address) chain.StateOverrides {
	return overrides.NPMApprovalOverrides(c.info, owner)
}

func (c *Client) call(ctx context.Context, from common.Address, data []byte, set chain.StateOverrides, block *big.Int) ([]byte, error) {
	msg := ethereum.CallMsg{From: from, To: &c.info.Automan, Data: data, GasPrice: new(big.Int)}
	return overrides.TryCallWithOverrides(ctx, c.sim, c.info.SupportsStateOverride, msg, set, block, c.logger)
}
