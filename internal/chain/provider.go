package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
)

// StateOverrides maps accounts to the state forced onto them for a single eth_call.
type StateOverrides map[common.Address]gethclient.OverrideAccount

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// OverrideCaller performs contract calls with forged state.
type OverrideCaller interface {
	ContractCaller
	CallContractWithOverrides(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int, overrides StateOverrides) ([]byte, error)
}

// AccessListCreator predicts the storage a call touches.
type AccessListCreator interface {
	CreateAccessList(ctx context.Context, msg ethereum.CallMsg) (*types.AccessList, uint64, string, error)
}

// Simulator is everything needed to simulate a call against forged balances and approvals.
type Simulator interface {
	OverrideCaller
	AccessListCreator
}

// LogReader is the subset of Client used for log scans.
type LogReader interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topics [][]common.Hash) ([]types.Log, error)
}

var (
	_ Simulator = (*Client)(nil)
	_ LogReader = (*Client)(nil)
)
