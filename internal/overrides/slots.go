package overrides

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"

	"automanKit/internal/chain"
	"automanKit/internal/chaininfo"
)

// Storage slot indexes of the mappings forced during simulation.
const (
	// NonfungiblePositionManager: mapping(address => mapping(address => bool)) _operatorApprovals.
	OperatorApprovalsSlot = 5
	// Automan: mapping(address => bool) isWhiteListedSwapRouter.
	RouterWhitelistSlot = 3
)

var slotTrue = common.BigToHash(big.NewInt(1))

// OperatorApprovalSlot is keccak256(abi.encode(spender, keccak256(abi.encode(owner, 5)))).
func OperatorApprovalSlot(owner, spender common.Address) common.Hash {
	inner := mappingSlot(owner, OperatorApprovalsSlot)
	return crypto.Keccak256Hash(common.LeftPadBytes(spender.Bytes(), 32), inner.Bytes())
}

// RouterWhitelistSlotFor returns the storage slot of isWhiteListedSwapRouter[router].
func RouterWhitelistSlotFor(router common.Address) common.Hash {
	return mappingSlot(router, RouterWhitelistSlot)
}

func mappingSlot(key common.Address, index int64) common.Hash {
	return crypto.Keccak256Hash(
		common.LeftPadBytes(key.Bytes(), 32),
		common.BigToHash(big.NewInt(index)).Bytes(),
	)
}

// NPMApprovalOverrides approves Automan as operator for all of owner's positions.
func NPMApprovalOverrides(info chaininfo.Info, owner common.Address) chain.StateOverrides {
	return chain.StateOverrides{
		info.PositionManager: gethclient.OverrideAccount{
			StateDiff: map[common.Hash]common.Hash{
				OperatorApprovalSlot(owner, info.Automan): slotTrue,
			},
		},
	}
}

// AutomanWhitelistOverrides whitelists router as an Automan swap router.
func AutomanWhitelistOverrides(info chaininfo.Info, router common.Address) chain.StateOverrides {
	return chain.StateOverrides{
		info.Automan: gethclient.OverrideAccount{
			StateDiff: map[common.Hash]common.Hash{
				RouterWhitelistSlotFor(router): slotTrue,
			},
		},
	}
}

// Merge combines override sets. StateDiff entries of the same account are unioned; other fields take the last non-empty value.
func Merge(sets ...chain.StateOverrides) chain.StateOverrides {
	out := make(chain.StateOverrides)
	for _, set := range sets {
		for addr, account := range set {
			merged, ok := out[addr]
			if !ok {
				merged = gethclient.OverrideAccount{}
			}
			if account.Nonce != 0 {
				merged.Nonce = account.Nonce
			}
			if len(account.Code) > 0 {
				merged.Code = account.Code
			}
			if account.Balance != nil {
				merged.Balance = account.Balance
			}
			if account.State != nil {
				merged.State = account.State
			}
			if len(account.StateDiff) > 0 {
				diff := make(map[common.Hash]common.Hash, len(merged.StateDiff)+len(account.StateDiff))
				for k, v := range merged.StateDiff {
					diff[k] = v
				}
				for k, v := range account.StateDiff {
					diff[k] = v
				}
				merged.StateDiff = diff
			}
			out[addr] = merged
		}
	}
	return out
}
