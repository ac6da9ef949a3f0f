package dex

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrIdenticalTokens = errors.New("identical token addresses")

// SortTokens orders a pair the way the factory does.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}

// ComputePoolAddress derives the CREATE2 address of a pool without touching the chain.
// salt = keccak256(abi.encode(token0, token1, fee)).
func ComputePoolAddress(factory, tokenA, tokenB common.Address, fee uint32, initCodeHash common.Hash) (common.Address, error) {
	if tokenA == tokenB {
		return common.Address{}, ErrIdenticalTokens
	}
	token0, token1 := SortTokens(tokenA, tokenB)
	salt := crypto.Keccak256Hash(
		common.LeftPadBytes(token0.Bytes(), 32),
		common.LeftPadBytes(token1.Bytes(), 32),
		common.LeftPadBytes(new(big.Int).SetUint64(uint64(fee)).Bytes(), 32),
	)
	return crypto.CreateAddress2(factory, salt, initCodeHash.Bytes()), nil
}
