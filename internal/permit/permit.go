package permit

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"automanKit/internal/automan"
	"automanKit/internal/chaininfo"
)

const (
	domainName    = "Uniswap V3 Positions NFT-V1"
	domainVersion = "1"
)

var ErrInvalidSignature = errors.New("invalid permit signature")

var permitTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Permit": {
		{Name: "spender", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// TypedData builds the position manager permit letting spender operate tokenID.
func TypedData(info chaininfo.Info, tokenID *big.Int, spender common.Address, nonce, deadline *big.Int) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       permitTypes,
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           math.NewHexOrDecimal256(int64(info.ChainID)),
			VerifyingContract: info.PositionManager.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"spender":  spender.Hex(),
			"tokenId":  tokenID.String(),
			"nonce":    nonce.String(),
			"deadline": deadline.String(),
		},
	}
}

// Digest returns the EIP-712 hash that is signed.
func Digest(typed apitypes.TypedData) (common.Hash, error) {
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash permit: %w", err)
	}
	return common.BytesToHash(hash), nil
}

// Sign signs the permit with key.
func Sign(typed apitypes.TypedData, deadline *big.Int, key *ecdsa.PrivateKey) (automan.Permit, error) {
	digest, err := Digest(typed)
	if err != nil {
		return automan.Permit{}, err
	}
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return automan.Permit{}, fmt.Errorf("sign permit: %w", err)
	}
	p := automan.Permit{Deadline: deadline, V: sig[64] + 27}
	copy(p.R[:], sig[:32])
	copy(p.S[:], sig[32:64])
	return p, nil
}

// RecoverSigner returns the address that produced p over typed.
func RecoverSigner(typed apitypes.TypedData, p automan.Permit) (common.Address, error) {
	digest, err := Digest(typed)
	if err != nil {
		return common.Address{}, err
	}
	v := p.V
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("%w: v=%d", ErrInvalidSignature, p.V)
	}
	sig := make([]byte, 65)
	copy(sig[:32], p.R[:])
	copy(sig[32:64], p.S[:])
	sig[64] = v
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether p was signed by signer.
func Verify(typed apitypes.TypedData, p automan.Permit, signer common.Address) bool {
	recovered, err := RecoverSigner(typed, p)
	return err == nil && recovered == signer
}
