package model

import "time"

// PositionSnapshot is a point-in-time position record for storage and CLI output.
// Amounts are raw token units encoded as decimal strings.
type PositionSnapshot struct {
	ChainID      uint64    `json:"chain_id"`
	TokenID      string    `json:"token_id"`
	Owner        string    `json:"owner"`
	Pool         string    `json:"pool"`
	Token0       string    `json:"token0"`
	Token1       string    `json:"token1"`
	Fee          uint32    `json:"fee"`
	TickLower    int32     `json:"tick_lower"`
	TickUpper    int32     `json:"tick_upper"`
	Liquidity    string    `json:"liquidity"`
	Amount0      string    `json:"amount0"`
	Amount1      string    `json:"amount1"`
	Collectable0 string    `json:"collectable0"`
	Collectable1 string    `json:"collectable1"`
	InRange      bool      `json:"in_range"`
	BlockNumber  uint64    `json:"block_number"`
	ObservedAt   time.Time `json:"observed_at"`
}
