package model

import "time"

// PoolSnapshot is a point-in-time pool record for storage.
type PoolSnapshot struct {
	ChainID      uint64    `json:"chain_id"`
	Address      string    `json:"address"`
	Token0       string    `json:"token0"`
	Token1       string    `json:"token1"`
	Fee          uint32    `json:"fee"`
	TickSpacing  int32     `json:"tick_spacing"`
	SqrtPriceX96 string    `json:"sqrt_price_x96"`
	Tick         int32     `json:"tick"`
	Liquidity    string    `json:"liquidity"`
	BlockNumber  uint64    `json:"block_number"`
	ObservedAt   time.Time `json:"observed_at"`
}
