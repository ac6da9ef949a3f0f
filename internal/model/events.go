package model

// IncreaseLiquidityEventData is the decoded NonfungiblePositionManager IncreaseLiquidity payload.
type IncreaseLiquidityEventData struct {
	TokenID   string `json:"token_id"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// DecreaseLiquidityEventData is the decoded DecreaseLiquidity payload.
type DecreaseLiquidityEventData struct {
	TokenID   string `json:"token_id"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// CollectEventData is the decoded position Collect payload.
type CollectEventData struct {
	TokenID   string `json:"token_id"`
	Recipient string `json:"recipient"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// TransferEventData is the decoded ERC721 Transfer payload.
type TransferEventData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	TokenID string `json:"token_id"`
}
