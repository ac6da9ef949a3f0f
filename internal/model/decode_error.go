package model

// DecodeError records a log that matched a position filter but failed to decode.
type DecodeError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	TokenID     string `json:"token_id"`
	Topic0      string `json:"topic0"`
	Error       string `json:"error"`
}
