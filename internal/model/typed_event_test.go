package model

import (
	"encoding/json"
	"testing"
)

func TestIncreaseLiquidityEventDataJSONStringFields(t *testing.T) {
	payload := IncreaseLiquidityEventData{
		TokenID:   "501234",
		Liquidity: "5000000000000000000",
		Amount0:   "12345678901234567890",
		Amount1:   "42",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"token_id", "liquidity", "amount0", "amount1"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestPositionSnapshotOmitsNothing(t *testing.T) {
	data, err := json.Marshal(PositionSnapshot{TokenID: "1", InRange: false})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := decoded["in_range"]; !ok {
		t.Fatalf("in_range should always be present")
	}
	if _, ok := decoded["collectable0"]; !ok {
		t.Fatalf("collectable0 should always be present")
	}
}
