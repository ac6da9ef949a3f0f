package history

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	tests := []struct {
		name      string
		from, to  uint64
		batchSize uint64
		want      []BlockRange
	}{
		{
			name: "even split", from: 100, to: 105, batchSize: 2,
			want: []BlockRange{{From: 100, To: 101}, {From: 102, To: 103}, {From: 104, To: 105}},
		},
		{
			name: "short tail", from: 100, to: 104, batchSize: 2,
			want: []BlockRange{{From: 100, To: 101}, {From: 102, To: 103}, {From: 104, To: 104}},
		},
		{
			name: "single block", from: 5, to: 5, batchSize: 10,
			want: []BlockRange{{From: 5, To: 5}},
		},
		{
			name: "top of range", from: ^uint64(0) - 2, to: ^uint64(0), batchSize: 2,
			want: []BlockRange{{From: ^uint64(0) - 2, To: ^uint64(0) - 1}, {From: ^uint64(0), To: ^uint64(0)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitRange(tt.from, tt.to, tt.batchSize)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ranges mismatch: %+v != %+v", got, tt.want)
			}
		})
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}
