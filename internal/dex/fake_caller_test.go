package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type callKey struct {
	to       common.Address
	selector string
}

// fakeCaller answers eth_call by contract address and 4-byte selector.
type fakeCaller struct {
	mu        sync.Mutex
	responses map[callKey][]byte
	calls     []ethereum.CallMsg
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{responses: make(map[callKey][]byte)}
}

func (f *fakeCaller) set(to common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	m := parsed.Methods[method]
	data, err := m.Outputs.Pack(outputs...)
	if err != nil {
		panic(fmt.Sprintf("pack %s outputs: %v", method, err))
	}
	f.responses[callKey{to: to, selector: string(m.ID)}] = data
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("bad call")
	}
	resp, ok := f.responses[callKey{to: *msg.To, selector: string(msg.Data[:4])}]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return resp, nil
}
