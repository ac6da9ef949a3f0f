package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// parseIndexedTopics checks the topic count against event and returns topics[1:] as hashes.
func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	want := len(indexedArguments(event.Inputs)) + 1
	if len(topics) != want {
		return nil, fmt.Errorf("%s: expected %d topics, got %d", event.Name, want, len(topics))
	}

	hashes := make([]common.Hash, len(topics)-1)
	for i, topic := range topics[1:] {
		raw, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("topic %d: %w", i+1, err)
		}
		if len(raw) > common.HashLength {
			return nil, fmt.Errorf("topic %d is %d bytes", i+1, len(raw))
		}
		hashes[i] = common.BytesToHash(raw)
	}
	return hashes, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	var indexed abi.Arguments
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

// unpackNonIndexed decodes the hex log data of event.
func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	raw, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("%s data: %w", event.Name, err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
