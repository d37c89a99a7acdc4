package ethr

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// MemoryCaller is an in-memory registry contract. It answers the same calls
// as a deployed EthereumDIDRegistry: every identity owns itself until told
// otherwise. Useful offline and in tests.
type MemoryCaller struct {
	mu      sync.RWMutex
	owners  map[common.Address]common.Address
	changed map[common.Address]*big.Int
	err     error
}

// NewMemoryCaller creates an empty in-memory registry.
func NewMemoryCaller() *MemoryCaller {
	return &MemoryCaller{
		owners:  make(map[common.Address]common.Address),
		changed: make(map[common.Address]*big.Int),
	}
}

// SetOwner changes the owner of identity at the given block. A zero owner deactivates it.
func (m *MemoryCaller) SetOwner(identity, owner common.Address, block int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[identity] = owner
	m.changed[identity] = big.NewInt(block)
}

// FailWith makes every call fail with err until reset with nil.
func (m *MemoryCaller) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// CodeAt reports non-empty code so bound calls treat the registry as deployed.
func (m *MemoryCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

// CallContract decodes the registry call and answers from memory.
func (m *MemoryCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	contractABI, err := loadABI()
	if err != nil {
		return nil, err
	}
	if len(call.Data) < 4 {
		return nil, fmt.Errorf("call data too short")
	}
	method, err := contractABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	identity, ok := args[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected argument type %T", args[0])
	}

	switch method.Name {
	case "identityOwner":
		owner, ok := m.owners[identity]
		if !ok {
			owner = identity
		}
		return method.Outputs.Pack(owner)
	case "changed", "nonce":
		block, ok := m.changed[identity]
		if !ok {
			block = new(big.Int)
		}
		return method.Outputs.Pack(block)
	default:
		return nil, fmt.Errorf("method %s not supported in memory", method.Name)
	}
}
