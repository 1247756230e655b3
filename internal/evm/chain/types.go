// Package chain defines the node-agnostic view of an EVM chain used by the realtime monitor.
package chain

import (
	"math/big"
	"time"
)

// Head announces a newly observed block.
type Head struct {
	Number uint64
	Hash   string
}

// Block carries the block metadata and its transaction hashes in block order.
type Block struct {
	Number   uint64
	Hash     string
	Time     time.Time
	TxHashes []string
}

// TxRef locates a transaction inside a block.
type TxRef struct {
	BlockHash string
	Index     uint
	Hash      string
}

// Transaction is the subset of transaction detail the monitor records.
type Transaction struct {
	Hash     string
	From     string
	To       string // empty for contract creation
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
}

// Receipt is the subset of the execution receipt the monitor records.
type Receipt struct {
	TxHash            string
	Status            uint64
	TransactionIndex  uint
	GasUsed           uint64
	EffectiveGasPrice *big.Int
}

// ReceiptStatusSuccessful mirrors the EIP-658 success code.
const ReceiptStatusSuccessful = 1

// Subscription is a live head feed.
type Subscription interface {
	Err() <-chan error
	Unsubscribe()
}
