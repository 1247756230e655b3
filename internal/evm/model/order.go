package model

// Order selects how address transaction listings are sorted.
type Order string

const (
	// OrderBlockPosition sorts by block number, then position in block.
	OrderBlockPosition Order = "block_position"
	// OrderValueDesc sorts by transferred value, largest first.
	OrderValueDesc Order = "value_desc"
)
