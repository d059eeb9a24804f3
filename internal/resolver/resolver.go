// Package resolver implements the backward traversal that maps a
// transaction's first output to the satoshi-level provenance of its
// first input sat: the block height, offset, and ordinal number of the
// satoshi originally minted as a coinbase reward.
package resolver

import (
	"github.com/ordhord/hord/internal/compact"
)

const blocksPerHalving = 210000

// StartingSat returns the ordinal number of the first satoshi minted
// into the coinbase at the given height, following Bitcoin's subsidy
// schedule: 50 BTC at height 0, halving every 210,000 blocks.
func StartingSat(height uint32) uint64 {
	const initialSubsidy = uint64(50 * 100000000)

	epoch := height / blocksPerHalving
	remainder := uint64(height % blocksPerHalving)

	var total uint64
	subsidy := initialSubsidy
	for e := uint32(0); e < epoch; e++ {
		if subsidy == 0 {
			break
		}
		total += blocksPerHalving * subsidy
		subsidy /= 2
	}
	total += remainder * subsidy
	return total
}

// BlockSource is the read-only view the resolver needs of the store:
// a compacted blob per height.
type BlockSource interface {
	GetBlock(height uint32) (string, bool, error)
}

// Cursor is the resolver's mutable traversal state: the transaction
// being followed, identified by its 4-byte txid prefix and the vout
// within it currently under consideration.
type Cursor struct {
	TxidPrefix [4]byte
	Vout       uint16
}

func sumOutputs(outputs []uint64) uint64 {
	var sum uint64
	for _, v := range outputs {
		sum += v
	}
	return sum
}

// Resolve walks the compacted block graph backward from
// (blockHeight, txidPrefix) at vout 0 until it reaches the satoshi's
// coinbase origin, returning the origin height, its offset within that
// coinbase reward, and the corresponding ordinal number.
func Resolve(source BlockSource, blockHeight uint32, txidPrefix [4]byte) (uint32, uint64, uint64, error) {
	return resolveFrom(source, blockHeight, Cursor{TxidPrefix: txidPrefix, Vout: 0}, 0)
}

// resolveFrom runs the backward traversal starting from an explicit
// cursor and offset, letting tests exercise intermediate algorithm
// states (e.g. the fee-descent branch) without constructing a full
// multi-block chain.
func resolveFrom(source BlockSource, blockHeight uint32, cursor Cursor, initialOffset uint64) (uint32, uint64, uint64, error) {
	ordinalOffset := initialOffset
	ordinalBlockNumber := blockHeight

	for {
		blob, ok, err := source.GetBlock(ordinalBlockNumber)
		if err != nil {
			return 0, 0, 0, err
		}
		if !ok {
			return 0, 0, 0, ErrMissingBlock
		}
		block, err := compact.FromStorageForm(blob)
		if err != nil {
			return 0, 0, 0, err
		}

		if cursor.TxidPrefix == block.CoinbaseTxidPrefix {
			if ordinalOffset < block.CoinbaseValue {
				return ordinalBlockNumber, ordinalOffset, StartingSat(ordinalBlockNumber) + ordinalOffset, nil
			}

			cutOff := ordinalOffset - block.CoinbaseValue
			var accumulatedFees uint64
			advanced := false

			for _, tx := range block.Transactions {
				outputsSum := sumOutputs(tx.Outputs)
				var inputsSum uint64
				for _, in := range tx.Inputs {
					inputsSum += in.PrevValue
				}
				if inputsSum < outputsSum {
					return 0, 0, 0, ErrCorruptBlock
				}
				fee := inputsSum - outputsSum
				accumulatedFees += fee
				if accumulatedFees <= cutOff {
					continue
				}

				var satsIn uint64
				selected := false
				for _, in := range tx.Inputs {
					satsIn += in.PrevValue
					if satsIn >= outputsSum {
						ordinalOffset = outputsSum - (satsIn - in.PrevValue)
						ordinalBlockNumber = in.PrevBlockHeight
						cursor = Cursor{TxidPrefix: in.PrevTxidPrefix, Vout: in.PrevVout}
						selected = true
						break
					}
				}
				if !selected {
					return 0, 0, 0, ErrCorruptBlock
				}
				advanced = true
				break
			}

			if !advanced {
				return 0, 0, 0, ErrCorruptBlock
			}
			continue
		}

		var target *compact.Tx
		for i := range block.Transactions {
			if block.Transactions[i].TxidPrefix == cursor.TxidPrefix {
				target = &block.Transactions[i]
				break
			}
		}
		if target == nil || int(cursor.Vout) >= len(target.Outputs) {
			return 0, 0, 0, ErrOrphanReference
		}

		var sumBefore uint64
		for i := 0; i < int(cursor.Vout); i++ {
			sumBefore += target.Outputs[i]
		}
		satsOut := sumBefore + ordinalOffset

		var satsIn uint64
		selected := false
		for _, in := range target.Inputs {
			satsIn += in.PrevValue
			if satsIn >= satsOut {
				ordinalOffset = satsOut - (satsIn - in.PrevValue)
				ordinalBlockNumber = in.PrevBlockHeight
				cursor = Cursor{TxidPrefix: in.PrevTxidPrefix, Vout: in.PrevVout}
				selected = true
				break
			}
		}
		if !selected {
			return 0, 0, 0, ErrCorruptBlock
		}
	}
}
