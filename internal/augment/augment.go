// Package augment drives the inscription registry and resolver from a
// standardized block: reveal detection via witness envelope scanning,
// and transfer detection via watched-outpoint lookups.
package augment

import (
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/ordhord/hord/internal/inscriptions"
	"github.com/ordhord/hord/internal/metrics"
	"github.com/ordhord/hord/internal/resolver"
	"github.com/ordhord/hord/internal/standardize"
)

func txidPrefix4(hash string) [4]byte {
	var out [4]byte
	stripped := standardize.StripHexPrefix(hash)
	if len(stripped) < 8 {
		return out
	}
	b, err := hex.DecodeString(stripped[:8])
	if err != nil {
		return out
	}
	copy(out[:], b)
	return out
}

// transferDestination maps the satoshi at offsetInInput within tx's
// inputIndex'th input onto the output that receives it: the watched
// satoshi's position within the concatenation of all input values is
// matched against the concatenation of all output values, in order.
// ok is false when that position falls past the last output (the
// satoshi was spent as a fee rather than landing on any output).
func transferDestination(tx standardize.Transaction, inputIndex int, offsetInInput uint64) (vout uint32, offset uint64, ok bool) {
	var satsBefore uint64
	for i := 0; i < inputIndex; i++ {
		satsBefore += tx.Metadata.Inputs[i].PreviousOutput.Value
	}
	target := satsBefore + offsetInInput

	var cumulative uint64
	for i, out := range tx.Metadata.Outputs {
		if target < cumulative+out.Value {
			return uint32(i), target - cumulative, true
		}
		cumulative += out.Value
	}
	return 0, 0, false
}

// AugmentAndUpdate walks every non-coinbase transaction in block,
// calling Reveal for transactions carrying a reveal envelope and
// Transfer for transactions that spend a currently-watched outpoint.
// Resolution uses source (the compacted-block store) to compute each
// reveal's ordinal number.
func AugmentAndUpdate(block *standardize.Block, registry *inscriptions.Registry, source resolver.BlockSource, logger *zap.Logger) error {
	if len(block.Transactions) == 0 {
		return nil
	}

	for _, tx := range block.Transactions[1:] {
		txid := standardize.StripHexPrefix(tx.TransactionIdentifier.Hash)

		for inputIndex, in := range tx.Metadata.Inputs {
			if in.PreviousOutput.Txid == "" {
				continue
			}
			watchedOutpoint := fmt.Sprintf("%s:%d", standardize.StripHexPrefix(in.PreviousOutput.Txid), in.PreviousOutput.Vout)
			rows, err := registry.FindByOutpoint(watchedOutpoint)
			if err != nil {
				return fmt.Errorf("%w: find_by_outpoint %s: %v", ErrAugmentationFailure, watchedOutpoint, err)
			}
			for _, row := range rows {
				vout, newOffset, ok := transferDestination(tx, inputIndex, row.Offset)
				if !ok {
					logger.Warn("inscription spent as fee, dropping outpoint tracking",
						zap.String("inscription_id", row.InscriptionID),
						zap.String("from", watchedOutpoint))
					continue
				}
				newOutpoint := fmt.Sprintf("%s:%d", txid, vout)
				if err := registry.Transfer(row.InscriptionID, newOutpoint, newOffset); err != nil {
					return fmt.Errorf("%w: transfer %s: %v", ErrAugmentationFailure, row.InscriptionID, err)
				}
				metrics.InscriptionsTransferred.Inc()
				logger.Info("inscription transferred",
					zap.String("inscription_id", row.InscriptionID),
					zap.String("from", watchedOutpoint),
					zap.String("to", newOutpoint))
			}

			insc := ParseEnvelopes(in.Witness)
			if len(insc) == 0 {
				continue
			}

			// last_inscription_number() returns 0 both for "empty" and
			// for "highest assigned number is 0", so the next number is
			// derived from the row count rather than from that value
			// directly (inscription numbers are assigned densely from 0).
			existing, err := registry.FindAllInscriptions()
			if err != nil {
				return fmt.Errorf("%w: find_all_inscriptions: %v", ErrAugmentationFailure, err)
			}
			nextNumber := uint64(len(existing))

			_, offset, ordinalNumber, err := resolver.Resolve(source, uint32(block.Height), txidPrefix4(tx.TransactionIdentifier.Hash))
			if err != nil {
				return fmt.Errorf("%w: resolve %s: %v", ErrAugmentationFailure, txid, err)
			}

			inscriptionID := fmt.Sprintf("%si0", txid)
			err = registry.Reveal(inscriptions.RevealData{
				InscriptionID:           inscriptionID,
				SatpointPostInscription: fmt.Sprintf("%s:0:%d", txid, offset),
				OrdinalNumber:           ordinalNumber,
				InscriptionNumber:       nextNumber,
			}, block.Height, block.Hash)
			if err != nil {
				return fmt.Errorf("%w: reveal %s: %v", ErrAugmentationFailure, inscriptionID, err)
			}
			metrics.InscriptionsRevealed.Inc()
			logger.Info("inscription revealed",
				zap.String("inscription_id", inscriptionID),
				zap.Uint64("ordinal_number", ordinalNumber),
				zap.Uint64("inscription_number", nextNumber))

			// Bounded to the first reveal per transaction.
			break
		}
	}

	return nil
}
