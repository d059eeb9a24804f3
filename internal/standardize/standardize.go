// Package standardize normalizes a raw bitcoind block breakdown into the
// network-agnostic shape used throughout the rest of the indexer and by
// downstream consumers: "0x"-prefixed transaction identifiers,
// metadata.inputs/outputs, and a previous_output annotation per input.
package standardize

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ordhord/hord/internal/bitcoin"
)

// TransactionIdentifier carries a "0x"-prefixed transaction hash.
type TransactionIdentifier struct {
	Hash string
}

// PreviousOutput is the annotation attached to every non-coinbase input.
type PreviousOutput struct {
	Txid        string
	BlockHeight uint32
	Vout        uint16
	Value       uint64
}

// Input is one standardized transaction input. Witness carries the
// decoded witness stack items, needed only by augmentation's envelope
// scan; the codec ignores it entirely.
type Input struct {
	PreviousOutput PreviousOutput
	Witness        [][]byte
}

// Output is one standardized transaction output.
type Output struct {
	Value uint64
}

// Metadata holds the normalized input/output views.
type Metadata struct {
	Inputs  []Input
	Outputs []Output
}

// Transaction is one standardized transaction.
type Transaction struct {
	TransactionIdentifier TransactionIdentifier
	Metadata              Metadata
}

// Block is the standardized block: the normalized form the observer
// wiring forwards to augmentation, and an input the compact codec
// accepts identically to the raw RPC form.
type Block struct {
	Height            uint64
	Hash              string
	PreviousBlockHash string
	Time              int64
	Network           string
	Transactions      []Transaction
}

// StripHexPrefix removes a leading "0x"/"0X" if present.
func StripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func hexPrefixed(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

// StandardizeBlock standardizes a raw getblock-verbosity-3 breakdown for
// the given network name. The coinbase input (tx[0].vin[0]) carries no
// previous output and is left with a zero-value PreviousOutput.
func StandardizeBlock(raw *bitcoin.RawBlockBreakdown, network string) (*Block, error) {
	if len(raw.Tx) == 0 {
		return nil, fmt.Errorf("standardize: block %s has no transactions", raw.Hash)
	}

	out := &Block{
		Height:            uint64(raw.Height),
		Hash:              raw.Hash,
		PreviousBlockHash: raw.PreviousBlockHash,
		Time:              raw.Time,
		Network:           network,
		Transactions:      make([]Transaction, 0, len(raw.Tx)),
	}

	for _, tx := range raw.Tx {
		inputs := make([]Input, 0, len(tx.Vin))
		for _, in := range tx.Vin {
			var prev PreviousOutput
			if in.Prevout != nil {
				prev = PreviousOutput{
					Txid:        hexPrefixed(in.TxID),
					BlockHeight: uint32(in.Prevout.Height),
					Vout:        uint16(in.Vout),
					Value:       bitcoin.BTCToSat(in.Prevout.Value),
				}
			}
			witness := make([][]byte, 0, len(in.Witness))
			for _, item := range in.Witness {
				b, err := hex.DecodeString(item)
				if err != nil {
					continue
				}
				witness = append(witness, b)
			}
			inputs = append(inputs, Input{PreviousOutput: prev, Witness: witness})
		}

		outputs := make([]Output, len(tx.Vout))
		for i, out := range tx.Vout {
			outputs[i] = Output{Value: bitcoin.BTCToSat(out.Value)}
		}

		out.Transactions = append(out.Transactions, Transaction{
			TransactionIdentifier: TransactionIdentifier{Hash: hexPrefixed(tx.TxID)},
			Metadata:              Metadata{Inputs: inputs, Outputs: outputs},
		})
	}

	return out, nil
}
