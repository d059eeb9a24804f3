// Package compact implements the lossy-but-sufficient block projection:
// coinbase value, per-transaction input references with values, and
// per-transaction output values, encoded as a self-describing binary
// blob. The resolver consumes nothing else.
package compact

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/ordhord/hord/internal/bitcoin"
	"github.com/ordhord/hord/internal/standardize"
	"github.com/ordhord/hord/pkg/util"
)

// Input is one compacted transaction input: the first 4 bytes of the
// previous transaction's txid, the height at which that output was
// mined, its index within that transaction, and its value in satoshis.
type Input struct {
	PrevTxidPrefix  [4]byte `cbor:"1,keyasint"`
	PrevBlockHeight uint32  `cbor:"2,keyasint"`
	PrevVout        uint16  `cbor:"3,keyasint"`
	PrevValue       uint64  `cbor:"4,keyasint"`
}

// Tx is one compacted non-coinbase transaction.
type Tx struct {
	TxidPrefix [4]byte `cbor:"1,keyasint"`
	Inputs     []Input `cbor:"2,keyasint"`
	Outputs    []uint64 `cbor:"3,keyasint"`
}

// Block is the compacted projection of a block: the coinbase's txid
// prefix and total value, followed by every other transaction in
// source order.
type Block struct {
	CoinbaseTxidPrefix [4]byte `cbor:"1,keyasint"`
	CoinbaseValue      uint64  `cbor:"2,keyasint"`
	Transactions       []Tx    `cbor:"3,keyasint"`
}

// txView and inputView are the intermediate shape both FromRaw and
// FromStandardized populate before handing off to compactCore, so the
// two source representations are guaranteed to produce byte-identical
// output whenever they describe the same block.
type txView struct {
	TxidHex string
	Inputs  []inputView
	Outputs []uint64
}

type inputView struct {
	PrevTxidHex string
	PrevHeight  uint32
	PrevVout    uint16
	PrevValue   uint64
}

func prefix4(txidHex string) ([4]byte, error) {
	var out [4]byte
	b, err := util.HexToBytes(txidHex)
	if err != nil {
		return out, fmt.Errorf("%w: invalid txid hex %q: %v", ErrMalformedBlock, txidHex, err)
	}
	if len(b) < 4 {
		return out, fmt.Errorf("%w: txid %q too short", ErrMalformedBlock, txidHex)
	}
	copy(out[:], b[:4])
	return out, nil
}

func compactCore(coinbaseTxidHex string, coinbaseValue uint64, txs []txView) (*Block, error) {
	coinbasePrefix, err := prefix4(coinbaseTxidHex)
	if err != nil {
		return nil, err
	}

	out := &Block{
		CoinbaseTxidPrefix: coinbasePrefix,
		CoinbaseValue:      coinbaseValue,
		Transactions:       make([]Tx, 0, len(txs)),
	}

	for _, tx := range txs {
		txidPrefix, err := prefix4(tx.TxidHex)
		if err != nil {
			return nil, err
		}

		inputs := make([]Input, 0, len(tx.Inputs))
		for _, in := range tx.Inputs {
			prevPrefix, err := prefix4(in.PrevTxidHex)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, Input{
				PrevTxidPrefix:  prevPrefix,
				PrevBlockHeight: in.PrevHeight,
				PrevVout:        in.PrevVout,
				PrevValue:       in.PrevValue,
			})
		}

		outputs := make([]uint64, len(tx.Outputs))
		copy(outputs, tx.Outputs)

		out.Transactions = append(out.Transactions, Tx{
			TxidPrefix: txidPrefix,
			Inputs:     inputs,
			Outputs:    outputs,
		})
	}

	return out, nil
}

// FromRaw compacts a raw bitcoind getblock-verbosity-3 breakdown. The
// coinbase is tx[0]; every other transaction is appended in source order.
func FromRaw(block *bitcoin.RawBlockBreakdown) (*Block, error) {
	if len(block.Tx) == 0 {
		return nil, fmt.Errorf("%w: block has no transactions", ErrMalformedBlock)
	}

	coinbase := block.Tx[0]
	var coinbaseValue uint64
	for _, out := range coinbase.Vout {
		coinbaseValue += bitcoin.BTCToSat(out.Value)
	}

	txs := make([]txView, 0, len(block.Tx)-1)
	for _, tx := range block.Tx[1:] {
		inputs := make([]inputView, 0, len(tx.Vin))
		for _, in := range tx.Vin {
			if in.Prevout == nil || in.TxID == "" {
				return nil, fmt.Errorf("%w: tx %s missing previous-output annotation", ErrMalformedBlock, tx.TxID)
			}
			inputs = append(inputs, inputView{
				PrevTxidHex: in.TxID,
				PrevHeight:  uint32(in.Prevout.Height),
				PrevVout:    uint16(in.Vout),
				PrevValue:   bitcoin.BTCToSat(in.Prevout.Value),
			})
		}

		outputs := make([]uint64, len(tx.Vout))
		for i, out := range tx.Vout {
			outputs[i] = bitcoin.BTCToSat(out.Value)
		}

		txs = append(txs, txView{TxidHex: tx.TxID, Inputs: inputs, Outputs: outputs})
	}

	return compactCore(coinbase.TxID, coinbaseValue, txs)
}

// FromStandardized compacts a standardized block: transaction
// identifiers are "0x"-prefixed and input/output values are already in
// satoshis, but the resulting Block must be identical to FromRaw's
// output for the same underlying chain data.
func FromStandardized(block *standardize.Block) (*Block, error) {
	if len(block.Transactions) == 0 {
		return nil, fmt.Errorf("%w: block has no transactions", ErrMalformedBlock)
	}

	coinbase := block.Transactions[0]
	var coinbaseValue uint64
	for _, out := range coinbase.Metadata.Outputs {
		coinbaseValue += out.Value
	}

	txs := make([]txView, 0, len(block.Transactions)-1)
	for _, tx := range block.Transactions[1:] {
		inputs := make([]inputView, 0, len(tx.Metadata.Inputs))
		for _, in := range tx.Metadata.Inputs {
			inputs = append(inputs, inputView{
				PrevTxidHex: standardize.StripHexPrefix(in.PreviousOutput.Txid),
				PrevHeight:  in.PreviousOutput.BlockHeight,
				PrevVout:    in.PreviousOutput.Vout,
				PrevValue:   in.PreviousOutput.Value,
			})
		}

		outputs := make([]uint64, len(tx.Metadata.Outputs))
		for i, out := range tx.Metadata.Outputs {
			outputs[i] = out.Value
		}

		txs = append(txs, txView{
			TxidHex: standardize.StripHexPrefix(tx.TransactionIdentifier.Hash),
			Inputs:  inputs,
			Outputs: outputs,
		})
	}

	return compactCore(standardize.StripHexPrefix(coinbase.TransactionIdentifier.Hash), coinbaseValue, txs)
}

// Encode produces the deterministic, self-describing binary encoding of
// a Block. cbor.Marshal is deterministic for a fixed Go struct shape:
// field order follows the keyasint tags, never map iteration order.
func Encode(b *Block) ([]byte, error) {
	return cbor.Marshal(b)
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*Block, error) {
	var b Block
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}
	return &b, nil
}

// ToStorageForm hex-encodes an encoded blob for the legacy-compatible
// hex-string storage column.
func ToStorageForm(b *Block) (string, error) {
	raw, err := Encode(b)
	if err != nil {
		return "", err
	}
	return util.BytesToHex(raw), nil
}

// FromStorageForm is the inverse of ToStorageForm.
func FromStorageForm(hexBlob string) (*Block, error) {
	raw, err := util.HexToBytes(hexBlob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}
	return Decode(raw)
}
