package standardize

import (
	"testing"

	"github.com/ordhord/hord/internal/bitcoin"
)

func sampleRaw() *bitcoin.RawBlockBreakdown {
	return &bitcoin.RawBlockBreakdown{
		Hash:              "00000000000000000002aaa",
		Height:            800000,
		PreviousBlockHash: "00000000000000000001bbb",
		Time:              1690000000,
		Tx: []bitcoin.RawTx{
			{
				TxID: "c0ffee00",
				Vin:  []bitcoin.RawVin{{Coinbase: "03404b0c"}},
				Vout: []bitcoin.RawVout{{Value: 6.25, N: 0}},
			},
			{
				TxID: "deadbeef",
				Vin: []bitcoin.RawVin{
					{
						TxID:    "aabbccdd",
						Vout:    1,
						Prevout: &bitcoin.RawPrevout{Height: 799000, Value: 0.5},
						Witness: []string{"deadbeef"},
					},
				},
				Vout: []bitcoin.RawVout{{Value: 0.49, N: 0}},
			},
		},
	}
}

func TestStandardizeBlock(t *testing.T) {
	block, err := StandardizeBlock(sampleRaw(), "mainnet")
	if err != nil {
		t.Fatalf("StandardizeBlock: %v", err)
	}
	if block.Height != 800000 {
		t.Errorf("height = %d, want 800000", block.Height)
	}
	if len(block.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(block.Transactions))
	}

	coinbase := block.Transactions[0]
	if coinbase.TransactionIdentifier.Hash != "0xc0ffee00" {
		t.Errorf("coinbase hash = %q, want 0x-prefixed", coinbase.TransactionIdentifier.Hash)
	}
	if len(coinbase.Metadata.Outputs) != 1 || coinbase.Metadata.Outputs[0].Value != 625000000 {
		t.Errorf("coinbase outputs = %+v, want [625000000]", coinbase.Metadata.Outputs)
	}

	spend := block.Transactions[1]
	if spend.TransactionIdentifier.Hash != "0xdeadbeef" {
		t.Errorf("spend hash = %q", spend.TransactionIdentifier.Hash)
	}
	prev := spend.Metadata.Inputs[0].PreviousOutput
	if prev.Txid != "0xaabbccdd" || prev.BlockHeight != 799000 || prev.Vout != 1 || prev.Value != 50000000 {
		t.Errorf("previous output = %+v", prev)
	}
	witness := spend.Metadata.Inputs[0].Witness
	if len(witness) != 1 || string(witness[0]) != "\xde\xad\xbe\xef" {
		t.Errorf("witness = %x, want [deadbeef]", witness)
	}
}

func TestStandardizeBlock_Empty(t *testing.T) {
	_, err := StandardizeBlock(&bitcoin.RawBlockBreakdown{Hash: "x"}, "mainnet")
	if err == nil {
		t.Error("expected error for block with no transactions")
	}
}

func TestStripHexPrefix(t *testing.T) {
	cases := map[string]string{
		"0xdeadbeef": "deadbeef",
		"0Xdeadbeef": "deadbeef",
		"deadbeef":   "deadbeef",
		"":           "",
	}
	for in, want := range cases {
		if got := StripHexPrefix(in); got != want {
			t.Errorf("StripHexPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
