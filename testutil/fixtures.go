package testutil

import (
	"github.com/ordhord/hord/internal/bitcoin"
)

// SampleRawBlock returns a minimal two-transaction getblock-verbosity-3
// breakdown: a coinbase plus one spend referencing an external prevout.
func SampleRawBlock() *bitcoin.RawBlockBreakdown {
	return &bitcoin.RawBlockBreakdown{
		Hash:              "00000000000000000003f8b2c1a9e1d9f9c9a9b9c9d9e9f9a9b9c9d9e9f9a9b",
		Height:            800000,
		PreviousBlockHash: "00000000000000000002e7a1b0d8d0e8e8b8a8b8c8d8e8f8a8b8c8d8e8f8a8b",
		Time:              1700000000,
		Tx: []bitcoin.RawTx{
			{
				TxID: "c0ffee0011223344",
				Hash: "c0ffee0011223344",
				Vin:  []bitcoin.RawVin{{Coinbase: "034e4c0c"}},
				Vout: []bitcoin.RawVout{{Value: 6.25, N: 0}},
			},
			{
				TxID: "deadbeef00112233",
				Hash: "deadbeef00112233",
				Vin: []bitcoin.RawVin{
					{
						TxID:    "aabbccdd00112233",
						Vout:    0,
						Prevout: &bitcoin.RawPrevout{Height: 799990, Value: 0.01},
					},
				},
				Vout: []bitcoin.RawVout{{Value: 0.00990000, N: 0}},
			},
		},
	}
}

// SampleEnvelopeScript builds a well-formed single-inscription reveal
// envelope (OP_FALSE OP_IF "ord" <content-type> OP_0 <body> OP_ENDIF)
// for the given content type and body.
func SampleEnvelopeScript(contentType string, body []byte) []byte {
	push := func(data []byte) []byte {
		if len(data) == 0 {
			return []byte{0x00}
		}
		return append([]byte{byte(len(data))}, data...)
	}

	var script []byte
	script = append(script, 0x00) // OP_FALSE
	script = append(script, 0x63) // OP_IF
	script = append(script, push([]byte("ord"))...)
	script = append(script, push([]byte{0x01})...) // content-type tag
	script = append(script, push([]byte(contentType))...)
	script = append(script, 0x00) // terminate tag/value pairs
	script = append(script, push(body)...)
	script = append(script, 0x68) // OP_ENDIF
	return script
}
