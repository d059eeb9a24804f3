package testutil

import (
	"testing"

	"github.com/ordhord/hord/internal/augment"
	"github.com/ordhord/hord/internal/compact"
)

func TestSampleRawBlock_Compacts(t *testing.T) {
	block, err := compact.FromRaw(SampleRawBlock())
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	if block.CoinbaseValue != 625000000 {
		t.Errorf("CoinbaseValue = %d, want 625000000", block.CoinbaseValue)
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("len(Transactions) = %d, want 1", len(block.Transactions))
	}
}

func TestSampleEnvelopeScript_Parses(t *testing.T) {
	script := SampleEnvelopeScript("text/plain", []byte("hello"))
	insc := augment.ParseEnvelopes([][]byte{script, {0xc0}})
	if len(insc) != 1 {
		t.Fatalf("ParseEnvelopes returned %d inscriptions, want 1", len(insc))
	}
	if insc[0].ContentType != "text/plain" || string(insc[0].Body) != "hello" {
		t.Errorf("got %+v", insc[0])
	}
}
