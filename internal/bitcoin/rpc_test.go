package bitcoin

import (
	"context"
	"fmt"
	"testing"
)

func sampleBlock() *RawBlockBreakdown {
	return &RawBlockBreakdown{
		Hash:   "00000000000000000002aaa",
		Height: 800000,
		Tx: []RawTx{
			{TxID: "c0ffee00", Vout: []RawVout{{Value: 6.25, N: 0}}},
		},
	}
}

func TestMockRPC_FetchBlockHash(t *testing.T) {
	mock := NewMockRPC()
	mock.AddBlock(sampleBlock())
	ctx := context.Background()

	hash, err := mock.FetchBlockHash(ctx, 800000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != "00000000000000000002aaa" {
		t.Errorf("hash = %q, want the registered hash", hash)
	}
}

func TestMockRPC_FetchBlockHash_Unknown(t *testing.T) {
	mock := NewMockRPC()
	ctx := context.Background()

	if _, err := mock.FetchBlockHash(ctx, 1); err == nil {
		t.Fatal("expected error for unregistered height")
	}
}

func TestMockRPC_FetchBlock(t *testing.T) {
	mock := NewMockRPC()
	block := sampleBlock()
	mock.AddBlock(block)
	ctx := context.Background()

	got, err := mock.FetchBlock(ctx, block.Hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Height != 800000 {
		t.Errorf("height = %d, want 800000", got.Height)
	}
}

func TestMockRPC_FetchBlock_Error(t *testing.T) {
	mock := NewMockRPC()
	mock.FetchBlockErr = fmt.Errorf("connection refused")
	ctx := context.Background()

	if _, err := mock.FetchBlock(ctx, "whatever"); err == nil {
		t.Fatal("expected error, got nil")
	}
	// error override is consumed once
	mock.AddBlock(sampleBlock())
	if _, err := mock.FetchBlock(ctx, sampleBlock().Hash); err != nil {
		t.Fatalf("unexpected error after override consumed: %v", err)
	}
}

func TestRPCError(t *testing.T) {
	err := &RPCError{Code: -1, Message: "test error"}
	if err.Error() != "RPC error -1: test error" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestBTCToSat(t *testing.T) {
	cases := []struct {
		btc  float64
		want uint64
	}{
		{6.25, 625000000},
		{0, 0},
		{0.00000001, 1},
		{-1, 0},
	}
	for _, c := range cases {
		if got := BTCToSat(c.btc); got != c.want {
			t.Errorf("BTCToSat(%v) = %d, want %d", c.btc, got, c.want)
		}
	}
}
