package inscriptions

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/ordhord/hord/internal/store"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "hord.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s)
}

func TestParseSatpoint(t *testing.T) {
	sp, err := ParseSatpoint("aabbccdd:1:42")
	if err != nil {
		t.Fatalf("ParseSatpoint: %v", err)
	}
	if sp.Txid != "aabbccdd" || sp.Vout != 1 || sp.Offset != 42 {
		t.Errorf("got %+v", sp)
	}
	if sp.Outpoint() != "aabbccdd:1" {
		t.Errorf("Outpoint() = %q, want aabbccdd:1", sp.Outpoint())
	}
}

func TestParseSatpoint_Invalid(t *testing.T) {
	if _, err := ParseSatpoint("not-a-satpoint"); err == nil {
		t.Error("expected ErrInvalidSatpoint")
	}
}

func TestLegacyStripOffset(t *testing.T) {
	if got := LegacyStripOffset("aabbccdd:1:0"); got != "aabbccdd:1" {
		t.Errorf("LegacyStripOffset = %q, want aabbccdd:1", got)
	}
	// Demonstrates the original's known flaw: any non-zero offset is
	// silently mis-truncated rather than parsed.
	if got := LegacyStripOffset("aabbccdd:1:42"); got == "aabbccdd:1" {
		t.Error("LegacyStripOffset should not correctly strip a two-digit offset")
	}
}

func TestRegistry_RevealAndS4Transfer(t *testing.T) {
	reg := openTestRegistry(t)

	err := reg.Reveal(RevealData{
		InscriptionID:           "i0",
		SatpointPostInscription: "aabbccdd:0:0",
		OrdinalNumber:           1000,
		InscriptionNumber:       0,
	}, 800000, "hash")
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}

	rows, err := reg.FindByOutpoint("aabbccdd:0")
	if err != nil || len(rows) != 1 {
		t.Fatalf("FindByOutpoint before transfer = %+v, %v", rows, err)
	}

	if err := reg.Transfer("i0", "eeff0011:2", 42); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if rows, err := reg.FindByOutpoint("aabbccdd:0"); err != nil || len(rows) != 0 {
		t.Fatalf("FindByOutpoint(old) = %+v, %v, want empty", rows, err)
	}
	rows, err = reg.FindByOutpoint("eeff0011:2")
	if err != nil || len(rows) != 1 || rows[0].Offset != 42 {
		t.Fatalf("FindByOutpoint(new) = %+v, %v", rows, err)
	}
}
