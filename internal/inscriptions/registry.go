// Package inscriptions is the domain layer over the store's
// inscription tables: reveal, transfer, and the satpoint parsing that
// derives the outpoint_to_watch secondary-index key.
package inscriptions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ordhord/hord/internal/store"
)

// Satpoint is a parsed txid:vout:offset address of one satoshi within
// one output.
type Satpoint struct {
	Txid   string
	Vout   uint32
	Offset uint64
}

// Outpoint returns the txid:vout portion, the outpoint_to_watch key.
func (s Satpoint) Outpoint() string {
	return fmt.Sprintf("%s:%d", s.Txid, s.Vout)
}

// ParseSatpoint splits a satpoint string on ':' into exactly three
// fields (txid, vout, offset), validating that the vout and offset
// fields are well-formed integers; a string with any other number of
// ':' separators is rejected. This replaces the original's blind
// last-two-characters truncation, which silently mis-parses any
// reveal with a non-zero offset.
func ParseSatpoint(s string) (Satpoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Satpoint{}, fmt.Errorf("%w: %q", ErrInvalidSatpoint, s)
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Satpoint{}, fmt.Errorf("%w: bad vout in %q: %v", ErrInvalidSatpoint, s, err)
	}
	offset, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return Satpoint{}, fmt.Errorf("%w: bad offset in %q: %v", ErrInvalidSatpoint, s, err)
	}
	return Satpoint{Txid: parts[0], Vout: uint32(vout), Offset: offset}, nil
}

// LegacyStripOffset reproduces the original spec's satpoint-to-outpoint
// conversion: the trailing two characters (assumed to always be the
// ":0" suffix) are discarded unconditionally. Kept for parity and
// tests only; ParseSatpoint is the default used by Reveal (Transfer
// takes an already-formed outpoint).
func LegacyStripOffset(satpoint string) string {
	if len(satpoint) < 2 {
		return satpoint
	}
	return satpoint[:len(satpoint)-2]
}

// RevealData is the reveal-time information the augmentation
// collaborator supplies; inscription_number is assigned densely by the
// caller as len(FindAllInscriptions()), not enforced here. This differs
// from LastInscriptionNumber()+1 because that value is 0 both when the
// store is empty and when the highest assigned number is 0.
type RevealData struct {
	InscriptionID        string
	SatpointPostInscription string
	OrdinalNumber        uint64
	InscriptionNumber    uint64
}

// Registry is the thin semantic layer over store.Store implementing
// the reveal/transfer domain rules.
type Registry struct {
	store *store.Store
}

// New wraps a store.Store as an inscription registry.
func New(s *store.Store) *Registry {
	return &Registry{store: s}
}

// Reveal inserts a new inscription row. The initial outpoint_to_watch
// is the satpoint's outpoint with offset 0, per the original's
// always-offset-0-at-reveal invariant.
func (r *Registry) Reveal(data RevealData, blockHeight uint64, blockHash string) error {
	satpoint, err := ParseSatpoint(data.SatpointPostInscription)
	if err != nil {
		return err
	}
	row := store.InscriptionRow{
		InscriptionID:     data.InscriptionID,
		BlockHeight:       blockHeight,
		BlockHash:         blockHash,
		OutpointToWatch:   satpoint.Outpoint(),
		OrdinalNumber:     data.OrdinalNumber,
		InscriptionNumber: data.InscriptionNumber,
		Offset:            0,
	}
	return r.store.InsertInscription(row)
}

// Transfer updates an inscription's watched outpoint and offset.
func (r *Registry) Transfer(inscriptionID, outpoint string, offset uint64) error {
	return r.store.UpdateTransferred(inscriptionID, outpoint, offset)
}

// LastInscriptionNumber passes through to the store.
func (r *Registry) LastInscriptionNumber() (uint64, error) {
	return r.store.LastInscriptionNumber()
}

// FindByOrdinal passes through to the store.
func (r *Registry) FindByOrdinal(n uint64) (store.InscriptionRow, bool, error) {
	return r.store.FindByOrdinal(n)
}

// FindAllInscriptions passes through to the store.
func (r *Registry) FindAllInscriptions() ([]store.InscriptionRow, error) {
	return r.store.FindAllInscriptions()
}

// FindByOutpoint passes through to the store.
func (r *Registry) FindByOutpoint(outpoint string) ([]store.InscriptionRow, error) {
	return r.store.FindByOutpoint(outpoint)
}

// DeleteInscription passes through to the store.
func (r *Registry) DeleteInscription(id string) error {
	return r.store.DeleteInscription(id)
}
