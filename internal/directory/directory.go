// Package directory holds the prefetched identity and asset lists a session
// uses to populate selection widgets and join display projections onto
// tasks. Lookups are convenience checks against a local cache, not
// authoritative referential-integrity checks at the store boundary.
package directory

import (
	"sort"

	"github.com/threadline/stitchboard/pkg/board"
)

// Directory is an immutable lookup of known identities and assets.
type Directory struct {
	identities map[string]board.Identity
	assets     map[string]board.Asset
}

// New builds a directory from prefetched identity and asset lists.
func New(identities []board.Identity, assets []board.Asset) *Directory {
	d := &Directory{
		identities: make(map[string]board.Identity, len(identities)),
		assets:     make(map[string]board.Asset, len(assets)),
	}
	for _, id := range identities {
		d.identities[id.ID] = id
	}
	for _, a := range assets {
		d.assets[a.Code] = a
	}
	return d
}

// Identity looks up an identity by ID.
func (d *Directory) Identity(id string) (board.Identity, bool) {
	identity, ok := d.identities[id]
	return identity, ok
}

// Project returns a display identity for the given ID. Unknown IDs fall
// back to the raw ID as display name so stale references still render.
func (d *Directory) Project(id string) board.Identity {
	if identity, ok := d.identities[id]; ok {
		return identity
	}
	return board.Identity{ID: id, DisplayName: id}
}

// Asset looks up an asset by code.
func (d *Directory) Asset(code string) (board.Asset, bool) {
	asset, ok := d.assets[code]
	return asset, ok
}

// Identities returns all known identities sorted by display name.
func (d *Directory) Identities() []board.Identity {
	out := make([]board.Identity, 0, len(d.identities))
	for _, id := range d.identities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

// Assets returns all known assets sorted by code.
func (d *Directory) Assets() []board.Asset {
	out := make([]board.Asset, 0, len(d.assets))
	for _, a := range d.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
