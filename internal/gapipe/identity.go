package gapipe

import (
	"fmt"
	"hash/fnv"
	"sort"

	"gapipe/internal/repo"
)

// nVisitWrap keeps the visit count inside its three-digit file name field.
const nVisitWrap = 1000

// Identity addresses one GA target: catalog, sky position, object, and the
// set of visits folded into the visit count and hash.
type Identity struct {
	CatID     int64
	Tract     int64
	Patch     string
	ObjID     uint64
	NVisit    int64
	VisitHash uint64
}

// String renders the canonical identity form used in file names and logs.
func (id Identity) String() string {
	return fmt.Sprintf("%05d-%05d-%s-%016x-%03d-0x%016x",
		id.CatID, id.Tract, id.Patch, id.ObjID, id.NVisit, id.VisitHash)
}

// ToRepo converts to the repository's generic identity map.
func (id Identity) ToRepo() repo.Identity {
	return repo.Identity{
		"catId":        id.CatID,
		"tract":        id.Tract,
		"patch":        id.Patch,
		"objId":        id.ObjID,
		"nVisit":       id.NVisit,
		"pfsVisitHash": id.VisitHash,
	}
}

// IdentityFromRepo rebuilds an Identity from a repository identity map.
// Fields the map does not carry stay zero.
func IdentityFromRepo(rid repo.Identity) Identity {
	id := Identity{}
	if v, ok := rid.Int("catId"); ok {
		id.CatID = v
	}
	if v, ok := rid.Int("tract"); ok {
		id.Tract = v
	}
	if v, ok := rid.Str("patch"); ok {
		id.Patch = v
	}
	if v, ok := rid.Hex("objId"); ok {
		id.ObjID = v
	}
	if v, ok := rid.Int("nVisit"); ok {
		id.NVisit = v
	}
	if v, ok := rid.Hex("pfsVisitHash"); ok {
		id.VisitHash = v
	}
	return id
}

// WraparoundNVisit folds a visit count into the width of its identity field.
func WraparoundNVisit(n int) int64 {
	return int64(n % nVisitWrap)
}

// CalculateVisitHash derives a stable 63-bit hash from a visit set. The input
// order does not matter; the same visits always produce the same hash.
func CalculateVisitHash(visits []int64) uint64 {
	sorted := make([]int64, len(visits))
	copy(sorted, visits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	h := fnv.New64a()
	for _, v := range sorted {
		fmt.Fprintf(h, "%d,", v)
	}
	return h.Sum64() &^ (1 << 63)
}
