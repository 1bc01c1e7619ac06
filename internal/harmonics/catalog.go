package harmonics

import (
	"fmt"
	"strings"
	"time"
)

// ConstituentID is the fixed index of a constituent in the catalog.
type ConstituentID int

const (
	Z0 ConstituentID = iota
	M2
	S2
	N2
	K1
	M4
	O1
	M6
	MK3
	S4
	MN4
	NU2
	S6
	MU2
	N2x2 // 2N2
	OO1
	LAM2
	S1
	M1
	J1
	MM
	SSA
	SA
	MSF
	MF
	RHO1
	Q1
	T2
	R2
	Q1x2 // 2Q1
	P1
	SM2x2 // 2SM2
	M3
	L2
	MK3x2 // 2MK3
	K2
	M8
	MS4

	numConstituents
)

// Constituent is a single astronomical tidal component.
type Constituent struct {
	ID    ConstituentID
	Name  string
	Speed float64 // degrees per mean solar hour
}

// Period returns the time taken by one full cycle. Z0 has no period and
// returns 0.
func (c Constituent) Period() time.Duration {
	if c.Speed == 0 {
		return 0
	}
	return time.Duration(360 / c.Speed * float64(time.Hour))
}

func (c Constituent) String() string {
	return c.Name
}

// Speeds are the NOAA CO-OPS published values. Names follow the spelling used
// in harmonics files written by earlier versions of tidepredict.
var catalog = [numConstituents]Constituent{
	{Z0, "Z0", 0},
	{M2, "M2", 28.9841042},
	{S2, "S2", 30.0},
	{N2, "N2", 28.4397295},
	{K1, "K1", 15.0410686},
	{M4, "M4", 57.9682084},
	{O1, "O1", 13.9430356},
	{M6, "M6", 86.9523127},
	{MK3, "MK3", 44.0251729},
	{S4, "S4", 60.0},
	{MN4, "MN4", 57.4238337},
	{NU2, "nu2", 28.5125831},
	{S6, "S6", 90.0},
	{MU2, "mu2", 27.9682084},
	{N2x2, "2N2", 27.8953548},
	{OO1, "OO1", 16.1391017},
	{LAM2, "lambda2", 29.4556253},
	{S1, "S1", 15.0},
	{M1, "M1", 14.4966939},
	{J1, "J1", 15.5854433},
	{MM, "Mm", 0.5443747},
	{SSA, "Ssa", 0.0821373},
	{SA, "Sa", 0.0410686},
	{MSF, "Msf", 1.0158958},
	{MF, "Mf", 1.0980331},
	{RHO1, "rho1", 13.4715145},
	{Q1, "Q1", 13.3986609},
	{T2, "T2", 29.9589333},
	{R2, "R2", 30.0410667},
	{Q1x2, "2Q1", 12.8542862},
	{P1, "P1", 14.9589314},
	{SM2x2, "2SM2", 31.0158958},
	{M3, "M3", 43.4761563},
	{L2, "L2", 29.5284789},
	{MK3x2, "2MK3", 42.9271398},
	{K2, "K2", 30.0821373},
	{M8, "M8", 115.9364166},
	{MS4, "MS4", 58.9841042},
}

// Alternative spellings found in NOAA and IHO tables.
var aliases = map[string]ConstituentID{
	"LAM2": LAM2,
	"RHO":  RHO1,
}

var byName = buildIndex()

func buildIndex() map[string]ConstituentID {
	idx := make(map[string]ConstituentID, len(catalog)+len(aliases))
	for i, c := range catalog {
		if c.ID != ConstituentID(i) {
			panic(fmt.Sprintf("harmonics: catalog entry %q at index %d has id %d", c.Name, i, c.ID))
		}
		key := strings.ToUpper(c.Name)
		if _, dup := idx[key]; dup {
			panic(fmt.Sprintf("harmonics: duplicate catalog name %q", c.Name))
		}
		idx[key] = c.ID
	}
	for name, id := range aliases {
		idx[name] = id
	}
	return idx
}

// Lookup resolves a constituent by name. Matching ignores case.
func Lookup(name string) (Constituent, error) {
	id, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Constituent{}, errorf(ErrUnknownConstituent, "%q", name)
	}
	return catalog[id], nil
}

// Get returns the catalog entry for id. It panics on an out of range id.
func (id ConstituentID) Get() Constituent {
	return catalog[id]
}

func (id ConstituentID) String() string {
	if id < 0 || id >= numConstituents {
		return fmt.Sprintf("ConstituentID(%d)", int(id))
	}
	return catalog[id].Name
}

// All returns every catalog entry in index order, Z0 first.
func All() []Constituent {
	out := make([]Constituent, len(catalog))
	copy(out, catalog[:])
	return out
}

// Standard returns the constituents fitted by default: every periodic
// constituent in the catalog. The mean level is always fitted.
func Standard() []Constituent {
	return All()[1:]
}
