// Package harmdata reads and writes the harmonics file: a JSON object keyed
// by station code holding each station's fitted constituents and metadata.
package harmdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ngmaloney/tide-terminal/internal/harmonics"
)

// Version is written into every record generated by this program.
const Version = "0.4.0"

// ErrStationNotFound is returned when the file has no record for a code.
var ErrStationNotFound = errors.New("harmonics not found for station")

// Record is one station entry of the harmonics file.
type Record struct {
	Cons        []string  `json:"cons"`
	Amps        []float64 `json:"amps"`
	Phase       []float64 `json:"phase"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	TZone       string    `json:"tzone"`
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	Contributor string    `json:"contributor"`
	Version     string    `json:"version"`
	// Epoch is the reference instant of the phases. Records written by
	// earlier versions do not carry it.
	Epoch time.Time `json:"epoch,omitzero"`
}

// File maps station codes to their records.
type File map[string]Record

// Model rebuilds the harmonic model stored in the record. The mean level is
// carried by the Z0 entry. fallback is used when the record has no epoch.
func (r Record) Model(fallback time.Time) (*harmonics.Model, error) {
	epoch := r.Epoch
	if epoch.IsZero() {
		epoch = fallback
	}
	return harmonics.Reconstruct(r.Cons, r.Amps, r.Phase, 0, epoch)
}

// SetModel replaces the constituents and epoch of r with those of m. The
// mean level is stored as a leading Z0 entry with phase 0 or 180.
func (r *Record) SetModel(m *harmonics.Model) {
	names, amps, phases, mean := m.Serialize()

	r.Cons = append([]string{harmonics.Z0.String()}, names...)
	r.Amps = append([]float64{math.Abs(mean)}, amps...)
	meanPhase := 0.0
	if mean < 0 {
		meanPhase = 180
	}
	r.Phase = append([]float64{meanPhase}, phases...)
	r.Epoch = m.Epoch()
}

// Load reads the harmonics file at path. A missing file yields an empty
// File. Records whose constituent arrays differ in length are rejected.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading harmonics file: %w", err)
	}
	return Decode(data)
}

// Decode parses the JSON form of a harmonics file.
func Decode(data []byte) (File, error) {
	f := File{}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding harmonics file: %w", err)
	}
	for _, code := range f.Codes() {
		r := f[code]
		if len(r.Cons) != len(r.Amps) || len(r.Cons) != len(r.Phase) {
			return nil, &harmonics.Error{
				Kind: harmonics.ErrMalformedModel,
				Msg: fmt.Sprintf("station %s has %d constituents, %d amplitudes, %d phases",
					code, len(r.Cons), len(r.Amps), len(r.Phase)),
			}
		}
	}
	return f, nil
}

// Save writes f to path, creating the parent directory if needed. The file
// is replaced atomically.
func Save(path string, f File) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding harmonics file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".harmonics-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing harmonics file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing harmonics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing harmonics file: %w", err)
	}
	return nil
}

// Get returns the record for code or ErrStationNotFound.
func (f File) Get(code string) (Record, error) {
	r, ok := f[code]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrStationNotFound, code)
	}
	return r, nil
}

// Codes returns the station codes in sorted order.
func (f File) Codes() []string {
	codes := make([]string, 0, len(f))
	for code := range f {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
