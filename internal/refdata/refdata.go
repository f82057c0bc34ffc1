// Package refdata loads the static reference tables the tracker consumes:
// underlying name to spot instrument key, contract lot sizes, and index
// weights. All tables are read once at startup and read-only afterwards.
package refdata

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"upstox-chainwatch/internal/errors"
	"upstox-chainwatch/internal/models"
)

// File names looked up under the config directory.
const (
	KeysFile = "instrument_keys.json"
	LotsFile = "lot_sizes.json"
)

// Tables holds the loaded reference data.
type Tables struct {
	keys    map[string]models.InstrumentKey
	lots    map[string]int
	weights map[string]float64
}

// Load reads the reference tables from a directory. The instrument key
// table is required; a missing lot-size table degrades to lot 1 for every
// contract.
func Load(dir string) (*Tables, error) {
	keys := make(map[string]models.InstrumentKey)
	if err := readJSON(filepath.Join(dir, KeysFile), &keys); err != nil {
		return nil, errors.Wrapf(err, "loading %s", KeysFile)
	}
	if len(keys) == 0 {
		return nil, errors.Wrap(errors.ErrNoData, "instrument key table is empty")
	}

	// A missing lot-size table is tolerated; LotSize falls back to 1.
	lots := make(map[string]int)
	if err := readJSON(filepath.Join(dir, LotsFile), &lots); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "loading %s", LotsFile)
	}

	return &Tables{keys: keys, lots: lots, weights: indexWeights}, nil
}

// NewTables builds Tables from in-memory maps. Test and CLI helper.
func NewTables(keys map[string]models.InstrumentKey, lots map[string]int) *Tables {
	if keys == nil {
		keys = make(map[string]models.InstrumentKey)
	}
	if lots == nil {
		lots = make(map[string]int)
	}
	return &Tables{keys: keys, lots: lots, weights: indexWeights}
}

func readJSON(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(out)
}

// SpotKey returns the spot instrument key for an underlying name.
func (t *Tables) SpotKey(name string) (models.InstrumentKey, bool) {
	k, ok := t.keys[name]
	return k, ok
}

// LotSize returns the contract lot size for an underlying, defaulting to 1.
func (t *Tables) LotSize(name string) int {
	if lot, ok := t.lots[name]; ok && lot > 0 {
		return lot
	}
	return 1
}

// Weight returns the index weight for an underlying, or 0 when unweighted.
func (t *Tables) Weight(name string) float64 {
	return t.weights[name]
}

// Names returns all underlying names in the key table, sorted.
func (t *Tables) Names() []string {
	names := make([]string, 0, len(t.keys))
	for n := range t.keys {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// instrumentRow is one line of the exchange F&O instrument dump.
type instrumentRow struct {
	InstrumentKey  string  `csv:"instrument_key"`
	TradingSymbol  string  `csv:"tradingsymbol"`
	Name           string  `csv:"name"`
	Exchange       string  `csv:"exchange"`
	InstrumentType string  `csv:"instrument_type"`
	LotSize        int     `csv:"lot_size"`
	Strike         float64 `csv:"strike"`
	Expiry         string  `csv:"expiry"`
}

// ImportInstrumentDump parses an exchange instrument CSV dump and rebuilds
// the key and lot-size tables for the named underlyings. Equity keys come
// from the cash segment row; lot sizes from the derivatives rows.
func ImportInstrumentDump(r io.Reader, wanted []string) (map[string]models.InstrumentKey, map[string]int, error) {
	var rows []*instrumentRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, nil, errors.Wrap(err, "parsing instrument dump")
	}

	want := make(map[string]struct{}, len(wanted))
	for _, n := range wanted {
		want[strings.ToUpper(n)] = struct{}{}
	}
	match := func(name string) bool {
		if len(want) == 0 {
			return true
		}
		_, ok := want[strings.ToUpper(name)]
		return ok
	}

	keys := make(map[string]models.InstrumentKey)
	lots := make(map[string]int)
	for _, row := range rows {
		name := strings.ToUpper(row.Name)
		if name == "" || !match(name) {
			continue
		}
		switch row.InstrumentType {
		case "EQ", "INDEX":
			if _, ok := keys[name]; !ok && row.InstrumentKey != "" {
				keys[name] = models.InstrumentKey(row.InstrumentKey)
			}
		case "CE", "PE", "FUT":
			if row.LotSize > 0 {
				lots[name] = row.LotSize
			}
		}
	}
	if len(keys) == 0 {
		return nil, nil, errors.Wrap(errors.ErrNoData, "no matching instruments in dump")
	}
	return keys, lots, nil
}

// SaveTables writes key and lot-size tables as JSON next to each other in
// dir, the layout Load expects.
func SaveTables(dir string, keys map[string]models.InstrumentKey, lots map[string]int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, KeysFile), keys); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, LotsFile), lots)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
