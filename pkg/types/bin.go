package types

import "github.com/cuemby/aerospike-go/pkg/aeroerr"

// Bin is a named cell within a record (spec §3). Names are limited to
// MaxBinNameLength bytes on the wire.
type Bin struct {
	Name  string
	Value Value
}

// NewBin validates the name length and constructs a Bin.
func NewBin(name string, value Value) (*Bin, error) {
	if err := ValidateBinName(name); err != nil {
		return nil, err
	}
	return &Bin{Name: name, Value: value}, nil
}

// ValidateBinName enforces the 15-byte boundary from spec §8.
func ValidateBinName(name string) error {
	if name == "" {
		return aeroerr.New(aeroerr.Policy, "bin name must not be empty")
	}
	if len(name) > MaxBinNameLength {
		return aeroerr.Newf(aeroerr.Policy, "bin name %q exceeds %d bytes", name, MaxBinNameLength)
	}
	return nil
}

// BinMap is a caller-friendly way to build a set of bins, e.g. for Put.
type BinMap map[string]Value

// Bins converts a BinMap into a validated []*Bin, preserving no
// particular order since a record's bins are an unordered set.
func (m BinMap) Bins() ([]*Bin, error) {
	out := make([]*Bin, 0, len(m))
	for name, v := range m {
		b, err := NewBin(name, v)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
