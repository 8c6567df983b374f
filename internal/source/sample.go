package source

import (
	"github.com/MikeSquared-Agency/TariffIndex/internal/factors"
)

// NewSample returns a Static source over the built-in sample tables.
func NewSample() *Static {
	s := NewStatic("sample", factors.Sample())
	s.date = factors.SampleCollectionDate
	return s
}
