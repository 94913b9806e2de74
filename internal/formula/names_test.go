package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr string
	}{
		{"Revenue", ""},
		{"_tax.rate", ""},
		{"Q1_Total2", ""},
		{"", "cannot be empty"},
		{"1abc", "not a digit"},
		{"-abc", "must start with a letter"},
		{"a b", "can only contain"},
		{"rate.", "cannot end with a dot"},
		{"a..b", "consecutive dots"},
		{"A1", "looks like a cell reference"},
		{"xfd100", "looks like a cell reference"},
		{"true", "reserved boolean"},
		{"NA", "conflicts with an error value"},
		{"Sum", "is a function name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNameStore_CaseInsensitive(t *testing.T) {
	s := NewNameStore()
	require.NoError(t, s.Set(NamedRange{Name: "Rate", Target: CellTarget(0, 1, 1)}))

	got, ok := s.ResolveName("RATE")
	require.True(t, ok)
	assert.Equal(t, CellTarget(0, 1, 1), got)
	assert.True(t, got.IsCell())

	require.NoError(t, s.Rename("rate", "TaxRate"))
	_, ok = s.Get("Rate")
	assert.False(t, ok)
	nr, ok := s.Get("taxrate")
	require.True(t, ok)
	assert.Equal(t, "TaxRate", nr.Name)

	assert.Error(t, s.Rename("missing", "Other"))
	assert.Error(t, s.Set(NamedRange{Name: "B2"}))
}

func TestNameStore_ListAndFind(t *testing.T) {
	s := NewNameStore()
	require.NoError(t, s.Set(NamedRange{Name: "beta", Target: RangeTarget(0, 0, 0, 4, 0)}))
	require.NoError(t, s.Set(NamedRange{Name: "Alpha", Target: CellTarget(0, 2, 0)}))
	require.NoError(t, s.Set(NamedRange{Name: "Gamma", Target: CellTarget(1, 2, 0)}))

	var names []string
	for _, nr := range s.List() {
		names = append(names, nr.Name)
	}
	assert.Equal(t, []string{"Alpha", "beta", "Gamma"}, names)

	found := s.FindByCell(0, 2, 0)
	require.Len(t, found, 2)
	assert.Equal(t, "Alpha", found[0].Name)
	assert.Equal(t, "beta", found[1].Name)

	_, ok := s.Remove("BETA")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())
}
