package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Point
		wantErr bool
	}{
		{"bare", "20.219926,49.138354", Point{X: 20.219926, Y: 49.138354}, false},
		{"with crs", "1.5, -2 [EPSG:4326]", Point{X: 1.5, Y: -2, CRS: CRS{AuthID: "EPSG:4326"}}, false},
		{"one coordinate", "1", Point{}, true},
		{"not a number", "a,b", Point{}, true},
		{"unterminated crs", "1,2 [EPSG:4326", Point{}, true},
		{"empty", "  ", Point{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePoint mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseExtentKeepsXMinXMaxYMinYMaxOrder(t *testing.T) {
	got, err := ParseExtent("10,20,0,5 [EPSG:3857]")
	require.NoError(t, err)

	want := Extent{XMin: 10, XMax: 20, YMin: 0, YMax: 5, CRS: CRS{AuthID: "EPSG:3857"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseExtent mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseExtent("20,10,0,5")
	assert.Error(t, err, "xmin > xmax must be rejected")
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input   string
		want    Color
		wantErr bool
	}{
		{"#00ff00", Color{R: 0, G: 255, B: 0, A: 255}, false},
		{"#ff000080", Color{R: 255, G: 0, B: 0, A: 128}, false},
		{"10, 20, 30", Color{R: 10, G: 20, B: 30, A: 255}, false},
		{"10,20,30,40", Color{R: 10, G: 20, B: 30, A: 40}, false},
		{"#fff", Color{}, true},
		{"256,0,0", Color{}, true},
		{"1,2", Color{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColor(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRange(t *testing.T) {
	got, err := ParseRange("0,1")
	require.NoError(t, err)
	assert.Equal(t, Range{Min: 0, Max: 1}, got)

	_, err = ParseRange("0")
	assert.Error(t, err)
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		input string
		kind  TemporalKind
		iso   string
	}{
		{"2021-10-01T16:57:00", KindDateTime, "2021-10-01T16:57:00"},
		{"2021-10-01 16:57:00", KindDateTime, "2021-10-01T16:57:00"},
		{"2020-05-04", KindDate, "2020-05-04"},
		{"13:45:30", KindTime, "13:45:30"},
		{"13:45", KindTime, "13:45:00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDateTime(tt.input, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.iso, got.ISO())
		})
	}

	_, err := ParseDateTime("13:45:30", KindDate)
	assert.Error(t, err)
}

func TestParseCRS(t *testing.T) {
	crs, err := ParseCRS("EPSG:4326")
	require.NoError(t, err)
	assert.False(t, crs.IsUserDefined())
	assert.Equal(t, "EPSG:4326", crs.String())

	crs, err = ParseCRS(`GEOGCS["WGS 84"]`)
	require.NoError(t, err)
	assert.True(t, crs.IsUserDefined())
	assert.Equal(t, `GEOGCS["WGS 84"]`, crs.String())

	crs = CRS{AuthID: "USER:100000", WKT: "PROJCS[...]"}
	assert.True(t, crs.IsUserDefined())
	assert.Equal(t, "PROJCS[...]", crs.String())

	_, err = ParseCRS("4326")
	assert.Error(t, err)
}
