package params

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/core/types"
	"github.com/opal-lang/rsx/runtime/directive"
)

func fptr(f float64) *float64 { return &f }

func TestCreateParameterLegacy(t *testing.T) {
	tests := []struct {
		body string
		want *model.Parameter
	}{
		{"in_raster=raster", &model.Parameter{Name: "in_raster", Description: "in raster", Kind: model.Raster{}}},
		{"Layer=source", &model.Parameter{Name: "Layer", Description: "Layer", Kind: model.VectorSource{}}},
		{"Layer=vector point", &model.Parameter{Name: "Layer", Description: "Layer", Kind: model.VectorSource{GeometryTypes: []model.LayerType{model.LayerPoint}}}},
		{"Layer=source line polygon", &model.Parameter{Name: "Layer", Description: "Layer", Kind: model.VectorSource{GeometryTypes: []model.LayerType{model.LayerLine, model.LayerPolygon}}}},
		{"in_field=field in_vector", &model.Parameter{Name: "in_field", Description: "in field", Kind: model.Field{Parent: "in_vector"}}},
		{"f=field numeric multiple default_to_all_fields Layer", &model.Parameter{Name: "f", Description: "f", Kind: model.Field{Parent: "Layer", DataType: model.FieldNumeric, AllowMultiple: true, DefaultToAllFields: true}}},
		{"in_extent=extent", &model.Parameter{Name: "in_extent", Description: "in extent", Kind: model.Extent{}}},
		{"in_crs=crs EPSG:4326", &model.Parameter{Name: "in_crs", Description: "in crs", Kind: model.Crs{}, Default: types.CRS{AuthID: "EPSG:4326"}}},
		{"in_string=string", &model.Parameter{Name: "in_string", Description: "in string", Kind: model.String{}}},
		{`s=string long "hello"`, &model.Parameter{Name: "s", Description: "s", Kind: model.String{MultiLine: true}, Default: "hello"}},
		{"s=string None", &model.Parameter{Name: "s", Description: "s", Kind: model.String{}}},
		{"in_file=file", &model.Parameter{Name: "in_file", Description: "in file", Kind: model.File{}}},
		{"dir=folder", &model.Parameter{Name: "dir", Description: "dir", Kind: model.File{Behavior: model.BehaviorFolder}}},
		{"x=number 0 0 10", &model.Parameter{Name: "x", Description: "x", Kind: model.Number{Subtype: model.NumberDouble, Min: fptr(0), Max: fptr(10)}, Default: 0.0}},
		{"x=number 5", &model.Parameter{Name: "x", Description: "x", Kind: model.Number{Subtype: model.NumberDouble}, Default: 5.0}},
		{"in_enum=enum a;b;c", &model.Parameter{Name: "in_enum", Description: "in enum", Kind: model.Enum{Options: []string{"a", "b", "c"}}}},
		{"in_enum=selection a;b;c 2", &model.Parameter{Name: "in_enum", Description: "in enum", Kind: model.Enum{Options: []string{"a", "b", "c"}}, Default: 2}},
		{"e=enum multiple a;b;c 0,2", &model.Parameter{Name: "e", Description: "e", Kind: model.Enum{Options: []string{"a", "b", "c"}, AllowMultiple: true}, Default: []int{0, 2}}},
		{"in_bool=boolean True", &model.Parameter{Name: "in_bool", Description: "in bool", Kind: model.Boolean{}, Default: true}},
		{"in_bool=boolean false", &model.Parameter{Name: "in_bool", Description: "in bool", Kind: model.Boolean{}, Default: false}},
		{"in_bool=boolean", &model.Parameter{Name: "in_bool", Description: "in bool", Kind: model.Boolean{}, Default: true}},
		{"p=point 1,2", &model.Parameter{Name: "p", Description: "p", Kind: model.Point{}, Default: types.Point{X: 1, Y: 2}}},
		{"r=range 0,1", &model.Parameter{Name: "r", Description: "r", Kind: model.Range{Subtype: model.NumberDouble}, Default: types.Range{Min: 0, Max: 1}}},
		{"c=color withopacity #ff0000", &model.Parameter{Name: "c", Description: "c", Kind: model.Color{AllowOpacity: true}, Default: types.Color{R: 255, A: 255}}},
		{"d=datetime", &model.Parameter{Name: "d", Description: "d", Kind: model.DateTime{Type: types.KindDateTime}}},
		{"t=datetime time", &model.Parameter{Name: "t", Description: "t", Kind: model.DateTime{Type: types.KindTime}}},
		{"m=multiple raster", &model.Parameter{Name: "m", Description: "m", Kind: model.MultipleLayers{LayerType: model.LayerRaster}}},
		{"m=multiple vector", &model.Parameter{Name: "m", Description: "m", Kind: model.MultipleLayers{LayerType: model.LayerAnyGeometry}}},
		{"b=band multiple Raster 1", &model.Parameter{Name: "b", Description: "b", Kind: model.Band{Parent: "Raster", AllowMultiple: true}, Default: []int{1}}},
		{"d=distance Layer 10", &model.Parameter{Name: "d", Description: "d", Kind: model.Distance{Parent: "Layer"}, Default: 10.0}},
		{"sc=scale", &model.Parameter{Name: "sc", Description: "sc", Kind: model.Scale{}}},
		{"x=expression 1+2", &model.Parameter{Name: "x", Description: "x", Kind: model.Expression{}, Default: "1+2"}},
		{"o=optional raster", &model.Parameter{Name: "o", Description: "o", Kind: model.Raster{}, Optional: true}},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got, err := CreateParameter(tt.body)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CreateParameter(%q) mismatch (-want +got):\n%s", tt.body, diff)
			}
		})
	}
}

func TestCreateParameterLiteralEnum(t *testing.T) {
	p, err := CreateParameter("in_enum2=enum literal normal;log10;ln;sqrt;exp")
	require.NoError(t, err)

	kind, ok := p.Kind.(model.Enum)
	require.True(t, ok)
	assert.True(t, kind.Literal)
	assert.Equal(t, []string{"normal", "log10", "ln", "sqrt", "exp"}, kind.Options)

	p, err = CreateParameter("in_enum=enum normal;log10")
	require.NoError(t, err)
	assert.False(t, p.Kind.(model.Enum).Literal)
}

func TestCreateParameterTyped(t *testing.T) {
	tests := []struct {
		body string
		want *model.Parameter
	}{
		{
			"QgsProcessingParameterNumber|in_number|Input number|QgsProcessingParameterNumber.Integer|1|False|0|10",
			&model.Parameter{Name: "in_number", Description: "Input number", Kind: model.Number{Subtype: model.NumberInteger, Min: fptr(0), Max: fptr(10)}, Default: 1.0},
		},
		{
			"QgsProcessingParameterFile|in_gpkg|Input gpkg|QgsProcessingParameterFile.File|gpkg",
			&model.Parameter{Name: "in_gpkg", Description: "Input gpkg", Kind: model.File{Behavior: model.BehaviorFile, Extension: "gpkg"}},
		},
		{
			"QgsProcessingParameterFile|in_img|Input img|QgsProcessingParameterFile.File||None|False|PNG Files (*.png);; JPG Files (*.jpg *.jpeg)",
			&model.Parameter{Name: "in_img", Description: "Input img", Kind: model.File{Behavior: model.BehaviorFile, Filter: "PNG Files (*.png);; JPG Files (*.jpg *.jpeg)"}},
		},
		{
			"QgsProcessingParameterFile|in_folder|Input folder|1|None|None|True",
			&model.Parameter{Name: "in_folder", Description: "Input folder", Kind: model.File{Behavior: model.BehaviorFolder}, Optional: true},
		},
		{
			"QgsProcessingParameterEnum|e|Mode|a;b;c|True|0,1",
			&model.Parameter{Name: "e", Description: "Mode", Kind: model.Enum{Options: []string{"a", "b", "c"}, AllowMultiple: true}, Default: []int{0, 1}},
		},
		{
			"QgsProcessingParameterFeatureSource|in_vector|Vector|[0]",
			&model.Parameter{Name: "in_vector", Description: "Vector", Kind: model.VectorSource{GeometryTypes: []model.LayerType{model.LayerPoint}}},
		},
		{
			"QgsProcessingParameterField|in_field|Field|None|in_vector|QgsProcessingParameterField.Numeric|True",
			&model.Parameter{Name: "in_field", Description: "Field", Kind: model.Field{Parent: "in_vector", DataType: model.FieldNumeric, AllowMultiple: true}},
		},
		{
			"QgsProcessingParameterVectorDestination|param_vector_point_dest|Points|QgsProcessing.TypeVectorPoint",
			&model.Parameter{Name: "param_vector_point_dest", Description: "Points", Kind: model.VectorDestination{LayerType: model.LayerPoint}},
		},
		{
			"QgsProcessingParameterVectorDestination|param_table_dest|Table|QgsProcessing.TypeVector",
			&model.Parameter{Name: "param_table_dest", Description: "Table", Kind: model.VectorDestination{LayerType: model.LayerTable}},
		},
		{
			"QgsProcessingParameterFileDestination|param_img_dest|Image|PNG Files (*.png);; JPG Files (*.jpg *.jpeg)",
			&model.Parameter{Name: "param_img_dest", Description: "Image", Kind: model.FileDestination{Filter: "PNG Files (*.png);; JPG Files (*.jpg *.jpeg)", Extension: "png"}},
		},
		{
			"QgsProcessingParameterDateTime|d|Date|QgsProcessingParameterDateTime.Date|2020-05-04",
			&model.Parameter{Name: "d", Description: "Date", Kind: model.DateTime{Type: types.KindDate}, Default: types.DateTime{Time: mustDate(t, "2020-05-04"), Kind: types.KindDate}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.want.Name, func(t *testing.T) {
			got, err := CreateParameter(tt.body)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CreateParameter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := types.ParseDateTime(s, types.KindDate)
	require.NoError(t, err)
	return d.Time
}

// Legacy and typed declarations of the same parameter agree on kind, name
// and default value.
func TestFormEquivalence(t *testing.T) {
	pairs := []struct{ legacy, typed string }{
		{"x=number 5", "QgsProcessingParameterNumber|x|X|QgsProcessingParameterNumber.Double|5"},
		{"in_enum=enum a;b;c 1", "QgsProcessingParameterEnum|in_enum|Enum|a;b;c|False|1"},
		{"e=enum multiple a;b 0,1", "QgsProcessingParameterEnum|e|E|a;b|True|0,1"},
		{"s=string hello", "QgsProcessingParameterString|s|S|hello"},
		{"b=boolean false", "QgsProcessingParameterBoolean|b|B|False"},
		{"Layer=source", "QgsProcessingParameterFeatureSource|Layer|Layer"},
		{"Layer=source point", "QgsProcessingParameterFeatureSource|Layer|Layer|[QgsProcessing.TypeVectorPoint]"},
		{"r=raster", "QgsProcessingParameterRasterLayer|r|R"},
		{"ext=extent 10,20,0,5", "QgsProcessingParameterExtent|ext|E|10,20,0,5"},
		{"p=point 1,2 [EPSG:4326]", "QgsProcessingParameterPoint|p|P|1,2 [EPSG:4326]"},
		{"f=field Layer", "QgsProcessingParameterField|f|F|None|Layer"},
		{"m=multiple raster", "QgsProcessingParameterMultipleLayers|m|M|QgsProcessing.TypeRaster"},
		{"c=color withopacity #00ff00", "QgsProcessingParameterColor|c|C|#00ff00|True"},
		{"t=datetime time 13:45:30", "QgsProcessingParameterDateTime|t|T|2|13:45:30"},
		{"rg=range 0,1", "QgsProcessingParameterRange|rg|R|QgsProcessingParameterNumber.Double|0,1"},
		{"band=band Raster 1", "QgsProcessingParameterBand|band|Band|1|Raster"},
	}

	for _, pair := range pairs {
		t.Run(pair.legacy, func(t *testing.T) {
			legacy, err := CreateParameter(pair.legacy)
			require.NoError(t, err)
			typed, err := CreateParameter(pair.typed)
			require.NoError(t, err)

			assert.Equal(t, legacy.Name, typed.Name)
			if diff := cmp.Diff(legacy.Kind, typed.Kind); diff != "" {
				t.Errorf("kind mismatch (-legacy +typed):\n%s", diff)
			}
			if diff := cmp.Diff(legacy.Default, typed.Default); diff != "" {
				t.Errorf("default mismatch (-legacy +typed):\n%s", diff)
			}
		})
	}
}

func TestCreateParameterErrors(t *testing.T) {
	_, err := CreateParameter("polyg=xvector")
	require.Error(t, err)
	var unknown *UnknownTypeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "xvector", unknown.Type)
	assert.Equal(t, "vector", unknown.Suggestion)

	_, err = CreateParameter("x=numbr 5")
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "number", unknown.Suggestion)
	assert.Contains(t, err.Error(), `did you mean "number"`)

	_, err = CreateParameter("QgsProcessingParameterNumbr|x|X")
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "QgsProcessingParameterNumber", unknown.Suggestion)

	_, err = CreateParameter("novalue")
	assert.True(t, errors.Is(err, directive.ErrMalformed))

	_, err = CreateParameter("e=enum a;b 5")
	assert.Error(t, err, "default index out of range")

	_, err = CreateParameter("x=number a b c")
	assert.Error(t, err)

	_, err = CreateParameter("QgsProcessingOutputNumber|n|N")
	assert.Error(t, err)
}

func TestCreateOutput(t *testing.T) {
	tests := []struct {
		body       string
		wantOutput *model.Output
		wantParam  *model.Parameter
	}{
		{"out=output vector", nil, &model.Parameter{Name: "out", Description: "out", Kind: model.VectorDestination{LayerType: model.LayerAnyGeometry}}},
		{"out_vector=output vector noprompt", &model.Output{Name: "out_vector", Description: "out vector", Kind: model.VectorOutput{LayerType: model.LayerAnyGeometry}}, nil},
		{"p=output vector point", nil, &model.Parameter{Name: "p", Description: "p", Kind: model.VectorDestination{LayerType: model.LayerPoint}}},
		{"p=output vector polygon noprompt", &model.Output{Name: "p", Description: "p", Kind: model.VectorOutput{LayerType: model.LayerPolygon}}, nil},
		{"t=output table", nil, &model.Parameter{Name: "t", Description: "t", Kind: model.VectorDestination{LayerType: model.LayerTable}}},
		{"t=output table noprompt", &model.Output{Name: "t", Description: "t", Kind: model.TableOutput{}}, nil},
		{"r=output raster", nil, &model.Parameter{Name: "r", Description: "r", Kind: model.RasterDestination{}}},
		{"r=output raster noprompt", &model.Output{Name: "r", Description: "r", Kind: model.RasterOutput{}}, nil},
		{"d=output folder", nil, &model.Parameter{Name: "d", Description: "d", Kind: model.FolderDestination{}}},
		{"h=output html", nil, &model.Parameter{Name: "h", Description: "h", Kind: model.FileDestination{Filter: "HTML Files (*.html)", Extension: "html"}}},
		{"c=output file csv", nil, &model.Parameter{Name: "c", Description: "c", Kind: model.FileDestination{Filter: "CSV Files (*.csv)", Extension: "csv"}}},
		{"f=output file", nil, &model.Parameter{Name: "f", Description: "f", Kind: model.FileDestination{}}},
		{"f=output file csv noprompt", &model.Output{Name: "f", Description: "f", Kind: model.FileOutput{Extension: "csv"}}, nil},
		{"n=output number", &model.Output{Name: "n", Description: "n", Kind: model.NumberOutput{}}, nil},
		{"s=output string", &model.Output{Name: "s", Description: "s", Kind: model.StringOutput{}}, nil},
		{"l=output layer", &model.Output{Name: "l", Description: "l", Kind: model.LayerOutput{}}, nil},
		{"h=output html noprompt", &model.Output{Name: "h", Description: "h", Kind: model.HTMLOutput{}}, nil},
		{"n=QgsProcessingOutputNumber|n|Count", nil, nil},
		{"QgsProcessingOutputNumber|n|Count", &model.Output{Name: "n", Description: "Count", Kind: model.NumberOutput{}}, nil},
		{"QgsProcessingOutputVectorLayer|v|V|QgsProcessing.TypeVectorLine", &model.Output{Name: "v", Description: "V", Kind: model.VectorOutput{LayerType: model.LayerLine}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got, ok := CreateOutput(tt.body)
			if tt.wantOutput == nil && tt.wantParam == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			if diff := cmp.Diff(tt.wantOutput, got.Output); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantParam, got.Parameter); diff != "" {
				t.Errorf("parameter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateOutputNotAnOutput(t *testing.T) {
	for _, body := range []string{"Layer=source", "x=number 5", "m=output multilayers", "u=output unknown", "nothing"} {
		_, ok := CreateOutput(body)
		assert.False(t, ok, body)
	}
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "string", Suggest("strng"))
	assert.Equal(t, "boolean", Suggest("bool"))
	assert.Equal(t, "", Suggest(""))
}
