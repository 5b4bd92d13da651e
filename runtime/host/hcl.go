package host

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/opal-lang/rsx/core/types"
)

var (
	dateTimeType = cty.Capsule("datetime", reflect.TypeOf(types.DateTime{}))
	geometryType = cty.Capsule("geometry", reflect.TypeOf(types.Geometry{}))
)

// HCLEvaluator evaluates expressions written in HCL expression syntax:
// arithmetic, strings, lists and a small function library including
// make_date, make_time, make_datetime and geom_from_wkt.
type HCLEvaluator struct {
	// Variables are visible to every expression by name.
	Variables map[string]cty.Value
}

// Evaluate parses and evaluates expr. Integral numbers come back as int64,
// other numbers as float64; lists as []any.
func (e *HCLEvaluator) Evaluate(_ context.Context, expr string) (any, error) {
	parsed, diags := hclsyntax.ParseExpression([]byte(expr), "expression", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, &ExpressionError{Stage: StageParse, Expression: expr, Err: diags}
	}

	val, diags := parsed.Value(&hcl.EvalContext{
		Variables: e.Variables,
		Functions: functions,
	})
	if diags.HasErrors() {
		return nil, &ExpressionError{Stage: StageEval, Expression: expr, Err: diags}
	}

	out, err := fromCty(val)
	if err != nil {
		return nil, &ExpressionError{Stage: StageEval, Expression: expr, Err: err}
	}
	return out, nil
}

func fromCty(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("result is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.Equals(dateTimeType):
		return *v.EncapsulatedValue().(*types.DateTime), nil
	case ty.Equals(geometryType):
		return *v.EncapsulatedValue().(*types.Geometry), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := fromCty(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported result type %s", ty.FriendlyName())
	}
}

var functions = map[string]function.Function{
	"make_date":     makeDateFunc,
	"make_time":     makeTimeFunc,
	"make_datetime": makeDateTimeFunc,
	"geom_from_wkt": geomFromWKTFunc,

	"abs":    stdlib.AbsoluteFunc,
	"ceil":   stdlib.CeilFunc,
	"floor":  stdlib.FloorFunc,
	"max":    stdlib.MaxFunc,
	"min":    stdlib.MinFunc,
	"upper":  stdlib.UpperFunc,
	"lower":  stdlib.LowerFunc,
	"trim":   stdlib.TrimSpaceFunc,
	"substr": stdlib.SubstrFunc,
	"split":  stdlib.SplitFunc,
	"join":   stdlib.JoinFunc,
	"format": stdlib.FormatFunc,
	"concat": stdlib.ConcatFunc,
	"length": stdlib.LengthFunc,
}

func intParams(names ...string) []function.Parameter {
	params := make([]function.Parameter, len(names))
	for i, n := range names {
		params[i] = function.Parameter{Name: n, Type: cty.Number}
	}
	return params
}

func ints(args []cty.Value) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		if err := gocty.FromCtyValue(a, &out[i]); err != nil {
			return nil, function.NewArgError(i, err)
		}
	}
	return out, nil
}

// checked rejects components time.Date would silently normalise.
func checked(t time.Time, n []int) error {
	if len(n) >= 3 && (t.Year() != n[0] || int(t.Month()) != n[1] || t.Day() != n[2]) {
		return fmt.Errorf("invalid date %04d-%02d-%02d", n[0], n[1], n[2])
	}
	return nil
}

func temporal(kind types.TemporalKind, t time.Time) cty.Value {
	return cty.CapsuleVal(dateTimeType, &types.DateTime{Time: t, Kind: kind})
}

var makeDateFunc = function.New(&function.Spec{
	Params: intParams("year", "month", "day"),
	Type:   function.StaticReturnType(dateTimeType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		n, err := ints(args)
		if err != nil {
			return cty.NilVal, err
		}
		t := time.Date(n[0], time.Month(n[1]), n[2], 0, 0, 0, 0, time.UTC)
		if err := checked(t, n); err != nil {
			return cty.NilVal, err
		}
		return temporal(types.KindDate, t), nil
	},
})

var makeTimeFunc = function.New(&function.Spec{
	Params: intParams("hour", "minute", "second"),
	Type:   function.StaticReturnType(dateTimeType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		n, err := ints(args)
		if err != nil {
			return cty.NilVal, err
		}
		if n[0] < 0 || n[0] > 23 || n[1] < 0 || n[1] > 59 || n[2] < 0 || n[2] > 59 {
			return cty.NilVal, fmt.Errorf("invalid time %02d:%02d:%02d", n[0], n[1], n[2])
		}
		return temporal(types.KindTime, time.Date(0, 1, 1, n[0], n[1], n[2], 0, time.UTC)), nil
	},
})

var makeDateTimeFunc = function.New(&function.Spec{
	Params: intParams("year", "month", "day", "hour", "minute", "second"),
	Type:   function.StaticReturnType(dateTimeType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		n, err := ints(args)
		if err != nil {
			return cty.NilVal, err
		}
		t := time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, time.UTC)
		if err := checked(t, n); err != nil {
			return cty.NilVal, err
		}
		if t.Hour() != n[3] || t.Minute() != n[4] || t.Second() != n[5] {
			return cty.NilVal, fmt.Errorf("invalid time %02d:%02d:%02d", n[3], n[4], n[5])
		}
		return temporal(types.KindDateTime, t), nil
	},
})

var geomFromWKTFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "wkt", Type: cty.String}},
	Type:   function.StaticReturnType(geometryType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		wkt := strings.TrimSpace(args[0].AsString())
		upper := strings.ToUpper(wkt)
		if wkt == "" || (!strings.Contains(wkt, "(") && !strings.HasSuffix(upper, "EMPTY")) {
			return cty.NilVal, function.NewArgErrorf(0, "invalid WKT %q", wkt)
		}
		return cty.CapsuleVal(geometryType, &types.Geometry{WKT: wkt}), nil
	},
})
