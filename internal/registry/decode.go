package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ParamTag is the struct tag naming the parameter a field is decoded from.
const ParamTag = "param"

// paramFields returns the exported fields of a struct type keyed by their
// `param` tag.
func paramFields(t reflect.Type) map[string]reflect.StructField {
	fields := make(map[string]reflect.StructField)
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get(ParamTag)
		tagName := strings.Split(tag, ",")[0]
		if tagName != "" && tagName != "-" {
			fields[tagName] = field
		}
	}
	return fields
}

// DecodeParams resolves every `param` tagged field of the struct target
// points to and stores the converted values.
func DecodeParams(ctx context.Context, cc CookContext, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode params: target must be a pointer to a struct, got %T", target)
	}
	elem := rv.Elem()

	for name, field := range paramFields(elem.Type()) {
		v, err := cc.Param(ctx, name)
		if err != nil {
			return err
		}
		if err := assign(elem.FieldByIndex(field.Index), v); err != nil {
			return fmt.Errorf("decode param %q into %s: %w", name, field.Name, err)
		}
	}
	return nil
}

func assign(dst reflect.Value, v cty.Value) error {
	want, err := gocty.ImpliedType(dst.Addr().Interface())
	if err != nil {
		return err
	}
	converted, err := convert.Convert(v, want)
	if err != nil {
		return err
	}
	return gocty.FromCtyValue(converted, dst.Addr().Interface())
}
