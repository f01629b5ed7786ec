package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Validate checks every registered type: its IO declaration is consistent,
// parameter defaults parse, parameter names are unique, and a declared
// params struct matches the parameter specs field by field.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, context := range r.Contexts() {
		for _, nt := range r.Types(context) {
			label := fmt.Sprintf("%s/%s", nt.Context, nt.Name)

			if err := nt.IO.Validate(); err != nil {
				errs = append(errs, fmt.Sprintf("type '%s': io: %v", label, err))
			}

			names := make(map[string]struct{}, len(nt.Params))
			for _, spec := range nt.Params {
				if _, dup := names[spec.Name]; dup {
					errs = append(errs, fmt.Sprintf("type '%s': duplicate parameter '%s'", label, spec.Name))
				}
				names[spec.Name] = struct{}{}
				if err := spec.Validate(); err != nil {
					errs = append(errs, fmt.Sprintf("type '%s': %v", label, err))
				}
			}

			if nt.ChildContext != "" && len(r.Types(nt.ChildContext)) == 0 {
				logger.Warn("Node type hosts a child context with no registered types.", "type", label, "child_context", nt.ChildContext)
			}

			if nt.ParamsType != nil {
				errs = append(errs, validateParamsStruct(label, nt)...)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// validateParamsStruct is a strict parity check between the parameter specs
// and the struct the kind decodes them into.
func validateParamsStruct(label string, nt *NodeType) []string {
	var errs []string
	if nt.ParamsType.Kind() != reflect.Struct {
		return []string{fmt.Sprintf("type '%s': params struct must be a struct, got %s", label, nt.ParamsType)}
	}

	fields := paramFields(nt.ParamsType)
	for name := range fields {
		if _, ok := nt.Param(name); !ok {
			errs = append(errs, fmt.Sprintf("type '%s': Go struct has field for parameter '%s' which is not declared", label, name))
		}
	}
	for _, spec := range nt.Params {
		field, ok := fields[spec.Name]
		if !ok {
			errs = append(errs, fmt.Sprintf("type '%s': parameter '%s' is not found in Go struct", label, spec.Name))
			continue
		}

		goType, err := gocty.ImpliedType(reflect.Zero(field.Type).Interface())
		if err != nil {
			errs = append(errs, fmt.Sprintf("type '%s', parameter '%s': could not imply cty type from Go field type %s: %v", label, spec.Name, field.Type, err))
			continue
		}
		paramType := spec.Type.CtyType()
		if paramType.Equals(cty.DynamicPseudoType) {
			continue
		}
		if convert.GetConversion(paramType, goType) == nil {
			errs = append(errs, fmt.Sprintf("type '%s', parameter '%s': type mismatch. Parameter is '%s' but Go struct field '%s' holds '%s'",
				label, spec.Name, paramType.FriendlyName(), field.Name, goType.FriendlyName()))
		}
	}
	return errs
}
