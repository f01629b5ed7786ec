package expr

import (
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Names of the functions that read from the scene.
const (
	FuncParamAt = "ch"
	FuncOutput  = "output"
	FuncInput   = "input"
)

// pureFunctions are the side-effect free functions every expression may call.
var pureFunctions = map[string]function.Function{
	"abs":        stdlib.AbsoluteFunc,
	"ceil":       stdlib.CeilFunc,
	"floor":      stdlib.FloorFunc,
	"int":        stdlib.IntFunc,
	"log":        stdlib.LogFunc,
	"max":        stdlib.MaxFunc,
	"min":        stdlib.MinFunc,
	"mod":        stdlib.ModuloFunc,
	"pow":        stdlib.PowFunc,
	"signum":     stdlib.SignumFunc,
	"parseint":   stdlib.ParseIntFunc,
	"upper":      stdlib.UpperFunc,
	"lower":      stdlib.LowerFunc,
	"title":      stdlib.TitleFunc,
	"trimspace":  stdlib.TrimSpaceFunc,
	"strlen":     stdlib.StrlenFunc,
	"substr":     stdlib.SubstrFunc,
	"replace":    stdlib.ReplaceFunc,
	"split":      stdlib.SplitFunc,
	"join":       stdlib.JoinFunc,
	"format":     stdlib.FormatFunc,
	"length":     stdlib.LengthFunc,
	"element":    stdlib.ElementFunc,
	"concat":     stdlib.ConcatFunc,
	"coalesce":   stdlib.CoalesceFunc,
	"range":      stdlib.RangeFunc,
	"reverse":    stdlib.ReverseListFunc,
	"contains":   stdlib.ContainsFunc,
	"jsonencode": stdlib.JSONEncodeFunc,
	"jsondecode": stdlib.JSONDecodeFunc,
}

// KnownFunction reports whether name can be called from an expression.
func KnownFunction(name string) bool {
	switch name {
	case FuncParamAt, FuncOutput, FuncInput:
		return true
	}
	_, ok := pureFunctions[name]
	return ok
}
