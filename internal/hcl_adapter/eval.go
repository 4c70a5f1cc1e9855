package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions available to expressions in job files.
var functions = map[string]function.Function{
	"upper":   stdlib.UpperFunc,
	"lower":   stdlib.LowerFunc,
	"format":  stdlib.FormatFunc,
	"join":    stdlib.JoinFunc,
	"replace": stdlib.ReplaceFunc,
}

// isExprDefined reports whether an optional attribute was actually written.
// gohcl fills a missing hcl.Expression field with a zero-width placeholder,
// so a real attribute is one whose source range has a size.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

// evalContext builds the context job bodies are decoded with: var.<name>
// for declared variables, env.<NAME> for the environment, and functions.
func (l *Loader) evalContext(variables []*variableBlock) (*hcl.EvalContext, error) {
	vars := make(map[string]cty.Value, len(variables))
	for _, v := range variables {
		if _, dup := vars[v.Name]; dup {
			return nil, fmt.Errorf("variable %q declared more than once", v.Name)
		}

		if override, ok := l.Vars[v.Name]; ok {
			vars[v.Name] = cty.StringVal(override)
			continue
		}
		if !isExprDefined(v.Default) {
			return nil, fmt.Errorf("variable %q has no default and was not set with --var", v.Name)
		}
		val, diags := v.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default for variable %q: %w", v.Name, diags)
		}
		vars[v.Name] = val
	}

	for name := range l.Vars {
		if _, ok := vars[name]; !ok {
			return nil, fmt.Errorf("--var %s: no such variable is declared", name)
		}
	}

	ctxVars := map[string]cty.Value{
		"var": cty.EmptyObjectVal,
	}
	if len(vars) > 0 {
		ctxVars["var"] = cty.ObjectVal(vars)
	}
	if l.Env != nil {
		env := make(map[string]cty.Value, len(l.Env))
		for k, v := range l.Env {
			env[k] = cty.StringVal(v)
		}
		ctxVars["env"] = cty.EmptyObjectVal
		if len(env) > 0 {
			ctxVars["env"] = cty.ObjectVal(env)
		}
	}

	return &hcl.EvalContext{
		Variables: ctxVars,
		Functions: functions,
	}, nil
}
