package engine

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/roach88/genc/internal/ir"
)

func (r *run) model(ctx context.Context, m ir.Model, arg value) (value, error) {
	input, err := asString(ir.KindModel, arg)
	if err != nil {
		return nil, err
	}
	backend, ok := r.e.models.Lookup(m.URI)
	if !ok {
		return nil, newError(ErrCodeUnknownModel, ir.KindModel, "no backend for model %q", m.URI)
	}
	out, err := backend.Infer(ctx, input)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeInferenceFailed, Kind: ir.KindModel, Message: m.URI, Err: err}
	}
	r.e.logger.DebugContext(ctx, "model inference", "model", m.URI, "prompt_len", len(input), "output_len", len(out))
	return ir.Str(out), nil
}

func (r *run) customFunction(ctx context.Context, cf ir.CustomFunction, arg value) (value, error) {
	fn, err := r.e.funcs.Resolve(cf.URI)
	if err != nil {
		return nil, err
	}
	in, err := export(arg)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeTypeMismatch, Kind: ir.KindCustomFunction, Message: "argument cannot be passed to " + cf.URI, Err: err}
	}
	out, err := fn(ctx, in)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeFunctionFailed, Kind: ir.KindCustomFunction, Message: cf.URI, Err: err}
	}
	return r.e.load(out)
}

// promptTemplate fills {name} placeholders. A string argument fills every
// placeholder. A struct fills placeholders by element name; unnamed
// elements fill the remaining placeholders in order of appearance.
func (r *run) promptTemplate(ctx context.Context, pt ir.PromptTemplate, arg value) (value, error) {
	names := placeholders(pt.Template)
	vars := make(map[string]any, len(names))

	switch x := arg.(type) {
	case nil:
	case tuple:
		var positional []string
		for _, f := range x {
			if f.name != "" {
				vars[f.name] = render(f.v)
			} else {
				positional = append(positional, render(f.v))
			}
		}
		for _, name := range names {
			if _, ok := vars[name]; ok || len(positional) == 0 {
				continue
			}
			vars[name], positional = positional[0], positional[1:]
		}
	case *closure:
		return nil, newError(ErrCodeTypeMismatch, ir.KindPromptTemplate, "cannot fill a template with a function")
	default:
		s := render(x)
		for _, name := range names {
			vars[name] = s
		}
	}
	for _, name := range names {
		if _, ok := vars[name]; !ok {
			return nil, newError(ErrCodeTypeMismatch, ir.KindPromptTemplate, "no value for placeholder %q", name)
		}
	}

	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(pt.Template))
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeTypeMismatch, Kind: ir.KindPromptTemplate, Message: "format template", Err: err}
	}
	if len(msgs) == 0 {
		return ir.Str(""), nil
	}
	return ir.Str(msgs[0].Content), nil
}

// placeholders returns the distinct {name} fields of tpl in order of first
// appearance. Doubled braces are literals.
func placeholders(tpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for i := 0; i < len(tpl); i++ {
		switch tpl[i] {
		case '{':
			if i+1 < len(tpl) && tpl[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(tpl[i+1:], '}')
			if end < 0 {
				return names
			}
			name := tpl[i+1 : i+1+end]
			if j := strings.IndexAny(name, ":!"); j >= 0 {
				name = name[:j]
			}
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			i += end + 1
		case '}':
			if i+1 < len(tpl) && tpl[i+1] == '}' {
				i++
			}
		}
	}
	return names
}
