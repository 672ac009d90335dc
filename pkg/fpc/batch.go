package fpc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fpc/pkg/ast"
)

// Check sanitizes and analyzes one expression in a fresh environment.
func Check(e ast.Expr, reg *Registry, prefix byte, opts ...Option) (*Result, error) {
	sanitized, err := Sanitize(e, reg)
	if err != nil {
		return nil, err
	}
	env, err := NewEnv(reg, prefix)
	if err != nil {
		return nil, err
	}
	if err := env.BindElementals(sanitized); err != nil {
		return nil, err
	}
	return NewAnalyzer(sanitized, env, opts...).Analyze()
}

// Analysis pairs a definition with its result.
type Analysis struct {
	Def    *ast.Def
	Result *Result
}

// AnalyzeFile analyzes every definition of f concurrently, each with its
// own environment. Results are in definition order; the first error wins.
func AnalyzeFile(ctx context.Context, f *ast.File, reg *Registry, prefix byte, opts ...Option) ([]Analysis, error) {
	out := make([]Analysis, len(f.Defs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range f.Defs {
		def := f.Defs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Check(def.Lambda, reg, prefix, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", def.Name, err)
			}
			out[i] = Analysis{Def: def, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
