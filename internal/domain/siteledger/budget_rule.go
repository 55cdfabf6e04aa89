package siteledger

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"buildledger/internal/core/types"
)

// DefaultBudgetRule fires once expenses exceed a positive budget.
const DefaultBudgetRule = "budget > 0.0 && expenses > budget"

// BudgetRule is a compiled CEL predicate over budget, expenses and
// remaining (all doubles). It drives budget alerts, never rejections.
type BudgetRule struct {
	expr string
	prg  cel.Program
}

// NewBudgetRule compiles expr. An empty expr selects DefaultBudgetRule.
func NewBudgetRule(expr string) (*BudgetRule, error) {
	if expr == "" {
		expr = DefaultBudgetRule
	}
	env, err := cel.NewEnv(
		cel.Variable("budget", cel.DoubleType),
		cel.Variable("expenses", cel.DoubleType),
		cel.Variable("remaining", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("budget rule env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile budget rule %q: %w", expr, iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("budget rule %q must return bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("budget rule program: %w", err)
	}
	return &BudgetRule{expr: expr, prg: prg}, nil
}

// MustBudgetRule is NewBudgetRule that panics. Tests and constants only.
func MustBudgetRule(expr string) *BudgetRule {
	r, err := NewBudgetRule(expr)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *BudgetRule) String() string { return r.expr }

// Eval evaluates the rule for one state of the site.
func (r *BudgetRule) Eval(budget, expenses types.Money) (bool, error) {
	b, _ := budget.Float64()
	e, _ := expenses.Float64()
	out, _, err := r.prg.Eval(map[string]any{
		"budget":    b,
		"expenses":  e,
		"remaining": b - e,
	})
	if err != nil {
		return false, fmt.Errorf("eval budget rule: %w", err)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("budget rule returned %T", out.Value())
	}
	return v, nil
}

// Crossed reports whether a posting moved the site from not matching the
// rule to matching it.
func (r *BudgetRule) Crossed(budget, before, after types.Money) (bool, error) {
	was, err := r.Eval(budget, before)
	if err != nil {
		return false, err
	}
	if was {
		return false, nil
	}
	return r.Eval(budget, after)
}
