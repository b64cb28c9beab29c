package engine

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	pdp_model "github.com/ameet-kotian/citadel/pdp/model"
)

// ConditionEvaluator evaluates policy condition expressions. The predicate
// language is CEL (https://github.com/google/cel-spec) over the variables:
//
//	ctx      map<string, dyn>  the request context map
//	subject  string            the request subject identifier
//	resource string            the request resource identifier
//	action   string            the request action identifier
//	tenant   string            the request tenant id
//
// Example conditions:
//
//	`ctx.risk_level != "high"`
//	`has(ctx.mfa_completed) && ctx.mfa_completed == true`
//	`action == "read" || subject.startsWith("user:admin")`
//
// Compiled programs are cached per expression source; the cache is shared by
// all concurrent evaluations.
type ConditionEvaluator struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewConditionEvaluator() (*ConditionEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("ctx", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("subject", cel.StringType),
		cel.Variable("resource", cel.StringType),
		cel.Variable("action", cel.StringType),
		cel.Variable("tenant", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &ConditionEvaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile checks an expression without evaluating it. Policy validation calls
// this so malformed conditions never reach the evaluation path.
func (ce *ConditionEvaluator) Compile(expr string) error {
	if expr == "" {
		return nil
	}
	_, err := ce.program(expr)
	return err
}

// Holds reports whether the condition expression holds against the request.
// An empty expression always holds. A runtime evaluation error is returned to
// the caller, which treats it fail-closed.
func (ce *ConditionEvaluator) Holds(expr string, request *pdp_model.AuthorizationRequest) (bool, error) {
	if expr == "" {
		return true, nil
	}

	prg, err := ce.program(expr)
	if err != nil {
		return false, err
	}

	ctx := request.Context
	if ctx == nil {
		ctx = map[string]any{}
	}
	out, _, err := prg.Eval(map[string]any{
		"ctx":      ctx,
		"subject":  request.Subject,
		"resource": request.Resource,
		"action":   request.Action,
		"tenant":   request.TenantID,
	})
	if err != nil {
		return false, fmt.Errorf("condition eval: %w", err)
	}
	held, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to a boolean", expr)
	}
	return held, nil
}

func (ce *ConditionEvaluator) program(expr string) (cel.Program, error) {
	ce.mu.RLock()
	prg, hit := ce.programs[expr]
	ce.mu.RUnlock()
	if hit {
		return prg, nil
	}

	ce.mu.Lock()
	defer ce.mu.Unlock()
	if prg, hit = ce.programs[expr]; hit {
		return prg, nil
	}

	ast, issues := ce.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("condition compile: %w", issues.Err())
	}
	prg, err := ce.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000), // hard limit on expression complexity
	)
	if err != nil {
		return nil, fmt.Errorf("condition program: %w", err)
	}
	ce.programs[expr] = prg
	return prg, nil
}
