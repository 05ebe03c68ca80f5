package scripting

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
)

var (
	// ErrUnknownFormula is returned by Eval for an id that was never compiled.
	ErrUnknownFormula = errors.New("scripting: unknown formula")
	// ErrBadResult is returned when a formula yields a non-numeric or non-finite value.
	ErrBadResult = errors.New("scripting: formula result is not a finite number")
)

// Vars are the globals visible to a formula.
type Vars struct {
	Value     int64
	Magnitude int64
	Level     int
}

// Evaluator compiles stat formulas once and evaluates each call in a fresh
// sandboxed LState, so compiled formulas may be shared across goroutines.
type Evaluator struct {
	mu        sync.RWMutex
	protos    map[string]*lua.FunctionProto
	instLimit int
	logger    *zap.Logger
}

// NewEvaluator creates an Evaluator.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 means DefaultInstructionLimit).
// Postcondition: Returns a non-nil Evaluator with no compiled formulas.
func NewEvaluator(instLimit int, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		protos:    make(map[string]*lua.FunctionProto),
		instLimit: instLimit,
		logger:    logger,
	}
}

// Compile parses src and registers it under id, replacing any previous formula.
// src is either a single expression ("value * 2") or a chunk ending in return.
//
// Precondition: id and src must be non-empty.
// Postcondition: Eval(id, ...) succeeds for well-formed formulas; returns a
// parse or compile error otherwise.
func (e *Evaluator) Compile(id, src string) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("scripting: formula %q is empty", id)
	}
	chunk, err := parse.Parse(strings.NewReader("return "+src), id)
	if err != nil {
		var chunkErr error
		chunk, chunkErr = parse.Parse(strings.NewReader(src), id)
		if chunkErr != nil {
			return fmt.Errorf("scripting: parsing formula %q: %w", id, chunkErr)
		}
	}
	proto, err := lua.Compile(chunk, id)
	if err != nil {
		return fmt.Errorf("scripting: compiling formula %q: %w", id, err)
	}

	e.mu.Lock()
	e.protos[id] = proto
	e.mu.Unlock()
	return nil
}

// Has reports whether id has been compiled.
func (e *Evaluator) Has(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.protos[id]
	return ok
}

// Eval runs formula id with vars bound to the globals value, magnitude and
// level. The numeric result is truncated toward zero.
//
// Precondition: id must have been compiled.
// Postcondition: Returns the truncated result, or an error wrapping
// ErrUnknownFormula, ErrBadResult, or the Lua runtime error.
func (e *Evaluator) Eval(id string, vars Vars) (int64, error) {
	e.mu.RLock()
	proto, ok := e.protos[id]
	e.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormula, id)
	}

	L, cancel := NewSandboxedState(e.instLimit)
	defer cancel()
	defer L.Close()

	L.SetGlobal("value", lua.LNumber(vars.Value))
	L.SetGlobal("magnitude", lua.LNumber(vars.Magnitude))
	L.SetGlobal("level", lua.LNumber(vars.Level))

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		e.logger.Warn("scripting: formula runtime error",
			zap.String("formula", id),
			zap.Error(err),
		)
		return 0, fmt.Errorf("scripting: evaluating formula %q: %w", id, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("%w: %q returned %s", ErrBadResult, id, ret.Type())
	}
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %q returned %v", ErrBadResult, id, f)
	}
	return int64(math.Trunc(f)), nil
}
