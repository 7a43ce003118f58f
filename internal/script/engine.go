package script

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Engine executes tengo scripts under the configured limits. It is
// stateless between runs; every invocation gets a fresh script instance so
// one table's globals can never leak into another's.
type Engine struct {
	limits  Limits
	modules *tengo.ModuleMap
	logger  *slog.Logger
}

// NewEngine creates an engine. Zero-valued limits fall back to defaults.
func NewEngine(limits Limits, logger *slog.Logger) *Engine {
	defaults := DefaultLimits()
	if limits.MaxExecutionTime <= 0 {
		limits.MaxExecutionTime = defaults.MaxExecutionTime
	}
	if len(limits.AllowedModules) == 0 {
		limits.AllowedModules = defaults.AllowedModules
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		limits:  limits,
		modules: stdlib.GetModuleMap(limits.AllowedModules...),
		logger:  logger,
	}
}

// Run executes a script with the given input variables and returns the
// value of its "result" global. Scripts that never assign result yield nil.
func (e *Engine) Run(ctx context.Context, s *Script, vars map[string]any) (any, error) {
	started := time.Now()

	ts := tengo.NewScript([]byte(s.Content))
	ts.SetImports(e.modules)

	for key, value := range vars {
		if err := ts.Add(key, value); err != nil {
			return nil, NewError(ErrorTypeExecution, s.Name,
				fmt.Sprintf("setting script variable %s", key), err)
		}
	}
	if err := ts.Add("log", e.logFunc(s.Name)); err != nil {
		return nil, NewError(ErrorTypeExecution, s.Name, "installing log builtin", err)
	}

	compiled, err := ts.Compile()
	if err != nil {
		return nil, NewError(ErrorTypeCompilation, s.Name, "compiling script", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.limits.MaxExecutionTime)
	defer cancel()

	// Run in a goroutine so a runaway script hits the deadline instead of
	// wedging the caller; panics inside tengo become plain errors.
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("script panic: %v", r)
			}
		}()
		done <- compiled.RunContext(execCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			if execCtx.Err() != nil {
				return nil, NewError(ErrorTypeTimeout, s.Name, "script execution timed out", execCtx.Err())
			}
			return nil, NewError(ErrorTypeExecution, s.Name, "script execution failed", err)
		}
	case <-execCtx.Done():
		return nil, NewError(ErrorTypeTimeout, s.Name, "script execution timed out", execCtx.Err())
	}

	e.logger.Debug("script executed", "script", s.Name, "duration", time.Since(started))

	if result := compiled.Get("result"); result != nil {
		return result.Value(), nil
	}
	return nil, nil
}

// logFunc exposes structured logging to scripts as log(message).
func (e *Engine) logFunc(scriptName string) *tengo.UserFunction {
	return &tengo.UserFunction{
		Name: "log",
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			e.logger.Info("script log", "script", scriptName, "message", args[0].String())
			return tengo.UndefinedValue, nil
		},
	}
}
