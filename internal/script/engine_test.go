package script

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(limits Limits) *Engine {
	return NewEngine(limits, slog.New(slog.DiscardHandler))
}

func TestRun_ReturnsResultGlobal(t *testing.T) {
	e := testEngine(Limits{})
	out, err := e.Run(context.Background(), &Script{
		Name:    "sum",
		Content: `result := a + b`,
	}, map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.EqualValues(t, 5, out)
}

func TestRun_MapResult(t *testing.T) {
	e := testEngine(Limits{})
	out, err := e.Run(context.Background(), &Script{
		Name:    "shape",
		Content: `result := {ok: true, code: "NONE"}`,
	}, nil)
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, m["ok"])
	assert.Equal(t, "NONE", m["code"])
}

func TestRun_NoResultYieldsNil(t *testing.T) {
	e := testEngine(Limits{})
	out, err := e.Run(context.Background(), &Script{Name: "noop", Content: `x := 1`}, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRun_AllowedStdlibModules(t *testing.T) {
	e := testEngine(Limits{AllowedModules: []string{"math"}})
	out, err := e.Run(context.Background(), &Script{
		Name:    "abs",
		Content: "math := import(\"math\")\nresult := math.abs(-4)",
	}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, out)
}

func TestRun_DisallowedModuleFailsCompilation(t *testing.T) {
	e := testEngine(Limits{AllowedModules: []string{"math"}})
	_, err := e.Run(context.Background(), &Script{
		Name:    "os",
		Content: "os := import(\"os\")",
	}, nil)
	require.Error(t, err)
	var scriptErr *Error
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, ErrorTypeCompilation, scriptErr.Type)
}

func TestRun_SyntaxErrorReported(t *testing.T) {
	e := testEngine(Limits{})
	_, err := e.Run(context.Background(), &Script{Name: "bad", Content: `result :=`}, nil)
	var scriptErr *Error
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, ErrorTypeCompilation, scriptErr.Type)
}

func TestRun_InfiniteLoopTimesOut(t *testing.T) {
	e := testEngine(Limits{MaxExecutionTime: 50 * time.Millisecond})
	start := time.Now()
	_, err := e.Run(context.Background(), &Script{
		Name:    "spin",
		Content: `for true { }`,
	}, nil)
	require.Error(t, err)
	var scriptErr *Error
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, ErrorTypeTimeout, scriptErr.Type)
	assert.Less(t, time.Since(start), 2*time.Second)
}
