package scripts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genc/internal/engine"
	"github.com/roach88/genc/internal/ir"
)

func TestRegister(t *testing.T) {
	fns := engine.NewFunctions()
	uris, err := Register(fns, "testdata")
	require.NoError(t, err)
	assert.Equal(t, []string{"lua/text/words", "lua/upper"}, uris)

	upper, err := fns.Resolve("lua/upper")
	require.NoError(t, err)
	got, err := upper(context.Background(), ir.Str("quiet"))
	require.NoError(t, err)
	assert.Equal(t, ir.Str("QUIET"), got)

	name, err := fns.Resolve("jsonpath:$.name")
	require.NoError(t, err)
	got, err = name(context.Background(), ir.Str(`{"name":"genc"}`))
	require.NoError(t, err)
	assert.Equal(t, ir.Str("genc"), got)

	_, err = fns.Resolve("jsonpath:$[")
	assert.Error(t, err)
}

func TestRegisterWithoutDir(t *testing.T) {
	fns := engine.NewFunctions()
	uris, err := Register(fns, "")
	require.NoError(t, err)
	assert.Empty(t, uris)
	assert.Empty(t, fns.URIs())

	_, err = fns.Resolve("lua/upper")
	assert.Error(t, err)
}

func TestRegisterBadDir(t *testing.T) {
	_, err := Register(engine.NewFunctions(), "testdata/does-not-exist")
	assert.Error(t, err)
}
