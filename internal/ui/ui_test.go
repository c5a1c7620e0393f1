package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecipeNoColor(t *testing.T) {
	var out bytes.Buffer
	u := &UI{Out: &out, Color: false}
	u.Recipe("foo.o", "", false)
	assert.Equal(t, "foo.o: \n", out.String())
}

func TestRecipeQuietNoColor(t *testing.T) {
	var out bytes.Buffer
	u := &UI{Out: &out, Color: false}
	u.Recipe("foo.o", "cc -c foo.c", true)
	assert.Equal(t, "foo.o: ...\n", out.String())
}

func TestRecipeColorWrapsOutput(t *testing.T) {
	var out bytes.Buffer
	u := &UI{Out: &out, Color: true}
	u.Recipe("foo.o", "", false)
	assert.True(t, strings.Contains(out.String(), "foo.o"))
	assert.True(t, strings.Contains(out.String(), "\033["))
}

func TestErrorFormatsMessage(t *testing.T) {
	var errBuf bytes.Buffer
	u := &UI{Err: &errBuf, Color: false}
	u.Error("boom")
	assert.Equal(t, "error: boom\n", errBuf.String())
}
