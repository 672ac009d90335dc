package main

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"testing"

	tassert "github.com/stretchr/testify/assert"
)

func run(args ...string) error {
	logger := log.New(&bytes.Buffer{}, "", 0)
	return newCommand(logger).Run(context.Background(), append([]string{"fpc-lsp"}, args...))
}

func TestRejectsBadPrefix(t *testing.T) {
	for _, p := range []string{"dd", "x"} {
		tassert.EqualError(t, run("-p", p), `invalid prefix "`+p+`": expected one of isdcz`, p)
	}
}

func TestRejectsMissingRegistry(t *testing.T) {
	tassert.Error(t, run("-r", filepath.Join(t.TempDir(), "missing.yaml")))
}
