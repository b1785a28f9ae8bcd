package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ArgumentErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
		err  string
	}{
		{"no command", nil, "missing command"},
		{"unknown command", []string{"spectate"}, "unknown command"},
		{"join without id", []string{"join"}, "join requires -id"},
		{"bad flag", []string{"join", "-nope"}, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(tt.args, strings.NewReader(""), &out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}
