package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsYes(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y", true},
		{"Y", true},
		{"yes", true},
		{" YES \n", true},
		{"s", true},
		{"si", true},
		{"Sí", true},
		{"n", false},
		{"no", false},
		{"", false},
		{"yep", false},
		{"sure", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsYes(tt.input))
		})
	}
}

func TestAskYesNo(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, AskYesNo(strings.NewReader("yes\n"), &out, "Save a backup?"))
	assert.Equal(t, "Save a backup? [y/N]: ", out.String())

	assert.True(t, AskYesNo(strings.NewReader("s"), &out, "Save?"))
	assert.False(t, AskYesNo(strings.NewReader("\n"), &out, "Save?"))
	assert.False(t, AskYesNo(strings.NewReader(""), &out, "Save?"))
}

func TestTerminalConfirm(t *testing.T) {
	var out bytes.Buffer
	tty := &Terminal{in: strings.NewReader("y\n"), out: &out, isTerminal: func() bool { return true }}
	assert.True(t, tty.Confirm("Save?"))

	out.Reset()
	pipe := &Terminal{in: strings.NewReader("y\n"), out: &out, isTerminal: func() bool { return false }}
	assert.False(t, pipe.Confirm("Save?"))
	assert.Empty(t, out.String())
}

func TestAlways(t *testing.T) {
	assert.True(t, Always(true).Confirm("anything"))
	assert.False(t, Always(false).Confirm("anything"))
}
