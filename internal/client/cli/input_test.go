package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		err   error
	}{
		{name: "trims", input: "  Pro Camera \n", want: "Pro Camera"},
		{name: "crlf", input: "alice\r\n", want: "alice"},
		{name: "last line without newline", input: "lastline", want: "lastline"},
		{name: "blank line", input: "\n", want: ""},
		{name: "eof", input: "", err: io.EOF},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetSimpleText(reader(tc.input), "Name", &out)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, "Name: ", out.String())
		})
	}
}

func TestGetMultiline(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(reader("Foldable scooter.\r\nGreat for commuting.\n\nignored\n"), "Description", &out)
	require.NoError(t, err)
	assert.Equal(t, "Foldable scooter.\nGreat for commuting.", got)
	assert.Equal(t, "Description (empty line to finish):\n", out.String())

	got, err = GetMultiline(reader("no trailing newline"), "Description", &out)
	require.NoError(t, err)
	assert.Equal(t, "no trailing newline", got)

	got, err = GetMultiline(reader(""), "Description", &out)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetPassword(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	readPassword = func(int) ([]byte, error) { return []byte("Secret123!"), nil }
	var out bytes.Buffer
	pw, err := GetPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, "Secret123!", string(pw))
	assert.Equal(t, "Enter password: \n", out.String(), "the password itself is never echoed")

	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	_, err = GetPassword(&out)
	assert.EqualError(t, err, "not a terminal")
}
