package peer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/x3270ctl/ctlplane"
)

func TestParseNativeLineSingleCommand(t *testing.T) {
	cmds, err := ParseNativeLine(`String("hello")`)
	require.NoError(t, err)
	require.Equal(t, []ctlplane.Command{{Name: "String", Args: []string{"hello"}}}, cmds)
}

func TestParseNativeLineMultipleCommands(t *testing.T) {
	cmds, err := ParseNativeLine(`Clear() String("a") Enter()`)
	require.NoError(t, err)
	require.Equal(t, []ctlplane.Command{
		{Name: "Clear"},
		{Name: "String", Args: []string{"a"}},
		{Name: "Enter"},
	}, cmds)
}

func TestParseNativeLineBareArgs(t *testing.T) {
	cmds, err := ParseNativeLine(`MoveCursor(3,10)`)
	require.NoError(t, err)
	require.Equal(t, []ctlplane.Command{{Name: "MoveCursor", Args: []string{"3", "10"}}}, cmds)
}

func TestParseNativeLineQuotedEscapes(t *testing.T) {
	cmds, err := ParseNativeLine(`String("say \"hi\" then \\ done")`)
	require.NoError(t, err)
	require.Equal(t, []string{`say "hi" then \ done`}, cmds[0].Args)
}

func TestParseNativeLineEmptyArgList(t *testing.T) {
	cmds, err := ParseNativeLine(`Enter()`)
	require.NoError(t, err)
	require.Equal(t, []ctlplane.Command{{Name: "Enter"}}, cmds)
}

func TestParseNativeLineEmptyLine(t *testing.T) {
	cmds, err := ParseNativeLine("   ")
	require.NoError(t, err)
	require.Nil(t, cmds)
}

func TestParseNativeLineMissingParen(t *testing.T) {
	_, err := ParseNativeLine(`String "hi"`)
	require.Error(t, err)
}

func TestParseNativeLineUnterminatedQuote(t *testing.T) {
	_, err := ParseNativeLine(`String("unterminated)`)
	require.Error(t, err)
}

func TestParseNativeLineUnterminatedCommand(t *testing.T) {
	_, err := ParseNativeLine(`String(`)
	require.Error(t, err)
}
