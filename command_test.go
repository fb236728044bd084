package ctlplane

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"no_args", Command{Name: "Enter"}, "Enter()"},
		{"simple_args", Command{Name: "String", Args: []string{"hello"}}, `String(hello)`},
		{"multi_args", Command{Name: "MoveCursor", Args: []string{"3", "5"}}, "MoveCursor(3,5)"},
		{"space_quoted", Command{Name: "String", Args: []string{"hello world"}}, `String("hello world")`},
		{"comma_quoted", Command{Name: "String", Args: []string{"a,b"}}, `String("a,b")`},
		{"paren_quoted", Command{Name: "String", Args: []string{"f(x)"}}, `String("f(x)")`},
		{"empty_arg_quoted", Command{Name: "String", Args: []string{""}}, `String("")`},
		{"embedded_quote_escaped", Command{Name: "String", Args: []string{`say "hi"`}}, `String("say \"hi\"")`},
		{"trailing_backslash_doubled", Command{Name: "String", Args: []string{`a\`}}, `String("a\\")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

func TestNeedsQuoting(t *testing.T) {
	require.True(t, needsQuoting(""))
	require.True(t, needsQuoting("a b"))
	require.True(t, needsQuoting("a,b"))
	require.True(t, needsQuoting("a(b"))
	require.True(t, needsQuoting("a)b"))
	require.True(t, needsQuoting(`a"b`))
	require.False(t, needsQuoting("plain"))
	require.False(t, needsQuoting("3270"))
}
