package bindspec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBarePort(t *testing.T) {
	s, err := Parse("9999")
	require.NoError(t, err)
	require.Equal(t, Spec{Port: 9999}, s)
	require.Equal(t, "127.0.0.1:9999", s.Address())
}

func TestParseColonPort(t *testing.T) {
	s, err := Parse(":9999")
	require.NoError(t, err)
	require.Equal(t, Spec{Port: 9999}, s)
}

func TestParseHostPort(t *testing.T) {
	s, err := Parse("example.com:80")
	require.NoError(t, err)
	require.Equal(t, Spec{Host: "example.com", Port: 80}, s)
}

func TestParseWildcardHost(t *testing.T) {
	s, err := Parse("*:80")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:80", s.Address())
}

func TestParseBracketedIPv6(t *testing.T) {
	s, err := Parse("[::1]:443")
	require.NoError(t, err)
	require.Equal(t, Spec{Host: "::1", Port: 443}, s)
	require.Equal(t, "[::1]:443", s.Address())
}

func TestParseRejectsOutOfRangePort(t *testing.T) {
	_, err := Parse("70000")
	require.Error(t, err)
}

func TestParseRejectsNonNumericPort(t *testing.T) {
	_, err := Parse("abc")
	require.Error(t, err)
}

func TestParseRejectsUnterminatedIPv6(t *testing.T) {
	_, err := Parse("[::1:443")
	require.Error(t, err)
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
}

func TestIPPreferenceNetwork(t *testing.T) {
	require.Equal(t, "tcp", PreferDefault.Network())
	require.Equal(t, "tcp4", PreferIPv4.Network())
	require.Equal(t, "tcp6", PreferIPv6.Network())
}
