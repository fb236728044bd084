package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/x3270ctl/ctlplane"
	"github.com/x3270ctl/ctlplane/dispatch"
)

func testDispatcher() *dispatch.Dispatcher {
	return dispatch.New(map[string]dispatch.ActionFunc{
		"String": func(rc *dispatch.RunContext) {
			rc.Succeed(rc.Command().Args...)
		},
		"Oops": func(rc *dispatch.RunContext) {
			rc.Fail("boom")
		},
	})
}

func TestTo3270CompleteOnSuccess(t *testing.T) {
	disp := testDispatcher()
	outcome, success, data, _, status := To3270(context.Background(), disp, "http:1",
		ctlplane.Command{Name: "String", Args: []string{"hello"}})

	require.Equal(t, Complete, outcome)
	require.True(t, success)
	require.Equal(t, []string{"hello"}, data)
	require.NotEmpty(t, status)
}

func TestTo3270FailureOnActionError(t *testing.T) {
	disp := testDispatcher()
	outcome, success, _, errd, _ := To3270(context.Background(), disp, "http:1",
		ctlplane.Command{Name: "Oops"})

	require.Equal(t, Failure, outcome)
	require.False(t, success)
	require.Equal(t, []string{"boom"}, errd)
}

func TestRenderTextJoinsLines(t *testing.T) {
	require.Equal(t, "a\nb\n", string(RenderText([]string{"a", "b"})))
}

func TestRenderJSONShape(t *testing.T) {
	body := RenderJSON("U U", []string{"a"}, []string{"e"}, true)
	require.Contains(t, string(body), `"result":["a","e"]`)
	require.Contains(t, string(body), `"result-err":[false,true]`)
	require.Contains(t, string(body), `"success":true`)
}
