package main

import (
	"github.com/sirupsen/logrus"

	"github.com/x3270ctl/ctlplane/dispatch"
	"github.com/x3270ctl/ctlplane/httpd"
	"github.com/x3270ctl/ctlplane/internal/emulator"
	"github.com/x3270ctl/ctlplane/launcher"
)

// newScriptAction builds the Script(...) action (spec §4.6): it parses
// the leading -Flag options, starts a child via launcher.Start wired to
// the same dispatcher every other source submits through, and
// suspends the invoking task until the child exits — using
// RunContext.Suspend rather than blocking the dispatcher's scheduling
// goroutine, the way every other suspend path in this package works.
//
// disp is a pointer-to-pointer because the action must close over the
// Dispatcher this very action table is about to be registered on,
// which does not exist yet at the point the table is built.
func newScriptAction(disp **dispatch.Dispatcher, eng *emulator.Engine, cookiePath string, log *logrus.Entry) dispatch.ActionFunc {
	return func(rc *dispatch.RunContext) {
		opts, err := launcher.ParseArgs(rc.Command().Args)
		if err != nil {
			rc.Fail(err.Error())
			return
		}

		cfg := launcher.Config{
			Dispatcher:   *disp,
			Status:       eng,
			CookiePath:   cookiePath,
			KeyboardLock: eng,
			Log:          log,
			NewHTTP: func(d *dispatch.Dispatcher) launcher.HTTPServer {
				reg := httpd.NewBuiltinRegistry(d, eng)
				return httpd.NewServer(reg, "")
			},
		}

		proc, err := launcher.Start(rc.Context(), cfg, opts)
		if err != nil {
			rc.Fail(err.Error())
			return
		}

		resume := rc.Suspend(func(aborted bool) {
			if aborted {
				proc.Kill()
			}
		})
		go func() {
			stdout, status, err := proc.Wait()
			for _, line := range stdout {
				rc.Data(line, true)
			}
			if err != nil {
				rc.Fail(status)
			} else {
				rc.Succeed()
			}
			resume(false)
		}()
	}
}
