// Command x3270d is the process entrypoint: it wires a
// dispatch.Dispatcher to a peer listener, an HTTP server, an optional
// outbound callback connection, and launcher.Script, then runs until a
// signal or a Quit() action asks it to stop.
//
// Grounded on the shape of dmora-agentrun/examples/simple/main.go (a
// small main wiring a backend into an engine into a session, then
// draining it to completion) generalized from a one-shot CLI smoke
// test into a long-running server: the same "construct low-level
// pieces, wire them together, run until done, report a clean error"
// structure, stretched from main()'s single run() to a cobra command
// and a signal-driven run loop.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/x3270ctl/ctlplane/bindspec"
	"github.com/x3270ctl/ctlplane/cookiefile"
	"github.com/x3270ctl/ctlplane/dispatch"
	"github.com/x3270ctl/ctlplane/httpd"
	"github.com/x3270ctl/ctlplane/internal/emulator"
	"github.com/x3270ctl/ctlplane/peer"
)

// Exit codes. Spec §6.7 describes the original's non-zero codes as
// unique __LINE__ values "for forensic clarity" — a C-ism with no Go
// equivalent. The idiomatic analogue kept here is a small fixed set of
// named codes, one per failure category, which a caller can match on
// without parsing stderr.
const (
	exitOK            = 0
	exitConfigError   = 2
	exitListenError   = 3
	exitCallbackError = 4
	exitCookieError   = 5
)

type config struct {
	ScriptPort string
	HTTPAddr   string
	Callback   string
	CookieFile string
	Socket     bool
	PreferIPv4 bool
	PreferIPv6 bool
	Rows       int
	Cols       int
}

func newRootCmd() *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:           "x3270d",
		Short:         "x3270 control-plane daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ScriptPort, "scriptport", "", "start a peer listener (bindspec, spec §4.7)")
	flags.StringVar(&cfg.HTTPAddr, "httpd", "", "start the HTTP server (bindspec)")
	flags.StringVar(&cfg.Callback, "callback", "", "connect outward for peer control (bindspec)")
	flags.StringVar(&cfg.CookieFile, "cookiefile", "", "enable cookie enforcement, reading/writing this path")
	flags.BoolVar(&cfg.Socket, "socket", false, "POSIX: also listen on /tmp/x3sck.<pid>")
	flags.BoolVar(&cfg.PreferIPv4, "preferIpv4", false, "prefer IPv4 when a bindspec host resolves to both families")
	flags.BoolVar(&cfg.PreferIPv6, "preferIpv6", false, "prefer IPv6 when a bindspec host resolves to both families")
	flags.IntVar(&cfg.Rows, "rows", 24, "stand-in screen geometry: rows")
	flags.IntVar(&cfg.Cols, "cols", 80, "stand-in screen geometry: columns")

	var cfgFile string
	flags.StringVar(&cfgFile, "config", "", "config file (YAML/TOML/JSON); flags override it")
	cobra.OnInitialize(func() {
		if cfgFile == "" {
			return
		}
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			logrus.WithError(err).Warn("x3270d: could not read config file")
			return
		}
		bindViperOverrides(flags, &cfg)
	})

	return cmd
}

// bindViperOverrides applies config-file values for any flag the user
// did not set explicitly on the command line, the standard
// cobra+viper precedence (flags beat config file beats default).
func bindViperOverrides(flags interface{ Changed(string) bool }, cfg *config) {
	type binding struct {
		key  string
		dest *string
	}
	bindings := []binding{
		{key: "scriptport", dest: &cfg.ScriptPort},
		{key: "httpd", dest: &cfg.HTTPAddr},
		{key: "callback", dest: &cfg.Callback},
		{key: "cookiefile", dest: &cfg.CookieFile},
	}
	for _, b := range bindings {
		if viper.IsSet(b.key) && !flags.Changed(b.key) {
			*b.dest = viper.GetString(b.key)
		}
	}
}

// Execute runs the x3270d root command against os.Args.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configureLogging()

	cmd := newRootCmd()
	cmd.SetContext(ctx)
	return cmd.Execute()
}

// configureLogging disables logrus's color output when stderr isn't a
// terminal, the way a daemon normally run under systemd or redirected
// into a log file expects its output.
func configureLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: !term.IsTerminal(int(os.Stderr.Fd())),
		FullTimestamp: true,
	})
}

// runServer builds every piece cfg names, runs until ctx is canceled or
// a Quit() action fires, and tears everything down before returning.
func runServer(ctx context.Context, cfg config) error {
	log := logrus.StandardLogger().WithField("component", "x3270d")

	if cfg.ScriptPort == "" && cfg.HTTPAddr == "" && cfg.Callback == "" {
		return exitError(exitConfigError, fmt.Errorf("x3270d: at least one of -scriptport, -httpd, -callback is required"))
	}

	eng := emulator.New(cfg.Rows, cfg.Cols)

	runCtx, shutdown := context.WithCancel(ctx)
	defer shutdown()
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(shutdown) }

	cookie, err := loadCookie(cfg.CookieFile)
	if err != nil {
		return exitError(exitCookieError, err)
	}

	var disp *dispatch.Dispatcher
	actions := eng.Actions(quit)
	actions["Script"] = newScriptAction(&disp, eng, cfg.CookieFile, log)
	disp = dispatch.New(actions,
		dispatch.WithKeyboardLocker(eng),
		dispatch.WithLogger(logrus.StandardLogger()),
		dispatch.WithCookie(cookie),
	)

	var closers []func() error

	if cfg.ScriptPort != "" {
		ln, err := listenBind(cfg.ScriptPort, cfg.PreferIPv4, cfg.PreferIPv6)
		if err != nil {
			return exitError(exitListenError, fmt.Errorf("x3270d: -scriptport: %w", err))
		}
		pl := peer.NewListener(ln, disp, peer.ListenerOptions{Status: eng})
		go func() {
			if err := pl.Serve(runCtx); err != nil {
				log.WithError(err).Debug("peer listener stopped")
			}
		}()
		closers = append(closers, pl.Close)
		log.WithField("addr", ln.Addr().String()).Info("peer listener started")
	}

	if cfg.Socket {
		ln, err := listenSocket()
		if err != nil {
			return exitError(exitListenError, fmt.Errorf("x3270d: -socket: %w", err))
		}
		if ln != nil {
			pl := peer.NewListener(ln, disp, peer.ListenerOptions{Status: eng, Prefix: "socket"})
			go func() {
				if err := pl.Serve(runCtx); err != nil {
					log.WithError(err).Debug("socket listener stopped")
				}
			}()
			closers = append(closers, pl.Close)
			log.WithField("addr", ln.Addr().String()).Info("unix socket listener started")
		}
	}

	if cfg.HTTPAddr != "" {
		ln, err := listenBind(cfg.HTTPAddr, cfg.PreferIPv4, cfg.PreferIPv6)
		if err != nil {
			return exitError(exitListenError, fmt.Errorf("x3270d: -httpd: %w", err))
		}
		reg := httpd.NewBuiltinRegistry(disp, eng)
		srv := httpd.NewServer(reg, cookie)
		go func() {
			if err := srv.Serve(ln); err != nil {
				log.WithError(err).Debug("http server stopped")
			}
		}()
		closers = append(closers, srv.Close)
		log.WithField("addr", ln.Addr().String()).Info("http server started")
	}

	if cfg.Callback != "" {
		sess, conn, err := dialCallback(cfg.Callback, disp, eng, cfg.PreferIPv4, cfg.PreferIPv6)
		if err != nil {
			return exitError(exitCallbackError, fmt.Errorf("x3270d: -callback: %w", err))
		}
		go sess.Serve(runCtx, conn)
		closers = append(closers, conn.Close)
		log.WithField("addr", cfg.Callback).Info("callback connection established")
	}

	<-runCtx.Done()
	log.Info("x3270d: shutting down")
	for _, c := range closers {
		if err := c(); err != nil {
			log.WithError(err).Debug("error during shutdown")
		}
	}
	return nil
}

func loadCookie(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return cookiefile.Load(path)
}

func listenBind(spec string, preferV4, preferV6 bool) (net.Listener, error) {
	s, err := bindspec.Parse(spec)
	if err != nil {
		return nil, err
	}
	pref := bindspec.PreferDefault
	switch {
	case preferV4:
		pref = bindspec.PreferIPv4
	case preferV6:
		pref = bindspec.PreferIPv6
	}
	return net.Listen(pref.Network(), s.Address())
}

// dialCallback connects outward to spec and wraps the connection as a
// peer Session driving disp, the "callback" direction spec §6.7 names:
// the daemon is the TCP client, not the server, for this one channel.
func dialCallback(spec string, disp *dispatch.Dispatcher, status peer.StatusProvider, preferV4, preferV6 bool) (*peer.Session, net.Conn, error) {
	s, err := bindspec.Parse(spec)
	if err != nil {
		return nil, nil, err
	}
	pref := bindspec.PreferDefault
	switch {
	case preferV4:
		pref = bindspec.PreferIPv4
	case preferV6:
		pref = bindspec.PreferIPv6
	}
	conn, err := net.Dial(pref.Network(), s.Address())
	if err != nil {
		return nil, nil, err
	}
	sess := peer.NewSession(conn, disp, peer.SessionOptions{ID: "callback", Status: status})
	return sess, conn, nil
}

func exitError(code int, err error) error {
	return &exitErr{code: code, err: err}
}

type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
