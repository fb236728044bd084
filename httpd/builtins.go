package httpd

import (
	"context"
	"fmt"
	"strings"

	"github.com/x3270ctl/ctlplane/dispatch"
	"github.com/x3270ctl/ctlplane/httpd/registry"
	"github.com/x3270ctl/ctlplane/peer"
)

// ScreenRenderer supplies the current 3270 screen as HTML for
// screen.html and interact.html (spec §4.5). The emulator core
// implements this; httpd has no terminal state of its own.
type ScreenRenderer interface {
	RenderScreenHTML() string
}

// NewBuiltinRegistry returns a Registry pre-populated with the built-in
// path table from spec §4.5, bridging dynamic paths into disp via
// registry.To3270.
func NewBuiltinRegistry(disp *dispatch.Dispatcher, screen ScreenRenderer) *registry.Registry {
	reg := registry.New()

	reg.Register(registry.Entry{Path: "/3270/", Kind: registry.KindDir, Verbs: registry.VerbGET | registry.VerbHEAD})
	reg.Register(registry.Entry{
		Path: "/3270/screen.html", Kind: registry.KindDynTerm,
		Verbs: registry.VerbGET | registry.VerbHEAD, Description: "current screen",
		Handler: func(req *registry.Request) (*registry.Result, error) {
			return &registry.Result{StatusCode: 200, ContentType: "text/html", Body: []byte(screen.RenderScreenHTML())}, nil
		},
	})
	reg.Register(registry.Entry{
		Path: "/3270/interact.html", Kind: registry.KindDynTerm,
		Verbs: registry.VerbGET | registry.VerbHEAD, Description: "interact",
		Handler: func(req *registry.Request) (*registry.Result, error) {
			return interactHandler(disp, req)
		},
	})

	reg.Register(registry.Entry{Path: "/3270/rest/", Kind: registry.KindDir, Verbs: registry.VerbGET | registry.VerbHEAD})
	reg.Register(registry.Entry{
		Path: "/3270/rest/text", Kind: registry.KindDynNonterm,
		Verbs: registry.VerbGET | registry.VerbHEAD, Description: "action -> plain text",
		Handler: restDynHandler(disp, "text"),
	})
	reg.Register(registry.Entry{
		Path: "/3270/rest/stext", Kind: registry.KindDynNonterm,
		Verbs: registry.VerbGET | registry.VerbHEAD, Description: "action -> status + text",
		Handler: restDynHandler(disp, "stext"),
	})
	reg.Register(registry.Entry{
		Path: "/3270/rest/html", Kind: registry.KindDynNonterm,
		Verbs: registry.VerbGET | registry.VerbHEAD, Description: "action -> HTML",
		Handler: restDynHandler(disp, "html"),
	})
	reg.Register(registry.Entry{
		Path: "/3270/rest/json", Kind: registry.KindDynNonterm,
		Verbs: registry.VerbGET | registry.VerbHEAD, Description: "action -> JSON",
		Handler: restDynHandler(disp, "json"),
	})
	reg.Register(registry.Entry{
		Path: "/3270/rest/post", Kind: registry.KindDynTerm,
		Verbs: registry.VerbPOST, Description: "action in POST body",
		Handler: func(req *registry.Request) (*registry.Result, error) {
			format := formatFromContentType(req.ContentType)
			return runRest(disp, "http:post", string(req.Body), format)
		},
	})

	reg.Register(registry.Entry{
		Path: "/favicon.ico", Kind: registry.KindFixedBinary, Hidden: true,
		Verbs: registry.VerbGET | registry.VerbHEAD, ContentType: "image/vnd.microsoft.icon",
		Body: faviconBytes,
	})

	return reg
}

// faviconBytes is a minimal (empty-image) ICO payload; real icon data
// is a deployment concern, not a control-plane one.
var faviconBytes = []byte{0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

func formatFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "html"):
		return "html"
	default:
		return "text"
	}
}

// restDynHandler builds a DynNonterm handler for one of the
// rest/{text,stext,html,json} families: req.Rest is the native-syntax
// action, e.g. "Query(Host)".
func restDynHandler(disp *dispatch.Dispatcher, format string) registry.DynHandler {
	return func(req *registry.Request) (*registry.Result, error) {
		action := req.Rest
		if v := req.Query["action"]; len(v) > 0 {
			action = v[0]
		}
		return runRest(disp, "http:rest", action, format)
	}
}

func runRest(disp *dispatch.Dispatcher, name, action, format string) (*registry.Result, error) {
	cmds, err := peer.ParseNativeLine(action)
	if err != nil || len(cmds) != 1 {
		ct := contentTypeFor(format)
		return &registry.Result{StatusCode: 400, ContentType: ct, Body: registry.RenderJSON("", nil, []string{"invalid action"}, false)}, nil
	}

	outcome, success, data, errd, status := registry.To3270(context.Background(), disp, name, cmds[0])
	ct := contentTypeFor(format)
	code := 200
	if outcome == registry.Invalid {
		code = 400
	}

	var body []byte
	switch format {
	case "stext":
		body = registry.RenderSText(status, data)
	case "html":
		body = registry.RenderHTML(status, data, errd, success)
	case "json":
		body = registry.RenderJSON(status, data, errd, success)
	default:
		body = registry.RenderText(append(append([]string{}, data...), errd...))
	}
	return &registry.Result{StatusCode: code, ContentType: ct, Body: body}, nil
}

func contentTypeFor(format string) string {
	switch format {
	case "html":
		return "text/html"
	case "json":
		return "application/json"
	default:
		return "text/plain"
	}
}

func interactHandler(disp *dispatch.Dispatcher, req *registry.Request) (*registry.Result, error) {
	var resultHTML string
	if v := req.Query["action"]; len(v) > 0 && v[0] != "" {
		cmds, err := peer.ParseNativeLine(v[0])
		if err == nil && len(cmds) == 1 {
			_, success, data, errd, status := registry.To3270(context.Background(), disp, "http:interact", cmds[0])
			resultHTML = string(registry.RenderHTML(status, data, errd, success))
		} else {
			resultHTML = "<p>invalid action</p>"
		}
	}
	body := fmt.Sprintf(`<html><body>
<form method="get">
<input name="action" type="text" size="60">
<input type="submit" value="Run">
</form>
%s
</body></html>
`, resultHTML)
	return &registry.Result{StatusCode: 200, ContentType: "text/html", Body: []byte(body)}, nil
}
