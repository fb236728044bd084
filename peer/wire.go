package peer

import (
	"strconv"

	"github.com/x3270ctl/ctlplane"
	"github.com/x3270ctl/ctlplane/jsonvalue"
)

// ParseJSONCommands decodes one input object, or an array of input
// objects executed in order on a new queue (spec §6.2), from data.
// Each object has the shape {"action": <string>, "args": [scalar...]}.
func ParseJSONCommands(data []byte) ([]ctlplane.Command, int, *jsonvalue.ParseError) {
	n, consumed, perr := jsonvalue.Parse(data)
	if perr != nil {
		return nil, 0, perr
	}
	switch n.Type() {
	case jsonvalue.Array:
		cmds := make([]ctlplane.Command, 0, n.Len())
		for i := 0; i < n.Len(); i++ {
			cmd, err := commandFromNode(n.At(i))
			if err != nil {
				return nil, 0, err
			}
			cmds = append(cmds, cmd)
		}
		return cmds, consumed, nil
	case jsonvalue.Object:
		cmd, err := commandFromNode(n)
		if err != nil {
			return nil, 0, err
		}
		return []ctlplane.Command{cmd}, consumed, nil
	default:
		return nil, 0, &jsonvalue.ParseError{
			Code:    jsonvalue.Syntax,
			Message: "expected a command object or array of command objects",
		}
	}
}

func commandFromNode(n *jsonvalue.Node) (ctlplane.Command, *jsonvalue.ParseError) {
	if n.Type() != jsonvalue.Object {
		return ctlplane.Command{}, &jsonvalue.ParseError{
			Code:    jsonvalue.Syntax,
			Message: "command must be a JSON object",
		}
	}
	action, ok := n.Member("action")
	if !ok || action.Type() != jsonvalue.String {
		return ctlplane.Command{}, &jsonvalue.ParseError{
			Code:    jsonvalue.Syntax,
			Message: `command object missing string "action"`,
		}
	}
	cmd := ctlplane.Command{Name: action.Str()}
	if argsNode, ok := n.Member("args"); ok && argsNode.Type() == jsonvalue.Array {
		cmd.Args = make([]string, argsNode.Len())
		for i := 0; i < argsNode.Len(); i++ {
			cmd.Args[i] = stringifyScalar(argsNode.At(i))
		}
	}
	return cmd, nil
}

// stringifyScalar renders a JSON scalar per spec §6.2: null becomes "",
// booleans are lower-cased, integers and doubles use Go's shortest
// round-tripping decimal form (the %lld/%g equivalent).
func stringifyScalar(n *jsonvalue.Node) string {
	switch n.Type() {
	case jsonvalue.Null:
		return ""
	case jsonvalue.Bool:
		if n.Bool() {
			return "true"
		}
		return "false"
	case jsonvalue.Integer:
		return strconv.FormatInt(n.Int(), 10)
	case jsonvalue.Double:
		return strconv.FormatFloat(n.Double(), 'g', -1, 64)
	case jsonvalue.String:
		return n.Str()
	default:
		return jsonvalue.Encode(n, jsonvalue.EncodeOptions{})
	}
}

// EncodeJSONResponse builds the one-line JSON response object for a
// completed command (spec §6.2): {"result":[...],"result-err":[...],
// "status":"...","success":bool}.
func EncodeJSONResponse(result []string, resultErr []bool, status string, success bool) string {
	obj := jsonvalue.NewObject()

	resultArr := jsonvalue.NewArray()
	for _, line := range result {
		resultArr.Append(jsonvalue.NewString(line))
	}
	obj.Set("result", resultArr)

	errArr := jsonvalue.NewArray()
	for _, e := range resultErr {
		errArr.Append(jsonvalue.NewBool(e))
	}
	obj.Set("result-err", errArr)

	obj.Set("status", jsonvalue.NewString(status))
	obj.Set("success", jsonvalue.NewBool(success))

	return jsonvalue.Encode(obj, jsonvalue.EncodeOptions{})
}
