package dispatcher

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/morezero/webf/pkg/handler"
	"github.com/morezero/webf/pkg/mson"
	"github.com/morezero/webf/pkg/registry"
	"github.com/morezero/webf/pkg/semver"
)

// helpAlias is the public path of the discovery function.
const helpAlias = "help"

// resolveHelpAlias maps the public and reserved help names onto each other
// in the first path segment, so positional paths cannot sneak past it. The
// reserved name is never reachable directly: it is rewritten to the public
// alias, which is rewritten back only when help is allowed.
func resolveHelpAlias(segs []string, allowHelp bool) []string {
	if len(segs) == 0 {
		return segs
	}
	name := segs[0]
	if name == registry.HelpFunction {
		name = helpAlias
	}
	if name == helpAlias && allowHelp {
		name = registry.HelpFunction
	}
	return append([]string{name}, segs[1:]...)
}

// helpHandler streams the help document of every registered function.
type helpHandler struct {
	reg *registry.Registry
	ver string
}

func newHelpHandler(state interface{}) handler.Handler {
	return &helpHandler{reg: state.(*registry.Registry)}
}

func (h *helpHandler) Help() *handler.Help {
	return &handler.Help{
		Type:             "builtin",
		Desc:             "Describes every registered function.",
		AllowUnknownArgs: true,
		Args: []handler.ArgSpec{
			{Name: "ver", Type: "string", Desc: "only functions whose version satisfies this range"},
		},
	}
}

func (h *helpHandler) Start(req *handler.Request) (handler.StartResult, error) {
	if v, ok := mson.Get(req.Args, "ver"); ok {
		h.ver, _ = v.(string)
	}
	if h.ver != "" {
		if err := semver.ValidateRange(h.ver); err != nil {
			return handler.StartResult{
				Status: 400,
				First: errDocData(CodeBadArg, "invalid version range", bson.D{
					{Key: "arg", Value: "ver"},
					{Key: "value", Value: h.ver},
				}),
			}, nil
		}
	}
	return handler.StartResult{Status: 200, More: true}, nil
}

// Stream builds each function's handler only when its document is pulled.
func (h *helpHandler) Stream() handler.Cursor {
	names := h.reg.Names()
	i := 0
	return handler.NewFuncCursor(func() (bson.D, bool, error) {
		for i < len(names) {
			name := names[i]
			i++
			d, ok := h.reg.Lookup(name)
			if !ok {
				continue
			}
			help := d.New().Help()
			version := ""
			if help != nil {
				version = help.Version
			}
			if !semver.SatisfiesRange(version, h.ver) {
				continue
			}
			doc := help.Document()
			doc = append(doc, bson.E{Key: "funcname", Value: name})
			return doc, true, nil
		}
		return nil, false, nil
	})
}
