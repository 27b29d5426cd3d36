package ir

import "go/token"

// Operation kinds recorded in plans.
const (
	OpConstructor = "constructor"
	OpReceiver    = "receiver"
)

// FilePlan describes the expansion of one template file.
type FilePlan struct {
	Version    string          `json:"version"`
	Source     string          `json:"source"`
	Output     string          `json:"output"`
	Package    string          `json:"package"`
	Structs    []StructPlan    `json:"structs"`
	Operations []OperationPlan `json:"operations"`
}

// StructPlan describes one rewritten typestate struct.
type StructPlan struct {
	Name        string   `json:"name"`
	Export      string   `json:"export"`
	Param       string   `json:"param"` // designated type parameter
	Field       string   `json:"field"` // tracking field name
	TupleType   string   `json:"tuple_type"`
	Reconstruct string   `json:"reconstruct"`
	States      []string `json:"states"`
	Preset      []string `json:"preset"`
	Docs        Docs     `json:"docs"`
}

// OperationPlan describes one rewritten operation.
type OperationPlan struct {
	Name     string   `json:"name"`
	Struct   string   `json:"struct"`
	Kind     string   `json:"kind"`
	Receiver string   `json:"receiver,omitempty"`
	Assert   []string `json:"assert"`
	Reject   []string `json:"reject"`
	Assign   []string `json:"assign"`
	Delete   []string `json:"delete"`
	Incoming []string `json:"incoming"` // empty for constructors
	Outgoing []string `json:"outgoing"`

	Rules Ruleset   `json:"-"` // validated ruleset
	Pos   token.Pos `json:"-"` // position of the method
}

// IsConstructor reports whether the operation creates a fresh instance.
func (p *OperationPlan) IsConstructor() bool {
	return p.Kind == OpConstructor
}

// TupleStrings renders each slot as "Y", "N" or its parameter name.
func TupleStrings(t Tuple) []string {
	out := make([]string, len(t))
	for i, s := range t {
		if s.Marker == Pass {
			out[i] = s.Param
		} else {
			out[i] = s.Marker.String()
		}
	}
	return out
}

// ToValue converts the plan to a Value for canonical serialisation.
func (p *FilePlan) ToValue() Object {
	structs := make(Array, len(p.Structs))
	for i := range p.Structs {
		structs[i] = p.Structs[i].ToValue()
	}
	ops := make(Array, len(p.Operations))
	for i := range p.Operations {
		ops[i] = p.Operations[i].ToValue()
	}
	return Object{
		"version":    String(p.Version),
		"source":     String(p.Source),
		"output":     String(p.Output),
		"package":    String(p.Package),
		"structs":    structs,
		"operations": ops,
	}
}

// ToValue converts the struct plan to a Value.
func (p *StructPlan) ToValue() Object {
	return Object{
		"name":        String(p.Name),
		"export":      String(p.Export),
		"param":       String(p.Param),
		"field":       String(p.Field),
		"tuple_type":  String(p.TupleType),
		"reconstruct": String(p.Reconstruct),
		"states":      Strings(p.States),
		"preset":      Strings(p.Preset),
		"docs": Object{
			"description": Bool(p.Docs.Description),
			"ugly":        Bool(p.Docs.Ugly),
		},
	}
}

// ToValue converts the operation plan to a Value.
func (p *OperationPlan) ToValue() Object {
	obj := Object{
		"name":     String(p.Name),
		"struct":   String(p.Struct),
		"kind":     String(p.Kind),
		"assert":   Strings(p.Assert),
		"reject":   Strings(p.Reject),
		"assign":   Strings(p.Assign),
		"delete":   Strings(p.Delete),
		"incoming": Strings(p.Incoming),
		"outgoing": Strings(p.Outgoing),
	}
	if p.Receiver != "" {
		obj["receiver"] = String(p.Receiver)
	}
	return obj
}
