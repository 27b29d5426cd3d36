package compiler

import (
	"github.com/roach88/stated/internal/ir"
)

// pastTense names what a rule kind does to a state, for messages.
var pastTense = map[ir.OptionKind]string{
	ir.KindAssert: "asserted",
	ir.KindReject: "rejected",
	ir.KindAssign: "assigned",
	ir.KindDelete: "deleted",
}

// conflict is one pairwise disjointness rule between two rule lists. The
// diagnostic is placed on the entry in the second list.
type conflict struct {
	first, second ir.OptionKind
	code          string
	warning       string // warning code when the policy downgrades it
}

var conflicts = []conflict{
	{first: ir.KindAssert, second: ir.KindReject, code: ErrAssertReject},
	{first: ir.KindDelete, second: ir.KindAssign, code: ErrDeleteAssign},
	{first: ir.KindAssign, second: ir.KindAssert, code: ErrAssignAssert, warning: WarnRedundantAssign},
	{first: ir.KindDelete, second: ir.KindReject, code: ErrDeleteReject, warning: WarnRedundantDelete},
}

// BuildRuleset validates one operation's rule options against decl.
//
// Checks run in a fixed order and the first violation wins: duplicates
// within each list, then membership in the declared states, then the
// pairwise disjointness of assert/reject, delete/assign, assign/assert and
// delete/reject. The last two are redundant rather than contradictory; under
// Policy.WarnRedundant they produce warnings and the ruleset is accepted.
func BuildRuleset(ctx *Context, decl *ir.Declaration, opts *Options) (*ir.Ruleset, error) {
	rules := &ir.Ruleset{
		Assert: opts.Get(ir.KindAssert),
		Reject: opts.Get(ir.KindReject),
		Assign: opts.Get(ir.KindAssign),
		Delete: opts.Get(ir.KindDelete),
	}

	for _, kind := range ir.RuleKinds {
		if dup, ok := firstDuplicate(rules.List(kind)); ok {
			return nil, ctx.Errorf(dup.Pos, ErrDuplicateRule, "state is already %s: %s", pastTense[kind], dup.Name)
		}
	}

	for _, kind := range ir.RuleKinds {
		for _, id := range rules.List(kind) {
			if !decl.IsDeclared(id.Name) {
				return nil, ctx.Errorf(id.Pos, ErrUndeclaredState, "state is not declared: %s is not a state of %s", id.Name, decl.Name)
			}
		}
	}

	for _, c := range conflicts {
		for _, id := range rules.List(c.second) {
			if !contains(rules.List(c.first), id.Name) {
				continue
			}
			if c.warning != "" && ctx.Policy.WarnRedundant {
				ctx.Warnf(id.Pos, c.warning, "state %s is both %s and %s; the rule is redundant",
					id.Name, pastTense[c.first], pastTense[c.second])
				continue
			}
			return nil, ctx.Errorf(id.Pos, c.code, "state %s cannot be both %s and %s",
				id.Name, pastTense[c.first], pastTense[c.second])
		}
	}
	return rules, nil
}

func contains(ids []ir.Ident, name string) bool {
	for _, id := range ids {
		if id.Name == name {
			return true
		}
	}
	return false
}
