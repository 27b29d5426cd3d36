package compiler

import (
	"go/token"
	"strings"
)

// MarkerText is the body of the designating block comment /*stated*/.
const MarkerText = "stated"

// Marker is one designating comment attached to a parameter.
type Marker struct {
	Pos  token.Pos
	Text string // comment text including the /* */ delimiters
}

// Param is one type parameter or type argument as seen by the locator.
// Name is empty for arguments that are not plain identifiers.
type Param struct {
	Name    string
	Pos     token.Pos
	Markers []Marker
}

// IsMarkerComment reports whether a comment is a designating marker, with
// or without arguments.
func IsMarkerComment(text string) bool {
	body, ok := markerBody(text)
	if !ok {
		return false
	}
	rest := strings.TrimPrefix(body, MarkerText)
	if rest == body {
		return false
	}
	return rest == "" || !isIdentChar(rest[0])
}

func markerBody(text string) (string, bool) {
	if !strings.HasPrefix(text, "/*") || !strings.HasSuffix(text, "*/") {
		return "", false
	}
	return strings.TrimSpace(text[2 : len(text)-2]), true
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// LocateDesignated returns the index of the single designated parameter and
// the index of its marker. listPos positions the "no parameter" diagnostic.
func LocateDesignated(ctx *Context, params []Param, listPos token.Pos) (param, marker int, err error) {
	param, marker = -1, -1
	for i, p := range params {
		for j, m := range p.Markers {
			if body, _ := markerBody(m.Text); body != MarkerText {
				return -1, -1, ctx.Errorf(m.Pos, ErrMarkerArguments, "designating marker takes no arguments: %s", m.Text)
			}
			switch {
			case param == i:
				return -1, -1, ctx.Errorf(m.Pos, ErrAlreadyDesignated, "parameter %s is already designated", p.Name)
			case param >= 0:
				return -1, -1, ctx.Errorf(m.Pos, ErrMultipleDesignated, "cannot designate more than one parameter")
			}
			param, marker = i, j
		}
	}
	if param < 0 {
		return -1, -1, ctx.Errorf(listPos, ErrNoDesignated, "no parameter is designated; mark one with /*%s*/", MarkerText)
	}
	return param, marker, nil
}

// FindDesignatedArg returns the index of the single argument naming the
// designated parameter.
func FindDesignatedArg(ctx *Context, args []Param, designated string, pos token.Pos) (int, error) {
	found := -1
	for i, a := range args {
		if a.Name != designated {
			continue
		}
		if found >= 0 {
			return -1, ctx.Errorf(a.Pos, ErrMultipleMatchingArgs, "only one argument can match the designated parameter %s", designated)
		}
		found = i
	}
	if found < 0 {
		return -1, ctx.Errorf(pos, ErrNoMatchingArgument, "no argument matches the designated parameter %s", designated)
	}
	return found, nil
}
