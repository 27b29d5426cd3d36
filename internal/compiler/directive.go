package compiler

import (
	"go/ast"
	"go/scanner"
	"go/token"
	"strings"

	"github.com/roach88/stated/internal/ir"
)

// DirectivePrefix starts every stated directive comment.
const DirectivePrefix = "//stated:"

// Directive verbs.
const (
	VerbStruct = "struct"
	VerbImpl   = "impl"
	VerbOp     = "op"
)

// Directive is one parsed //stated:<verb> comment.
type Directive struct {
	Verb    string
	Options []ir.Option
	Comment *ast.Comment
}

// Pos returns the position of the directive comment.
func (d *Directive) Pos() token.Pos {
	return d.Comment.Slash
}

// IsDirective reports whether c is a stated directive comment.
func IsDirective(c *ast.Comment) bool {
	return strings.HasPrefix(c.Text, DirectivePrefix)
}

// Directives parses every directive in a doc comment group, in order.
// A nil group yields nothing.
func Directives(ctx *Context, doc *ast.CommentGroup) ([]*Directive, error) {
	if doc == nil {
		return nil, nil
	}
	var out []*Directive
	for _, c := range doc.List {
		if !IsDirective(c) {
			continue
		}
		d, err := ParseDirective(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseDirective parses a //stated:<verb> [options] comment.
//
// Options are entries of the form key, key(id, ...) or key = id, separated
// by whitespace or commas. Positions of the returned identifiers point into
// the comment.
func ParseDirective(ctx *Context, c *ast.Comment) (*Directive, error) {
	body := strings.TrimPrefix(c.Text, DirectivePrefix)
	verb := body
	if i := strings.IndexAny(body, " \t"); i >= 0 {
		verb = body[:i]
	}
	switch verb {
	case VerbStruct, VerbImpl, VerbOp:
	default:
		return nil, ctx.Errorf(c.Slash, ErrUnsupportedOption, "unsupported directive %q", DirectivePrefix+verb)
	}

	offset := len(DirectivePrefix) + len(verb)
	p := newOptionParser(ctx, c.Slash+token.Pos(offset), c.Text[offset:])
	opts, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Directive{Verb: verb, Options: opts, Comment: c}, nil
}

// optionParser tokenises directive options with go/scanner. Scanned
// positions are relative to a private file and mapped back onto the comment
// by adding base.
type optionParser struct {
	ctx  *Context
	base token.Pos
	file *token.File
	sc   scanner.Scanner
	err  error

	pos token.Pos
	tok token.Token
	lit string
}

func newOptionParser(ctx *Context, base token.Pos, src string) *optionParser {
	p := &optionParser{ctx: ctx, base: base}
	p.file = token.NewFileSet().AddFile("", -1, len(src))
	p.sc.Init(p.file, []byte(src), func(pos token.Position, msg string) {
		if p.err == nil {
			p.err = ctx.Errorf(base+token.Pos(pos.Offset), ErrMalformedOption, "malformed option: %s", msg)
		}
	}, 0)
	p.next()
	return p
}

func (p *optionParser) next() {
	pos, tok, lit := p.sc.Scan()
	// The scanner inserts a semicolon at the end of the text.
	if tok == token.SEMICOLON && lit == "\n" {
		tok = token.EOF
	}
	p.pos, p.tok, p.lit = p.translate(pos), tok, lit
}

func (p *optionParser) translate(pos token.Pos) token.Pos {
	return p.base + token.Pos(p.file.Offset(pos))
}

func (p *optionParser) text() string {
	if p.lit != "" {
		return p.lit
	}
	return p.tok.String()
}

func (p *optionParser) parse() ([]ir.Option, error) {
	var opts []ir.Option
	for p.tok != token.EOF {
		if p.err != nil {
			return nil, p.err
		}
		if p.tok == token.COMMA {
			p.next()
			continue
		}
		opt, err := p.parseEntry()
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	if p.err != nil {
		return nil, p.err
	}
	return opts, nil
}

func (p *optionParser) parseEntry() (ir.Option, error) {
	// Keys may be Go keywords, as in import = X.
	if p.tok != token.IDENT && !p.tok.IsKeyword() {
		return ir.Option{}, p.ctx.Errorf(p.pos, ErrMalformedOption, "expected option key, found %q", p.text())
	}
	opt := ir.Option{Key: ir.Ident{Name: p.text(), Pos: p.pos}, Form: ir.FormPath}
	p.next()

	switch p.tok {
	case token.LPAREN:
		opt.Form = ir.FormList
		p.next()
		for p.tok != token.RPAREN {
			if p.tok != token.IDENT {
				return ir.Option{}, p.ctx.Errorf(p.pos, ErrMalformedOption, "expected identifier in %s(...), found %q", opt.Key.Name, p.text())
			}
			opt.Idents = append(opt.Idents, ir.Ident{Name: p.lit, Pos: p.pos})
			p.next()
			if p.tok == token.COMMA {
				p.next()
			} else if p.tok != token.RPAREN {
				return ir.Option{}, p.ctx.Errorf(p.pos, ErrMalformedOption, "expected ',' or ')' in %s(...), found %q", opt.Key.Name, p.text())
			}
		}
		p.next()
	case token.ASSIGN:
		opt.Form = ir.FormNameValue
		p.next()
		if p.tok != token.IDENT {
			return ir.Option{}, p.ctx.Errorf(p.pos, ErrMalformedOption, "expected identifier after %s =, found %q", opt.Key.Name, p.text())
		}
		opt.Value = ir.Ident{Name: p.lit, Pos: p.pos}
		p.next()
	}
	return opt, nil
}
