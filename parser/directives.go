package parser

import (
	"strings"

	"github.com/Urethramancer/avr/ast"
)

type directiveFunc func(p *parser, parent ast.NodeID, t token)

var directives map[string]directiveFunc

func init() {
	directives = map[string]directiveFunc{
		"equ":       parseAssignment(ast.KindEqu),
		"set":       parseAssignment(ast.KindSet),
		"def":       parseDef,
		"org":       parseSingleExpr(ast.KindOrg),
		"byte":      parseSingleExpr(ast.KindReserve),
		"cseg":      parseSegment,
		"dseg":      parseSegment,
		"eseg":      parseSegment,
		"db":        parseData,
		"dw":        parseData,
		"dd":        parseData,
		"include":   parseInclude,
		"ifdef":     parseConditional,
		"ifndef":    parseConditional,
		"macro":     parseMacro,
		"message":   parseMessage,
		"warning":   parseMessage,
		"error":     parseMessage,
		"device":    parseDevice,
		"exit":      parseExit,
		"list":      parseIgnored,
		"nolist":    parseIgnored,
		"listmac":   parseIgnored,
		"overlap":   parseIgnored,
		"nooverlap": parseIgnored,
	}
}

// preprocessor maps the '#' spellings onto directives.
var preprocessor = map[string]string{
	"include": "include",
	"ifdef":   "ifdef",
	"ifndef":  "ifndef",
	"define":  "define",
	"pragma":  "pragma",
}

func (p *parser) directive(parent ast.NodeID) {
	t := p.tok
	word := strings.ToLower(t.text)
	if t.kind == tokHash {
		mapped, ok := preprocessor[word]
		if !ok {
			p.errorf(t.region, "unsupported preprocessor directive %s", t.describe())
			p.recover()
			return
		}
		switch mapped {
		case "define":
			p.next()
			parseDefine(p, parent, t)
			return
		case "pragma":
			p.recover()
			return
		}
		word = mapped
	}

	fn, ok := directives[word]
	if !ok {
		p.errorf(t.region, "unknown directive %s", t.describe())
		p.recover()
		return
	}
	p.next()
	fn(p, parent, t)
}

func parseAssignment(kind ast.Kind) directiveFunc {
	return func(p *parser, parent ast.NodeID, t token) {
		name, ok := p.expect(tokIdent, "symbol name")
		if !ok {
			p.recover()
			return
		}
		if _, ok := p.expect(tokAssign, "'='"); !ok {
			p.recover()
			return
		}
		value := p.expr(1)
		r := t.region.Cover(p.tree.Node(value).Region)
		id := p.add(parent, ast.Node{Kind: kind, Text: name.text, Region: r})
		p.tree.AppendChild(id, value)
		p.endLine()
	}
}

// parseDefine handles "#define NAME [value]". A bare name is defined as 1.
func parseDefine(p *parser, parent ast.NodeID, t token) {
	name, ok := p.expect(tokIdent, "macro name")
	if !ok {
		p.recover()
		return
	}
	var value ast.NodeID
	if p.atEnd() {
		value = p.tree.New(ast.Node{Kind: ast.KindNumber, Text: "1", Value: 1, Region: name.region})
	} else {
		value = p.expr(1)
	}
	r := t.region.Cover(p.tree.Node(value).Region)
	id := p.add(parent, ast.Node{Kind: ast.KindSet, Text: name.text, Region: r})
	p.tree.AppendChild(id, value)
	p.endLine()
}

func parseDef(p *parser, parent ast.NodeID, t token) {
	alias, ok := p.expect(tokIdent, "alias name")
	if !ok {
		p.recover()
		return
	}
	if _, ok := p.expect(tokAssign, "'='"); !ok {
		p.recover()
		return
	}
	reg, ok := p.expect(tokIdent, "register")
	if !ok {
		p.recover()
		return
	}
	id := p.add(parent, ast.Node{Kind: ast.KindDef, Text: alias.text, Region: t.region.Cover(reg.region)})
	p.add(id, ast.Node{Kind: ast.KindIdent, Text: reg.text, Region: reg.region})
	p.endLine()
}

func parseSingleExpr(kind ast.Kind) directiveFunc {
	return func(p *parser, parent ast.NodeID, t token) {
		if p.atEnd() {
			p.errorf(p.tok.region, "%s requires a value", t.describe())
			p.recover()
			return
		}
		value := p.expr(1)
		id := p.add(parent, ast.Node{Kind: kind, Text: strings.ToLower(t.text), Region: t.region.Cover(p.tree.Node(value).Region)})
		p.tree.AppendChild(id, value)
		p.endLine()
	}
}

func parseSegment(p *parser, parent ast.NodeID, t token) {
	p.add(parent, ast.Node{Kind: ast.KindSegment, Text: strings.ToLower(t.text), Region: t.region})
	p.endLine()
}

func parseData(p *parser, parent ast.NodeID, t token) {
	id := p.add(parent, ast.Node{Kind: ast.KindData, Text: strings.ToLower(t.text), Region: t.region})
	if p.atEnd() {
		p.errorf(p.tok.region, "%s requires at least one value", t.describe())
		p.recover()
		return
	}
	for {
		v := p.expr(1)
		p.tree.AppendChild(id, v)
		n := p.tree.Node(id)
		n.Region = n.Region.Cover(p.tree.Node(v).Region)
		if p.tok.kind != tokComma {
			break
		}
		p.next()
	}
	p.endLine()
}

func parseInclude(p *parser, parent ast.NodeID, t token) {
	path, ok := p.expect(tokString, "quoted file name")
	if !ok {
		p.recover()
		return
	}
	p.add(parent, ast.Node{Kind: ast.KindInclude, Text: path.text, Region: t.region.Cover(path.region)})
	p.endLine()
}

// parseConditional builds [name, then-block, else-block] for .ifdef and .ifndef.
func parseConditional(p *parser, parent ast.NodeID, t token) {
	name, ok := p.expect(tokIdent, "symbol name")
	if !ok {
		p.recover()
		return
	}
	p.endLine()

	id := p.add(parent, ast.Node{Kind: ast.KindConditional, Text: strings.ToLower(t.text), Region: t.region.Cover(name.region)})
	p.add(id, ast.Node{Kind: ast.KindIdent, Text: name.text, Region: name.region})
	then := p.add(id, ast.Node{Kind: ast.KindBlock, Region: name.region})
	otherwise := p.add(id, ast.Node{Kind: ast.KindBlock, Region: name.region})

	term, found := p.block(then, []string{"else", "endif"})
	if found && strings.EqualFold(term.text, "else") {
		p.next()
		p.endLine()
		term, found = p.block(otherwise, []string{"endif"})
	}
	if !found {
		p.errorf(t.region, "missing .endif for %s", t.describe())
		return
	}
	p.next()
	p.endLine()
}

// parseMacro records a macro definition. The body is skipped, not expanded.
func parseMacro(p *parser, parent ast.NodeID, t token) {
	name, ok := p.expect(tokIdent, "macro name")
	if !ok {
		p.recover()
		return
	}
	p.endLine()

	lines := int32(0)
	for p.tok.kind != tokEOF {
		if p.tok.kind == tokDirective {
			switch strings.ToLower(p.tok.text) {
			case "endm", "endmacro":
				p.next()
				p.endLine()
				p.add(parent, ast.Node{Kind: ast.KindMacro, Text: name.text, Value: lines, Region: t.region.Cover(name.region)})
				return
			}
		}
		p.recover()
		lines++
	}
	p.errorf(t.region, "missing .endmacro for macro %s", name.text)
}

func parseMessage(p *parser, parent ast.NodeID, t token) {
	msg, ok := p.expect(tokString, "quoted message")
	if !ok {
		p.recover()
		return
	}
	id := p.add(parent, ast.Node{Kind: ast.KindMessage, Text: strings.ToLower(t.text), Region: t.region.Cover(msg.region)})
	p.add(id, ast.Node{Kind: ast.KindString, Text: msg.text, Region: msg.region})
	p.endLine()
}

func parseDevice(p *parser, parent ast.NodeID, t token) {
	name, ok := p.expect(tokIdent, "device name")
	if !ok {
		p.recover()
		return
	}
	p.add(parent, ast.Node{Kind: ast.KindDevice, Text: name.text, Region: t.region.Cover(name.region)})
	p.endLine()
}

func parseExit(p *parser, parent ast.NodeID, t token) {
	p.add(parent, ast.Node{Kind: ast.KindExit, Region: t.region})
	p.endLine()
}

func parseIgnored(p *parser, _ ast.NodeID, _ token) {
	p.endLine()
}
