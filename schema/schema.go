package schema

import (
	"strconv"
	"strings"

	"github.com/wippyai/binlayout"
	"github.com/wippyai/binlayout/errors"
)

// Compile parses src and returns the described layout.
func Compile(src string) (binlayout.Layout, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseNode("")
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != tokEOF {
		return nil, errors.Syntax(tok.line, tok.col, "unexpected %s after layout", tok.typ)
	}
	return node, nil
}

// MustCompile is Compile for layouts known at build time; it panics on error.
func MustCompile(src string) binlayout.Layout {
	l, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return l
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.typ != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ tokenType) (token, error) {
	tok := p.next()
	if tok.typ != typ {
		return tok, errors.Syntax(tok.line, tok.col, "expected %s, got %s %q", typ, tok.typ, tok.value)
	}
	return tok, nil
}

func (p *parser) accept(typ tokenType) bool {
	if p.peek().typ == typ {
		p.next()
		return true
	}
	return false
}

// parseNode parses one layout node, naming it property when it will sit
// inside a struct.
func (p *parser) parseNode(property string) (binlayout.Layout, error) {
	tok, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	switch tok.value {
	case "struct":
		return p.parseStruct(property)
	case "seq":
		return p.parseSeq(property)
	case "bits":
		return p.parseBits(property)
	case "blob":
		n, err := p.parenInt()
		if err != nil {
			return nil, err
		}
		l, err := binlayout.NewBlob(n, property)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "cstr":
		return binlayout.NewCString(property), nil
	case "utf8":
		maxSpan := -1
		if p.peek().typ == tokLParen {
			if maxSpan, err = p.parenInt(); err != nil {
				return nil, err
			}
		}
		return binlayout.NewUTF8(maxSpan, property), nil
	}

	if leaf, ok := numericLeaf(tok.value, property); ok {
		return leaf, nil
	}
	return nil, errors.Syntax(tok.line, tok.col, "unknown layout %q", tok.value)
}

func numericLeaf(name, property string) (binlayout.Layout, bool) {
	bigEndian := false
	if s, found := strings.CutSuffix(name, "be"); found {
		name = s
		bigEndian = true
	}

	switch name {
	case "nu64":
		return binlayout.NewNearUint64(bigEndian, property), true
	case "ns64":
		return binlayout.NewNearInt64(bigEndian, property), true
	case "f32":
		return binlayout.NewFloat32(bigEndian, property), true
	case "f64":
		return binlayout.NewFloat64(bigEndian, property), true
	}

	signed := false
	switch {
	case strings.HasPrefix(name, "u"):
	case strings.HasPrefix(name, "s"):
		signed = true
	default:
		return nil, false
	}
	bits, err := strconv.Atoi(name[1:])
	if err != nil || bits%8 != 0 {
		return nil, false
	}
	width := bits / 8
	if width < 1 || width > 6 {
		return nil, false
	}
	if signed {
		l, err := binlayout.NewInt(width, bigEndian, property)
		if err != nil {
			return nil, false
		}
		return l, true
	}
	l, err := binlayout.NewUInt(width, bigEndian, property)
	if err != nil {
		return nil, false
	}
	return l, true
}

func (p *parser) parenInt() (int, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return 0, err
	}
	tok, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	n, err := parseInt(tok)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return 0, err
	}
	return n, nil
}

func parseInt(tok token) (int, error) {
	n, err := strconv.ParseInt(tok.value, 0, 64)
	if err != nil {
		return 0, errors.Syntax(tok.line, tok.col, "bad number %q", tok.value)
	}
	return int(n), nil
}

type fieldSpec struct {
	name     string
	node     binlayout.Layout
	countRef string // seq back-reference, resolved once the struct is known
	refTok   token
	elem     binlayout.Layout
}

func (p *parser) parseStruct(property string) (binlayout.Layout, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}

	var specs []fieldSpec
	for p.peek().typ != tokRBrace {
		name, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon); err != nil {
			return nil, err
		}

		fieldName := name.value
		if fieldName == "_" {
			fieldName = ""
		}

		spec, err := p.parseField(fieldName)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)

		if !p.accept(tokComma) {
			break
		}
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}

	fields, err := resolveFields(specs)
	if err != nil {
		return nil, err
	}
	return binlayout.NewStructure(fields, property, false)
}

// parseField parses one struct field, deferring seq nodes whose count is a
// back-reference.
func (p *parser) parseField(name string) (fieldSpec, error) {
	tok := p.peek()
	if tok.typ == tokIdent && tok.value == "seq" {
		p.next()
		return p.parseSeqSpec(name)
	}
	node, err := p.parseNode(name)
	if err != nil {
		return fieldSpec{}, err
	}
	return fieldSpec{name: name, node: node}, nil
}

// parseSeq parses a seq node in a context with no surrounding struct, where
// back-references cannot resolve.
func (p *parser) parseSeq(property string) (binlayout.Layout, error) {
	spec, err := p.parseSeqSpec(property)
	if err != nil {
		return nil, err
	}
	if spec.countRef != "" {
		return nil, errors.Syntax(spec.refTok.line, spec.refTok.col,
			"@%s count reference outside a struct", spec.countRef)
	}
	return spec.node, nil
}

func (p *parser) parseSeqSpec(property string) (fieldSpec, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return fieldSpec{}, err
	}
	elem, err := p.parseNode("")
	if err != nil {
		return fieldSpec{}, err
	}
	if _, err := p.expect(tokComma); err != nil {
		return fieldSpec{}, err
	}

	spec := fieldSpec{name: property, elem: elem}
	switch tok := p.next(); tok.typ {
	case tokNumber:
		n, err := parseInt(tok)
		if err != nil {
			return fieldSpec{}, err
		}
		spec.node, err = binlayout.NewSequence(elem, n, property)
		if err != nil {
			return fieldSpec{}, err
		}
	case tokStar:
		if elem.Span() < 0 {
			return fieldSpec{}, errors.Syntax(tok.line, tok.col, "greedy count requires a fixed-span element")
		}
		g, err := binlayout.NewGreedy(elem.Span(), "")
		if err != nil {
			return fieldSpec{}, err
		}
		spec.node, err = binlayout.NewSequenceExternal(elem, g, property)
		if err != nil {
			return fieldSpec{}, err
		}
	case tokAt:
		ref, err := p.expect(tokIdent)
		if err != nil {
			return fieldSpec{}, err
		}
		spec.countRef = ref.value
		spec.refTok = ref
	default:
		return fieldSpec{}, errors.Syntax(tok.line, tok.col, "expected a count, got %s %q", tok.typ, tok.value)
	}

	if _, err := p.expect(tokRParen); err != nil {
		return fieldSpec{}, err
	}
	return spec, nil
}

// resolveFields turns field specs into layouts, wiring @name counts to the
// referenced field through a relative offset.
func resolveFields(specs []fieldSpec) ([]binlayout.Layout, error) {
	// Byte offsets of fields whose position is statically known; -1 once a
	// variable-span field intervenes.
	offsets := make([]int, len(specs))
	off := 0
	for i, spec := range specs {
		offsets[i] = off
		span := binlayout.SpanVariable
		if spec.countRef == "" {
			span = spec.node.Span()
		}
		if off < 0 || span < 0 {
			off = -1
		} else {
			off += span
		}
	}

	var fields []binlayout.Layout
	for i, spec := range specs {
		if spec.countRef == "" {
			fields = append(fields, spec.node)
			continue
		}

		refIdx := -1
		for j := 0; j < i; j++ {
			if specs[j].name == spec.countRef {
				refIdx = j
				break
			}
		}
		if refIdx < 0 {
			return nil, errors.Syntax(spec.refTok.line, spec.refTok.col,
				"@%s does not name an earlier field", spec.countRef)
		}
		ref := specs[refIdx].node
		if _, ok := ref.(*binlayout.UIntLayout); !ok {
			return nil, errors.Syntax(spec.refTok.line, spec.refTok.col,
				"@%s must reference an unsigned integer field", spec.countRef)
		}
		if offsets[refIdx] < 0 || offsets[i] < 0 {
			return nil, errors.Syntax(spec.refTok.line, spec.refTok.col,
				"@%s requires statically known offsets", spec.countRef)
		}

		count, err := binlayout.NewOffset(ref.Replicate(""), offsets[refIdx]-offsets[i], "")
		if err != nil {
			return nil, err
		}
		seq, err := binlayout.NewSequenceExternal(spec.elem, count, spec.name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, seq)
	}
	return fields, nil
}

func (p *parser) parseBits(property string) (binlayout.Layout, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	wordTok, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	wordLeaf, ok := numericLeaf(wordTok.value, "")
	if !ok {
		return nil, errors.Syntax(wordTok.line, wordTok.col, "unknown word layout %q", wordTok.value)
	}
	word, ok := wordLeaf.(*binlayout.UIntLayout)
	if !ok {
		return nil, errors.Syntax(wordTok.line, wordTok.col, "bit structure word must be unsigned")
	}

	msb := false
	if p.accept(tokComma) {
		mod, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		if mod.value != "msb" {
			return nil, errors.Syntax(mod.line, mod.col, "unknown bits modifier %q", mod.value)
		}
		msb = true
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}

	builder := binlayout.NewBitStructureBuilder(word, msb, property)
	for p.peek().typ != tokRBrace {
		name, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon); err != nil {
			return nil, err
		}

		fieldName := name.value
		if fieldName == "_" {
			fieldName = ""
		}

		switch tok := p.next(); {
		case tok.typ == tokIdent && tok.value == "bool":
			builder.AddBoolean(fieldName)
		case tok.typ == tokNumber:
			bits, err := parseInt(tok)
			if err != nil {
				return nil, err
			}
			builder.AddField(bits, fieldName)
		default:
			return nil, errors.Syntax(tok.line, tok.col, "expected a bit width or bool, got %q", tok.value)
		}

		if !p.accept(tokComma) {
			break
		}
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}

	return builder.Build()
}
