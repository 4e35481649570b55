package depset

import (
	"strings"

	ebuildkit "ebuildkit.dev/ebuildkit"
	"ebuildkit.dev/ebuildkit/eapi"
)

// Kind selects which dep-set flavor is being parsed, controlling two
// things the shared grammar leaves parameterized: whether a leaf token
// may carry a SRC_URI-style "-> filename" rename, and whether a leaf
// may carry a REQUIRED_USE-only leading "!" negation.
type Kind int

const (
	KindPkgDepSet  Kind = iota // DEPEND, RDEPEND, BDEPEND, IDEPEND, PDEPEND
	KindLicense                // LICENSE, PROPERTIES, RESTRICT
	KindRequiredUse             // REQUIRED_USE (leaves admit a leading "!")
	KindSrcUri                  // SRC_URI (leaves admit "url -> filename")
)

type tokenizer struct {
	toks []string
	pos  int
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

func (t *tokenizer) peek() (string, bool) {
	if t.pos >= len(t.toks) {
		return "", false
	}
	return t.toks[t.pos], true
}

func (t *tokenizer) next() (string, bool) {
	tok, ok := t.peek()
	if ok {
		t.pos++
	}
	return tok, ok
}

// Parse parses a dependency-expression string of the given kind under
// e, using leafParse for the leaf token grammar.
func Parse(s string, kind Kind, e *eapi.EAPI, leafParse LeafParser) (*DepSet, error) {
	t := &tokenizer{toks: tokenize(s)}
	children, err := parseGroup(t, kind, e, leafParse, false)
	if err != nil {
		return nil, &ebuildkit.InvalidDepError{Value: s, Msg: err.Error()}
	}
	if _, ok := t.peek(); ok {
		return nil, &ebuildkit.InvalidDepError{Value: s, Msg: "unexpected trailing token " + t.toks[t.pos]}
	}
	return &DepSet{Root: &Node{Kind: KindAllOf, Children: children}}, nil
}

// parseGroup parses a sequence of elements until a closing ")" (if
// nested) or end of input (if top-level).
func parseGroup(t *tokenizer, kind Kind, e *eapi.EAPI, leafParse LeafParser, nested bool) ([]*Node, error) {
	var out []*Node
	for {
		tok, ok := t.peek()
		if !ok {
			if nested {
				return nil, errf("unterminated group")
			}
			return out, nil
		}
		if tok == ")" {
			if !nested {
				return nil, errf("unexpected ')'")
			}
			return out, nil
		}

		n, err := parseElement(t, kind, e, leafParse)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
}

func errf(msg string) error { return depsetError(msg) }

type depsetError string

func (e depsetError) Error() string { return string(e) }

func parseElement(t *tokenizer, kind Kind, e *eapi.EAPI, leafParse LeafParser) (*Node, error) {
	tok, _ := t.next()

	switch tok {
	case "(":
		children, err := parseGroup(t, kind, e, leafParse, true)
		if err != nil {
			return nil, err
		}
		t.next() // consume the ")" that parseGroup left unread
		return &Node{Kind: KindAllOf, Children: children}, nil

	case "||":
		return parseHeadedGroup(t, kind, e, leafParse, KindAnyOf)

	case "^^":
		if !e.Has(eapi.RequiredUse) {
			return nil, errf("^^ ( ) not supported by this EAPI")
		}
		return parseHeadedGroup(t, kind, e, leafParse, KindExactlyOneOf)

	case "??":
		if !e.Has(eapi.RequiredUseOneOf) {
			return nil, errf("?? ( ) not supported by this EAPI")
		}
		return parseHeadedGroup(t, kind, e, leafParse, KindAtMostOneOf)

	default:
		if strings.HasSuffix(tok, "?") && tok != "?" {
			neg := strings.HasPrefix(tok, "!")
			flag := strings.TrimSuffix(strings.TrimPrefix(tok, "!"), "?")
			if flag == "" {
				return nil, errf("empty USE flag in conditional group")
			}
			nk := KindUseEnabled
			if neg {
				nk = KindUseDisabled
			}
			node, err := parseHeadedGroup(t, kind, e, leafParse, nk)
			if err != nil {
				return nil, err
			}
			node.UseFlag = flag
			return node, nil
		}
		return parseLeaf(t, tok, kind, e, leafParse)
	}
}

// parseHeadedGroup parses the "(" depset ")" that must immediately
// follow a group head token (||, ^^, ??, flag?).
func parseHeadedGroup(t *tokenizer, kind Kind, e *eapi.EAPI, leafParse LeafParser, nk NodeKind) (*Node, error) {
	open, ok := t.next()
	if !ok || open != "(" {
		return nil, errf("expected '(' after group head")
	}
	children, err := parseGroup(t, kind, e, leafParse, true)
	if err != nil {
		return nil, err
	}
	if _, ok := t.next(); !ok {
		return nil, errf("unterminated group")
	}
	return &Node{Kind: nk, Children: children}, nil
}

func parseLeaf(t *tokenizer, tok string, kind Kind, e *eapi.EAPI, leafParse LeafParser) (*Node, error) {
	nk := KindEnabled
	leafTok := tok

	if kind == KindRequiredUse && strings.HasPrefix(tok, "!") {
		nk = KindDisabled
		leafTok = strings.TrimPrefix(tok, "!")
	}

	if kind == KindSrcUri {
		if next, ok := t.peek(); ok && next == "->" {
			t.next()
			rename, ok := t.next()
			if !ok {
				return nil, errf("missing rename target after '->'")
			}
			if !e.Has(eapi.SrcUriRenames) {
				return nil, errf("SRC_URI renames not supported by this EAPI")
			}
			leaf, err := leafParse(leafTok, e)
			if err != nil {
				return nil, err
			}
			u, ok := leaf.(Uri)
			if !ok {
				return nil, errf("internal: SRC_URI leaf parser did not return a Uri")
			}
			u.Rename = rename
			return &Node{Kind: nk, Leaf: u}, nil
		}
	}

	leaf, err := leafParse(leafTok, e)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: nk, Leaf: leaf}, nil
}
