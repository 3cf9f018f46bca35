// Package argvlex implements ArgvParsers (§4.5): tokenizing a traced
// process's argv into the flag/value pairs the GCC-family dispatch table
// needs, and generating qualified names for the build targets
// StepRecognizer produces.
//
// The tokenizer is a channel-fed state-function lexer in the shape of
// crux/pkg/begat/lib/lex.go's lexMach/lexState machinery, adapted from
// lexing begat's own block/redirection DSL to walking a single argv
// slice's flag syntax (short forms, `-I/path` vs `-I /path`, `--long=val`).
package argvlex

import "strings"

// TokenKind classifies one lexed argv token.
type TokenKind int

const (
	TokFlag TokenKind = iota
	TokValue
	TokPositional
)

// Token is one lexed unit of an argv slice.
type Token struct {
	Kind  TokenKind
	Flag  string // e.g. "-I", "-o", "--shared"; empty for TokPositional
	Value string // the flag's attached or following value, or the positional arg itself
}

// lexer walks one argv slice, pushing Tokens to out as it recognizes
// them. Mirrors lex.go's lexer struct (input, position, channel) minus
// the redirection/pipe stack, which has no argv analogue.
type lexer struct {
	argv []string
	pos  int
	out  chan Token
}

type lexState func(*lexer) lexState

// Lex tokenizes an argv slice (not including argv[0], the tool itself)
// into a slice of Tokens, run synchronously to completion.
func Lex(argv []string) []Token {
	l := &lexer{argv: argv, out: make(chan Token, len(argv)*2)}
	go func() {
		for state := lexArg; state != nil; {
			state = state(l)
		}
		close(l.out)
	}()
	var toks []Token
	for t := range l.out {
		toks = append(toks, t)
	}
	return toks
}

func lexArg(l *lexer) lexState {
	if l.pos >= len(l.argv) {
		return nil
	}
	arg := l.argv[l.pos]
	switch {
	case len(arg) == 0:
		l.pos++
		return lexArg
	case len(arg) >= 2 && arg[0] == '-' && arg[1] == '-':
		return lexLongFlag
	case arg[0] == '-' && len(arg) > 1:
		return lexShortFlag
	default:
		l.out <- Token{Kind: TokPositional, Value: arg}
		l.pos++
		return lexArg
	}
}

func lexLongFlag(l *lexer) lexState {
	arg := l.argv[l.pos]
	for i := 2; i < len(arg); i++ {
		if arg[i] == '=' {
			l.out <- Token{Kind: TokFlag, Flag: arg[:i], Value: arg[i+1:]}
			l.pos++
			return lexArg
		}
	}
	l.out <- Token{Kind: TokFlag, Flag: arg}
	l.pos++
	return lexArg
}

// shortFlagsWithAttachedValue are the single-letter GCC flags that take
// their value either attached (`-Ifoo`) or as the next argv element
// (`-I foo`), per §4.5's token-dispatch table.
var shortFlagsWithAttachedValue = map[byte]bool{
	'I': true, 'L': true, 'l': true, 'D': true, 'U': true,
}

// exactFlagsConsumingNext are multi-letter flags whose value is always
// the following argv element, never attached or joined with '='.
var exactFlagsConsumingNext = map[string]bool{
	"-o": true, "-MF": true, "-MT": true, "-MQ": true, "-z": true, "-soname": true,
}

func lexShortFlag(l *lexer) lexState {
	arg := l.argv[l.pos]

	if exactFlagsConsumingNext[arg] {
		return lexConsumeNext(l, arg)
	}

	letter := arg[1]
	if takesAttached, known := shortFlagsWithAttachedValue[letter]; known && takesAttached {
		if len(arg) > 2 {
			l.out <- Token{Kind: TokFlag, Flag: arg[:2], Value: arg[2:]}
			l.pos++
			return lexArg
		}
		// value is the following argv element, e.g. "-I" "/usr/include"
		return lexConsumeNext(l, arg)
	}

	// Any other multi-letter flag may still carry a "--flag=value" or
	// "-flag=value" joined form (e.g. "-std=c++11", "--sysroot=/x" when
	// lexed as a short flag); split it if present.
	if idx := strings.IndexByte(arg, '='); idx >= 0 {
		l.out <- Token{Kind: TokFlag, Flag: arg[:idx], Value: arg[idx+1:]}
		l.pos++
		return lexArg
	}

	l.out <- Token{Kind: TokFlag, Flag: arg}
	l.pos++
	return lexArg
}

// lexConsumeNext emits flag paired with the following argv element as
// its value, if one exists.
func lexConsumeNext(l *lexer, flag string) lexState {
	l.pos++
	if l.pos < len(l.argv) {
		l.out <- Token{Kind: TokFlag, Flag: flag, Value: l.argv[l.pos]}
		l.pos++
	} else {
		l.out <- Token{Kind: TokFlag, Flag: flag}
	}
	return lexArg
}
