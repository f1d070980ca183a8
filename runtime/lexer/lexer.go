// Package lexer turns formula text into a flat sequence of tokens.
package lexer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	ferrors "github.com/aledsdavies/formula/core/errors"
	"github.com/aledsdavies/formula/core/types"
)

// LexerOpt configures a Lexer
type LexerOpt func(*Lexer)

// WithLogger routes debug output to logger
func WithLogger(logger *slog.Logger) LexerOpt {
	return func(l *Lexer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Lexer scans a formula once, left to right
type Lexer struct {
	input    string
	position int  // Byte offset of ch
	readPos  int  // Byte offset after ch
	ch       rune // Current rune, 0 at end of input
	line     int
	column   int

	logger *slog.Logger
}

// New creates a lexer over input
func New(input string, opts ...LexerOpt) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0, // Incremented to 1 by the first readChar
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.readChar()
	return l
}

// Tokenize scans text and returns its tokens followed by an EOF token.
// Malformed input yields a *errors.SyntaxError and no tokens.
func Tokenize(text string, opts ...LexerOpt) ([]types.Token, error) {
	return New(text, opts...).Tokenize()
}

// Tokenize consumes the remaining input
func (l *Lexer) Tokenize() ([]types.Token, error) {
	tokens := make([]types.Token, 0, len(l.input)/3+1)
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == types.EOF {
			return tokens, nil
		}
	}
}

// NextToken returns the next token
func (l *Lexer) NextToken() (types.Token, error) {
	l.skipWhitespace()

	start := l.position
	pos := l.pos()

	var (
		tok types.Token
		err error
	)

	switch {
	case l.ch == 0 && l.position >= len(l.input):
		tok = l.emit(types.EOF, "", start, pos)
	case l.ch == '{':
		if l.peekChar() != '{' {
			return types.Token{}, l.unknownChar(start, pos)
		}
		l.readChar()
		l.readChar()
		tok = l.emit(types.WRAPPER_OPEN, "{{", start, pos)
	case l.ch == '}':
		if l.peekChar() != '}' {
			return types.Token{}, l.unknownChar(start, pos)
		}
		l.readChar()
		l.readChar()
		tok = l.emit(types.WRAPPER_CLOSE, "}}", start, pos)
	case l.ch == '(':
		l.readChar()
		tok = l.emit(types.GROUP_OPEN, "(", start, pos)
	case l.ch == ')':
		l.readChar()
		tok = l.emit(types.GROUP_CLOSE, ")", start, pos)
	case l.ch == '"':
		tok, err = l.lexString(start, pos)
	case l.ch == '-' && l.peekChar() < 128 && isDigit[l.peekChar()]:
		l.readChar()
		tok = l.lexWord(start, pos)
	case wordStart(l.ch):
		tok = l.lexWord(start, pos)
	default:
		return types.Token{}, l.unknownChar(start, pos)
	}
	if err != nil {
		return types.Token{}, err
	}

	l.logger.Debug("[LEXER] token", "type", tok.Type, "text", tok.Text, "pos", tok.Position)
	return tok, nil
}

// lexWord reads an identifier or number. Path structure such as
// schools[0].name is kept verbatim for the interpreter to split.
func (l *Lexer) lexWord(start int, pos types.Position) types.Token {
	for wordPart(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.position]
	if isDecimal(word) {
		return l.emit(types.NUMBER, word, start, pos)
	}
	return l.emit(types.IDENTIFIER, word, start, pos)
}

// lexString reads a double-quoted string. Only \" and \\ are escapes;
// any other backslash is kept as written.
func (l *Lexer) lexString(start int, pos types.Position) (types.Token, error) {
	l.readChar() // opening quote

	var b strings.Builder
	for {
		switch {
		case l.ch == 0 && l.position >= len(l.input):
			return types.Token{}, &ferrors.SyntaxError{
				Class:    ferrors.ClassUnterminatedString,
				Message:  "unterminated string, missing closing '\"'",
				Position: pos,
				Range:    types.Range{Start: start, End: len(l.input)},
				Example:  `{{ concat "hello" name }}`,
			}
		case l.ch == '"':
			l.readChar()
			return l.emit(types.STRING, b.String(), start, pos), nil
		case l.ch == '\\' && (l.peekChar() == '"' || l.peekChar() == '\\'):
			l.readChar()
			b.WriteRune(l.ch)
			l.readChar()
		default:
			b.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) emit(typ types.TokenType, text string, start int, pos types.Position) types.Token {
	return types.Token{
		Type:     typ,
		Text:     text,
		Position: pos,
		Range:    types.Range{Start: start, End: l.position},
	}
}

func (l *Lexer) unknownChar(start int, pos types.Position) error {
	ch := l.ch
	msg := fmt.Sprintf("unexpected character %q", ch)
	switch ch {
	case '{':
		msg = "unexpected '{', formulas open with '{{'"
	case '}':
		msg = "unexpected '}', formulas close with '}}'"
	case ',':
		msg = "unexpected ',', arguments are separated by spaces"
	case '\'':
		msg = "unexpected \"'\", strings use double quotes"
	}
	return &ferrors.SyntaxError{
		Class:    ferrors.ClassUnknownCharacter,
		Message:  msg,
		Position: pos,
		Range:    types.Range{Start: start, End: start + utf8.RuneLen(ch)},
	}
}

func (l *Lexer) pos() types.Position {
	return types.Position{Line: l.line, Column: l.column, Offset: l.position}
}

func (l *Lexer) skipWhitespace() {
	for l.ch < 128 && l.ch != 0 && isWhitespace[l.ch] {
		l.readChar()
	}
}

// readChar advances one rune, tracking line and column
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPos = len(l.input) + 1
		l.column++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.position = l.readPos
	l.readPos += size
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}
