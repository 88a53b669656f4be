package kql

import (
	"strings"
	"unicode/utf8"
)

type Token struct {
	Type  TokenType
	Value string
}

type TokenType int

const (
	Whitespace TokenType = iota
	String
	Set
	To
	Delete
	Get
	EOF
)

func (tokenType TokenType) IsKeyword() bool {
	switch tokenType {
	case Set, To, Delete, Get:
		return true
	default:
		return false
	}
}

func (tokenType TokenType) String() string {
	switch tokenType {
	case Whitespace:
		return "Whitespace"
	case String:
		return "String"
	case Set:
		return "Set"
	case To:
		return "To"
	case Delete:
		return "Delete"
	case Get:
		return "Get"
	case EOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

func (token Token) String() string {
	if token.Type == String {
		return "String(" + token.Value + ")"
	}
	return token.Type.String()
}

// Lexer scans a single statement. It is created per call to Tokenize and
// never shared, so the cursor is local to one tokenization.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(input string) *Lexer {
	lexer := &Lexer{input: input}
	lexer.readChar()
	return lexer
}

// Tokenize converts a statement into its tokens, in input order.
func Tokenize(statement string) ([]Token, error) {
	lexer := NewLexer(statement)

	var tokens []Token

	for {
		token, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if token.Type == EOF {
			return tokens, nil
		}
		tokens = append(tokens, token)
	}
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.input) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.input[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) atEnd() bool {
	return lexer.position >= len(lexer.input)
}

// NextToken classifies the character under the cursor and consumes exactly
// one run for it.
func (lexer *Lexer) NextToken() (Token, error) {
	if lexer.atEnd() {
		return Token{Type: EOF}, nil
	}

	switch {
	case isWhitespace(lexer.ch):
		lexer.skipWhitespace()
		return Token{Type: Whitespace}, nil

	case isAlphaNumeric(lexer.ch):
		word := strings.ToUpper(lexer.readWord())
		tokenType, ok := lookupKeyword(word)
		if !ok {
			return Token{}, TokenizerError{Kind: UnknownKeyword, Text: word}
		}
		return Token{Type: tokenType, Value: word}, nil

	case isQuote(lexer.ch):
		value, err := lexer.readString()
		if err != nil {
			return Token{}, err
		}
		return Token{Type: String, Value: value}, nil

	default:
		r, _ := utf8.DecodeRuneInString(lexer.input[lexer.position:])
		return Token{}, TokenizerError{Kind: UnexpectedCharacter, Text: string(r)}
	}
}

func (lexer *Lexer) skipWhitespace() {
	for !lexer.atEnd() && isWhitespace(lexer.ch) {
		lexer.readChar()
	}
}

func (lexer *Lexer) readWord() string {
	position := lexer.position
	for !lexer.atEnd() && isAlphaNumeric(lexer.ch) {
		lexer.readChar()
	}
	return lexer.input[position:lexer.position]
}

// readString consumes a quoted literal, including both quotes. The literal
// ends at the next quote of either kind.
func (lexer *Lexer) readString() (string, error) {
	lexer.readChar() // skip opening quote
	position := lexer.position
	for !lexer.atEnd() && !isQuote(lexer.ch) {
		lexer.readChar()
	}
	if lexer.atEnd() {
		return "", TokenizerError{Kind: UnterminatedString, Text: lexer.input[position:]}
	}
	value := lexer.input[position:lexer.position]
	lexer.readChar() // skip closing quote
	return value, nil
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isAlphaNumeric(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ('0' <= ch && ch <= '9')
}

func isQuote(ch byte) bool {
	return ch == '\'' || ch == '"'
}

func lookupKeyword(word string) (TokenType, bool) {
	switch word {
	case "SET":
		return Set, true
	case "TO":
		return To, true
	case "DELETE":
		return Delete, true
	case "GET":
		return Get, true
	default:
		return EOF, false
	}
}
