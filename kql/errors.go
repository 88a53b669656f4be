package kql

import "fmt"

type TokenizerErrorKind int

const (
	UnknownKeyword TokenizerErrorKind = iota
	UnexpectedCharacter
	UnterminatedString
)

// Code returns the camelCase name used on the wire.
func (kind TokenizerErrorKind) Code() string {
	switch kind {
	case UnknownKeyword:
		return "unknownKeyword"
	case UnexpectedCharacter:
		return "unexpectedCharacter"
	case UnterminatedString:
		return "unterminatedString"
	default:
		return "unknown"
	}
}

// TokenizerError reports a lexical failure. Text holds the offending word,
// character or unterminated literal.
type TokenizerError struct {
	Kind TokenizerErrorKind
	Text string
}

func (err TokenizerError) Error() string {
	switch err.Kind {
	case UnknownKeyword:
		return fmt.Sprintf("unknown keyword: %s", err.Text)
	case UnexpectedCharacter:
		return fmt.Sprintf("unexpected character: %q", err.Text)
	case UnterminatedString:
		return fmt.Sprintf("unterminated string: %q", err.Text)
	default:
		return "tokenizer error"
	}
}

func (err TokenizerError) Code() string {
	return err.Kind.Code()
}

// ParserError is a grammar violation. The values are comparable, so callers
// can match them with errors.Is.
type ParserError int

const (
	EmptyStatement ParserError = iota
	OperationFirst
	UnexpectedOperation
	SetNoKey
	SetNoTo
	SetNoValue
	DeleteNoKey
	GetNoKey
	TrailingTokens
)

func (err ParserError) Error() string {
	switch err {
	case EmptyStatement:
		return "empty statement"
	case OperationFirst:
		return "expected operation before anything else"
	case UnexpectedOperation:
		return "unexpected operation"
	case SetNoKey:
		return "no key provided for SET operation"
	case SetNoTo:
		return "no TO after SET operation key"
	case SetNoValue:
		return "no value provided for SET operation"
	case DeleteNoKey:
		return "no key provided for DELETE operation"
	case GetNoKey:
		return "no key provided for GET operation"
	case TrailingTokens:
		return "unexpected tokens after end of statement"
	default:
		return "parser error"
	}
}

// Code returns the camelCase name used on the wire.
func (err ParserError) Code() string {
	switch err {
	case EmptyStatement:
		return "emptyStatement"
	case OperationFirst:
		return "operationFirst"
	case UnexpectedOperation:
		return "unexpectedOperation"
	case SetNoKey:
		return "setNoKey"
	case SetNoTo:
		return "setNoTo"
	case SetNoValue:
		return "setNoValue"
	case DeleteNoKey:
		return "deleteNoKey"
	case GetNoKey:
		return "getNoKey"
	case TrailingTokens:
		return "trailingTokens"
	default:
		return "unknown"
	}
}
