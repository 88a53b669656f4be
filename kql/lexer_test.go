package kql

import (
	"errors"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		expected  []Token
	}{
		{
			"strings are detected",
			`"hello" "world"`,
			[]Token{{Type: String, Value: "hello"}, {Type: Whitespace}, {Type: String, Value: "world"}},
		},
		{
			"keywords are detected",
			"SET TO",
			[]Token{{Type: Set, Value: "SET"}, {Type: Whitespace}, {Type: To, Value: "TO"}},
		},
		{
			"keywords are case insensitive",
			"get Delete sEt to",
			[]Token{
				{Type: Get, Value: "GET"}, {Type: Whitespace},
				{Type: Delete, Value: "DELETE"}, {Type: Whitespace},
				{Type: Set, Value: "SET"}, {Type: Whitespace},
				{Type: To, Value: "TO"},
			},
		},
		{
			"whitespace run is one token",
			"GET \t\r\n 'a'",
			[]Token{{Type: Get, Value: "GET"}, {Type: Whitespace}, {Type: String, Value: "a"}},
		},
		{
			"leading and trailing whitespace",
			"  GET 'a'  ",
			[]Token{{Type: Whitespace}, {Type: Get, Value: "GET"}, {Type: Whitespace}, {Type: String, Value: "a"}, {Type: Whitespace}},
		},
		{
			"single quoted string",
			`SET 'k' TO 'v'`,
			[]Token{
				{Type: Set, Value: "SET"}, {Type: Whitespace},
				{Type: String, Value: "k"}, {Type: Whitespace},
				{Type: To, Value: "TO"}, {Type: Whitespace},
				{Type: String, Value: "v"},
			},
		},
		{
			"empty string",
			`GET ""`,
			[]Token{{Type: Get, Value: "GET"}, {Type: Whitespace}, {Type: String, Value: ""}},
		},
		{
			"string keeps spaces and unicode",
			`GET "hello wörld ✓"`,
			[]Token{{Type: Get, Value: "GET"}, {Type: Whitespace}, {Type: String, Value: "hello wörld ✓"}},
		},
		{
			"adjacent tokens without whitespace",
			`GET"a"`,
			[]Token{{Type: Get, Value: "GET"}, {Type: String, Value: "a"}},
		},
		{
			"empty input",
			"",
			nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tokens, err := Tokenize(test.statement)
			if err != nil {
				t.Fatalf("Failed to tokenize %q: %v", test.statement, err)
			}
			if !reflect.DeepEqual(tokens, test.expected) {
				t.Errorf("Expected %v, got %v", test.expected, tokens)
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		expected  TokenizerError
	}{
		{"unknown bare word", `SET x TO y`, TokenizerError{Kind: UnknownKeyword, Text: "X"}},
		{"unknown keyword is uppercased", `select "a"`, TokenizerError{Kind: UnknownKeyword, Text: "SELECT"}},
		{"digits are words", `GET 42`, TokenizerError{Kind: UnknownKeyword, Text: "42"}},
		{"punctuation", `GET "a";`, TokenizerError{Kind: UnexpectedCharacter, Text: ";"}},
		{"non ascii outside string", `GET é`, TokenizerError{Kind: UnexpectedCharacter, Text: "é"}},
		{"unterminated string", `SET "abc`, TokenizerError{Kind: UnterminatedString, Text: "abc"}},
		{"mixed quotes leave a dangling quote", `"it's"`, TokenizerError{Kind: UnknownKeyword, Text: "S"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Tokenize(test.statement)
			if err == nil {
				t.Fatalf("Expected error for %q", test.statement)
			}
			var tokenizerErr TokenizerError
			if !errors.As(err, &tokenizerErr) {
				t.Fatalf("Expected TokenizerError, got %T", err)
			}
			if tokenizerErr != test.expected {
				t.Errorf("Expected %+v, got %+v", test.expected, tokenizerErr)
			}
		})
	}
}

func TestTokenizerErrorCode(t *testing.T) {
	err := TokenizerError{Kind: UnknownKeyword, Text: "X"}
	if err.Code() != "unknownKeyword" {
		t.Errorf("Expected unknownKeyword, got %s", err.Code())
	}
	if err.Error() != "unknown keyword: X" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}
