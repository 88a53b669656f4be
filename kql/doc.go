// Package kql provides lexing and parsing for KivQL, the statement language
// of KivDB.
//
// The package includes a tokenizer that turns a statement into a sequence of
// tokens and a parser that validates the tokens against the three statement
// shapes and produces a typed Operation.
//
// # Tokenizer Usage
//
//	tokens, err := kql.Tokenize(`SET "name" TO "alice"`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, token := range tokens {
//	    fmt.Println(token)
//	}
//
// # Parser Usage
//
//	operation, err := kql.Parse(tokens)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Compile runs both steps:
//
//	operation, err := kql.Compile(`GET 'name'`)
//
// # Supported Statements
//
//	SET "key" TO "value"
//	GET "key"
//	DELETE "key"
//
// Keywords are case-insensitive. String literals use single or double quotes
// and cannot contain a quote character of either kind.
//
// # Errors
//
// Tokenize fails with a TokenizerError (unknown keyword, unexpected
// character, unterminated string). Parse fails with a ParserError value that
// can be matched with errors.Is:
//
//	if errors.Is(err, kql.SetNoTo) { ... }
package kql
