package kql

type OperationType int

const (
	SetOperationType OperationType = iota
	DeleteOperationType
	GetOperationType
)

func (operationType OperationType) String() string {
	switch operationType {
	case SetOperationType:
		return "set"
	case DeleteOperationType:
		return "delete"
	case GetOperationType:
		return "get"
	default:
		return "unknown"
	}
}

type Operation interface {
	Type() OperationType
}

type SetOperation struct {
	Key   string
	Value string
}

type DeleteOperation struct {
	Key string
}

type GetOperation struct {
	Key string
}

func (o SetOperation) Type() OperationType {
	return SetOperationType
}

func (o DeleteOperation) Type() OperationType {
	return DeleteOperationType
}

func (o GetOperation) Type() OperationType {
	return GetOperationType
}

type Parser struct {
	tokens   []Token
	position int
}

// NewParser prepares a parser over tokens. Whitespace tokens are dropped
// here; the grammar is positional over the remaining tokens.
func NewParser(tokens []Token) *Parser {
	significant := make([]Token, 0, len(tokens))
	for _, token := range tokens {
		if token.Type != Whitespace {
			significant = append(significant, token)
		}
	}
	return &Parser{tokens: significant}
}

// Parse validates tokens against the statement shapes.
func Parse(tokens []Token) (Operation, error) {
	return NewParser(tokens).Parse()
}

// Compile tokenizes and parses a statement.
func Compile(statement string) (Operation, error) {
	tokens, err := Tokenize(statement)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

func (parser *Parser) Parse() (Operation, error) {
	token, ok := parser.next()
	if !ok {
		return nil, EmptyStatement
	}
	if !token.Type.IsKeyword() {
		return nil, OperationFirst
	}

	var operation Operation
	var err error

	switch token.Type {
	case Set:
		operation, err = parseSet(parser)
	case Delete:
		operation, err = parseDelete(parser)
	case Get:
		operation, err = parseGet(parser)
	default:
		return nil, UnexpectedOperation
	}
	if err != nil {
		return nil, err
	}

	if _, ok := parser.next(); ok {
		return nil, TrailingTokens
	}

	return operation, nil
}

func parseSet(parser *Parser) (Operation, error) {
	key, ok := parser.expectString()
	if !ok {
		return nil, SetNoKey
	}

	token, ok := parser.next()
	if !ok || token.Type != To {
		return nil, SetNoTo
	}

	value, ok := parser.expectString()
	if !ok {
		return nil, SetNoValue
	}

	return SetOperation{Key: key, Value: value}, nil
}

func parseDelete(parser *Parser) (Operation, error) {
	key, ok := parser.expectString()
	if !ok {
		return nil, DeleteNoKey
	}
	return DeleteOperation{Key: key}, nil
}

func parseGet(parser *Parser) (Operation, error) {
	key, ok := parser.expectString()
	if !ok {
		return nil, GetNoKey
	}
	return GetOperation{Key: key}, nil
}

func (parser *Parser) next() (Token, bool) {
	if parser.position >= len(parser.tokens) {
		return Token{}, false
	}
	token := parser.tokens[parser.position]
	parser.position++
	return token, true
}

func (parser *Parser) expectString() (string, bool) {
	token, ok := parser.next()
	if !ok || token.Type != String {
		return "", false
	}
	return token.Value, true
}
