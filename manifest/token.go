package manifest

import (
	"encoding/json"
	"fmt"
)

type TokenKind int

const (
	StringToken TokenKind = iota
	ConditionalToken
)

// Token is one entry of arguments.game or arguments.jvm. The JSON form is
// either a plain string or an object holding rules plus a string or string
// list value; the shape is decided once while decoding.
type Token struct {
	Kind  TokenKind
	Value []string
	Rules []Rule
}

var _ json.Unmarshaler = &Token{}
var _ json.Marshaler = Token{}

func Literal(s string) Token {
	return Token{Kind: StringToken, Value: []string{s}}
}

func Conditional(rules []Rule, values ...string) Token {
	return Token{Kind: ConditionalToken, Value: values, Rules: rules}
}

type conditionalToken struct {
	Rules []Rule          `json:"rules"`
	Value json.RawMessage `json:"value"`
}

func (t *Token) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("empty argument token")
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Literal(s)
		return nil
	case '{':
		var c conditionalToken
		if err := json.Unmarshal(b, &c); err != nil {
			return err
		}
		values, err := decodeValue(c.Value)
		if err != nil {
			return err
		}
		*t = Conditional(c.Rules, values...)
		return nil
	}
	return fmt.Errorf("invalid argument token: %s", b)
}

func decodeValue(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	case '[':
		var a []string
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("invalid argument value: %s", raw)
}

func (t Token) MarshalJSON() ([]byte, error) {
	if t.Kind == StringToken && len(t.Value) == 1 {
		return json.Marshal(t.Value[0])
	}
	var value any = t.Value
	if len(t.Value) == 1 {
		value = t.Value[0]
	}
	return json.Marshal(struct {
		Rules []Rule `json:"rules"`
		Value any    `json:"value"`
	}{t.Rules, value})
}

// Expand flattens tokens into plain strings, keeping conditional values only
// when their rules allow them on p.
func Expand(tokens []Token, p Platform) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == ConditionalToken && !Allowed(t.Rules, p) {
			continue
		}
		out = append(out, t.Value...)
	}
	return out
}
