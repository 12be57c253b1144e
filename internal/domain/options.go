package domain

// OptionSet is an ordered set of emoji tokens. Adding a token that is
// already present moves it to the end.
type OptionSet struct {
	tokens []string
}

func NewOptionSet(tokens ...string) OptionSet {
	var s OptionSet
	for _, t := range tokens {
		s.Add(t)
	}
	return s
}

func (s *OptionSet) Add(token string) {
	for i, t := range s.tokens {
		if t == token {
			s.tokens = append(s.tokens[:i:i], s.tokens[i+1:]...)
			break
		}
	}
	s.tokens = append(s.tokens, token)
}

func (s OptionSet) Contains(token string) bool {
	for _, t := range s.tokens {
		if t == token {
			return true
		}
	}
	return false
}

func (s OptionSet) Len() int {
	return len(s.tokens)
}

// Tokens returns a copy of the tokens in order.
func (s OptionSet) Tokens() []string {
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}
