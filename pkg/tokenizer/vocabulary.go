package tokenizer

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/joelsearcy/headliner-go/pkg/data"
)

const (
	PadID    = data.PadID // reserved for padding
	OOVID    = 1          // reserved for out-of-vocabulary tokens
	OOVToken = "<unk>"

	// FirstTokenID is the id of the first regular token.
	FirstTokenID = 2
)

// Vocabulary maps whitespace tokens to dense ids and back.
// Ids 0 and 1 are reserved for padding and OOV, regular tokens follow in
// sorted order. A Vocabulary is immutable after construction.
type Vocabulary struct {
	tokenToID map[string]int
	idToToken []string
}

// NewVocabulary builds a vocabulary over tokens, ignoring duplicates and the
// reserved OOV token.
func NewVocabulary(tokens []string) *Vocabulary {
	sorted := slices.Clone(tokens)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	idToToken := make([]string, FirstTokenID, FirstTokenID+len(sorted))
	idToToken[OOVID] = OOVToken
	for _, tok := range sorted {
		if tok == "" || tok == OOVToken {
			continue
		}
		idToToken = append(idToToken, tok)
	}

	tokenToID := make(map[string]int, len(idToToken))
	for id, tok := range idToToken[OOVID:] {
		tokenToID[tok] = id + OOVID
	}
	return &Vocabulary{tokenToID: tokenToID, idToToken: idToToken}
}

// Size returns the number of ids including the reserved ones.
func (v *Vocabulary) Size() int {
	return len(v.idToToken)
}

// ID returns the id of token or OOVID.
func (v *Vocabulary) ID(token string) int {
	if id, ok := v.tokenToID[token]; ok {
		return id
	}
	return OOVID
}

// Contains reports whether token has its own id.
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.tokenToID[token]
	return ok && token != OOVToken
}

// Token returns the token for id. Padding has no token.
func (v *Vocabulary) Token(id int) (string, bool) {
	if id <= PadID || id >= len(v.idToToken) {
		return "", false
	}
	return v.idToToken[id], true
}

// Tokens returns the regular tokens in id order.
func (v *Vocabulary) Tokens() []string {
	return slices.Clone(v.idToToken[FirstTokenID:])
}

// Encode maps whitespace tokens of text to ids.
func (v *Vocabulary) Encode(text string) []int {
	fields := strings.Fields(text)
	ids := make([]int, len(fields))
	for i, tok := range fields {
		ids[i] = v.ID(tok)
	}
	return ids
}

// Decode joins the tokens of ids, skipping padding.
func (v *Vocabulary) Decode(ids []int) string {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if tok, ok := v.Token(id); ok {
			tokens = append(tokens, tok)
		}
	}
	return strings.Join(tokens, " ")
}

// MarshalJSON encodes the regular tokens in id order.
func (v *Vocabulary) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Tokens())
}

// UnmarshalJSON rebuilds the vocabulary from a token list written by
// MarshalJSON.
func (v *Vocabulary) UnmarshalJSON(b []byte) error {
	var tokens []string
	if err := json.Unmarshal(b, &tokens); err != nil {
		return fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	*v = *NewVocabulary(tokens)
	return nil
}
