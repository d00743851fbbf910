package data

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// UnknownToken is printed for ids without an entry.
const UnknownToken = "UNK"

// Dictionary maps tokens to ids and back. Id 0 is end-of-sequence and id 1
// is the unknown token.
type Dictionary struct {
	ids    map[string]int
	tokens map[int]string
}

// NewDictionary builds a dictionary from a token to id map.
func NewDictionary(ids map[string]int) *Dictionary {
	d := &Dictionary{ids: ids, tokens: make(map[int]string, len(ids))}
	for tok, id := range ids {
		d.tokens[id] = tok
	}
	return d
}

// LoadDictionary reads a YAML mapping of token to id.
func LoadDictionary(path string) (*Dictionary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read dictionary %s", path)
	}
	ids := map[string]int{}
	if err := yaml.Unmarshal(b, &ids); err != nil {
		return nil, errors.Wrapf(err, "can't parse dictionary %s", path)
	}
	return NewDictionary(ids), nil
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.ids)
}

// ID returns the id of token, or UNK.
func (d *Dictionary) ID(token string) int {
	if id, ok := d.ids[token]; ok {
		return id
	}
	return UNK
}

// Token returns the token for id.
func (d *Dictionary) Token(id int) (string, bool) {
	tok, ok := d.tokens[id]
	return tok, ok
}

// Range calls fn for every entry in increasing id order.
func (d *Dictionary) Range(fn func(token string, id int)) {
	ids := make([]int, 0, len(d.tokens))
	for id := range d.tokens {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fn(d.tokens[id], id)
	}
}

// Encode maps tokens to ids. Unknown tokens and ids not below nWords become
// UNK; nWords <= 0 disables the limit.
func (d *Dictionary) Encode(tokens []string, nWords int) []int {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		id := d.ID(tok)
		if nWords > 0 && id >= nWords {
			id = UNK
		}
		out[i] = id
	}
	return out
}

// Decode maps ids to tokens, stopping at the first EOS.
func (d *Dictionary) Decode(ids []int) []string {
	var out []string
	for _, id := range ids {
		if id == EOS {
			break
		}
		tok, ok := d.tokens[id]
		if !ok {
			tok = UnknownToken
		}
		out = append(out, tok)
	}
	return out
}
