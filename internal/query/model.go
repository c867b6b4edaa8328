package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/netkit/internal/codec"
)

// Pair is one key=value item of a flattened model.
type Pair struct {
	Key   string
	Value string
}

// Pairs is an ordered list of query items. Unlike State it keeps duplicate
// values and empty strings.
type Pairs []Pair

// FromModel flattens v, encoded with c, into query items. Object keys are
// visited in ascending order, list elements repeat the key and nested objects
// use bracket notation (filter[status]=open). Null fields are skipped.
func FromModel(c *codec.Codec, v any) (Pairs, error) {
	tree, err := c.Tree(v)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, nil
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("query: %T does not encode to an object", v)
	}
	var out Pairs
	flattenObject(&out, "", obj)
	return out, nil
}

func flattenObject(out *Pairs, prefix string, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "[" + k + "]"
		}
		flatten(out, key, obj[k])
	}
}

func flatten(out *Pairs, key string, v any) {
	switch val := v.(type) {
	case nil:
	case map[string]any:
		flattenObject(out, key, val)
	case []any:
		for _, item := range val {
			flatten(out, key, item)
		}
	default:
		*out = append(*out, Pair{Key: key, Value: scalar(val)})
	}
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Encode joins the pairs with every value percent-encoded.
func (p Pairs) Encode() string { return p.join(true) }

// Raw joins the pairs without escaping values.
func (p Pairs) Raw() string { return p.join(false) }

func (p Pairs) join(escape bool) string {
	var b strings.Builder
	for i, pair := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(pair.Key)
		b.WriteByte('=')
		if escape {
			b.WriteString(Escape(pair.Value))
		} else {
			b.WriteString(pair.Value)
		}
	}
	return b.String()
}

// AppendTo appends the pairs to the raw query string. Existing items whose
// key appears in p are removed first; all other items are kept verbatim.
func (p Pairs) AppendTo(raw string, escape bool) string {
	if len(p) == 0 {
		return raw
	}
	set := make(map[string]struct{}, len(p))
	for _, pair := range p {
		set[pair.Key] = struct{}{}
	}

	var b strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(raw, "?"), "&") {
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, "=")
		if _, ok := set[unescape(key)]; ok {
			continue
		}
		b.WriteString(part)
		b.WriteByte('&')
	}
	b.WriteString(p.join(escape))
	return b.String()
}

// State collects the pairs into a State. Blank values are dropped and
// duplicates collapse, as for any State.
func (p Pairs) State() State {
	grouped := make(map[string][]string)
	for _, pair := range p {
		grouped[pair.Key] = append(grouped[pair.Key], pair.Value)
	}
	return New(grouped)
}
