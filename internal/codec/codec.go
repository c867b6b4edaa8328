package codec

import (
	"fmt"

	"github.com/bytedance/sonic"
)

var (
	writer = sonic.ConfigStd
	reader = sonic.Config{UseNumber: true}.Froze()
)

// Codec is a JSON encoder/decoder resolved from an option list. A Codec is
// immutable and safe for concurrent use.
type Codec struct {
	st   settings
	opts []Option
}

// New resolves opts into a Codec. Later options of the same kind win.
func New(opts ...Option) *Codec {
	kept := Merge(opts, nil)
	return &Codec{st: resolve(kept), opts: kept}
}

// Options returns the de-duplicated option list the codec was built from.
func (c *Codec) Options() []Option {
	out := make([]Option, len(c.opts))
	copy(out, c.opts)
	return out
}

// Marshal encodes v as JSON, applying key, date and non-finite strategies.
func (c *Codec) Marshal(v any) ([]byte, error) {
	tree, err := c.Tree(v)
	if err != nil {
		return nil, err
	}
	data, err := writer.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}
	return data, nil
}

// Tree converts v into its generic JSON form (map[string]any, []any and
// scalars) with all encoding strategies applied.
func (c *Codec) Tree(v any) (any, error) {
	return c.encodeValue(valueOf(v))
}

// Unmarshal decodes JSON data into the value pointed to by v.
func (c *Codec) Unmarshal(data []byte, v any) error {
	var tree any
	if err := reader.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("codec: unmarshal: %w", err)
	}
	return c.Assign(tree, v)
}

// Assign stores a generic JSON tree into the value pointed to by v.
func (c *Codec) Assign(tree any, v any) error {
	rv := valueOf(v)
	if !rv.IsValid() || rv.Kind() != ptrKind || rv.IsNil() {
		return fmt.Errorf("codec: decode target must be a non-nil pointer, got %T", v)
	}
	return c.decodeValue(tree, rv.Elem())
}
