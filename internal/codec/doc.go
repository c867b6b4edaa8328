// Package codec resolves encoding and decoding options into a concrete JSON
// codec.
//
// Options are small values grouped by Kind (key casing, date format and
// non-finite float handling, each for both directions). A client holds a
// default option list and each request may carry overrides; Merge combines
// the two with one option per kind, overrides first.
//
// Serialization is done by bytedance/sonic over a generic tree, so the same
// tree can be reused for query-string flattening.
//
// Example Usage:
//
//	c := codec.New(codec.KeyEncoding(codec.KeysSnakeCase), codec.DateEncoding(codec.DateUnixSeconds))
//	body, err := c.Marshal(user)
package codec
