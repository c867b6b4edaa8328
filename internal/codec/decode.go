package codec

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// TypeError reports a JSON value that cannot be stored in a Go type.
type TypeError struct {
	Value string
	Type  reflect.Type
	Field string
}

func (e *TypeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("codec: cannot decode %s into field %s of type %s", e.Value, e.Field, e.Type)
	}
	return fmt.Sprintf("codec: cannot decode %s into %s", e.Value, e.Type)
}

func describe(src any) string {
	switch src.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", src)
	}
}

func (c *Codec) decodeValue(src any, dst reflect.Value) error {
	if src == nil {
		switch dst.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			dst.Set(reflect.Zero(dst.Type()))
		}
		return nil
	}

	if dst.Kind() == reflect.Pointer {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return c.decodeValue(src, dst.Elem())
	}

	if dst.Type() == timeType {
		t, err := c.parseDate(src)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	if dst.CanAddr() {
		addr := dst.Addr()
		if addr.Type().Implements(jsonUnmarshalerType) {
			raw, err := writer.Marshal(plain(src))
			if err != nil {
				return fmt.Errorf("codec: %s: %w", dst.Type(), err)
			}
			return addr.Interface().(json.Unmarshaler).UnmarshalJSON(raw)
		}
		if s, ok := src.(string); ok && addr.Type().Implements(textUnmarshalerType) {
			return addr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
		}
	}

	switch dst.Kind() {
	case reflect.Interface:
		if dst.NumMethod() != 0 {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		dst.Set(reflect.ValueOf(plain(src)))
		return nil
	case reflect.Struct:
		obj, ok := src.(map[string]any)
		if !ok {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		return c.decodeStruct(obj, dst)
	case reflect.Map:
		obj, ok := src.(map[string]any)
		if !ok {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		return c.decodeMap(obj, dst)
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			if s, ok := src.(string); ok {
				b, err := base64.StdEncoding.DecodeString(s)
				if err != nil {
					return fmt.Errorf("codec: %w", err)
				}
				dst.SetBytes(b)
				return nil
			}
		}
		list, ok := src.([]any)
		if !ok {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		out := reflect.MakeSlice(dst.Type(), len(list), len(list))
		for i, item := range list {
			if err := c.decodeValue(item, out.Index(i)); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	case reflect.Array:
		list, ok := src.([]any)
		if !ok {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		for i := 0; i < dst.Len(); i++ {
			if i >= len(list) {
				dst.Index(i).Set(reflect.Zero(dst.Type().Elem()))
				continue
			}
			if err := c.decodeValue(list[i], dst.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.String:
		s, ok := src.(string)
		if !ok {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		dst.SetString(s)
		return nil
	case reflect.Bool:
		b, ok := src.(bool)
		if !ok {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		dst.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := src.(json.Number)
		if !ok {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		i, err := strconv.ParseInt(string(n), 10, 64)
		if err != nil || dst.OverflowInt(i) {
			return &TypeError{Value: "number " + string(n), Type: dst.Type()}
		}
		dst.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, ok := src.(json.Number)
		if !ok {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		u, err := strconv.ParseUint(string(n), 10, 64)
		if err != nil || dst.OverflowUint(u) {
			return &TypeError{Value: "number " + string(n), Type: dst.Type()}
		}
		dst.SetUint(u)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := c.parseFloat(src)
		if err != nil {
			return &TypeError{Value: describe(src), Type: dst.Type()}
		}
		dst.SetFloat(f)
		return nil
	default:
		return &TypeError{Value: describe(src), Type: dst.Type()}
	}
}

func (c *Codec) decodeStruct(obj map[string]any, dst reflect.Value) error {
	fields := fieldsOf(dst.Type())
	for key, val := range obj {
		f, ok := matchField(fields, key, decodeKey(key, c.st.keyDecoding))
		if !ok {
			continue
		}
		fv := fieldByIndex(dst, f.index, true)
		if !fv.CanSet() {
			continue
		}
		if f.asString {
			if s, isStr := val.(string); isStr {
				val = stringOption(s, fv.Kind())
			}
		}
		if err := c.decodeValue(val, fv); err != nil {
			var te *TypeError
			if errors.As(err, &te) && te.Field == "" {
				te.Field = f.name
			}
			return err
		}
	}
	return nil
}

// matchField finds the field for an incoming key: the raw key first, then the
// key converted by the decoding strategy, both case-insensitively.
func matchField(fields []field, raw, converted string) (field, bool) {
	for _, candidate := range []string{raw, converted} {
		for _, f := range fields {
			if f.name == candidate {
				return f, true
			}
		}
		for _, f := range fields {
			if strings.EqualFold(f.name, candidate) {
				return f, true
			}
		}
	}
	return field{}, false
}

func (c *Codec) decodeMap(obj map[string]any, dst reflect.Value) error {
	t := dst.Type()
	if dst.IsNil() {
		dst.Set(reflect.MakeMapWithSize(t, len(obj)))
	}
	for k, v := range obj {
		key := reflect.New(t.Key()).Elem()
		if err := setMapKey(k, key); err != nil {
			return err
		}
		elem := reflect.New(t.Elem()).Elem()
		if err := c.decodeValue(v, elem); err != nil {
			return err
		}
		dst.SetMapIndex(key, elem)
	}
	return nil
}

func setMapKey(k string, key reflect.Value) error {
	if key.Kind() == reflect.String {
		key.SetString(k)
		return nil
	}
	if tu, ok := key.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return tu.UnmarshalText([]byte(k))
	}
	switch key.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return &TypeError{Value: "key " + k, Type: key.Type()}
		}
		key.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return &TypeError{Value: "key " + k, Type: key.Type()}
		}
		key.SetUint(u)
		return nil
	}
	return &TypeError{Value: "key " + k, Type: key.Type()}
}

func (c *Codec) parseFloat(src any) (float64, error) {
	switch v := src.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case string:
		if nf := c.st.nonFiniteR; nf != nil {
			switch v {
			case nf.PositiveInfinity:
				return math.Inf(1), nil
			case nf.NegativeInfinity:
				return math.Inf(-1), nil
			case nf.NaN:
				return math.NaN(), nil
			}
		}
	}
	return 0, fmt.Errorf("codec: not a number: %v", src)
}

func (c *Codec) parseDate(src any) (time.Time, error) {
	f := c.st.dateDecode
	switch v := src.(type) {
	case string:
		switch f.kind {
		case dateLayout:
			return time.Parse(f.layout, v)
		case dateISO8601Millis:
			if t, err := time.Parse(iso8601Millis, v); err == nil {
				return t, nil
			}
			return time.Parse(time.RFC3339Nano, v)
		case dateRFC3339:
			return time.Parse(time.RFC3339Nano, v)
		}
	case json.Number:
		switch f.kind {
		case dateUnixSeconds:
			secs, err := v.Float64()
			if err != nil {
				return time.Time{}, err
			}
			whole, frac := math.Modf(secs)
			return time.Unix(int64(whole), int64(math.Round(frac*1e9))), nil
		case dateUnixMillis:
			ms, err := v.Int64()
			if err != nil {
				return time.Time{}, err
			}
			return time.UnixMilli(ms), nil
		}
	}
	return time.Time{}, &TypeError{Value: describe(src), Type: timeType}
}

// plain converts json.Number leaves to float64, matching what encoding/json
// produces for interface{} targets.
func plain(src any) any {
	switch v := src.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return string(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// stringOption handles the ",string" tag option for scalar fields.
func stringOption(s string, kind reflect.Kind) any {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return json.Number(s)
	case reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}
