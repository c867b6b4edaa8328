package codec

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var (
	timeType          = reflect.TypeOf(time.Time{})
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

func (c *Codec) encodeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.CanInterface() && v.Type() == timeType {
		return c.st.dateEncode.format(v.Interface().(time.Time)), nil
	}
	if v.CanInterface() && v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface {
		if v.Type().Implements(jsonMarshalerType) {
			return c.encodeMarshaler(v.Interface().(json.Marshaler))
		}
		if v.Type().Implements(textMarshalerType) {
			text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
			if err != nil {
				return nil, fmt.Errorf("codec: %s: %w", v.Type(), err)
			}
			return string(text), nil
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return c.encodeValue(v.Elem())
	case reflect.Struct:
		return c.encodeStruct(v)
	case reflect.Map:
		return c.encodeMap(v)
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}
		return c.encodeList(v)
	case reflect.Array:
		return c.encodeList(v)
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return c.encodeFloat(v.Float())
	default:
		return nil, fmt.Errorf("codec: unsupported type %s", v.Type())
	}
}

func (c *Codec) encodeMarshaler(m json.Marshaler) (any, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("codec: %T: %w", m, err)
	}
	var tree any
	if err := reader.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("codec: %T produced invalid JSON: %w", m, err)
	}
	return tree, nil
}

func (c *Codec) encodeFloat(f float64) (any, error) {
	if !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f, nil
	}
	nf := c.st.nonFiniteW
	if nf == nil {
		return nil, fmt.Errorf("codec: unsupported float value %s", strconv.FormatFloat(f, 'g', -1, 64))
	}
	switch {
	case math.IsInf(f, 1):
		return nf.PositiveInfinity, nil
	case math.IsInf(f, -1):
		return nf.NegativeInfinity, nil
	default:
		return nf.NaN, nil
	}
}

func (c *Codec) encodeStruct(v reflect.Value) (any, error) {
	fields := fieldsOf(v.Type())
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		fv := fieldByIndex(v, f.index, false)
		if !fv.IsValid() {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		enc, err := c.encodeValue(fv)
		if err != nil {
			return nil, err
		}
		if f.asString && enc != nil {
			enc = fmt.Sprint(enc)
		}
		out[encodeKey(f.name, c.st.keyEncoding)] = enc
	}
	return out, nil
}

func (c *Codec) encodeMap(v reflect.Value) (any, error) {
	if v.IsNil() {
		return nil, nil
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKeyString(iter.Key())
		if err != nil {
			return nil, err
		}
		enc, err := c.encodeValue(iter.Value())
		if err != nil {
			return nil, err
		}
		out[key] = enc
	}
	return out, nil
}

func mapKeyString(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if !k.CanInterface() {
		return "", fmt.Errorf("codec: unsupported map key type %s", k.Type())
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		text, err := tm.MarshalText()
		return string(text), err
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("codec: unsupported map key type %s", k.Type())
}

func (c *Codec) encodeList(v reflect.Value) (any, error) {
	out := make([]any, v.Len())
	for i := range out {
		enc, err := c.encodeValue(v.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}
