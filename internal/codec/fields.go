package codec

import (
	"reflect"
	"strings"
	"sync"
)

const ptrKind = reflect.Pointer

type field struct {
	name      string // tag name or Go field name, before strategies apply
	index     []int
	omitEmpty bool
	asString  bool
}

var fieldCache sync.Map // map[reflect.Type][]field

func valueOf(v any) reflect.Value {
	return reflect.ValueOf(v)
}

// fieldsOf lists the exported, serializable fields of a struct type,
// promoting fields of untagged embedded structs the way encoding/json does.
func fieldsOf(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}

	var out []field
	seen := make(map[string]int)
	var walk func(t reflect.Type, index []int, depth int)
	walk = func(t reflect.Type, index []int, depth int) {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			tag := sf.Tag.Get("json")
			if tag == "-" {
				continue
			}
			name, opts, _ := strings.Cut(tag, ",")

			idx := make([]int, len(index)+1)
			copy(idx, index)
			idx[len(index)] = i

			if sf.Anonymous && name == "" {
				ft := sf.Type
				if ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct {
					walk(ft, idx, depth+1)
					continue
				}
			}
			if !sf.IsExported() {
				continue
			}
			if name == "" {
				name = sf.Name
			}

			f := field{
				name:      name,
				index:     idx,
				omitEmpty: strings.Contains(opts, "omitempty"),
				asString:  strings.Contains(opts, "string"),
			}
			// Shallower fields shadow promoted ones with the same name.
			if prev, ok := seen[name]; ok {
				if len(out[prev].index) > len(idx) {
					out[prev] = f
				}
				continue
			}
			seen[name] = len(out)
			out = append(out, f)
		}
	}
	walk(t, nil, 0)

	fieldCache.Store(t, out)
	return out
}

// fieldByIndex walks index from v. When alloc is set, nil embedded pointers
// are allocated; otherwise a nil pointer yields an invalid Value.
func fieldByIndex(v reflect.Value, index []int, alloc bool) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !alloc {
					return reflect.Value{}
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
