package codec

import "time"

// Kind identifies the setting an Option controls. Merging option lists keeps
// at most one option per kind.
type Kind int

const (
	KindKeyEncoding Kind = iota
	KindKeyDecoding
	KindDateEncoding
	KindDateDecoding
	KindNonFiniteEncoding
	KindNonFiniteDecoding
)

func (k Kind) String() string {
	switch k {
	case KindKeyEncoding:
		return "key-encoding"
	case KindKeyDecoding:
		return "key-decoding"
	case KindDateEncoding:
		return "date-encoding"
	case KindDateDecoding:
		return "date-decoding"
	case KindNonFiniteEncoding:
		return "non-finite-encoding"
	case KindNonFiniteDecoding:
		return "non-finite-decoding"
	default:
		return "unknown"
	}
}

// KeyStrategy controls how struct field names map to object keys.
type KeyStrategy int

const (
	// KeysDefault uses the json tag name, or the Go field name.
	KeysDefault KeyStrategy = iota
	// KeysSnakeCase writes second_label and reads second_label into SecondLabel.
	KeysSnakeCase
	// KeysCamelCase writes secondLabel.
	KeysCamelCase
)

type dateKind int

const (
	dateRFC3339 dateKind = iota
	dateISO8601Millis
	dateUnixSeconds
	dateUnixMillis
	dateLayout
)

// DateFormat describes how time.Time values are written and read.
type DateFormat struct {
	kind   dateKind
	layout string
}

var (
	DateRFC3339       = DateFormat{kind: dateRFC3339}
	DateISO8601Millis = DateFormat{kind: dateISO8601Millis}
	DateUnixSeconds   = DateFormat{kind: dateUnixSeconds}
	DateUnixMillis    = DateFormat{kind: dateUnixMillis}
)

// DateLayout formats dates with a custom time layout.
func DateLayout(layout string) DateFormat {
	return DateFormat{kind: dateLayout, layout: layout}
}

const iso8601Millis = "2006-01-02T15:04:05.000Z07:00"

// NonFinite holds the string forms used for floats JSON cannot represent.
type NonFinite struct {
	PositiveInfinity string
	NegativeInfinity string
	NaN              string
}

// settings is the resolved form of an option list.
type settings struct {
	keyEncoding KeyStrategy
	keyDecoding KeyStrategy
	dateEncode  DateFormat
	dateDecode  DateFormat
	nonFiniteW  *NonFinite
	nonFiniteR  *NonFinite
}

// Option configures one aspect of a Codec.
type Option struct {
	kind  Kind
	apply func(*settings)
}

// Kind reports which setting the option controls.
func (o Option) Kind() Kind { return o.kind }

func KeyEncoding(s KeyStrategy) Option {
	return Option{kind: KindKeyEncoding, apply: func(st *settings) { st.keyEncoding = s }}
}

func KeyDecoding(s KeyStrategy) Option {
	return Option{kind: KindKeyDecoding, apply: func(st *settings) { st.keyDecoding = s }}
}

func DateEncoding(f DateFormat) Option {
	return Option{kind: KindDateEncoding, apply: func(st *settings) { st.dateEncode = f }}
}

func DateDecoding(f DateFormat) Option {
	return Option{kind: KindDateDecoding, apply: func(st *settings) { st.dateDecode = f }}
}

func NonFiniteEncoding(nf NonFinite) Option {
	return Option{kind: KindNonFiniteEncoding, apply: func(st *settings) { st.nonFiniteW = &nf }}
}

func NonFiniteDecoding(nf NonFinite) Option {
	return Option{kind: KindNonFiniteDecoding, apply: func(st *settings) { st.nonFiniteR = &nf }}
}

// Merge combines per-call overrides with configuration defaults. The result
// holds one option per kind; overrides win over defaults, and within one list
// the later option of a kind wins.
func Merge(overrides, defaults []Option) []Option {
	merged := make([]Option, 0, len(overrides)+len(defaults))
	index := make(map[Kind]int, len(overrides)+len(defaults))

	for _, o := range overrides {
		if o.apply == nil {
			continue
		}
		if i, ok := index[o.kind]; ok {
			merged[i] = o
			continue
		}
		index[o.kind] = len(merged)
		merged = append(merged, o)
	}
	for _, o := range defaults {
		if o.apply == nil {
			continue
		}
		if _, ok := index[o.kind]; ok {
			continue
		}
		index[o.kind] = len(merged)
		merged = append(merged, o)
	}
	return merged
}

func resolve(opts []Option) settings {
	st := settings{dateEncode: DateRFC3339, dateDecode: DateRFC3339}
	for _, o := range opts {
		if o.apply != nil {
			o.apply(&st)
		}
	}
	return st
}

func (f DateFormat) format(t time.Time) any {
	switch f.kind {
	case dateISO8601Millis:
		return t.Format(iso8601Millis)
	case dateUnixSeconds:
		if t.Nanosecond() == 0 {
			return t.Unix()
		}
		return float64(t.UnixNano()) / 1e9
	case dateUnixMillis:
		return t.UnixMilli()
	case dateLayout:
		return t.Format(f.layout)
	default:
		return t.Format(time.RFC3339Nano)
	}
}
