// Package extract pulls token-usage counts out of heterogeneous provider
// response shapes. Extraction is an ordered list of shape matchers, each a
// pure predicate+extractor pair tried in sequence; adding a provider shape
// means appending a matcher, not touching the span lifecycle engine.
package extract

import "reflect"

// Usage holds token counts recovered from a response. Presence flags are
// explicit: a count that was not found is never reported as zero.
type Usage struct {
	Prompt        int64
	Completion    int64
	Total         int64
	HasPrompt     bool
	HasCompletion bool
	HasTotal      bool
}

func (u Usage) any() bool { return u.HasPrompt || u.HasCompletion || u.HasTotal }

// Matcher is one response shape: Extract returns (usage, true) when the shape
// matches and at least one count was found.
type Matcher struct {
	Name    string
	Extract func(v any) (Usage, bool)
}

// Matchers returns the default matcher order:
//
//  1. a usage-shaped field with prompt/completion/total sub-fields
//     (the common OpenAI-style completion shape),
//  2. a metadata field containing a nested usage object with input/output
//     counts (the alternate provider shape).
//
// When no matcher fires, usage attributes are omitted entirely.
func Matchers() []Matcher {
	return []Matcher{
		{Name: "usage", Extract: fromUsageField},
		{Name: "metadata.usage", Extract: fromMetadataField},
	}
}

// FromResponse runs the default matchers against v in order and returns the
// first match. When both prompt and completion counts are present but total
// is not, total is derived as their sum.
func FromResponse(v any) (Usage, bool) {
	if v == nil {
		return Usage{}, false
	}
	for _, m := range Matchers() {
		if u, ok := m.Extract(v); ok {
			if u.HasPrompt && u.HasCompletion && !u.HasTotal {
				u.Total = u.Prompt + u.Completion
				u.HasTotal = true
			}
			return u, true
		}
	}
	return Usage{}, false
}

func fromUsageField(v any) (Usage, bool) {
	container, ok := field(v, "Usage", "usage")
	if !ok {
		return Usage{}, false
	}
	var u Usage
	u.Prompt, u.HasPrompt = intField(container, "PromptTokens", "prompt_tokens")
	u.Completion, u.HasCompletion = intField(container, "CompletionTokens", "completion_tokens")
	u.Total, u.HasTotal = intField(container, "TotalTokens", "total_tokens")
	return u, u.any()
}

func fromMetadataField(v any) (Usage, bool) {
	meta, ok := field(v, "Metadata", "metadata")
	if !ok {
		return Usage{}, false
	}
	container, ok := field(meta, "Usage", "usage")
	if !ok {
		return Usage{}, false
	}
	var u Usage
	u.Prompt, u.HasPrompt = intField(container, "InputTokens", "input_tokens")
	u.Completion, u.HasCompletion = intField(container, "OutputTokens", "output_tokens")
	u.Total, u.HasTotal = intField(container, "TotalTokens", "total_tokens")
	return u, u.any()
}

// field looks up a sub-value by struct field name or map key, following
// pointers and interfaces. The first name that resolves wins.
func field(v any, names ...string) (any, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		for _, name := range names {
			f := rv.FieldByName(name)
			if f.IsValid() && f.CanInterface() {
				if f.Kind() == reflect.Pointer && f.IsNil() {
					continue
				}
				return f.Interface(), true
			}
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		for _, name := range names {
			mv := rv.MapIndex(reflect.ValueOf(name))
			if mv.IsValid() {
				return mv.Interface(), true
			}
		}
	}
	return nil, false
}

// intField resolves a sub-value like field and coerces it to int64. JSON
// decoding yields float64 counts, so integral floats are accepted.
func intField(v any, names ...string) (int64, bool) {
	raw, ok := field(v, names...)
	if !ok {
		return 0, false
	}
	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return 0, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == float64(int64(f)) {
			return int64(f), true
		}
	}
	return 0, false
}
