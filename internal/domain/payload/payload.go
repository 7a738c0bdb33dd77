package payload

import "encoding/json"

// Payload is the schema-less key-value document attached to steps and progress
// records. Callers supply any shape; the engine only ever reads a handful of
// well-known keys through the typed getters below.
type Payload map[string]interface{}

// FromJSON parses a JSON document into a Payload. Empty input yields an empty
// payload rather than an error.
func FromJSON(raw string) (Payload, error) {
	if raw == "" {
		return Payload{}, nil
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// JSON serializes the payload. A nil or empty payload serializes to "".
func (p Payload) JSON() (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetString retrieves a string value, or "" when absent or of another type.
func (p Payload) GetString(key string) string {
	if val, ok := p[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetFloat retrieves a numeric value as float64.
func (p Payload) GetFloat(key string) float64 {
	if val, ok := p[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case int:
			return float64(v)
		}
	}
	return 0.0
}

// GetBool retrieves a bool value.
func (p Payload) GetBool(key string) bool {
	if val, ok := p[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

// GetStringSlice retrieves a list of strings, tolerating the []interface{}
// shape json.Unmarshal produces. Non-string elements are dropped.
func (p Payload) GetStringSlice(key string) []string {
	val, ok := p[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Has reports whether the key is present at all.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}
