package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FieldType is the declared type of a schema field.
type FieldType int

const (
	StringType FieldType = iota
	IntegerType
	FloatType
	BooleanType
	// JSONType accepts any value, including nested objects and arrays.
	JSONType
)

// ParseFieldType resolves a type name (and its common aliases) to a FieldType.
func ParseFieldType(raw string) (FieldType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "string", "str", "text":
		return StringType, true
	case "integer", "int":
		return IntegerType, true
	case "float", "double", "number":
		return FloatType, true
	case "boolean", "bool":
		return BooleanType, true
	case "json", "object":
		return JSONType, true
	}
	return StringType, false
}

func (t FieldType) String() string {
	switch t {
	case StringType:
		return "string"
	case IntegerType:
		return "integer"
	case FloatType:
		return "float"
	case BooleanType:
		return "boolean"
	case JSONType:
		return "json"
	}
	return "unknown"
}

// Matches reports whether a normalized value already satisfies the type.
func (t FieldType) Matches(value any) bool {
	switch t {
	case StringType:
		_, ok := value.(string)
		return ok
	case IntegerType:
		_, ok := value.(int64)
		return ok
	case FloatType:
		switch value.(type) {
		case int64, float64:
			return true
		}
		return false
	case BooleanType:
		_, ok := value.(bool)
		return ok
	case JSONType:
		return true
	}
	return false
}

// Coerce attempts a lossless conversion of value to the type. Strings parse
// into numbers and booleans, scalars render into strings.
func (t FieldType) Coerce(value any) (any, bool) {
	switch t {
	case IntegerType:
		if s, ok := value.(string); ok {
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return n, true
			}
		}
	case FloatType:
		if s, ok := value.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f, true
			}
		}
	case BooleanType:
		if s, ok := value.(string); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "1", "yes":
				return true, true
			case "false", "0", "no":
				return false, true
			}
		}
	case StringType:
		switch v := value.(type) {
		case int64:
			return strconv.FormatInt(v, 10), true
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), true
		case bool:
			return strconv.FormatBool(v), true
		}
	}
	return nil, false
}

// FieldSpec describes one field of a table schema.
type FieldSpec struct {
	Type     FieldType `json:"type"`
	Required bool      `json:"required,omitempty"`
	Unique   bool      `json:"unique,omitempty"`
}

// Schema is the stored description of a table. Flexible tables accept fields
// beyond those declared; strict tables reject them. NextID is the surrogate
// id handed to the next inserted row.
type Schema struct {
	Name     string               `json:"name"`
	Fields   map[string]FieldSpec `json:"fields"`
	Flexible bool                 `json:"flexible,omitempty"`
	NextID   uint64               `json:"nextId"`
}

// Row is a stored record with its surrogate id.
type Row struct {
	ID   uint64
	Data map[string]any
}

// Edge is one directed, labeled relation between two rows.
type Edge struct {
	FromTable string `json:"fromTable"`
	FromID    uint64 `json:"fromId"`
	Label     string `json:"label"`
	ToTable   string `json:"toTable"`
	ToID      uint64 `json:"toId"`
}

// Identity names the author recorded on every committed mutation.
type Identity struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// DecodeDocument unmarshals a JSON object keeping integers as int64 rather
// than float64, so stored rows compare equal to the values they were
// inserted with.
func DecodeDocument(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return NormalizeMap(doc), nil
}
