package en1545

import (
	"fmt"
	"reflect"
	"strings"
)

// Unmarshaler allows custom types to build themselves from a parsed record.
type Unmarshaler interface {
	UnmarshalEN1545(p Parsed) error
}

// Unmarshal copies decoded values into a struct using `en1545` field tags.
//
//	type event struct {
//		Code  int  `en1545:"EventCode"`
//		Place int  `en1545:"Place,optional"`
//		Flag  bool `en1545:"Autoload"`
//	}
//
// A tagged field whose name was not decoded fails the call unless the tag
// carries the optional option. Untagged embedded structs are filled in place.
func Unmarshal(p Parsed, target interface{}) error {
	if u, ok := target.(Unmarshaler); ok {
		return u.UnmarshalEN1545(p)
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must point to a struct, got %s", v.Kind())
	}
	return unmarshalStruct(p, v)
}

func unmarshalStruct(p Parsed, v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		tagConfig := fieldType.Tag.Get("en1545")

		if tagConfig == "" {
			if fieldType.Anonymous && field.Kind() == reflect.Struct {
				if err := unmarshalStruct(p, field); err != nil {
					return err
				}
			}
			continue
		}
		if tagConfig == "-" {
			continue
		}

		name, optional := parseTag(tagConfig)
		val, ok := p[name]
		if !ok {
			if optional {
				continue
			}
			return fmt.Errorf("%w: %q (struct field %s)", ErrMissingField, name, fieldType.Name)
		}

		if err := setValue(field, val); err != nil {
			return fmt.Errorf("struct field %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

func parseTag(tag string) (name string, optional bool) {
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "optional" {
			optional = true
		}
	}
	return parts[0], optional
}

func setValue(field reflect.Value, val int) error {
	if !field.CanSet() {
		return fmt.Errorf("cannot set unexported field")
	}

	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.OverflowInt(int64(val)) {
			return fmt.Errorf("%w: %d into %s", ErrOverflow, val, field.Type())
		}
		field.SetInt(int64(val))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if val < 0 || field.OverflowUint(uint64(val)) {
			return fmt.Errorf("%w: %d into %s", ErrOverflow, val, field.Type())
		}
		field.SetUint(uint64(val))
	case reflect.Bool:
		field.SetBool(val != 0)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
