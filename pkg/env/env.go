// Package env fills a struct from environment variables described by
// `env:"NAME[,required]"` and `env-default:"value"` field tags.
package env

import (
	"encoding"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	TagValue   = "env"
	TagDefault = "env-default"

	// slice items are comma separated
	listSeparator = ","
)

var (
	ErrRequired    = errors.New("environment variable is required but the value is not provided")
	ErrUnsupported = errors.New("unsupported field type")
)

// ParseError reports which variable could not be decoded.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("can't parse environment variable %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(name string) (string, bool)

var durationType = reflect.TypeOf(time.Duration(0))

// Read fills root from the process environment.
func Read(root interface{}) error {
	return ReadWith(os.LookupEnv, root)
}

func ReadWith(lookup LookupFunc, root interface{}) error {
	rootValue := reflect.ValueOf(root)
	if rootValue.Kind() != reflect.Ptr || rootValue.IsNil() {
		return fmt.Errorf("expected a non-nil pointer, got %T", root)
	}

	rootValue = rootValue.Elem()
	if rootValue.Kind() != reflect.Struct {
		return fmt.Errorf("unexpected type %v", rootValue.Kind())
	}
	return readStruct(lookup, rootValue)
}

func readStruct(lookup LookupFunc, structValue reflect.Value) error {
	structType := structValue.Type()
	for i := 0; i < structValue.NumField(); i++ {
		fieldType := structType.Field(i)
		fieldValue := structValue.Field(i)

		if !fieldType.IsExported() {
			continue
		}

		tag, hasTag := fieldType.Tag.Lookup(TagValue)
		if !hasTag {
			if nested, ok := nestedStruct(fieldValue); ok {
				if err := readStruct(lookup, nested); err != nil {
					return err
				}
			}
			continue
		}

		name, options := parseTag(tag)
		raw, found := lookup(name)
		if !found {
			def, hasDefault := fieldType.Tag.Lookup(TagDefault)
			switch {
			case options.Contains("required"):
				return &ParseError{Name: name, Err: ErrRequired}
			case !hasDefault:
				continue
			}
			raw = def
		}

		if err := parseValue(fieldValue, raw); err != nil {
			return &ParseError{Name: name, Err: err}
		}
	}
	return nil
}

// nestedStruct returns the struct a tagless field points to, allocating
// nil pointers on the way.
func nestedStruct(field reflect.Value) (reflect.Value, bool) {
	if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		field = field.Elem()
	}

	if field.Kind() != reflect.Struct || isLeaf(field) {
		return reflect.Value{}, false
	}
	return field, true
}

func isLeaf(field reflect.Value) bool {
	_, ok := field.Addr().Interface().(encoding.TextUnmarshaler)
	return ok
}

func parseValue(field reflect.Value, raw string) error {
	fieldType := field.Type()

	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(raw))
		}
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if fieldType == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}

		number, err := strconv.ParseInt(raw, 0, fieldType.Bits())
		if err != nil {
			return err
		}
		field.SetInt(number)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		number, err := strconv.ParseUint(raw, 0, fieldType.Bits())
		if err != nil {
			return err
		}
		field.SetUint(number)

	case reflect.Float32, reflect.Float64:
		number, err := strconv.ParseFloat(raw, fieldType.Bits())
		if err != nil {
			return err
		}
		field.SetFloat(number)

	case reflect.Slice:
		return parseSlice(field, raw)

	case reflect.Ptr:
		if field.IsNil() {
			field.Set(reflect.New(fieldType.Elem()))
		}
		return parseValue(field.Elem(), raw)

	default:
		return fmt.Errorf("%w %s", ErrUnsupported, field.Kind())
	}
	return nil
}

func parseSlice(field reflect.Value, raw string) error {
	var items []string
	if strings.TrimSpace(raw) != "" {
		items = strings.Split(raw, listSeparator)
	}

	slice := reflect.MakeSlice(field.Type(), len(items), len(items))
	for i, item := range items {
		if err := parseValue(slice.Index(i), strings.TrimSpace(item)); err != nil {
			return err
		}
	}
	field.Set(slice)
	return nil
}

type tagOptions string

func parseTag(tag string) (string, tagOptions) {
	tag, opt, _ := strings.Cut(tag, ",")
	return tag, tagOptions(opt)
}

func (o tagOptions) Contains(optionName string) bool {
	s := string(o)
	for s != "" {
		var name string
		name, s, _ = strings.Cut(s, ",")
		if name == optionName {
			return true
		}
	}
	return false
}
