package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

type defaultKeySerializer struct{}

// NewDefaultKeySerializer returns the reflection based serializer. Maps are written
// with sorted keys, so two criteria maps with the same entries share a key whatever
// order they were built in. Strings are quoted and other scalars carry their type,
// so "1" and 1 never share a key and separators inside values cannot merge entries.
// Functions are identified by pointer, which is only stable within one process.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (s defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, serializeValue(reflect.ValueOf(arg)))
	}
	return strings.Join(parts, KeySeparator)
}

func serializeValue(rv reflect.Value) string {
	if !rv.IsValid() {
		return "nil"
	}

	switch rv.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return "func:nil"
		}
		return fmt.Sprintf("func:%#x", rv.Pointer())
	case reflect.Chan:
		return fmt.Sprintf("chan:%#x", rv.Pointer())
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return serializeValue(rv.Elem())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return "slice" + serializeList(rv)
	case reflect.Array:
		return "array" + serializeList(rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return serializeMap(rv)
	case reflect.Struct:
		return serializeStruct(rv)
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Bool:
		return tagged(rv, strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return tagged(rv, strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return tagged(rv, strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return tagged(rv, fmt.Sprintf("%v", rv.Interface()))
	}

	if rv.CanInterface() {
		if data, err := json.Marshal(rv.Interface()); err == nil {
			return "json:" + string(data)
		}
	}
	return "fallback:" + rv.Type().String()
}

// tagged writes a scalar as type(value).
func tagged(rv reflect.Value, value string) string {
	return rv.Type().String() + "(" + value + ")"
}

func serializeList(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = serializeValue(rv.Index(i))
	}
	return fmt.Sprintf("[%d]:{%s}", len(parts), strings.Join(parts, ","))
}

func serializeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, serializeValue(iter.Key())+"="+serializeValue(iter.Value()))
	}
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

func serializeStruct(rv reflect.Value) string {
	rt := rv.Type()
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+serializeValue(rv.Field(i)))
	}
	return "struct:{" + strings.Join(parts, ",") + "}"
}

type hashedKeySerializer struct {
	inner KeySerializer
}

// NewHashedKeySerializer keeps the method name readable and replaces the serialized
// arguments with their xxhash digest, bounding key length for large criteria.
func NewHashedKeySerializer(inner KeySerializer) KeySerializer {
	return hashedKeySerializer{inner: inner}
}

func (s hashedKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}
	full := s.inner.SerializeKey(method, args...)
	return method + KeySeparator + strconv.FormatUint(xxhash.Sum64String(full), 16)
}
