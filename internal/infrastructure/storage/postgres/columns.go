package postgres

import (
	"reflect"
	"sync"
)

// Columns returns the column names of T's "db" tags in field order.
// Embedded structs are flattened.
//
//	cols := Columns[siteledger.Site]()
//	// ["id", "name", "location", ...]
func Columns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	meta := metadataOf(t)
	cols := make([]string, 0, len(meta.fields))
	for _, f := range meta.fields {
		cols = append(cols, f.column)
	}
	for _, i := range meta.embedded {
		cols = append(cols, columnsOf(derefType(t).Field(i).Type)...)
	}
	return cols
}

type fieldInfo struct {
	index  int
	column string
}

type typeMetadata struct {
	fields   []fieldInfo
	embedded []int
}

var typeCache sync.Map // map[reflect.Type]*typeMetadata

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// metadataOf computes the tagged fields of t once and caches them.
func metadataOf(t reflect.Type) *typeMetadata {
	t = derefType(t)
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous {
				meta.embedded = append(meta.embedded, i)
				continue
			}
			tag := field.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			meta.fields = append(meta.fields, fieldInfo{index: i, column: tag})
		}
	}
	typeCache.Store(t, meta)
	return meta
}

// Row converts a struct to column/value pairs using "db" tags, for
// squirrel's SetMap.
func Row(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataOf(rv.Type())
	res := make(map[string]any, len(meta.fields))
	for _, f := range meta.fields {
		res[f.column] = rv.Field(f.index).Interface()
	}
	for _, i := range meta.embedded {
		for k, val := range Row(rv.Field(i).Interface()) {
			res[k] = val
		}
	}
	return res
}
