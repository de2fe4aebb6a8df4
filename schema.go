package starapi

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// schemaBuilder derives JSON schemas from Go types. Named structs land in the
// components section and are referenced; everything else is inlined.
type schemaBuilder struct {
	schemas  openapi3.Schemas
	building map[reflect.Type]bool
}

func newSchemaBuilder() *schemaBuilder {
	return &schemaBuilder{
		schemas:  openapi3.Schemas{},
		building: map[reflect.Type]bool{},
	}
}

func (b *schemaBuilder) refFor(t reflect.Type) *openapi3.SchemaRef {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		s := openapi3.NewStringSchema()
		s.Format = "date-time"
		return openapi3.NewSchemaRef("", s)
	case uuidType:
		s := openapi3.NewStringSchema()
		s.Format = "uuid"
		return openapi3.NewSchemaRef("", s)
	}

	switch t.Kind() {
	case reflect.Struct:
		if t.Name() == "" {
			return openapi3.NewSchemaRef("", b.structSchema(t))
		}
		name := t.Name()
		if _, ok := b.schemas[name]; !ok && !b.building[t] {
			b.building[t] = true
			b.schemas[name] = openapi3.NewSchemaRef("", b.structSchema(t))
			delete(b.building, t)
		}
		return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
	case reflect.String:
		return openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	case reflect.Bool:
		return openapi3.NewSchemaRef("", openapi3.NewBoolSchema())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return openapi3.NewSchemaRef("", openapi3.NewIntegerSchema())
	case reflect.Int64, reflect.Uint64:
		s := openapi3.NewIntegerSchema()
		s.Format = "int64"
		return openapi3.NewSchemaRef("", s)
	case reflect.Float32, reflect.Float64:
		return openapi3.NewSchemaRef("", openapi3.NewFloat64Schema())
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			s := openapi3.NewStringSchema()
			s.Format = "byte"
			return openapi3.NewSchemaRef("", s)
		}
		arr := openapi3.NewArraySchema()
		arr.Items = b.refFor(t.Elem())
		return openapi3.NewSchemaRef("", arr)
	case reflect.Map:
		s := openapi3.NewObjectSchema()
		s.AdditionalProperties = openapi3.AdditionalProperties{Schema: b.refFor(t.Elem())}
		return openapi3.NewSchemaRef("", s)
	default:
		// Interfaces and anything else without a concrete shape.
		return openapi3.NewSchemaRef("", openapi3.NewSchema())
	}
}

func (b *schemaBuilder) structSchema(t reflect.Type) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Properties = openapi3.Schemas{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Type != timeType && f.Tag.Get("json") == "" {
			embedded := b.structSchema(f.Type)
			for name, ref := range embedded.Properties {
				s.Properties[name] = ref
			}
			s.Required = append(s.Required, embedded.Required...)
			continue
		}
		name, omitempty := jsonFieldName(f)
		if name == "-" {
			continue
		}
		s.Properties[name] = b.refFor(f.Type)
		if !omitempty {
			s.Required = append(s.Required, name)
		}
	}
	sort.Strings(s.Required)
	return s
}

func jsonFieldName(f reflect.StructField) (name string, omitempty bool) {
	name = f.Name
	tag := f.Tag.Get("json")
	if tag == "" {
		return name, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty
}
