package firestore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/recon/internal/core/domain"
)

// wireValue is the REST encoding of a Firestore value.
type wireValue struct {
	NullValue      *string     `json:"nullValue,omitempty"`
	BooleanValue   *bool       `json:"booleanValue,omitempty"`
	IntegerValue   *string     `json:"integerValue,omitempty"`
	DoubleValue    *float64    `json:"doubleValue,omitempty"`
	TimestampValue *string     `json:"timestampValue,omitempty"`
	StringValue    *string     `json:"stringValue,omitempty"`
	BytesValue     *string     `json:"bytesValue,omitempty"`
	ReferenceValue *string     `json:"referenceValue,omitempty"`
	GeoPointValue  *wireLatLng `json:"geoPointValue,omitempty"`
	ArrayValue     *wireArray  `json:"arrayValue,omitempty"`
	MapValue       *wireMap    `json:"mapValue,omitempty"`
}

type wireLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type wireArray struct {
	Values []wireValue `json:"values,omitempty"`
}

type wireMap struct {
	Fields map[string]wireValue `json:"fields,omitempty"`
}

// wireDocument is the REST encoding of a Firestore document.
type wireDocument struct {
	Name   string               `json:"name"`
	Fields map[string]wireValue `json:"fields,omitempty"`
}

const nullValue = "NULL_VALUE"

// toWire re-encodes any JSON-serialisable value (such as a generated client
// type) as its wire form.
func toWire(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding firestore value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding firestore value: %w", err)
	}
	return nil
}

// decodeValue converts a wire value into the Go types used by domain.Record.
func decodeValue(v wireValue) any {
	switch {
	case v.NullValue != nil:
		return nil
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.IntegerValue != nil:
		n, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
		if err != nil {
			return *v.IntegerValue
		}
		return n
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.TimestampValue != nil:
		t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
		if err != nil {
			return *v.TimestampValue
		}
		return t.UTC()
	case v.StringValue != nil:
		return *v.StringValue
	case v.BytesValue != nil:
		return *v.BytesValue
	case v.ReferenceValue != nil:
		return *v.ReferenceValue
	case v.GeoPointValue != nil:
		return map[string]any{"latitude": v.GeoPointValue.Latitude, "longitude": v.GeoPointValue.Longitude}
	case v.ArrayValue != nil:
		out := make([]any, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			out = append(out, decodeValue(item))
		}
		return out
	case v.MapValue != nil:
		return decodeFields(v.MapValue.Fields)
	default:
		return nil
	}
}

func decodeFields(fields map[string]wireValue) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = decodeValue(v)
	}
	return out
}

// encodeValue converts a Go value into its wire form.
func encodeValue(v any) wireValue {
	switch t := v.(type) {
	case nil:
		s := nullValue
		return wireValue{NullValue: &s}
	case bool:
		return wireValue{BooleanValue: &t}
	case int:
		s := strconv.FormatInt(int64(t), 10)
		return wireValue{IntegerValue: &s}
	case int32:
		s := strconv.FormatInt(int64(t), 10)
		return wireValue{IntegerValue: &s}
	case int64:
		s := strconv.FormatInt(t, 10)
		return wireValue{IntegerValue: &s}
	case float32:
		f := float64(t)
		return wireValue{DoubleValue: &f}
	case float64:
		return wireValue{DoubleValue: &t}
	case time.Time:
		s := t.UTC().Format(time.RFC3339Nano)
		return wireValue{TimestampValue: &s}
	case string:
		return wireValue{StringValue: &t}
	case []any:
		arr := &wireArray{Values: make([]wireValue, 0, len(t))}
		for _, item := range t {
			arr.Values = append(arr.Values, encodeValue(item))
		}
		return wireValue{ArrayValue: arr}
	case map[string]any:
		return wireValue{MapValue: &wireMap{Fields: encodeFields(t)}}
	default:
		s := fmt.Sprintf("%v", t)
		return wireValue{StringValue: &s}
	}
}

func encodeFields(fields map[string]any) map[string]wireValue {
	out := make(map[string]wireValue, len(fields))
	for k, v := range fields {
		out[k] = encodeValue(v)
	}
	return out
}

// toRecord converts a wire document into a domain record. The tenant is
// read from the tenant_id field.
func toRecord(doc wireDocument) domain.Record {
	fields := decodeFields(doc.Fields)
	rec := domain.Record{ID: documentID(doc.Name), Fields: fields}
	if tenant, ok := fields[domain.FieldTenantID].(string); ok {
		rec.TenantID = tenant
	}
	return rec
}

// documentID returns the last segment of a document resource name.
func documentID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// fieldPaths returns the sorted keys of fields as Firestore field paths.
// Names that are not simple identifiers are quoted with backticks.
func fieldPaths(fields map[string]any) []string {
	paths := make([]string, 0, len(fields))
	for k := range fields {
		paths = append(paths, quoteFieldPath(k))
	}
	sort.Strings(paths)
	return paths
}

func quoteFieldPath(name string) string {
	simple := name != ""
	for i, r := range name {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isLetter && !(isDigit && i > 0) {
			simple = false
			break
		}
	}
	if simple {
		return name
	}
	escaped := strings.ReplaceAll(name, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "`", "\\`")
	return "`" + escaped + "`"
}
