package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cuemby/vaultstore/pkg/vaulterr"
)

// TimestampLayout is the single sortable timestamp format used
// throughout the Store, for revision timestamps and filename encoding.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// coreMetadataFields are present on every stored object regardless of
// its ancestors.
var coreMetadataFields = []string{"id", "revisionId", "timestamp", "author"}

// internalFields are written into every payload by the collection
// engine for tamper detection (I2) and are never part of a model's
// public shape.
var internalFields = []string{"_contextCollectionNames", "_contextIds", "_collectionName"}

var validate = validator.New()

// ModelDefinition describes one model: its collection, mutability,
// indexed fields, structural schema, and admitted children.
type ModelDefinition struct {
	Name           string
	CollectionName string
	IsMutable      bool
	// Indexes is an ordered list of field paths (dot-free components,
	// e.g. {"clientName", "first"}) used to compute object directory
	// names; order is significant and fixed for the model's lifetime.
	Indexes [][]string
	// Schema is a pointer to a zero-value instance of the model's
	// business-field struct, used only as a type token for decoding
	// and validation; its own value is never read.
	Schema   interface{}
	Children []*ModelDefinition
}

// MetadataFieldNames returns every metadata field name a stored object
// of this model carries, given its chain of ancestor model names
// (top-level first).
func MetadataFieldNames(ancestorNames []string) []string {
	names := make([]string, 0, len(coreMetadataFields)+len(ancestorNames))
	names = append(names, coreMetadataFields...)
	for _, a := range ancestorNames {
		names = append(names, a+"Id")
	}
	return names
}

// RejectIfMetadataPresent returns a ValidationError if obj already
// contains any engine-stamped metadata field key (id, revisionId,
// timestamp, author), per create()'s precondition that callers never
// supply those themselves. <ancestor>Id fields are exempt: §4.6 has the
// engine extract contextualIds from the object's own <ancestor>Id
// fields, so a caller creating a child object is expected to supply
// them (see AncestorIDsFromObj).
func RejectIfMetadataPresent(modelName string, obj map[string]interface{}, ancestorNames []string) error {
	for _, f := range coreMetadataFields {
		if _, ok := obj[f]; ok {
			return &vaulterr.ValidationError{
				Model: modelName,
				Err:   fmt.Errorf("object must not supply metadata field %q", f),
			}
		}
	}
	return nil
}

// AncestorIDsFromObj extracts an object's <ancestor>Id fields, in
// ancestorNames order (top-level first), for callers that supply
// ancestor linkage directly on the object (spec.md §4.6's "extract
// contextualIds from the object's <ancestor>Id fields") rather than as
// a separate contextualIds argument.
func AncestorIDsFromObj(ancestorNames []string, obj map[string]interface{}) []string {
	ids := make([]string, len(ancestorNames))
	for i, name := range ancestorNames {
		s, _ := obj[name+"Id"].(string)
		ids[i] = s
	}
	return ids
}

// StampMetadata sets the metadata fields on obj in place and returns
// obj for chaining. ancestorIDs maps ancestor model name to that
// ancestor's object id, for every ancestor in the object's context.
func StampMetadata(obj map[string]interface{}, id, revisionID string, timestamp time.Time, author string, ancestorIDs map[string]string) map[string]interface{} {
	obj["id"] = id
	obj["revisionId"] = revisionID
	obj["timestamp"] = timestamp.UTC().Format(TimestampLayout)
	obj["author"] = author
	for name, ancestorID := range ancestorIDs {
		obj[name+"Id"] = ancestorID
	}
	return obj
}

// ValidateMetadata checks that every expected metadata field is present
// and non-empty. This is the "augmentation" half of spec-level schema
// validation: the fields the engine itself stamps on, checked
// independently of the model's own business-field struct.
func ValidateMetadata(modelName string, obj map[string]interface{}, ancestorNames []string) error {
	for _, f := range MetadataFieldNames(ancestorNames) {
		v, ok := obj[f]
		if !ok {
			return &vaulterr.ValidationError{Model: modelName, Err: fmt.Errorf("missing metadata field %q", f)}
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return &vaulterr.ValidationError{Model: modelName, Err: fmt.Errorf("metadata field %q must be a non-empty string", f)}
		}
	}
	ts, _ := obj["timestamp"].(string)
	if _, err := time.Parse(TimestampLayout, ts); err != nil {
		return &vaulterr.ValidationError{Model: modelName, Err: fmt.Errorf("timestamp field does not parse: %w", err)}
	}
	return nil
}

// Validate strips metadata and internal tamper-detection fields from
// obj, then decodes and validates the remainder against def.Schema:
// unknown business fields are rejected, optional fields are honored via
// `validate:"omitempty"`, and struct-tag rules run via
// go-playground/validator.
func Validate(def *ModelDefinition, obj map[string]interface{}, ancestorNames []string) error {
	domain := make(map[string]interface{}, len(obj))
	skip := make(map[string]bool)
	for _, f := range MetadataFieldNames(ancestorNames) {
		skip[f] = true
	}
	for _, f := range internalFields {
		skip[f] = true
	}
	for k, v := range obj {
		if skip[k] {
			continue
		}
		domain[k] = v
	}

	raw, err := json.Marshal(domain)
	if err != nil {
		return &vaulterr.ValidationError{Model: def.Name, Err: err}
	}

	target := reflect.New(reflect.TypeOf(def.Schema).Elem()).Interface()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return &vaulterr.ValidationError{Model: def.Name, Err: err}
	}

	if err := validate.Struct(target); err != nil {
		return &vaulterr.ValidationError{Model: def.Name, Err: err}
	}
	return nil
}

// IndexValues extracts this model's declared indexed field values from
// obj, in declared order, as UTF-8 strings suitable for the filename
// codec. A missing indexed field yields the empty string rather than an
// error: the engine's directory-name encoding tolerates optional
// indexed fields by treating absence as an empty component.
func IndexValues(def *ModelDefinition, obj map[string]interface{}) []string {
	values := make([]string, len(def.Indexes))
	for i, path := range def.Indexes {
		values[i] = lookupPath(obj, path)
	}
	return values
}

func lookupPath(obj map[string]interface{}, path []string) string {
	var cur interface{} = obj
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return ""
		}
		cur, ok = m[p]
		if !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}
