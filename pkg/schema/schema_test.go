package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clientNamePayload struct {
	First  string `json:"first" validate:"required"`
	Middle string `json:"middle" validate:"omitempty"`
	Last   string `json:"last" validate:"required"`
}

type clientFilePayload struct {
	ClientName clientNamePayload `json:"clientName" validate:"required"`
	RecordID   string            `json:"recordId" validate:"required"`
}

type progNotePayload struct {
	Type     string `json:"type" validate:"required"`
	Status   string `json:"status" validate:"required"`
	Notes    string `json:"notes" validate:"omitempty"`
	Backdate string `json:"backdate" validate:"omitempty"`
}

var clientFileDef = &ModelDefinition{
	Name:           "clientFile",
	CollectionName: "clientFile",
	IsMutable:      true,
	Indexes:        [][]string{{"clientName", "first"}, {"clientName", "last"}, {"recordId"}},
	Schema:         &clientFilePayload{},
}

var progNoteDef = &ModelDefinition{
	Name:           "progNote",
	CollectionName: "progNotes",
	IsMutable:      true,
	Indexes:        [][]string{{"type"}, {"status"}},
	Schema:         &progNotePayload{},
}

func TestMetadataFieldNames(t *testing.T) {
	require.Equal(t, []string{"id", "revisionId", "timestamp", "author"}, MetadataFieldNames(nil))
	require.Equal(t, []string{"id", "revisionId", "timestamp", "author", "clientFileId"}, MetadataFieldNames([]string{"clientFile"}))
}

func TestRejectIfMetadataPresent(t *testing.T) {
	obj := map[string]interface{}{"recordId": "R-1"}
	require.NoError(t, RejectIfMetadataPresent("clientFile", obj, nil))

	obj["id"] = "already-set"
	require.Error(t, RejectIfMetadataPresent("clientFile", obj, nil))
}

func TestRejectIfMetadataPresentAllowsAncestorIDField(t *testing.T) {
	obj := map[string]interface{}{"type": "basic", "status": "default", "clientFileId": "parent-id"}
	require.NoError(t, RejectIfMetadataPresent("progNote", obj, []string{"clientFile"}))
}

func TestAncestorIDsFromObj(t *testing.T) {
	obj := map[string]interface{}{"clientFileId": "parent-id", "type": "basic"}
	require.Equal(t, []string{"parent-id"}, AncestorIDsFromObj([]string{"clientFile"}, obj))
	require.Equal(t, []string{""}, AncestorIDsFromObj([]string{"otherModel"}, obj))
}

func TestStampMetadataThenValidateMetadata(t *testing.T) {
	obj := map[string]interface{}{"recordId": "R-1"}
	StampMetadata(obj, "obj-id", "rev-id", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "admin", map[string]string{"clientFile": "parent-id"})

	require.NoError(t, ValidateMetadata("progNote", obj, []string{"clientFile"}))
	require.Equal(t, "parent-id", obj["clientFileId"])
}

func TestValidateMetadataMissingField(t *testing.T) {
	obj := map[string]interface{}{"id": "x", "revisionId": "y", "timestamp": "2024-01-02T03:04:05.000Z"}
	err := ValidateMetadata("clientFile", obj, nil)
	require.Error(t, err)
}

func TestValidateMetadataBadTimestamp(t *testing.T) {
	obj := map[string]interface{}{"id": "x", "revisionId": "y", "timestamp": "not-a-date", "author": "admin"}
	err := ValidateMetadata("clientFile", obj, nil)
	require.Error(t, err)
}

func TestValidateDomainFields(t *testing.T) {
	obj := map[string]interface{}{
		"clientName": map[string]interface{}{"first": "Ada", "middle": "", "last": "Lovelace"},
		"recordId":   "R-1",
		"id":         "x",
		"revisionId": "y",
		"timestamp":  "2024-01-02T03:04:05.000Z",
		"author":     "admin",
	}
	require.NoError(t, Validate(clientFileDef, obj, nil))
}

func TestValidateRejectsUnknownField(t *testing.T) {
	obj := map[string]interface{}{
		"clientName": map[string]interface{}{"first": "Ada", "last": "Lovelace"},
		"recordId":   "R-1",
		"unexpected": "field",
	}
	require.Error(t, Validate(clientFileDef, obj, nil))
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	obj := map[string]interface{}{
		"clientName": map[string]interface{}{"first": "Ada"},
		"recordId":   "R-1",
	}
	require.Error(t, Validate(clientFileDef, obj, nil))
}

func TestValidateProgNoteMissingStatus(t *testing.T) {
	obj := map[string]interface{}{
		"type":     "basic",
		"notes":    "hello",
		"backdate": "",
	}
	err := Validate(progNoteDef, obj, []string{"clientFile"})
	require.Error(t, err)
}

func TestIndexValues(t *testing.T) {
	obj := map[string]interface{}{
		"clientName": map[string]interface{}{"first": "Ada", "last": "Lovelace"},
		"recordId":   "R-1",
	}
	require.Equal(t, []string{"Ada", "Lovelace", "R-1"}, IndexValues(clientFileDef, obj))
}

func TestIndexValuesMissingFieldIsEmptyString(t *testing.T) {
	obj := map[string]interface{}{"recordId": "R-1"}
	require.Equal(t, []string{"", "", "R-1"}, IndexValues(clientFileDef, obj))
}
