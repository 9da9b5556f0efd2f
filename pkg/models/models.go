package models

import "github.com/cuemby/vaultstore/pkg/schema"

// ClientName is the nested name structure every client file carries.
type ClientName struct {
	First  string `json:"first" validate:"required"`
	Middle string `json:"middle" validate:"omitempty"`
	Last   string `json:"last" validate:"required"`
}

// ClientFilePlan carries the free-form treatment plan sections; it is
// left structurally loose (no required sub-fields) since its shape is
// driven entirely by clinical content, not by the Store.
type ClientFilePlan struct {
	Sections []string `json:"sections" validate:"omitempty"`
}

// ClientFilePayload is the business-field struct for the top-level
// clientFile model.
type ClientFilePayload struct {
	ClientName ClientName     `json:"clientName" validate:"required"`
	RecordID   string         `json:"recordId" validate:"required"`
	Plan       ClientFilePlan `json:"plan" validate:"omitempty"`
}

// ProgNotePayload is the business-field struct for the progNote child
// model.
type ProgNotePayload struct {
	Type     string `json:"type" validate:"required"`
	Status   string `json:"status" validate:"required"`
	Notes    string `json:"notes" validate:"omitempty"`
	Backdate string `json:"backdate" validate:"omitempty"`
}

// ProgNote is the child model definition: one progNotes/ subcollection
// inside every clientFile object directory.
var ProgNote = &schema.ModelDefinition{
	Name:           "progNote",
	CollectionName: "progNotes",
	IsMutable:      true,
	Indexes:        [][]string{{"type"}, {"status"}},
	Schema:         &ProgNotePayload{},
}

// ClientFile is the top-level model definition.
var ClientFile = &schema.ModelDefinition{
	Name:           "clientFile",
	CollectionName: "clientFile",
	IsMutable:      true,
	Indexes:        [][]string{{"clientName", "first"}, {"clientName", "last"}, {"recordId"}},
	Schema:         &ClientFilePayload{},
	Children:       []*schema.ModelDefinition{ProgNote},
}

// TopLevel lists every top-level model, used by account setup to
// bootstrap one directory per top-level collection.
var TopLevel = []*schema.ModelDefinition{ClientFile}

// ByKind maps a manifest's Kind field (see cmd/vaultstore's apply
// command) to its model definition.
var ByKind = map[string]*schema.ModelDefinition{
	"ClientFile": ClientFile,
	"ProgNote":   ProgNote,
}
