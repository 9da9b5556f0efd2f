/*
Package schema declares model definitions (name, collection name,
mutability, indexed field paths, and a structural Go type) and
validates payloads against them.

A ModelDefinition's Schema is a plain Go struct carrying only the
model's own business fields, tagged for github.com/go-playground/validator/v10.
Ambient metadata (id, revisionId, timestamp, author, and one
<ancestor>Id per ancestor collection) is handled separately by this
package rather than folded into every model's struct tags: Validate
strips it (and the engine's internal tamper-detection fields) before
running the domain struct through the validator, and ValidateMetadata
checks the metadata fields' own shape. Both checks run on every create
and every read.
*/
package schema
