package importer

// entity.go defines the static per-entity catalogue. A Definition carries
// everything the engine needs to import one entity type: the target field
// vocabulary, coercion types, required-mapping rules, unique keys, reference
// resolution, and optional row grouping. Definitions are registered at init
// time and never mutated afterwards.

import (
	"importcore/internal/coerce"
	"importcore/internal/mapping"
)

// FieldType selects the coercion applied to a target field's raw cell text.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldDecimal
	FieldInteger
	FieldBool
	FieldList
	FieldEnum
	FieldRichText      // HTML stripped, whitespace collapsed
	FieldRichTextLinks // HTML stripped, anchor URLs preserved
)

// EnumSpec is the closed value set plus its synonym table for a FieldEnum
// field.
type EnumSpec struct {
	Values   []string
	Synonyms *coerce.SynonymTable
	Fallback string
}

// ResolveSpec describes how rows of this entity reference records of
// another (or the same) entity. The named fields are target-field keys whose
// row values feed the resolver; the resolved record id is stored under
// TargetIDField.
type ResolveSpec struct {
	// Against is the entity whose records are being referenced.
	Against EntityType

	// TargetIDField receives the resolved record id.
	TargetIDField string

	// Identifier source fields; empty entries are skipped.
	EmailField     string
	CardField      string
	CodeField      string
	FirstNameField string
	LastNameField  string

	// Required makes an unresolvable reference a row failure. Optional
	// references leave TargetIDField unset on a clean miss.
	Required bool
}

// GroupingSpec collapses multiple source rows into one logical record before
// reconciliation. The group key is the resolved reference (or natural key)
// plus a calendar date.
type GroupingSpec struct {
	// DateField is the row's own date field, the fallback date source.
	DateField string

	// TextField, when set, is free text scanned for an explicit date token
	// or a today/yesterday keyword before falling back to DateField.
	TextField string

	// Additive fields sum across grouped rows.
	Additive []string

	// ListFields concatenate across grouped rows without de-duplication.
	ListFields []string

	// DedupeFields concatenate but drop exact duplicate values.
	DedupeFields []string
}

// RowRule checks one extracted row's raw values; a non-nil error fails that
// row only.
type RowRule func(raw map[string]string) error

// RowTransform runs after coercion and may derive or normalize values in
// place, e.g. pulling a document link out of pasted rich text.
type RowTransform func(values map[string]any)

// IdentitySpec names the record fields that serve as lookup keys when other
// rows reference records of this entity. Empty entries disable that key
// kind.
type IdentitySpec struct {
	EmailField     string
	CardField      string
	CodeField      string
	FirstNameField string
	LastNameField  string
}

// Definition is the static import catalogue for one entity type.
type Definition struct {
	Type  EntityType
	Label string

	// Fields is the target vocabulary, used for suggestion and display.
	Fields []mapping.Field

	// FieldTypes maps field key to coercion type; unlisted fields are text.
	FieldTypes map[string]FieldType

	// Enums configures FieldEnum fields by field key.
	Enums map[string]EnumSpec

	// Rules are the entity-specific required-mapping checks.
	Rules []mapping.RequiredRule

	// RowRules are per-row presence checks run after extraction, before
	// coercion. Failures are row-scoped.
	RowRules []RowRule

	// Transforms derive additional values from the coerced row.
	Transforms []RowTransform

	// UniqueKey is the natural unique key used for the create-or-update
	// decision. Multi-field keys are matched as a composite.
	UniqueKey []string

	// SecondaryUnique fields must not collide with a different record on
	// create (e.g. an external-system id already in use).
	SecondaryUnique []string

	// Identity exposes this entity's fields as resolver lookup keys.
	Identity IdentitySpec

	// Resolve lists reference resolutions run per row, in order.
	Resolve []ResolveSpec

	// Grouping, when set, aggregates rows into logical records.
	Grouping *GroupingSpec
}

// FieldType returns the coercion type for a field key.
func (d *Definition) fieldType(key string) FieldType {
	if d.FieldTypes == nil {
		return FieldText
	}
	return d.FieldTypes[key]
}

// requiredFields returns the keys of fields marked required in the
// catalogue, used for per-row presence checks after extraction.
func (d *Definition) requiredFields() []string {
	var keys []string
	for _, f := range d.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
