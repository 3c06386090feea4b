package importer

import (
	"context"

	"importcore/internal/resolve"
)

// storeLookup adapts the record store to the resolver's read surface for one
// target entity, translating key kinds to that entity's identity fields.
type storeLookup struct {
	store  RecordStore
	entity EntityType
	id     IdentitySpec
}

func newStoreLookup(store RecordStore, def Definition) *storeLookup {
	return &storeLookup{store: store, entity: def.Type, id: def.Identity}
}

func (l *storeLookup) FindByKey(ctx context.Context, kind resolve.KeyKind, values ...string) (string, bool, error) {
	switch kind {
	case resolve.KeyEmail:
		return l.findByField(ctx, l.id.EmailField, values)
	case resolve.KeyCardNumber:
		return l.findByField(ctx, l.id.CardField, values)
	case resolve.KeyCode:
		return l.findByField(ctx, l.id.CodeField, values)
	case resolve.KeyName:
		if l.id.FirstNameField == "" || l.id.LastNameField == "" || len(values) != 2 {
			return "", false, nil
		}
		rec, ok, err := l.store.FindByUnique(ctx, l.entity, map[string]string{
			l.id.FirstNameField: values[0],
			l.id.LastNameField:  values[1],
		})
		if err != nil || !ok {
			return "", false, err
		}
		return rec.ID, true, nil
	}
	return "", false, nil
}

func (l *storeLookup) findByField(ctx context.Context, field string, values []string) (string, bool, error) {
	if field == "" || len(values) != 1 || values[0] == "" {
		return "", false, nil
	}
	rec, ok, err := l.store.FindByField(ctx, l.entity, field, values[0])
	if err != nil || !ok {
		return "", false, err
	}
	return rec.ID, true, nil
}

func (l *storeLookup) KnownEmails(ctx context.Context) (map[string]string, error) {
	if l.id.EmailField == "" {
		return map[string]string{}, nil
	}
	return l.store.ListFieldValues(ctx, l.entity, l.id.EmailField)
}
