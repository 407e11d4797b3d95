package usecases

import (
	"context"
	"sync"

	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories"
	"github.com/latticehq/lattice-backend/utils"
)

// SchemaRegistry holds the full catalog tree in memory. Reads never
// touch the metadata tables; the tree is rebuilt on startup and on
// refresh events, locally after an admin mutation and remotely through
// the invalidation bus.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]models.Schema

	executorGetter    repositories.ExecutorGetter
	catalogRepository repositories.CatalogRepository
	bus               repositories.InvalidationBus
}

func NewSchemaRegistry(
	executorGetter repositories.ExecutorGetter,
	catalogRepository repositories.CatalogRepository,
	bus repositories.InvalidationBus,
) *SchemaRegistry {
	return &SchemaRegistry{
		schemas:           map[string]models.Schema{},
		executorGetter:    executorGetter,
		catalogRepository: catalogRepository,
		bus:               bus,
	}
}

// Load rebuilds the whole tree from the metadata tables and swaps it in
// atomically. Readers keep their old view until the swap.
func (registry *SchemaRegistry) Load(ctx context.Context) error {
	exec := registry.executorGetter.Executor()

	schemas, err := registry.catalogRepository.ListSchemas(ctx, exec)
	if err != nil {
		return err
	}

	tree := make(map[string]models.Schema, len(schemas))
	for _, schema := range schemas {
		loaded, err := registry.loadSchema(ctx, exec, schema)
		if err != nil {
			return err
		}
		tree[loaded.Code] = loaded
	}

	registry.mu.Lock()
	registry.schemas = tree
	registry.mu.Unlock()
	return nil
}

func (registry *SchemaRegistry) loadSchema(ctx context.Context, exec repositories.TransactionOrPool, schema models.Schema) (models.Schema, error) {
	entities, err := registry.catalogRepository.ListEntities(ctx, exec, schema.Id)
	if err != nil {
		return models.Schema{}, err
	}

	schema.Entities = make(map[string]models.Entity, len(entities))
	for _, entity := range entities {
		fields, err := registry.catalogRepository.ListFields(ctx, exec, entity.Id)
		if err != nil {
			return models.Schema{}, err
		}
		entity.Fields = make(map[string]models.Field, len(fields))
		for _, field := range fields {
			entity.Fields[field.Code] = field
		}
		schema.Entities[entity.Code] = entity
	}
	return schema, nil
}

// Refresh reloads the subtree the event names. Unknown codes fall back
// to wider reloads rather than failing: a schema created elsewhere is
// unknown here until the full list is fetched again.
func (registry *SchemaRegistry) Refresh(ctx context.Context, event models.RefreshEvent) error {
	switch event.Level {
	case models.RefreshSchema:
		return registry.refreshSchema(ctx, event.Schema)
	case models.RefreshEntity:
		return registry.refreshEntity(ctx, event.Schema, event.Entity)
	default:
		return registry.Load(ctx)
	}
}

func (registry *SchemaRegistry) refreshSchema(ctx context.Context, schemaCode string) error {
	exec := registry.executorGetter.Executor()

	schemas, err := registry.catalogRepository.ListSchemas(ctx, exec)
	if err != nil {
		return err
	}
	for _, schema := range schemas {
		if schema.Code != schemaCode {
			continue
		}
		loaded, err := registry.loadSchema(ctx, exec, schema)
		if err != nil {
			return err
		}
		registry.mu.Lock()
		registry.schemas[loaded.Code] = loaded
		registry.mu.Unlock()
		return nil
	}
	// The schema disappeared; drop it.
	registry.mu.Lock()
	delete(registry.schemas, schemaCode)
	registry.mu.Unlock()
	return nil
}

func (registry *SchemaRegistry) refreshEntity(ctx context.Context, schemaCode, entityCode string) error {
	registry.mu.RLock()
	schema, schemaKnown := registry.schemas[schemaCode]
	entity, entityKnown := schema.Entities[entityCode]
	registry.mu.RUnlock()
	if !schemaKnown || !entityKnown {
		return registry.refreshSchema(ctx, schemaCode)
	}

	exec := registry.executorGetter.Executor()
	fields, err := registry.catalogRepository.ListFields(ctx, exec, entity.Id)
	if err != nil {
		return err
	}
	entity.Fields = make(map[string]models.Field, len(fields))
	for _, field := range fields {
		entity.Fields[field.Code] = field
	}

	// Readers hold references into the maps, so replace instead of
	// mutating in place.
	registry.mu.Lock()
	schema = registry.schemas[schemaCode]
	entities := make(map[string]models.Entity, len(schema.Entities))
	for code, e := range schema.Entities {
		entities[code] = e
	}
	entities[entityCode] = entity
	schema.Entities = entities
	registry.schemas[schemaCode] = schema
	registry.mu.Unlock()
	return nil
}

// StartListener subscribes to the invalidation bus in the background
// until ctx is cancelled.
func (registry *SchemaRegistry) StartListener(ctx context.Context) {
	go registry.bus.Listen(ctx, func(ctx context.Context, event models.RefreshEvent) {
		if err := registry.Refresh(ctx, event); err != nil {
			utils.LoggerFromContext(ctx).ErrorContext(ctx, "catalog refresh failed",
				"level", event.Level, "schema", event.Schema, "entity", event.Entity,
				"error", err.Error())
		}
	})
}

func (registry *SchemaRegistry) SchemaByCode(code string) (models.Schema, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	schema, ok := registry.schemas[code]
	if !ok {
		return models.Schema{}, models.NewNotFoundError("schema " + code)
	}
	return schema, nil
}

func (registry *SchemaRegistry) EntityByCode(schemaCode, entityCode string) (models.Entity, error) {
	schema, err := registry.SchemaByCode(schemaCode)
	if err != nil {
		return models.Entity{}, err
	}
	entity, ok := schema.Entities[entityCode]
	if !ok {
		return models.Entity{}, models.NewNotFoundError("entity " + entityCode)
	}
	return entity, nil
}

func (registry *SchemaRegistry) FieldByCode(schemaCode, entityCode, fieldCode string) (models.Field, error) {
	entity, err := registry.EntityByCode(schemaCode, entityCode)
	if err != nil {
		return models.Field{}, err
	}
	field, ok := entity.Fields[fieldCode]
	if !ok {
		return models.Field{}, models.NewNotFoundError("field " + fieldCode)
	}
	return field, nil
}
