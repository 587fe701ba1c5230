package types

// Repository is the storage contract consumed by the UI shell and the
// import/export adapters. Both the SQLite and the JSON file backend
// implement it with identical semantics.
//
// Every operation other than Initialize and Close returns ErrNotInitialized
// unless the repository is open.
type Repository interface {
	// Initialize opens or creates the underlying storage and migrates it to
	// the current schema. Calling it on an open repository is a no-op.
	// Failures are returned as *StorageError.
	Initialize() error

	// Close releases the storage handle. Idempotent.
	Close() error

	// List returns the records matching filters ordered by object type and
	// model, case-insensitively. Deactivated records whose notes lack the
	// marker are repaired and the repair is persisted.
	List(filters Filters) ([]Record, error)

	// Reconcile repairs the deactivation marker of every stored record and
	// returns the number of records changed.
	Reconcile() (int, error)

	// Get returns the record with the given id, or ErrNotFound.
	Get(id int64) (Record, error)

	// Create stores a new record, ignoring any ID on the input, and returns
	// it with the assigned ID. The object type is added to the registry.
	Create(r Record) (Record, error)

	// Update replaces the record with the given id. Returns ErrNotFound if
	// no such record exists.
	Update(id int64, r Record) (Record, error)

	// Delete removes a record. Deleting an unknown id is not an error.
	Delete(id int64) error

	// Deactivate marks a record inactive and appends the marker line to its
	// notes. Returns ErrNotFound if no such record exists.
	Deactivate(id int64) (Record, error)

	DistinctOwners() ([]string, error)
	DistinctObjectTypes() ([]string, error)
	DistinctManufacturers() ([]string, error)
	DistinctModels() ([]string, error)
	DistinctSerialNumbers() ([]string, error)

	// The Clear family resets every record whose field equals value exactly
	// and returns the number of records changed. ClearOwner resets to the
	// configured default holder.
	ClearOwner(value string) (int, error)
	ClearSerialNumber(value string) (int, error)
	ClearObjectType(value string) (int, error)
	ClearManufacturer(value string) (int, error)
	ClearModel(value string) (int, error)

	// RegisterObjectType adds a type to the registry without a record.
	RegisterObjectType(name string) error

	ListCustomValues(category string) ([]string, error)
	AddCustomValue(category, value string) error
	RemoveCustomValue(category, value string) error
}
