// internal/domain/models/kind.go
package models

// Kind names a tracked entity type. The value is what audit log entries store
// in data_type; the MongoDB collection is the plural.
type Kind string

const (
	KindOrder      Kind = "order"
	KindDataset    Kind = "dataset"
	KindCollection Kind = "collection"
	KindProject    Kind = "project"
	KindUser       Kind = "user"
)

// Kinds lists every entity type, in the order the API index reports them.
var Kinds = []Kind{KindCollection, KindDataset, KindOrder, KindProject, KindUser}

// Collection returns the MongoDB collection holding records of this kind.
func (k Kind) Collection() string {
	return string(k) + "s"
}

// LogsCollection holds the audit trail.
const LogsCollection = "logs"
