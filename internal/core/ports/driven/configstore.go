package driven

// ConfigStore is a flat key/value view of the settings file. Keys are
// dotted paths such as "embedding.model". The typed getters return the
// zero value for a missing key or a value of another type.
type ConfigStore interface {
	// Get returns the raw value and whether the key is present.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set changes a value in memory; Save writes it out.
	Set(key string, value any) error

	Save() error

	// Load rereads the file, replacing values set since the last Save.
	Load() error

	// Path is the file backing the store.
	Path() string
}
