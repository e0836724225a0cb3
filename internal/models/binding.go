package models

// GeneratedNameKey is the Config key under which the provider-generated
// loader name is recorded after a successful attach.
const GeneratedNameKey = "loader_name"

// DataSourceBinding references an external data-source provider
type DataSourceBinding struct {
	// LoaderType identifies the provider, e.g. "github"
	LoaderType string

	// Label is the display name, unique within the binding list
	Label string

	// Config is passed to the provider
	Config map[string]string

	// Enabled is true while the binding is registered with the dataset
	Enabled bool

	// Priority orders registration; lower loads earlier
	Priority int
}

// NewDataSourceBinding creates a new disabled binding
func NewDataSourceBinding(loaderType, label string, config map[string]string, priority int) *DataSourceBinding {
	if config == nil {
		config = map[string]string{}
	}
	return &DataSourceBinding{
		LoaderType: loaderType,
		Label:      label,
		Config:     config,
		Priority:   priority,
	}
}

// GeneratedName returns the recorded loader name, if any
func (b *DataSourceBinding) GeneratedName() string {
	return b.Config[GeneratedNameKey]
}

// SetGeneratedName records the loader name produced by the provider
func (b *DataSourceBinding) SetGeneratedName(name string) {
	if b.Config == nil {
		b.Config = map[string]string{}
	}
	b.Config[GeneratedNameKey] = name
}
