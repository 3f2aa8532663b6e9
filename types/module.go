package types

// Category is the behavioral class of a module type. It determines which
// executor runs instances of the type.
type Category string

const (
	CategoryInput   Category = "Input"
	CategoryAIModel Category = "AI Model"
	CategoryOutput  Category = "Output"
	CategoryLogic   Category = "Logic"
)

// Valid reports whether the category is one of the known variants.
func (c Category) Valid() bool {
	switch c {
	case CategoryInput, CategoryAIModel, CategoryOutput, CategoryLogic:
		return true
	}
	return false
}

// FieldKind is the declared type of a config schema field.
type FieldKind string

const (
	FieldString  FieldKind = "string"
	FieldNumber  FieldKind = "number"
	FieldBoolean FieldKind = "boolean"
)

// ConfigField declares one field of a module type's config schema.
// Enum and Min/Max are optional constraints; Default is substituted when
// the stored config omits the field.
type ConfigField struct {
	Type    FieldKind `json:"type"`
	Default any       `json:"default,omitempty"`
	Enum    []string  `json:"enum,omitempty"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
}

// ConfigSchema maps field names to their declarations.
type ConfigSchema map[string]ConfigField

// PortSpec declares one input or output port of a module type.
type PortSpec struct {
	Type string `json:"type"` // string, number, boolean, object, any
}

// PortSchema maps port names to their declarations.
type PortSchema map[string]PortSpec

// ModuleType describes a kind of module: its category, config schema, and
// port shapes. Module types are defined by the registry's static catalog
// and are immutable at run time.
type ModuleType struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Category     Category     `json:"category"`
	Description  string       `json:"description,omitempty"`
	ConfigSchema ConfigSchema `json:"config_schema"`
	InputSchema  PortSchema   `json:"input_schema"`
	OutputSchema PortSchema   `json:"output_schema"`
}

// DefaultInputPort returns the name of the type's single declared input
// port, or "" when the type declares none or several.
func (t *ModuleType) DefaultInputPort() string {
	if len(t.InputSchema) != 1 {
		return ""
	}
	for name := range t.InputSchema {
		return name
	}
	return ""
}

// DefaultOutputPort returns the name of the type's single declared output
// port, or "" when the type declares none or several.
func (t *ModuleType) DefaultOutputPort() string {
	if len(t.OutputSchema) != 1 {
		return ""
	}
	for name := range t.OutputSchema {
		return name
	}
	return ""
}
