package model

// FieldInfo describes a bound field to tuner options.
type FieldInfo struct {
	Name       string
	Type       string
	Kind       string
	Pipeline   string
	Generation string
	Slots      int
	Selections int

	// DependsOn lists sibling fields whose values bound this field.
	DependsOn []string
}
