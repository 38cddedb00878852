package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Node Errors (E101-E199)
	// ============================================

	"E101": {
		Category: CategoryNode,
		Message:  "Unknown property key",
		Detail:   "The wrapped object has no field or map entry with this key.",
		DocURL:   "https://livestate.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryNode,
		Message:  "Value type mismatch for property",
		Detail:   "The assigned value cannot be converted to the type of the field or map element.",
		DocURL:   "https://livestate.dev/docs/errors/E102",
	},
	"E103": {
		Category: CategoryNode,
		Message:  "Property is not settable",
		Detail:   "Unexported struct fields and values reached through non-addressable containers cannot be written.",
		DocURL:   "https://livestate.dev/docs/errors/E103",
	},
	"E104": {
		Category: CategoryNode,
		Message:  "No such method",
		Detail:   "The wrapped object does not have an exported method with this name.",
		DocURL:   "https://livestate.dev/docs/errors/E104",
	},
	"E105": {
		Category: CategoryNode,
		Message:  "Delete is only supported on maps",
		Detail:   "Struct fields cannot be removed; assign the zero value instead.",
		DocURL:   "https://livestate.dev/docs/errors/E105",
	},
	"E106": {
		Category: CategoryNode,
		Message:  "Value is not a wrappable object",
		Detail:   "Only pointers to structs and string-keyed maps can be wrapped.",
		DocURL:   "https://livestate.dev/docs/errors/E106",
	},
	"E107": {
		Category: CategoryNode,
		Message:  "Property is not a list",
		Detail:   "Append requires the key to hold a slice, or to be absent from a map of any.",
		DocURL:   "https://livestate.dev/docs/errors/E107",
	},
	"E108": {
		Category: CategoryNode,
		Message:  "List index out of range",
		Detail:   "The index must be a non-negative integer smaller than the list length.",
		DocURL:   "https://livestate.dev/docs/errors/E108",
	},
	"E109": {
		Category: CategoryNode,
		Message:  "List has no owner",
		Detail:   "A list element can only be written through the object or map that holds the list.",
		DocURL:   "https://livestate.dev/docs/errors/E109",
	},

	// ============================================
	// Path Errors (E201-E299)
	// ============================================

	"E201": {
		Category: CategoryPath,
		Message:  "Invalid property path",
		Detail:   "Path keys must be strings or integers.",
		DocURL:   "https://livestate.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryPath,
		Message:  "Path has no parent to assign through",
		Detail:   "The empty path names the root itself, which cannot be replaced by assignment.",
		DocURL:   "https://livestate.dev/docs/errors/E202",
	},

	// ============================================
	// Config Errors (E301-E399)
	// ============================================

	"E301": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file could not be parsed or failed validation.",
		DocURL:   "https://livestate.dev/docs/errors/E301",
	},
	"E302": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .yaml or .yml.",
		DocURL:   "https://livestate.dev/docs/errors/E302",
	},

	// ============================================
	// Remote Errors (E401-E499)
	// ============================================

	"E401": {
		Category: CategoryRemote,
		Message:  "Malformed remote event",
		Detail:   "Remote events are JSON objects with a name and a list of assignments, each naming a path.",
		DocURL:   "https://livestate.dev/docs/errors/E401",
	},
	"E402": {
		Category: CategoryRemote,
		Message:  "Unsupported assignment operation",
		Detail:   "Assignments use one of the operations set, delete or append.",
		DocURL:   "https://livestate.dev/docs/errors/E402",
	},

	// ============================================
	// CLI Errors (E501-E599)
	// ============================================

	"E501": {
		Category: CategoryCLI,
		Message:  "Invalid replay script",
		Detail:   "Replay scripts are YAML documents with a state and a list of steps.",
		DocURL:   "https://livestate.dev/docs/errors/E501",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
