// pkg/registry/registry.go
package registry

import (
	"fmt"
	"os"

	"cinesense/internal/common/jsonx"
	"cinesense/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := jsonx.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to decode activity registry %s: %w", path, err)
	}
	return &reg, nil
}

// Find returns the activity for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// ValidateInput checks job variables against the activity's input schema.
// Activities without a schema accept anything.
func (a *Activity) ValidateInput(variables interface{}) (*validation.ValidationResult, error) {
	if len(a.InputSchema) == 0 {
		return &validation.ValidationResult{Valid: true}, nil
	}
	return validation.ValidateDocument(a.InputSchema, variables)
}
