package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/mattjoyce/palisade/internal/platform"
)

// NullParameterRule flags every parameter inside the instance content whose
// value is JSON null. Each finding names the exact path to the offending
// value, with object keys and array indices as path segments. Findings are
// ordered by sorted object keys so the same content always produces the
// same verdict.
func NullParameterRule(instance platform.ConfigInstance) platform.ConfigInstanceValidation {
	result := platform.ConfigInstanceValidation{
		ID:         instance.ID,
		Parameters: []platform.ParameterValidation{},
	}

	var content any
	if err := json.Unmarshal(instance.Content, &content); err != nil {
		result.Message = "config content is not a valid document"
		result.Parameters = append(result.Parameters, platform.ParameterValidation{
			Message: fmt.Sprintf("content is not valid JSON: %v", err),
			Path:    []string{},
		})
		return result
	}

	collectNullParameters(content, nil, &result.Parameters)
	if len(result.Parameters) == 0 {
		result.Message = "config instance passed validation"
	} else {
		result.Message = "config instance failed validation"
	}
	return result
}

func collectNullParameters(node any, path []string, out *[]platform.ParameterValidation) {
	switch v := node.(type) {
	case nil:
		*out = append(*out, platform.ParameterValidation{
			Message: "parameter must not be null",
			Path:    append([]string{}, path...),
		})
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			collectNullParameters(v[key], append(path, key), out)
		}
	case []any:
		for i, item := range v {
			collectNullParameters(item, append(path, strconv.Itoa(i)), out)
		}
	}
}

// AcceptAllRule passes every instance without inspecting content. Useful as
// a policy escape hatch and in tests.
func AcceptAllRule(instance platform.ConfigInstance) platform.ConfigInstanceValidation {
	return platform.ConfigInstanceValidation{
		ID:         instance.ID,
		Message:    "config instance passed validation",
		Parameters: []platform.ParameterValidation{},
	}
}

// DefaultPolicy marks the deployment valid unless any instance carries
// failing parameters.
func DefaultPolicy(results []platform.ConfigInstanceValidation) (bool, string) {
	for _, result := range results {
		if len(result.Parameters) > 0 {
			return false, "one or more config instances failed validation"
		}
	}
	return true, "all config instances passed validation"
}
