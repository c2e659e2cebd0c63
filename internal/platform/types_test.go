package platform

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDeploymentValidationRoundTrip(t *testing.T) {
	verdict := DeploymentValidation{
		IsValid: false,
		Message: "one or more config instances failed validation",
		ConfigInstances: []ConfigInstanceValidation{
			{
				ID:      "cfg_inst_1",
				Message: "2 invalid parameters",
				Parameters: []ParameterValidation{
					{Message: "parameter must not be null", Path: []string{"sensors", "0", "offset"}},
					{Message: "parameter must not be null", Path: []string{"thresholds", "max"}},
				},
			},
			{
				ID:         "cfg_inst_2",
				Message:    "",
				Parameters: []ParameterValidation{},
			},
		},
	}

	data, err := json.Marshal(verdict)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var parsed DeploymentValidation
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	if !reflect.DeepEqual(verdict, parsed) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, verdict)
	}
}

func TestDeploymentValidationWireShape(t *testing.T) {
	verdict := DeploymentValidation{
		IsValid: true,
		Message: "all config instances passed validation",
		ConfigInstances: []ConfigInstanceValidation{
			{ID: "cfg_inst_1", Parameters: []ParameterValidation{}},
		},
	}

	data, err := json.Marshal(verdict)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	// The platform contract requires these exact field names.
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	for _, key := range []string{"is_valid", "message", "config_instances"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("verdict JSON missing %q: %s", key, data)
		}
	}

	instances, ok := wire["config_instances"].([]any)
	if !ok || len(instances) != 1 {
		t.Fatalf("config_instances = %v", wire["config_instances"])
	}
	inst := instances[0].(map[string]any)
	for _, key := range []string{"id", "message", "parameters"} {
		if _, ok := inst[key]; !ok {
			t.Errorf("config instance JSON missing %q: %s", key, data)
		}
	}
	if params, ok := inst["parameters"].([]any); !ok || params == nil {
		t.Errorf("parameters should marshal as an array, got %v", inst["parameters"])
	}
}

func TestDeploymentUnmarshalDistinguishesAbsentFromEmpty(t *testing.T) {
	// A deployment fetched without expansion has nil nested fields; one
	// expanded with zero instances has an empty, non-nil slice.
	var bare Deployment
	if err := json.Unmarshal([]byte(`{"id":"dpl_1"}`), &bare); err != nil {
		t.Fatal(err)
	}
	if bare.ConfigInstances != nil || bare.Device != nil || bare.Release != nil {
		t.Error("unexpanded deployment should have nil nested fields")
	}

	var expanded Deployment
	if err := json.Unmarshal([]byte(`{"id":"dpl_1","config_instances":[]}`), &expanded); err != nil {
		t.Fatal(err)
	}
	if expanded.ConfigInstances == nil {
		t.Error("expanded empty config_instances should be non-nil")
	}
}
