package validate

import (
	"reflect"
	"testing"

	"github.com/mattjoyce/palisade/internal/platform"
)

func TestNullParameterRuleCleanContent(t *testing.T) {
	result := NullParameterRule(platform.ConfigInstance{
		ID:      "cfg_inst_1",
		Content: []byte(`{"fan_speed": 3, "thresholds": {"max": 80, "min": 20}}`),
	})

	if len(result.Parameters) != 0 {
		t.Errorf("findings = %v, want none", result.Parameters)
	}
	if result.Message != "config instance passed validation" {
		t.Errorf("message = %q", result.Message)
	}
	if result.ID != "cfg_inst_1" {
		t.Errorf("ID = %q", result.ID)
	}
}

func TestNullParameterRuleFlagsNulls(t *testing.T) {
	result := NullParameterRule(platform.ConfigInstance{
		ID:      "cfg_inst_1",
		Content: []byte(`{"thresholds": {"max": null}, "sensors": [{"offset": null}, {"offset": 2}]}`),
	})

	if result.Message != "config instance failed validation" {
		t.Errorf("message = %q", result.Message)
	}

	wantPaths := [][]string{
		{"sensors", "0", "offset"},
		{"thresholds", "max"},
	}
	if len(result.Parameters) != len(wantPaths) {
		t.Fatalf("findings = %d, want %d: %+v", len(result.Parameters), len(wantPaths), result.Parameters)
	}
	for i, want := range wantPaths {
		if !reflect.DeepEqual(result.Parameters[i].Path, want) {
			t.Errorf("findings[%d].Path = %v, want %v", i, result.Parameters[i].Path, want)
		}
		if result.Parameters[i].Message != "parameter must not be null" {
			t.Errorf("findings[%d].Message = %q", i, result.Parameters[i].Message)
		}
	}
}

func TestNullParameterRuleDeterministicOrder(t *testing.T) {
	instance := platform.ConfigInstance{
		ID:      "cfg_inst_1",
		Content: []byte(`{"z": null, "a": null, "m": {"y": null, "b": null}}`),
	}

	first := NullParameterRule(instance)
	for i := 0; i < 20; i++ {
		if got := NullParameterRule(instance); !reflect.DeepEqual(got, first) {
			t.Fatalf("rule output varies between runs:\n%+v\n%+v", first, got)
		}
	}

	wantPaths := [][]string{{"a"}, {"m", "b"}, {"m", "y"}, {"z"}}
	for i, want := range wantPaths {
		if !reflect.DeepEqual(first.Parameters[i].Path, want) {
			t.Errorf("findings[%d].Path = %v, want %v", i, first.Parameters[i].Path, want)
		}
	}
}

func TestNullParameterRuleTopLevelArray(t *testing.T) {
	result := NullParameterRule(platform.ConfigInstance{
		ID:      "cfg_inst_1",
		Content: []byte(`[1, null, {"zone": null}]`),
	})

	wantPaths := [][]string{{"1"}, {"2", "zone"}}
	if len(result.Parameters) != len(wantPaths) {
		t.Fatalf("findings = %d, want %d", len(result.Parameters), len(wantPaths))
	}
	for i, want := range wantPaths {
		if !reflect.DeepEqual(result.Parameters[i].Path, want) {
			t.Errorf("findings[%d].Path = %v, want %v", i, result.Parameters[i].Path, want)
		}
	}
}

func TestNullParameterRuleInvalidJSON(t *testing.T) {
	result := NullParameterRule(platform.ConfigInstance{
		ID:      "cfg_inst_1",
		Content: []byte(`{not json`),
	})

	if result.Message != "config content is not a valid document" {
		t.Errorf("message = %q", result.Message)
	}
	if len(result.Parameters) != 1 {
		t.Fatalf("findings = %d, want 1", len(result.Parameters))
	}
	if len(result.Parameters[0].Path) != 0 {
		t.Errorf("path = %v, want empty", result.Parameters[0].Path)
	}
}

func TestAcceptAllRule(t *testing.T) {
	result := AcceptAllRule(platform.ConfigInstance{
		ID:      "cfg_inst_1",
		Content: []byte(`{"anything": null}`),
	})

	if len(result.Parameters) != 0 {
		t.Errorf("findings = %v, want none", result.Parameters)
	}
	if result.Parameters == nil {
		t.Error("parameters should be an empty slice, not nil")
	}
}

func TestDefaultPolicy(t *testing.T) {
	passing := platform.ConfigInstanceValidation{ID: "cfg_inst_1", Parameters: []platform.ParameterValidation{}}
	failing := platform.ConfigInstanceValidation{
		ID: "cfg_inst_2",
		Parameters: []platform.ParameterValidation{
			{Message: "parameter must not be null", Path: []string{"fan_speed"}},
		},
	}

	cases := []struct {
		name      string
		results   []platform.ConfigInstanceValidation
		wantValid bool
	}{
		{"all passing", []platform.ConfigInstanceValidation{passing, passing}, true},
		{"one failing", []platform.ConfigInstanceValidation{passing, failing}, false},
		{"empty", nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			valid, message := DefaultPolicy(tc.results)
			if valid != tc.wantValid {
				t.Errorf("valid = %v, want %v", valid, tc.wantValid)
			}
			if message == "" {
				t.Error("policy message should not be empty")
			}
		})
	}
}
