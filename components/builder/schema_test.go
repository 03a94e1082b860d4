package builder

import "testing"

func TestJSONSchemaStateValidator(t *testing.T) {
	v := NewJSONSchemaStateValidator()
	cases := []struct {
		name  string
		blob  string
		valid bool
	}{
		{"empty dashboard", `{"panels":[],"nextPanelId":1}`, true},
		{"configured panel", `{"panels":[{"id":1,"colSpan":6,"indicators":[{"code":"SP.POP.TOTL","name":"Population"}],"chartType":"line","yearStart":null}],"nextPanelId":2}`, true},
		{"unset chart type", `{"panels":[{"id":1,"chartType":null}]}`, true},
		{"not json", `panels: []`, false},
		{"missing panels", `{"nextPanelId":3}`, false},
		{"unknown chart type", `{"panels":[{"id":1,"chartType":"hologram"}]}`, false},
		{"span overflow", `{"panels":[{"id":1,"colSpan":13}]}`, false},
		{"indicator without code", `{"panels":[{"id":1,"indicators":[{"name":"x"}]}]}`, false},
	}
	for _, tc := range cases {
		err := v.ValidateState([]byte(tc.blob))
		if tc.valid && err != nil {
			t.Fatalf("%s: expected valid, got %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
