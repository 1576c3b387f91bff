package annotation

import "testing"

func TestFieldsApply(t *testing.T) {
	a := Annotation{
		Marker:  "1",
		Section: String("Header"),
		Source:  String("CMS"),
	}
	yes := true
	Fields{
		Marker:     String("1a"),
		Section:    String(""),
		APIName:    String("getUser"),
		IsRequired: &yes,
	}.Apply(&a)

	if a.Marker != "1a" {
		t.Errorf("Marker = %q, want 1a", a.Marker)
	}
	if a.Section != nil {
		t.Errorf("Section = %q, want cleared", *a.Section)
	}
	if Value(a.Source) != "CMS" {
		t.Errorf("Source = %q, want unchanged", Value(a.Source))
	}
	if Value(a.APIName) != "getUser" || !a.IsRequired {
		t.Errorf("APIName/IsRequired not applied: %+v", a)
	}
	if a.IsAPIAvailable {
		t.Error("IsAPIAvailable should be untouched")
	}
}

func TestFieldsBlankClears(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{"nil leaves value", nil, String("Header")},
		{"empty clears", String(""), nil},
		{"blank clears", String("   "), nil},
		{"value replaces", String("Footer"), String("Footer")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Annotation{Section: String("Header")}
			Fields{Section: tt.in}.Apply(&a)
			if (a.Section == nil) != (tt.want == nil) || Value(a.Section) != Value(tt.want) {
				t.Errorf("Section = %v, want %v", a.Section, tt.want)
			}
		})
	}

	if String("") == nil {
		t.Error("String(\"\") must not be nil")
	}
}

func TestApplyCopiesValues(t *testing.T) {
	s := "checkout"
	var a Annotation
	Fields{Section: &s}.Apply(&a)
	s = "changed"
	if Value(a.Section) != "checkout" {
		t.Errorf("Section aliases the input: %q", Value(a.Section))
	}
}

func TestLayerCount(t *testing.T) {
	root := &LayerNode{Name: "Frame", Children: []*LayerNode{
		{Name: "Header", Children: []*LayerNode{{Name: "Logo"}}},
		{Name: "Body"},
	}}
	if got := root.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
	var nilNode *LayerNode
	if nilNode.Count() != 0 {
		t.Error("nil tree should count 0")
	}
}
