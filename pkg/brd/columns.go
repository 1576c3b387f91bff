package brd

import (
	"github.com/matzehuels/specsync/pkg/annotation"
)

// Column is one field of the annotation table.
type Column struct {
	Key    string  // annotation field, as named in the JSON API
	Header string  // header cell text
	Width  float64 // worksheet column width in characters
	value  func(annotation.Annotation) string
}

// Value renders the column's cell for a.
func (c Column) Value(a annotation.Annotation) string {
	return c.value(a)
}

func text(get func(annotation.Annotation) *string) func(annotation.Annotation) string {
	return func(a annotation.Annotation) string { return annotation.Value(get(a)) }
}

func yesNo(get func(annotation.Annotation) bool) func(annotation.Annotation) string {
	return func(a annotation.Annotation) string {
		if get(a) {
			return "Yes"
		}
		return "No"
	}
}

var columns = []Column{
	{"marker", "Marker", 25, func(a annotation.Annotation) string { return a.Marker }},
	{"componentId", "Component ID", 20, text(func(a annotation.Annotation) *string { return a.ComponentID })},
	{"section", "Section", 20, text(func(a annotation.Annotation) *string { return a.Section })},
	{"source", "Source", 15, text(func(a annotation.Annotation) *string { return a.Source })},
	{"interactivity", "Interactivity/Comment/Logic", 50, text(func(a annotation.Annotation) *string { return a.Interactivity })},
	{"isRequired", "Is Required", 15, yesNo(func(a annotation.Annotation) bool { return a.IsRequired })},
	{"masterData", "Master Data", 25, text(func(a annotation.Annotation) *string { return a.MasterData })},
	{"apiName", "API Name", 25, text(func(a annotation.Annotation) *string { return a.APIName })},
	{"isApiAvailable", "Is API Available", 20, yesNo(func(a annotation.Annotation) bool { return a.IsAPIAvailable })},
	{"apiId", "API ID", 20, text(func(a annotation.Annotation) *string { return a.APIID })},
	{"thirdPartyIntegration", "3rd Party Integration", 25, text(func(a annotation.Annotation) *string { return a.ThirdPartyIntegration })},
	{"authoringFieldName", "Authoring Field Name", 25, text(func(a annotation.Annotation) *string { return a.AuthoringFieldName })},
	{"fieldContext", "Field Context", 30, text(func(a annotation.Annotation) *string { return a.FieldContext })},
	{"validation", "Validation", 30, text(func(a annotation.Annotation) *string { return a.Validation })},
	{"desktopViewDifference", "Difference in Desktop View", 30, text(func(a annotation.Annotation) *string { return a.DesktopViewDifference })},
}

// Columns returns the table schema in column order.
func Columns() []Column {
	return append([]Column(nil), columns...)
}
