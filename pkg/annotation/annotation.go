// Package annotation defines the persisted domain types of SpecSync: projects,
// screens and the annotations placed on them.
//
// All marker coordinates are natural image pixels of the screen image, so a
// stored position stays valid whatever size the image is later displayed at.
//
// The types carry both json tags (HTTP API and CLI files) and bson tags
// (MongoDB storage). Optional text fields are pointers; a nil field renders as
// an empty cell in exported documents.
package annotation

import (
	"strings"
	"time"
)

// Annotation is one marker on a screen together with its requirement metadata.
type Annotation struct {
	ID       string  `json:"id" bson:"_id"`
	ScreenID string  `json:"screenId" bson:"screen_id"`
	X        float64 `json:"x" bson:"x"`
	Y        float64 `json:"y" bson:"y"`

	Marker                string  `json:"marker" bson:"marker"`
	ComponentID           *string `json:"componentId,omitempty" bson:"component_id,omitempty"`
	Section               *string `json:"section,omitempty" bson:"section,omitempty"`
	Source                *string `json:"source,omitempty" bson:"source,omitempty"`
	Interactivity         *string `json:"interactivity,omitempty" bson:"interactivity,omitempty"`
	IsRequired            bool    `json:"isRequired" bson:"is_required"`
	MasterData            *string `json:"masterData,omitempty" bson:"master_data,omitempty"`
	APIName               *string `json:"apiName,omitempty" bson:"api_name,omitempty"`
	IsAPIAvailable        bool    `json:"isApiAvailable" bson:"is_api_available"`
	APIID                 *string `json:"apiId,omitempty" bson:"api_id,omitempty"`
	ThirdPartyIntegration *string `json:"thirdPartyIntegration,omitempty" bson:"third_party_integration,omitempty"`
	AuthoringFieldName    *string `json:"authoringFieldName,omitempty" bson:"authoring_field_name,omitempty"`
	FieldContext          *string `json:"fieldContext,omitempty" bson:"field_context,omitempty"`
	Validation            *string `json:"validation,omitempty" bson:"validation,omitempty"`
	DesktopViewDifference *string `json:"desktopViewDifference,omitempty" bson:"desktop_view_difference,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// Fields is a partial update of an annotation's metadata. Nil fields are left
// unchanged; an empty or blank string clears an optional text field.
type Fields struct {
	Marker                *string `json:"marker,omitempty"`
	ComponentID           *string `json:"componentId,omitempty"`
	Section               *string `json:"section,omitempty"`
	Source                *string `json:"source,omitempty"`
	Interactivity         *string `json:"interactivity,omitempty"`
	IsRequired            *bool   `json:"isRequired,omitempty"`
	MasterData            *string `json:"masterData,omitempty"`
	APIName               *string `json:"apiName,omitempty"`
	IsAPIAvailable        *bool   `json:"isApiAvailable,omitempty"`
	APIID                 *string `json:"apiId,omitempty"`
	ThirdPartyIntegration *string `json:"thirdPartyIntegration,omitempty"`
	AuthoringFieldName    *string `json:"authoringFieldName,omitempty"`
	FieldContext          *string `json:"fieldContext,omitempty"`
	Validation            *string `json:"validation,omitempty"`
	DesktopViewDifference *string `json:"desktopViewDifference,omitempty"`
}

// Apply copies the set fields onto a.
func (f Fields) Apply(a *Annotation) {
	if f.Marker != nil {
		a.Marker = *f.Marker
	}
	setString(&a.ComponentID, f.ComponentID)
	setString(&a.Section, f.Section)
	setString(&a.Source, f.Source)
	setString(&a.Interactivity, f.Interactivity)
	if f.IsRequired != nil {
		a.IsRequired = *f.IsRequired
	}
	setString(&a.MasterData, f.MasterData)
	setString(&a.APIName, f.APIName)
	if f.IsAPIAvailable != nil {
		a.IsAPIAvailable = *f.IsAPIAvailable
	}
	setString(&a.APIID, f.APIID)
	setString(&a.ThirdPartyIntegration, f.ThirdPartyIntegration)
	setString(&a.AuthoringFieldName, f.AuthoringFieldName)
	setString(&a.FieldContext, f.FieldContext)
	setString(&a.Validation, f.Validation)
	setString(&a.DesktopViewDifference, f.DesktopViewDifference)
}

// An empty string clears an optional field.
func setString(dst **string, v *string) {
	if v == nil {
		return
	}
	if strings.TrimSpace(*v) == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}

// String returns a pointer to s. In [Fields] a pointer to "" clears the field.
func String(s string) *string {
	return &s
}

// Value dereferences an optional field, returning "" for nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// =============================================================================
// Projects and screens
// =============================================================================

// Project groups the screens of one design.
type Project struct {
	ID        string    `json:"id" bson:"_id"`
	Owner     string    `json:"owner" bson:"owner"`
	Name      string    `json:"name" bson:"name"`
	ImageKey  string    `json:"imageKey,omitempty" bson:"image_key,omitempty"` // optional cover image
	ScreenIDs []string  `json:"screens" bson:"screen_ids"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// Screen is one uploaded design image. AnnotationIDs are kept in insertion
// order, which is also the row order of exported documents.
type Screen struct {
	ID            string     `json:"id" bson:"_id"`
	ProjectID     string     `json:"projectId" bson:"project_id"`
	Name          string     `json:"name" bson:"name"`
	ImageKey      string     `json:"imageKey" bson:"image_key"`
	ImageWidth    int        `json:"imageWidth" bson:"image_width"`
	ImageHeight   int        `json:"imageHeight" bson:"image_height"`
	AnnotationIDs []string   `json:"annotations" bson:"annotation_ids"`
	Layers        *LayerNode `json:"layers,omitempty" bson:"layers,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updated_at"`
}

// LayerNode is a node of the design tool's layer tree, captured alongside
// the screen image by the design plugin. Coordinates are relative to the
// exported frame at 1x.
type LayerNode struct {
	FigmaID  string       `json:"figmaId" bson:"figma_id"`
	Name     string       `json:"name" bson:"name"`
	Type     string       `json:"type" bson:"type"`
	X        float64      `json:"x" bson:"x"`
	Y        float64      `json:"y" bson:"y"`
	Width    float64      `json:"width" bson:"width"`
	Height   float64      `json:"height" bson:"height"`
	ParentID string       `json:"parentId,omitempty" bson:"parent_id,omitempty"`
	Children []*LayerNode `json:"children,omitempty" bson:"children,omitempty"`
}

// Count returns the number of nodes in the tree rooted at n.
func (n *LayerNode) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}
