// internal/schema/fields.go
// Per-category editable field definitions consumed by the item editor.
package schema

import (
	"fmt"

	"vitrine/internal/content"
)

// Kind is the input kind of an editable field.
type Kind string

const (
	Text        Kind = "text"
	LongText    Kind = "longtext"
	Number      Kind = "number"
	Date        Kind = "date"
	Bool        Kind = "bool"
	Select      Kind = "select"
	MultiSelect Kind = "multiselect"
	List        Kind = "list"
)

// Field describes one editable attribute of a category.
type Field struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Kind    Kind     `json:"kind"`
	Options []string `json:"options,omitempty"` // for select/multiselect
	Default any      `json:"default,omitempty"`
}

// IsList reports whether the field holds an ordered list of strings.
func (f Field) IsList() bool {
	return f.Kind == List || f.Kind == MultiSelect
}

// common fields shared by every category whose table carries them.
var commonFields = []Field{
	{Name: "name", Label: "Nom", Kind: Text},
	{Name: "type", Label: "Type", Kind: Text},
	{Name: "description", Label: "Description", Kind: LongText},
	{Name: "featured_image", Label: "Image", Kind: Text},
	{Name: "address", Label: "Adresse", Kind: Text},
	{Name: "lat", Label: "Latitude", Kind: Number},
	{Name: "lng", Label: "Longitude", Kind: Number},
}

var categoryFields = map[string][]Field{
	"accommodations": appendFields(commonFields,
		Field{Name: "type", Label: "Type", Kind: Select,
			Options: []string{"gite", "chambre_dhote", "hotel", "camping"}},
		Field{Name: "capacity", Label: "Capacité", Kind: Number},
		Field{Name: "bedrooms", Label: "Chambres", Kind: Number},
		Field{Name: "price_per_night", Label: "Prix par nuit", Kind: Number},
		Field{Name: "amenities", Label: "Équipements", Kind: List, Default: []string{}},
		Field{Name: "house_rules", Label: "Règlement", Kind: List, Default: []string{}},
	),
	"dining": appendFields(commonFields,
		Field{Name: "type", Label: "Type", Kind: Select,
			Options: []string{"restaurant", "cafe", "bar"}},
		Field{Name: "cuisine", Label: "Cuisine", Kind: Text},
		Field{Name: "opening_hours", Label: "Horaires", Kind: Text},
		Field{Name: "price_range", Label: "Gamme de prix", Kind: Select,
			Options: []string{"€", "€€", "€€€"}},
		Field{Name: "features", Label: "Services", Kind: List, Default: []string{}},
	),
	"activities": appendFields(commonFields,
		Field{Name: "type", Label: "Type", Kind: Select,
			Options: []string{"activity", "leisure", "outdoor"}},
		Field{Name: "opening_hours", Label: "Horaires", Kind: Text},
		Field{Name: "entry_fee", Label: "Tarif", Kind: Number},
		Field{Name: "features", Label: "Services", Kind: List, Default: []string{}},
	),
	"heritage": appendFields(commonFields,
		Field{Name: "type", Label: "Type", Kind: Select,
			Options: []string{"museum", "monument", "heritage"}},
		Field{Name: "opening_hours", Label: "Horaires", Kind: Text},
		Field{Name: "entry_fee", Label: "Tarif d'entrée", Kind: Number},
		Field{Name: "languages", Label: "Langues de visite", Kind: MultiSelect,
			Options: []string{"fr", "en", "de", "es", "nl"}, Default: []string{"fr"}},
		Field{Name: "features", Label: "Services", Kind: List, Default: []string{}},
	),
	"walks": appendFields(commonFields,
		Field{Name: "type", Label: "Type", Kind: Select,
			Options: []string{"boucle", "lineaire", "vtt"}},
		Field{Name: "distance_km", Label: "Distance (km)", Kind: Number},
		Field{Name: "duration_minutes", Label: "Durée (min)", Kind: Number},
		Field{Name: "difficulty", Label: "Difficulté", Kind: Select,
			Options: []string{"facile", "moyen", "difficile"}},
		Field{Name: "gpx_url", Label: "Trace GPX", Kind: Text},
		Field{Name: "start_point", Label: "Point de départ", Kind: Text},
	),
	"events": {
		{Name: "title", Label: "Titre", Kind: Text},
		{Name: "type", Label: "Type", Kind: Text},
		{Name: "summary", Label: "Résumé", Kind: LongText},
		{Name: "featured_image", Label: "Image", Kind: Text},
		{Name: "start_date", Label: "Début", Kind: Date},
		{Name: "end_date", Label: "Fin", Kind: Date},
		{Name: "location", Label: "Lieu", Kind: Text},
		{Name: "organizer", Label: "Organisateur", Kind: Text},
		{Name: "address", Label: "Adresse", Kind: Text},
		{Name: "lat", Label: "Latitude", Kind: Number},
		{Name: "lng", Label: "Longitude", Kind: Number},
	},
	"team": {
		{Name: "name", Label: "Nom", Kind: Text},
		{Name: "role", Label: "Fonction", Kind: Text},
		{Name: "photo", Label: "Photo", Kind: Text},
		{Name: "email", Label: "Email", Kind: Text},
		{Name: "phone", Label: "Téléphone", Kind: Text},
		{Name: "sort_order", Label: "Ordre", Kind: Number, Default: 0},
	},
	"pages": {
		{Name: "title", Label: "Titre", Kind: Text},
		{Name: "slug", Label: "Slug", Kind: Text},
		{Name: "content", Label: "Contenu", Kind: LongText},
	},
}

// appendFields merges extra fields into base, replacing base entries that
// share a name so a category can specialize a common field.
func appendFields(base []Field, extra ...Field) []Field {
	out := make([]Field, 0, len(base)+len(extra))
	replaced := make(map[string]Field, len(extra))
	for _, f := range extra {
		replaced[f.Name] = f
	}
	for _, f := range base {
		if r, ok := replaced[f.Name]; ok {
			out = append(out, r)
			delete(replaced, f.Name)
			continue
		}
		out = append(out, f)
	}
	for _, f := range extra {
		if _, pending := replaced[f.Name]; pending {
			out = append(out, f)
		}
	}
	return out
}

// ForCategory returns the editable fields of a category.
func ForCategory(category string) ([]Field, error) {
	if !content.IsKnown(category) {
		return nil, fmt.Errorf("%w: %q", content.ErrUnknownCategory, category)
	}
	fields, ok := categoryFields[category]
	if !ok {
		return nil, fmt.Errorf("no field schema for category %q", category)
	}
	return fields, nil
}

// FieldByName looks one field up within a category schema.
func FieldByName(category, name string) (Field, bool) {
	fields, err := ForCategory(category)
	if err != nil {
		return Field{}, false
	}
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
