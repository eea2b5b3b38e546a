package domain

import "time"

// DefaultCategory is assigned to prompts imported without a category marker.
const DefaultCategory = "General"

// MinContentLength is the shortest prompt content accepted for persistence
// or image generation, counted in runes after trimming.
const MinContentLength = 10

// Visibility controls who can see a prompt in the library.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Prompt is a persisted prompt record.
type Prompt struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	Subcategory     *string    `json:"subcategory,omitempty"`
	Content         string     `json:"content"`
	Tags            []string   `json:"tags"`
	StyleTags       []string   `json:"style_tags"`
	SubjectTags     []string   `json:"subject_tags"`
	Number          *int       `json:"number,omitempty"`
	PreviewImageURL *string    `json:"preview_image_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UsageCount      int        `json:"usage_count"`
	IsFavorite      bool       `json:"is_favorite"`
	Visibility      Visibility `json:"visibility"`
}

// HasPreview reports whether the prompt already carries a preview image.
func (p Prompt) HasPreview() bool {
	return p.PreviewImageURL != nil && *p.PreviewImageURL != ""
}

// Complexity buckets a prompt by how much detail it carries.
type Complexity string

const (
	ComplexitySimple  Complexity = "Simple"
	ComplexityMedium  Complexity = "Medium"
	ComplexityComplex Complexity = "Complex"
)

// Draft is an assembled but not yet persisted prompt.
type Draft struct {
	Title          string     `json:"title"`
	Category       string     `json:"category"`
	Subcategory    *string    `json:"subcategory,omitempty"`
	Content        string     `json:"content"`
	Tags           []string   `json:"tags"`
	StyleTags      []string   `json:"style_tags"`
	SubjectTags    []string   `json:"subject_tags"`
	TechnicalTags  []string   `json:"technical_tags"`
	Number         *int       `json:"number,omitempty"`
	Visibility     Visibility `json:"visibility"`
	SuggestedTitle string     `json:"suggested_title"`
	Complexity     Complexity `json:"complexity"`
}

// Prompt converts the draft into a record ready for insertion. ID and
// CreatedAt are left for the store to assign.
func (d Draft) Prompt() Prompt {
	return Prompt{
		Title:       d.Title,
		Category:    d.Category,
		Subcategory: d.Subcategory,
		Content:     d.Content,
		Tags:        append([]string(nil), d.Tags...),
		StyleTags:   append([]string(nil), d.StyleTags...),
		SubjectTags: append([]string(nil), d.SubjectTags...),
		Number:      d.Number,
		Visibility:  d.Visibility,
	}
}
