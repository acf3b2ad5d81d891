package name

// ExportRecord represents a name record in JSONL export format.
// It is used for parsing export files during import.
type ExportRecord struct {
	// Header detection field - true only for header line
	CradleExport bool `json:"_cradle_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	ID             string   `json:"id,omitempty"`
	Text           string   `json:"text,omitempty"`
	Category       Category `json:"category,omitempty"`
	Rating         *int     `json:"rating,omitempty"`
	TimesEvaluated int      `json:"times_evaluated,omitempty"`
	IsFavorite     bool     `json:"is_favorite,omitempty"`
	CreatedAt      int64    `json:"created_at,omitempty"`
	UpdatedAt      int64    `json:"updated_at,omitempty"`
}

// ToExportRecord converts a Name to an ExportRecord for export.
func ToExportRecord(n *Name) *ExportRecord {
	rating := n.Rating
	return &ExportRecord{
		ID:             n.ID,
		Text:           n.Text,
		Category:       n.Category,
		Rating:         &rating,
		TimesEvaluated: n.TimesEvaluated,
		IsFavorite:     n.IsFavorite,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	}
}

// Fields returns the creatable part of the record. Text is canonicalized by Fields.Validate.
// A record without a rating gets defaultRating; an explicit zero is kept.
func (r *ExportRecord) Fields(defaultRating int) Fields {
	rating := defaultRating
	if r.Rating != nil {
		rating = *r.Rating
	}
	return Fields{Text: r.Text, Category: r.Category, Rating: rating}
}
