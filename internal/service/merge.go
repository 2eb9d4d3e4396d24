package service

import "github.com/iliyamo/film-festival/internal/model"

// mergeRule describes one back-fillable field: how to tell the value is
// empty and how to copy it from the incoming metadata.
type mergeRule struct {
	field   string
	isEmpty func(m *model.FilmMetadata) bool
	copy    func(dst, src *model.FilmMetadata)
}

// mergeRules lists the nine scalar film fields in wire order. A field
// is copied only when the stored value is empty and the incoming one is
// not; year uses 0 as its empty value.
var mergeRules = []mergeRule{
	{"tittle", func(m *model.FilmMetadata) bool { return m.Tittle == "" }, func(d, s *model.FilmMetadata) { d.Tittle = s.Tittle }},
	{"description", func(m *model.FilmMetadata) bool { return m.Description == "" }, func(d, s *model.FilmMetadata) { d.Description = s.Description }},
	{"year", func(m *model.FilmMetadata) bool { return m.Year == 0 }, func(d, s *model.FilmMetadata) { d.Year = s.Year }},
	{"runtime", func(m *model.FilmMetadata) bool { return m.Runtime == "" }, func(d, s *model.FilmMetadata) { d.Runtime = s.Runtime }},
	{"image", func(m *model.FilmMetadata) bool { return m.Image == "" }, func(d, s *model.FilmMetadata) { d.Image = s.Image }},
	{"director", func(m *model.FilmMetadata) bool { return m.Director == "" }, func(d, s *model.FilmMetadata) { d.Director = s.Director }},
	{"actors", func(m *model.FilmMetadata) bool { return m.Actors == "" }, func(d, s *model.FilmMetadata) { d.Actors = s.Actors }},
	{"imdb_rating", func(m *model.FilmMetadata) bool { return m.ImdbRating == "" }, func(d, s *model.FilmMetadata) { d.ImdbRating = s.ImdbRating }},
	{"imdb_votes", func(m *model.FilmMetadata) bool { return m.ImdbVotes == "" }, func(d, s *model.FilmMetadata) { d.ImdbVotes = s.ImdbVotes }},
}

// MergeMetadata back-fills the empty fields of stored from incoming and
// returns the result with the names of the fields it filled. Populated
// fields are never overwritten.
func MergeMetadata(stored, incoming model.FilmMetadata) (model.FilmMetadata, []string) {
	merged := stored
	var filled []string
	for _, r := range mergeRules {
		if r.isEmpty(&merged) && !r.isEmpty(&incoming) {
			r.copy(&merged, &incoming)
			filled = append(filled, r.field)
		}
	}
	return merged, filled
}
