package model

import "time"

// Review is a single review owned by exactly one clinic.
type Review struct {
	ID             int64     `json:"id" db:"id"`
	ClinicID       int64     `json:"clinic_id" db:"clinic_id"`
	Source         string    `json:"source" db:"source"`
	Rating         float64   `json:"rating" db:"rating"`
	Text           string    `json:"text,omitempty" db:"text"`
	Author         string    `json:"author,omitempty" db:"author"`
	PublishedAt    time.Time `json:"published_at" db:"published_at"`
	SentimentLabel string    `json:"sentiment_label,omitempty" db:"sentiment_label"`
	SentimentScore *float64  `json:"sentiment_score,omitempty" db:"sentiment_score"`
}

// Sentiment labels derived from the star rating.
const (
	SentimentExcellent = "excellent"
	SentimentPositive  = "positive"
	SentimentNeutral   = "neutral"
	SentimentNegative  = "negative"
)

// Enrich fills the sentiment label and score from the star rating.
// The score maps 1..5 stars onto -1..1.
func (r *Review) Enrich() {
	switch {
	case r.Rating >= 5:
		r.SentimentLabel = SentimentExcellent
	case r.Rating >= 4:
		r.SentimentLabel = SentimentPositive
	case r.Rating >= 3:
		r.SentimentLabel = SentimentNeutral
	default:
		r.SentimentLabel = SentimentNegative
	}
	score := (r.Rating - 3) / 2
	r.SentimentScore = &score
}

// VisibilityScore is a daily search-visibility measurement for one clinic.
type VisibilityScore struct {
	ID       int64     `json:"id" db:"id"`
	ClinicID int64     `json:"clinic_id" db:"clinic_id"`
	Date     time.Time `json:"date" db:"date"`
	Query    string    `json:"query,omitempty" db:"query"`
	Rank     int       `json:"rank" db:"rank"`
	Score    float64   `json:"score" db:"score"`
}
