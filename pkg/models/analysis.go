package models

// AnalysisResult is the marketing copy generated for one listing. Field names
// are the JSON contract the LLM must answer with.
type AnalysisResult struct {
	AnnouncementTitle string   `json:"announcementTitle"` // Headline, up to ~60 chars
	LongDescriptionPt string   `json:"longDescriptionPt"` // Portuguese description, 500+ chars
	LongDescriptionEn string   `json:"longDescriptionEn"` // English description, 500+ chars
	InstagramPost     string   `json:"instagramPost"`     // Social caption, up to ~300 chars
	KeyFeatures       []string `json:"keyFeatures"`       // 5-7 selling points
	TargetAudience    string   `json:"targetAudience"`
	CallToAction      string   `json:"callToAction"`
}
