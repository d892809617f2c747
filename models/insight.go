package models

// Insight is one generated dashboard insight. The text itself comes from an
// external generation service; this is only the stable exchange shape.
type Insight struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Text  string `json:"text"`
}
