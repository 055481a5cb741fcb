package model

// Review is one harvested record. The identifier is assigned by the source
// and is the only field guaranteed to be non-empty; every other field is
// best-effort and may be blank when the page markup did not expose it.
type Review struct {
	ID             string `json:"review_id"`
	Author         string `json:"reviewer"`
	Rating         string `json:"rating"`
	Text           string `json:"review_text"`
	Date           string `json:"date"`
	SubjectName    string `json:"company_name"`
	SubjectContact string `json:"phone_number"`
}
