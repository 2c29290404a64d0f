package entity

// Attachment is blob-store metadata, not a relational row. Messages reference
// attachments by id only; authorization on retrieval checks OwnerUserId.
type Attachment struct {
	Id          string
	ContentType string
	OwnerUserId string
}
