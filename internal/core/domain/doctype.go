package domain

import "fmt"

// DocumentType is the closed set of document classifications the engine
// accepts. Filters referencing a type outside this set fail with
// ErrUnknownDocumentType rather than silently matching nothing.
type DocumentType string

const (
	// DocumentTypeFile is an uploaded or synced file.
	DocumentTypeFile DocumentType = "file"
	// DocumentTypeWebPage is a crawled web page.
	DocumentTypeWebPage DocumentType = "web_page"
	// DocumentTypeNote is a note or wiki page.
	DocumentTypeNote DocumentType = "note"
	// DocumentTypeIssue is an issue or ticket.
	DocumentTypeIssue DocumentType = "issue"
	// DocumentTypeMessage is a chat message or thread.
	DocumentTypeMessage DocumentType = "message"
	// DocumentTypeEmail is an email message.
	DocumentTypeEmail DocumentType = "email"
	// DocumentTypeEvent is a calendar event.
	DocumentTypeEvent DocumentType = "event"
)

// AllDocumentTypes lists every valid document type.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeFile,
		DocumentTypeWebPage,
		DocumentTypeNote,
		DocumentTypeIssue,
		DocumentTypeMessage,
		DocumentTypeEmail,
		DocumentTypeEvent,
	}
}

// ParseDocumentType validates a raw string against the closed type set.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case DocumentTypeFile, DocumentTypeWebPage, DocumentTypeNote,
		DocumentTypeIssue, DocumentTypeMessage, DocumentTypeEmail,
		DocumentTypeEvent:
		return DocumentType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDocumentType, s)
	}
}

// Valid reports whether the type belongs to the closed set.
func (t DocumentType) Valid() bool {
	_, err := ParseDocumentType(string(t))
	return err == nil
}
