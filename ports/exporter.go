package ports

import "biometric/domain/report"

// DocumentWriter renders a report document into a complete file in memory.
// A writer either returns the whole artifact or an error, never a prefix.
type DocumentWriter interface {
	Write(doc *report.Document) ([]byte, error)
	ContentType() string
	Extension() string
}
