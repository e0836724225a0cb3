// Package ids generates identifiers for documents, content items and jobs.
package ids

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewDocumentID returns a process-wide unique document identifier.
func NewDocumentID() string {
	return uuid.NewString()
}

// NewItemID returns a short identifier for a content item, e.g. "item_V1StGXR8_j".
func NewItemID() string {
	return "item_" + mustGenerate(10)
}

// NewJobID returns a short identifier for a background job.
func NewJobID() string {
	return "job_" + mustGenerate(8)
}

// mustGenerate panics only if the system entropy source fails, in which
// case nothing else in the process can be trusted either.
func mustGenerate(size int) string {
	id, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		panic(fmt.Errorf("failed to generate nanoid: %w", err))
	}
	return id
}
