// Package services defines the shared error taxonomy for briefcast.
//
// Every failure a caller may need to branch on is tagged with one of the
// exported sentinel errors via Wrap; errors.Is against the sentinel is the
// supported classification mechanism. Message recovers the human-readable
// detail for job records and API responses.
package services
