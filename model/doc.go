// Package model contains the W3CP wire data model.
//
// Every message exchanged between a Charge Point (CP) and a W3CP backend is a
// Message envelope around one of the payload types in this package. The types
// are plain data holders: they carry JSON tags for the wire format and
// validator tags for structural checks, and nothing else.
//
// Conventions used across the package:
//   - Nullable values are pointers and are omitted from JSON when nil.
//     A nil value means "not reported".
//   - Enumerations are string types. For enums with an explicit unknown
//     member, nil and unknown are equivalent.
//   - Instants are encoded as RFC 3339 strings (ISO-8601), local times as
//     "HH:mm:ss" and days of week as upper-case English names ("MONDAY").
//
// Payload hashing and signatures operate on the canonical JSON form of a
// payload, see CanonicalJSON.
package model

// Artifact coordinates of the data model. They identify the wire model a
// peer was built against and are reported by the CLI.
const (
	ArtifactGroup = "w3cp"
	ArtifactID    = "w3cp-dto"
	Version       = "0.9.1"
)
