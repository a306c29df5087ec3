// Package models defines the data carried through the curation pipeline.
//
// Provider records arrive as three independently paginated sources:
//   - [TrackStub] : playlist track with album release date and artist references
//   - [AudioFeatures] : provider-computed numeric descriptors, keyed by track id
//   - artist genres : map of artist id to genre tags
//
// The Feature Joiner merges them into [TrackProfile] records, which are immutable for the
// rest of a request. Numeric features are pointers: nil means "unknown" and serialises as JSON null.
//
// [Criteria] is the caller's qualitative filter; [ParseCriteria] turns it into [ParsedCriteria]
// once at pipeline entry, degrading unparseable fields to "no constraint".
//
// [CurationResult] is what the LLM produced after validation against the candidate set, and
// [NewPlaylistRef] identifies a playlist created by the materializer.
//
// [BatchSummary] accumulates statistics for the legacy two-phase /batch protocol.
package models
