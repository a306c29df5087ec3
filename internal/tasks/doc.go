// Package tasks runs the playlist curation pipeline with real-time progress reporting.
//
// # Stages
//
// [Pipeline.Analyze] moves through a fixed sequence of [Phase] values:
//
//  1. Start → MetaFetched: playlist name, owner and track total
//  2. MetaFetched → ProfilesBuilt: [FetchCatalog] pages tracks, features and artist genres; [JoinProfiles] merges them
//  3. ProfilesBuilt → CandidatesSelected: [Filter] applies tempo, genre, mood and duration; [SelectCandidates] bounds the set
//  4. CandidatesSelected → Curated: [Curator.Curate] asks the model for an ordered subset plus commentary
//  5. Curated → PlaylistCreated | Skipped: [Materializer.Materialize] writes the playlist when requested
//  6. Responded
//
// Any stage error moves to Failed. Nothing is retried at this layer; the upstream transport owns retry.
//
// # Moods
//
// [MoodTable] maps mood keywords to conditions over audio features. It is data, not code, so it can be
// listed, tested and versioned ([MoodTableVersion]).
//
// # Progress Reporting
//
// [ProgressUpdate] values are sent with select/default so a slow or absent reader never blocks a run.
package tasks
