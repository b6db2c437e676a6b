package syncop

import "time"

// msToTime converts a Lamport timestamp back into a time.Time so it can be
// stored in NoteMetadata/NotebookMetadata.ModifiedAt. Clocks in this
// package are seeded from wall-clock milliseconds at startup (see
// [NewClock]'s caller in the session layer), so remote timestamps and
// local modified_at values live on the same millisecond scale and compare
// meaningfully.
func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
