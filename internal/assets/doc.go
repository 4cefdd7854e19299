// Package assets tracks the audio each upcoming alarm occurrence needs and
// fetches it ahead of trigger time.
//
// The [Coordinator] owns the tracked-asset map exclusively. Callers receive copies
// from [Coordinator.Analyze] and [Coordinator.Snapshot] and never references into
// the map. Three kinds of asset are derived per occurrence:
//
//   - speech: the alarm message rendered by a speech endpoint, priority at least 8
//   - audio: the alarm's custom sound, priority from time to trigger
//   - fallback: a locally generated tone, priority 3, always loaded
//
// Fetches run in batches through an [AudioLoader]. A batch settles every fetch
// before returning; one failure never cancels its siblings.
package assets
