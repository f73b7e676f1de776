// Package encode fits the serialized parameter block into a metadata
// container under a byte budget.
//
// # Overview
//
// Image containers bound how much metadata they can carry: a PNG text
// chunk is effectively unlimited, a JPEG Exif segment tops out below
// 64 KiB. [Encode] walks a per-container ladder of progressively
// smaller encodings until one fits:
//
//  1. full: the complete parameter block plus any auxiliary payload
//  2. reduced-exif: the parameter text alone
//  3. minimal: the block trimmed to the essential keys
//  4. com-marker: the minimal text truncated into a bare comment segment
//
// Each trial is recorded as an [Attempt]; [Result].Stage names the
// fallback stage that produced the final text, or [StageNone] when the
// full encoding fit. Sizes never increase from one stage to the next.
//
// A [Sink] models one container. [PNGSink] and [JPEGSink] cover the two
// metadata layouts image savers use; hosts with other containers can
// supply their own.
package encode
