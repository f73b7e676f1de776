package encode

// Container framing sizes. The PNG model is a tEXt chunk with the
// "parameters" keyword; the JPEG model is an APP1 Exif segment holding
// the text as a UserComment, or a bare COM segment at the last stage.
const (
	// pngChunkOverhead: 4-byte length, 4-byte type, 10-byte keyword,
	// 1-byte separator, 4-byte CRC.
	pngChunkOverhead = 23

	// jpegSegmentMax is the largest payload a single JPEG segment can
	// carry: the 16-bit length field minus its own two bytes.
	jpegSegmentMax = 65533

	// exifFixedOverhead: "Exif\x00\x00" identifier (6), TIFF header (8),
	// a one-entry IFD (18), and the UserComment charset prefix (8).
	exifFixedOverhead = 6 + 8 + 18 + 8

	// exifAuxEntryOverhead is the extra IFD entry an auxiliary payload
	// occupies at the full stage.
	exifAuxEntryOverhead = 12
)

// PNGSink models the PNG text chunk. PNG text chunks have no practical
// size ceiling, so the ladder is the single full stage and a successful
// encode reports no fallback.
type PNGSink struct{}

func (PNGSink) Name() string { return "png" }

// Budget is unlimited for PNG.
func (PNGSink) Budget() int { return 0 }

func (PNGSink) Stages() []Stage { return []Stage{StageFull} }

// EncodedSize is the tEXt chunk size for the text.
func (PNGSink) EncodedSize(_ Stage, text string) int {
	return pngChunkOverhead + len(text)
}

// JPEGSink models the JPEG Exif segment. The full stage carries the
// parameter text plus any auxiliary payload (typically the raw workflow
// JSON); reduced-exif drops the auxiliary payload; minimal trims the
// text; com-marker abandons Exif framing for a bare comment segment.
type JPEGSink struct {
	// MaxSegment is the byte budget. NewJPEGSink clamps it to the
	// segment payload ceiling.
	MaxSegment int
	// Aux is the auxiliary payload the full stage would embed next to
	// the parameter text.
	Aux []byte
}

// NewJPEGSink returns a JPEG sink with the given budget. Zero, negative
// or oversized budgets become the segment payload ceiling.
func NewJPEGSink(budget int) *JPEGSink {
	if budget <= 0 || budget > jpegSegmentMax {
		budget = jpegSegmentMax
	}
	return &JPEGSink{MaxSegment: budget}
}

func (s *JPEGSink) Name() string { return "jpeg" }

func (s *JPEGSink) Budget() int { return s.MaxSegment }

func (s *JPEGSink) Stages() []Stage {
	return []Stage{StageFull, StageReducedExif, StageMinimal, StageComMarker}
}

// EncodedSize is the segment payload size for the text at the stage.
func (s *JPEGSink) EncodedSize(stage Stage, text string) int {
	switch stage {
	case StageFull:
		size := exifFixedOverhead + len(text)
		if len(s.Aux) > 0 {
			size += exifAuxEntryOverhead + len(s.Aux)
		}
		return size
	case StageComMarker:
		return len(text)
	default:
		return exifFixedOverhead + len(text)
	}
}
