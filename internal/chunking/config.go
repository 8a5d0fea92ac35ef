package chunking

// Config bounds chunk sizes and the refinement pass.
type Config struct {
	// MinWords and MaxWords are the soft word-count band; violations are
	// flagged, not fatal.
	MinWords int
	MaxWords int

	// TargetWords is the preferred chunk size within the band.
	TargetWords int

	// OverlapWords, when greater than zero, makes each chunk repeat the
	// last words of its predecessor for context continuity. Disabled by
	// default.
	OverlapWords int

	// Workers bounds how many refinement calls run concurrently per
	// document.
	Workers int

	// MinDocumentWords skips documents shorter than this, reported as
	// skipped rather than failed.
	MinDocumentWords int
}

// DefaultConfig returns the chunking defaults: the 300-500 word band with
// a 400 word target, no overlap, and four concurrent refinement calls.
func DefaultConfig() Config {
	return Config{
		MinWords:         300,
		MaxWords:         500,
		TargetWords:      400,
		OverlapWords:     0,
		Workers:          4,
		MinDocumentWords: 100,
	}
}

// normalise fills zero values with defaults and keeps the band coherent.
func (c Config) normalise() Config {
	d := DefaultConfig()
	if c.MinWords <= 0 {
		c.MinWords = d.MinWords
	}
	if c.MaxWords <= c.MinWords {
		c.MaxWords = c.MinWords + d.MaxWords - d.MinWords
	}
	if c.TargetWords < c.MinWords || c.TargetWords > c.MaxWords {
		c.TargetWords = (c.MinWords + c.MaxWords) / 2
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.OverlapWords < 0 {
		c.OverlapWords = 0
	}
	if c.OverlapWords >= c.MinWords {
		c.OverlapWords = c.MinWords / 4
	}
	return c
}
