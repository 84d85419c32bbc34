package archive

// Stats aggregates the archive files under a directory.
type Stats struct {
	Archives   int            `json:"archives"`
	Segments   int            `json:"segments"`
	TotalBytes int64          `json:"total_bytes"`
	Partial    int            `json:"partial"`
	Updated    int            `json:"updated"`
	Truncated  int            `json:"truncated"`
	Kinds      map[string]int `json:"kinds,omitempty"`
}

// ComputeStats reads every archive under dir and aggregates counters.
// Unreadable files are skipped rather than failing the whole scan.
func ComputeStats(dir string) (*Stats, error) {
	paths, err := List(dir)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Kinds: make(map[string]int)}
	for _, path := range paths {
		s, err := ReadSummaryFile(path)
		if err != nil {
			continue
		}
		stats.Archives++
		stats.Segments += len(s.Segments)
		stats.TotalBytes += int64(s.Header.TotalSize)
		if s.Header.Kind != "" {
			stats.Kinds[s.Header.Kind]++
		}
		if s.Truncated {
			stats.Truncated++
		}
		if s.Index != nil {
			if s.Index.Partial {
				stats.Partial++
			}
			if s.Index.Updated {
				stats.Updated++
			}
		}
	}
	return stats, nil
}
