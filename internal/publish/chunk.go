package publish

// notionBlockLimit is Notion's per-rich-text-block character limit.
const notionBlockLimit = 2000

// ChunkText splits s into ordered chunks of at most limit runes.
// Boundaries are raw length only, never semantic; concatenating the
// chunks reconstructs s exactly. Empty input yields no chunks.
func ChunkText(s string, limit int) []string {
	if s == "" || limit <= 0 {
		return nil
	}
	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
