package services

import "strings"

const chunkCharLimit = 1200

// splitIntoChunks slices text into bounded pieces on word boundaries so a
// single generative call never has to carry the whole document, and the
// fallback outline has something to build from.
func splitIntoChunks(text string) []string {
  text = strings.TrimSpace(text)
  if text == "" {
    return nil
  }
  if len(text) <= chunkCharLimit {
    return []string{text}
  }

  var chunks []string
  var current strings.Builder
  for _, word := range strings.Fields(text) {
    if current.Len() > 0 && current.Len()+1+len(word) > chunkCharLimit {
      chunks = append(chunks, current.String())
      current.Reset()
    }
    if current.Len() > 0 {
      current.WriteString(" ")
    }
    current.WriteString(word)
  }
  if current.Len() > 0 {
    chunks = append(chunks, current.String())
  }
  return chunks
}
