package models

import "strings"

// Answer is generated text plus the chunks it was grounded on.
type Answer struct {
	Text    string           `json:"text"`
	Sources []RetrievedChunk `json:"sources"`
}

// SourceList returns the distinct sources of the answer's chunks in retrieval order.
func (a *Answer) SourceList() []string {
	seen := make(map[string]bool, len(a.Sources))
	var out []string
	for _, s := range a.Sources {
		if s.Chunk == nil || seen[s.Chunk.Source] {
			continue
		}
		seen[s.Chunk.Source] = true
		out = append(out, s.Chunk.Source)
	}
	return out
}

// Audio is rendered speech for an answer.
type Audio struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

// MIMETypeForFormat maps a speech output format such as "mp3_44100_128" or
// "pcm_16000" to a MIME type for playback.
func MIMETypeForFormat(format string) string {
	codec := strings.ToLower(format)
	if i := strings.IndexByte(codec, '_'); i >= 0 {
		codec = codec[:i]
	}
	switch codec {
	case "mp3":
		return "audio/mpeg"
	case "pcm", "wav":
		return "audio/wav"
	case "ulaw":
		return "audio/basic"
	case "opus":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
