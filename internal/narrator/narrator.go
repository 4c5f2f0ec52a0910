// Package narrator turns episode summaries into speech.
//
// Synthesis backends choke on long inputs, so a summary is first split into
// sentence-aligned chunks and each chunk synthesized separately. Chunks share
// one sample rate; the narration is their concatenation in order.
package narrator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/plotwright/plotwright/pkg/provider/tts"
)

// defaultChunkLen is the maximum characters handed to the backend per
// synthesis call.
const defaultChunkLen = 500

// Narrator reads text aloud through a TTS provider. Construct with [New];
// the zero value is not usable.
type Narrator struct {
	provider tts.Provider
	voice    tts.VoiceProfile
	chunkLen int
	log      *slog.Logger
}

// Option configures a [Narrator].
type Option func(*Narrator)

// WithVoice selects the synthesis voice. Without it the provider's first
// listed voice is used.
func WithVoice(voice tts.VoiceProfile) Option {
	return func(n *Narrator) { n.voice = voice }
}

// WithChunkLength overrides the per-call text length cap. Default: 500.
func WithChunkLength(length int) Option {
	return func(n *Narrator) { n.chunkLen = length }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(n *Narrator) { n.log = log }
}

// New creates a narrator over the provider.
func New(provider tts.Provider, opts ...Option) *Narrator {
	n := &Narrator{
		provider: provider,
		chunkLen: defaultChunkLen,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Narrate synthesizes text chunk by chunk and returns the concatenated
// audio. Any chunk failure fails the narration: a recap with silent gaps is
// worse than no recap.
func (n *Narrator) Narrate(ctx context.Context, text string) (*tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("narrator: nothing to narrate")
	}

	voice := n.voice
	if voice.ID == "" {
		voices, err := n.provider.ListVoices(ctx)
		if err != nil {
			return nil, fmt.Errorf("narrator: list voices: %w", err)
		}
		if len(voices) == 0 {
			return nil, fmt.Errorf("narrator: provider offers no voices")
		}
		voice = voices[0]
	}

	chunks := SplitText(text, n.chunkLen)
	n.log.Debug("narrating", "chunks", len(chunks), "voice", voice.ID)

	out := &tts.Audio{}
	for i, chunk := range chunks {
		audio, err := n.provider.Synthesize(ctx, chunk, voice)
		if err != nil {
			return nil, fmt.Errorf("narrator: synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if out.SampleRate == 0 {
			out.SampleRate = audio.SampleRate
		} else if audio.SampleRate != out.SampleRate {
			return nil, fmt.Errorf("narrator: sample rate changed mid-narration: %d then %d",
				out.SampleRate, audio.SampleRate)
		}
		out.PCM = append(out.PCM, audio.PCM...)
	}
	return out, nil
}

var sentenceEnd = regexp.MustCompile(`(?s)(.*?[.!?])(?:\s+|$)`)

// SplitText splits text into chunks of at most maxLen characters, preferring
// sentence boundaries. A single sentence longer than maxLen falls back to
// word-boundary splitting.
func SplitText(text string, maxLen int) []string {
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return []string{text}
	}

	sentences := splitSentences(text)
	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		if len(sentence) > maxLen {
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimSpace(current.String()))
				current.Reset()
			}
			chunks = append(chunks, splitWords(sentence, maxLen)...)
			continue
		}
		if current.Len()+len(sentence) > maxLen && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(sentence)
		current.WriteString(" ")
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// splitSentences cuts text at sentence-final punctuation. Trailing text
// without terminal punctuation forms a final sentence.
func splitSentences(text string) []string {
	var sentences []string
	rest := text
	for {
		loc := sentenceEnd.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		sentences = append(sentences, strings.TrimSpace(rest[loc[2]:loc[3]]))
		rest = rest[loc[1]:]
	}
	if tail := strings.TrimSpace(rest); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// splitWords splits one over-long sentence at word boundaries.
func splitWords(sentence string, maxLen int) []string {
	var chunks []string
	var current strings.Builder
	for _, word := range strings.Fields(sentence) {
		if current.Len()+len(word)+1 > maxLen && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(word)
		current.WriteString(" ")
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}
