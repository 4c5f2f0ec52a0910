// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs, a local
// F5-TTS or Piper instance) and presents a uniform synthesis interface. The
// narrator uses it to read episode recaps aloud; synthesis happens per text
// chunk so a long summary can start playing before the tail is rendered.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile identifies a synthesis voice offered by a provider.
type VoiceProfile struct {
	// ID is the provider-assigned voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Language is a BCP 47 language tag (e.g., "en-US"). May be empty if the
	// provider does not report it.
	Language string
}

// Audio is a chunk of synthesised sound.
type Audio struct {
	// PCM is raw 16-bit little-endian mono PCM.
	PCM []byte

	// SampleRate is the sample rate of PCM in Hz.
	SampleRate int
}

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Synthesize renders text with the given voice and returns the resulting
	// audio. Returns an error if the voice is unknown, the backend fails, or
	// ctx is cancelled.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (*Audio, error)

	// ListVoices returns all voice profiles available from this provider. The
	// list reflects the provider's current catalogue and may change between
	// calls.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}
