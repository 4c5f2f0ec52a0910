package narrator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/plotwright/plotwright/internal/narrator"
	"github.com/plotwright/plotwright/pkg/provider/tts"
	ttsmock "github.com/plotwright/plotwright/pkg/provider/tts/mock"
)

func TestSplitText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{
			name:   "short text is one chunk",
			text:   "A quiet episode.",
			maxLen: 500,
			want:   []string{"A quiet episode."},
		},
		{
			name:   "splits on sentence boundaries",
			text:   "First sentence here. Second sentence here. Third one.",
			maxLen: 25,
			want:   []string{"First sentence here.", "Second sentence here.", "Third one."},
		},
		{
			name:   "packs sentences up to the cap",
			text:   "One two. Three four. Five six.",
			maxLen: 22,
			want:   []string{"One two. Three four.", "Five six."},
		},
		{
			name:   "question and exclamation end sentences",
			text:   "Who did it? Nobody knows! The end.",
			maxLen: 14,
			want:   []string{"Who did it?", "Nobody knows!", "The end."},
		},
		{
			name:   "overlong sentence falls back to words",
			text:   "alpha beta gamma delta epsilon",
			maxLen: 12,
			want:   []string{"alpha beta", "gamma delta", "epsilon"},
		},
		{
			name:   "trailing text without punctuation kept",
			text:   "A full sentence. and a dangling tail",
			maxLen: 19,
			want:   []string{"A full sentence.", "and a dangling tail"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := narrator.SplitText(tc.text, tc.maxLen)
			if len(got) != len(tc.want) {
				t.Fatalf("SplitText() = %q, want %q", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestNarrate_ConcatenatesChunks(t *testing.T) {
	t.Parallel()
	provider := &ttsmock.Provider{
		SynthesizeResult: &tts.Audio{PCM: []byte{1, 2}, SampleRate: 24000},
	}
	n := narrator.New(provider,
		narrator.WithVoice(tts.VoiceProfile{ID: "narrator-1"}),
		narrator.WithChunkLength(25),
	)

	audio, err := n.Narrate(context.Background(), "First sentence here. Second sentence here.")
	if err != nil {
		t.Fatalf("Narrate() error = %v", err)
	}

	calls := provider.Calls()
	if len(calls) != 2 {
		t.Fatalf("synthesize calls = %d, want 2", len(calls))
	}
	if calls[0].Text != "First sentence here." {
		t.Errorf("first chunk = %q", calls[0].Text)
	}
	if calls[0].Voice.ID != "narrator-1" {
		t.Errorf("voice = %q", calls[0].Voice.ID)
	}
	if len(audio.PCM) != 4 {
		t.Errorf("PCM length = %d, want 4 (two chunks of two bytes)", len(audio.PCM))
	}
	if audio.SampleRate != 24000 {
		t.Errorf("sample rate = %d", audio.SampleRate)
	}
}

func TestNarrate_DefaultsToFirstVoice(t *testing.T) {
	t.Parallel()
	provider := &ttsmock.Provider{
		Voices: []tts.VoiceProfile{
			{ID: "v1", Name: "First"},
			{ID: "v2", Name: "Second"},
		},
		SynthesizeResult: &tts.Audio{PCM: []byte{0}, SampleRate: 16000},
	}
	n := narrator.New(provider)

	if _, err := n.Narrate(context.Background(), "Hello."); err != nil {
		t.Fatalf("Narrate() error = %v", err)
	}
	calls := provider.Calls()
	if len(calls) != 1 || calls[0].Voice.ID != "v1" {
		t.Errorf("calls = %+v, want one call with voice v1", calls)
	}
}

func TestNarrate_Errors(t *testing.T) {
	t.Parallel()

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		n := narrator.New(&ttsmock.Provider{})
		if _, err := n.Narrate(context.Background(), "   "); err == nil {
			t.Error("expected error for empty text")
		}
	})

	t.Run("no voices", func(t *testing.T) {
		t.Parallel()
		n := narrator.New(&ttsmock.Provider{})
		if _, err := n.Narrate(context.Background(), "Hello."); err == nil {
			t.Error("expected error when the provider has no voices")
		}
	})

	t.Run("synthesis failure propagates", func(t *testing.T) {
		t.Parallel()
		provider := &ttsmock.Provider{SynthesizeErr: errors.New("backend down")}
		n := narrator.New(provider, narrator.WithVoice(tts.VoiceProfile{ID: "v"}))
		_, err := n.Narrate(context.Background(), "Hello.")
		if err == nil || !strings.Contains(err.Error(), "backend down") {
			t.Errorf("error = %v, want synthesis failure", err)
		}
	})
}
