package model

import (
	"testing"
)

func TestEpisodeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		season  int
		episode int
		want    string
	}{
		{name: "single digits padded", season: 1, episode: 3, want: "S01E03"},
		{name: "double digits", season: 12, episode: 24, want: "S12E24"},
		{name: "triple digits not truncated", season: 1, episode: 103, want: "S01E103"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EpisodeID(tt.season, tt.episode); got != tt.want {
				t.Errorf("EpisodeID(%d, %d) = %q, want %q", tt.season, tt.episode, got, tt.want)
			}
		})
	}
}

func TestSceneID(t *testing.T) {
	t.Parallel()

	if got := SceneID("S01E01", 2); got != "S01E01_S002" {
		t.Errorf("SceneID = %q, want %q", got, "S01E01_S002")
	}
}

func TestPlotEventID(t *testing.T) {
	t.Parallel()

	if got := PlotEventID("S01E01_S002", 1); got != "S01E01_S002_E001" {
		t.Errorf("PlotEventID = %q, want %q", got, "S01E01_S002_E001")
	}
}

func TestEpisodeInfoValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		info    EpisodeInfo
		wantErr bool
	}{
		{name: "valid", info: EpisodeInfo{Season: 1, Episode: 1, Title: "Pilot"}},
		{name: "zero season", info: EpisodeInfo{Season: 0, Episode: 1, Title: "Pilot"}, wantErr: true},
		{name: "zero episode", info: EpisodeInfo{Season: 1, Episode: 0, Title: "Pilot"}, wantErr: true},
		{name: "empty title", info: EpisodeInfo{Season: 1, Episode: 1}, wantErr: true},
		{name: "everything wrong", info: EpisodeInfo{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.info.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEpisodeAppendsDeduplicate(t *testing.T) {
	t.Parallel()

	e := NewEpisode(EpisodeInfo{Season: 1, Episode: 1, Title: "Pilot"}, "transcript")
	if e.ID != "S01E01" {
		t.Fatalf("episode ID = %q, want S01E01", e.ID)
	}

	e.AddScene("S01E01_S001")
	e.AddScene("S01E01_S001")
	e.AddScene("S01E01_S002")
	if len(e.Scenes) != 2 {
		t.Errorf("scenes = %v, want 2 unique entries", e.Scenes)
	}

	e.AddCharacter("Alice")
	e.AddCharacter("Alice")
	if len(e.CharactersIntroduced) != 1 {
		t.Errorf("characters = %v, want 1 unique entry", e.CharactersIntroduced)
	}
}

func TestCharacterKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Walter White", want: "walter_white"},
		{in: "  Jesse Pinkman ", want: "jesse_pinkman"},
		{in: "Saul", want: "saul"},
	}

	for _, tt := range tests {
		if got := CharacterKey(tt.in); got != tt.want {
			t.Errorf("CharacterKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCharacterAppearanceTracking(t *testing.T) {
	t.Parallel()

	c := NewCharacter("Alice")

	c.AddAppearance("S01E01")
	c.AddAppearance("S01E02")
	c.AddAppearance("S01E02")
	c.AddAppearance("S01E03")

	if c.FirstAppearance != "S01E01" {
		t.Errorf("first appearance = %q, want S01E01", c.FirstAppearance)
	}
	if c.LastAppearance != "S01E03" {
		t.Errorf("last appearance = %q, want S01E03", c.LastAppearance)
	}
	if len(c.EpisodeAppearances) != 3 {
		t.Errorf("appearances = %v, want 3 unique entries", c.EpisodeAppearances)
	}
}

func TestCharacterAliasExcludesCanonicalName(t *testing.T) {
	t.Parallel()

	c := NewCharacter("Alice")
	c.AddAlias("Alice")
	c.AddAlias("Al")
	c.AddAlias("Al")

	if len(c.Aliases) != 1 || c.Aliases[0] != "Al" {
		t.Errorf("aliases = %v, want [Al]", c.Aliases)
	}
}

func TestRelationshipKeySymmetric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want string
	}{
		{a: "Alice", b: "Bob", want: "alice_bob"},
		{a: "Bob", b: "Alice", want: "alice_bob"},
		{a: "Walter White", b: "Jesse Pinkman", want: "jesse_pinkman_walter_white"},
		{a: "Jesse Pinkman", b: "Walter White", want: "jesse_pinkman_walter_white"},
	}

	for _, tt := range tests {
		if got := RelationshipKey(tt.a, tt.b); got != tt.want {
			t.Errorf("RelationshipKey(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRelationshipStatusHistory(t *testing.T) {
	t.Parallel()

	r := NewRelationship("Alice", "Bob", RelFriendship)
	if r.CurrentStatus != StatusUnknown {
		t.Fatalf("initial status = %q, want unknown", r.CurrentStatus)
	}

	r.AddChange("S01E01", StatusDeveloping, "first meeting", "S01E01_S001", "")
	r.AddChange("S01E02", StatusStrained, "betrayal revealed", "", "the confession")

	if r.CurrentStatus != StatusStrained {
		t.Errorf("current status = %q, want strained", r.CurrentStatus)
	}
	if len(r.Changes) != 2 {
		t.Fatalf("changes = %d, want 2", len(r.Changes))
	}
	if r.Changes[0].OldStatus != StatusUnknown || r.Changes[0].NewStatus != StatusDeveloping {
		t.Errorf("first change = %+v, want unknown -> developing", r.Changes[0])
	}
	if r.Changes[1].OldStatus != StatusDeveloping || r.Changes[1].NewStatus != StatusStrained {
		t.Errorf("second change = %+v, want developing -> strained", r.Changes[1])
	}
}

func TestRelationshipOtherCharacter(t *testing.T) {
	t.Parallel()

	r := NewRelationship("Alice", "Bob", RelFriendship)
	if got := r.OtherCharacter("Alice"); got != "Bob" {
		t.Errorf("OtherCharacter(Alice) = %q, want Bob", got)
	}
	if got := r.OtherCharacter("Bob"); got != "Alice" {
		t.Errorf("OtherCharacter(Bob) = %q, want Alice", got)
	}
	if got := r.OtherCharacter("Carol"); got != "" {
		t.Errorf("OtherCharacter(Carol) = %q, want empty", got)
	}
}

func TestEnumFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "role known", got: ParseCharacterRole("Protagonist"), want: RoleProtagonist},
		{name: "role unknown falls back to minor", got: ParseCharacterRole("hero"), want: RoleMinor},
		{name: "relationship type known", got: ParseRelationshipType("MENTOR_STUDENT"), want: RelMentorStudent},
		{name: "relationship type unknown falls back to acquaintance", got: ParseRelationshipType("frenemies"), want: RelAcquaintance},
		{name: "status known", got: ParseRelationshipStatus("strained"), want: StatusStrained},
		{name: "status unknown falls back to unknown", got: ParseRelationshipStatus("on fire"), want: StatusUnknown},
		{name: "event type known", got: ParseEventType("mystery_clue"), want: EventMysteryClue},
		{name: "event type unknown falls back to main_plot", got: ParseEventType("interlude"), want: EventMainPlot},
		{name: "importance known", got: ParseEventImportance("CRITICAL"), want: ImportanceCritical},
		{name: "importance unknown falls back to medium", got: ParseEventImportance("sorta big"), want: ImportanceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestParseEmotionalToneDropsUnknown(t *testing.T) {
	t.Parallel()

	if tone, ok := ParseEmotionalTone("Tense"); !ok || tone != ToneTense {
		t.Errorf("ParseEmotionalTone(Tense) = %v, %v", tone, ok)
	}
	if _, ok := ParseEmotionalTone("bewildered"); ok {
		t.Error("ParseEmotionalTone(bewildered) should not match")
	}
}

func TestSceneToneDeduplication(t *testing.T) {
	t.Parallel()

	s := NewScene("S01E01", 1, "content")
	s.AddEmotionalTone(ToneTense)
	s.AddEmotionalTone(ToneTense)
	s.AddEmotionalTone(ToneDramatic)

	if len(s.EmotionalTone) != 2 {
		t.Errorf("tones = %v, want 2 unique entries", s.EmotionalTone)
	}
}

func TestSceneSetScoresClamps(t *testing.T) {
	t.Parallel()

	s := NewScene("S01E01", 1, "content")
	s.SetScores(1.7, -0.2)

	if s.PlotRelevance != 1.0 {
		t.Errorf("plot relevance = %v, want clamped to 1.0", s.PlotRelevance)
	}
	if s.ImportanceScore != 0.0 {
		t.Errorf("importance = %v, want clamped to 0.0", s.ImportanceScore)
	}
}

func TestPlotEventCausalLinks(t *testing.T) {
	t.Parallel()

	e := NewPlotEvent("S01E01_S001", 1, "The heist", "They rob the vault")
	e.AddCause("S01E01_S001_E000")
	e.AddCause("S01E01_S001_E000")
	e.AddConsequence("S01E02_S001_E001")
	// Cycles are allowed: an event may list itself as related.
	e.AddRelatedEvent(e.ID)

	if len(e.Causes) != 1 {
		t.Errorf("causes = %v, want 1 unique entry", e.Causes)
	}
	if len(e.Consequences) != 1 {
		t.Errorf("consequences = %v, want 1 entry", e.Consequences)
	}
	if len(e.RelatedEvents) != 1 || e.RelatedEvents[0] != e.ID {
		t.Errorf("related = %v, want self-reference preserved", e.RelatedEvents)
	}
}

func TestPlotEventClassification(t *testing.T) {
	t.Parallel()

	e := NewPlotEvent("S01E01", 1, "Clue", "A key under the mat")
	e.Type = EventMysteryClue
	if !e.IsMysteryRelated() {
		t.Error("mystery_clue event should be mystery related")
	}

	e2 := NewPlotEvent("S01E01", 2, "Chat", "Small talk")
	e2.Importance = ImportanceLow
	e2.PlotSignificance = 0.2
	if e2.IsMajor() {
		t.Error("low-importance event should not be major")
	}
	e2.PlotSignificance = 0.8
	if !e2.IsMajor() {
		t.Error("high-significance event should be major")
	}
}
