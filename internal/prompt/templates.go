package prompt

const sceneBreaksTemplate = `You are an expert at identifying scene breaks in TV show transcripts.

Your task is to analyze a transcript and identify natural scene breaks. Scene breaks typically occur when:
- Location changes (indoor to outdoor, different rooms, different buildings)
- Time jumps (later that day, next morning, flashbacks)
- Character group changes (different set of characters in focus)
- Narrative shifts (different storylines, perspective changes)

Look for common indicators:
- Stage directions like "FADE IN:", "CUT TO:", "INTERIOR:", "EXTERIOR:"
- Time indicators like "LATER", "MEANWHILE", "THE NEXT DAY"
- Location descriptions
- Character entrance/exit patterns

Return the transcript split into scenes, with each scene as a separate item.
Use "---SCENE_BREAK---" as the delimiter between scenes.`

const sceneAnalysisTemplate = `You are an expert TV script analyst. Analyze the given scene and extract key information.

CRITICAL: You must return ONLY a valid JSON object. Do not include any explanatory text before or after the JSON.

For each scene, identify:
1. Location/setting (where does this take place?)
2. Time of day (if mentioned or implied)
3. Characters present (list all characters who speak or are mentioned as present)
4. Key dialogue (most important/memorable lines)
5. Plot events (what happens that advances the story?)
6. Character developments (character growth, revelations, changes)
7. Relationship dynamics (interactions between characters, relationship changes)
8. Emotional tone (happy, sad, tense, romantic, comedic, dramatic, mysterious, action, peaceful, angry, fearful, nostalgic)
9. Mood description (overall atmosphere and feeling)
10. Plot relevance (0.0-1.0, how important is this scene to the main plot?)
11. Foreshadowing (hints about future events)
12. Callbacks (references to previous events)
13. Importance score (0.0-1.0, overall scene importance)
14. Themes (what themes are explored in this scene?)
15. Summary (2-3 sentence summary of what happens)

Return EXACTLY this JSON structure (replace values with your analysis):
{
  "summary": "Brief summary here",
  "location": "Location or null",
  "time_of_day": "Time or null",
  "characters_present": ["Character1", "Character2"],
  "key_dialogue": ["Important quote 1", "Important quote 2"],
  "plot_events": ["Event 1", "Event 2"],
  "character_developments": ["Development 1", "Development 2"],
  "relationship_dynamics": ["Dynamic 1", "Dynamic 2"],
  "emotional_tone": ["tone1", "tone2"],
  "mood_description": "Mood description or null",
  "plot_relevance": 0.7,
  "foreshadowing": ["Foreshadowing 1", "Foreshadowing 2"],
  "callbacks": ["Callback 1", "Callback 2"],
  "importance_score": 0.8,
  "themes": ["Theme 1", "Theme 2"]
}

Use empty arrays [] for lists with no items, null for missing values, and numbers for scores.`

const characterIdentificationTemplate = `You are an expert at identifying characters in TV show scripts and transcripts.

Identify ALL characters that are mentioned in the given content. This includes:
- Characters who speak (have dialogue)
- Characters who are present but don't speak
- Characters who are mentioned by other characters
- Characters who appear in stage directions

Return ONLY the character names, one per line, using their most common/full name.
Do not include:
- Generic references like "the waiter", "a man", "someone"
- Groups like "the crowd", "everyone"
- Unclear pronouns

Focus on named characters only.`

const characterProfileTemplate = `You are analyzing a character named "{character}" from their first appearance in a TV show.

CRITICAL: You must return ONLY a valid JSON object. Do not include any explanatory text before or after the JSON.

Extract as much information as possible about this character from the given content:

1. Aliases/nicknames (other names they're called)
2. Role (protagonist, antagonist, supporting, minor, guest, recurring)
3. Physical description (if mentioned)
4. Occupation/job (if mentioned)
5. Age (if mentioned or can be estimated - return as STRING)
6. Background/history (if revealed)
7. Personality traits (what kind of person are they?)
8. Skills/abilities (what are they good at?)
9. Goals/motivations (what do they want?)
10. Fears/weaknesses (what are they afraid of or bad at?)
11. Character arc (what journey might they be on?)
12. Important quotes (memorable things they say)
13. Importance score (0.0-1.0, how important do they seem to the story?)

Return EXACTLY this JSON structure (replace values with your analysis):
{
  "aliases": ["Nickname1", "Nickname2"],
  "role": "supporting",
  "description": "Physical description or null",
  "occupation": "Job description or null",
  "age": "25",
  "background": "Background info or null",
  "personality_traits": ["Trait1", "Trait2"],
  "skills_abilities": ["Skill1", "Skill2"],
  "goals_motivations": ["Goal1", "Goal2"],
  "fears_weaknesses": ["Fear1", "Weakness1"],
  "character_arc": "Arc description or null",
  "important_quotes": ["Quote1", "Quote2"],
  "importance_score": 0.7
}

Use empty arrays [] for lists with no items, null for missing values, strings for age, and numbers for importance score.`

const characterUpdatesTemplate = `You are analyzing a scene for character development and changes for the character "{character}".

Look for:
1. New personality traits revealed
2. Character growth or changes
3. New goals or motivations
4. Important dialogue/quotes
5. New skills or abilities revealed
6. Background information revealed
7. Changes in relationships
8. Character arc progression

Return your analysis as a JSON object with these keys:
- new_personality_traits: List of newly revealed traits
- character_changes: List of character developments/changes with descriptions
- new_quotes: List of important new quotes
- new_goals_motivations: List of newly revealed goals/motivations
- new_skills_abilities: List of newly revealed skills/abilities
- new_background_info: New background information revealed
- relationship_changes: List of relationship changes involving this character
- character_arc_progression: How the character's arc progresses in this scene`

const relationshipPairsTemplate = `You are an expert at identifying character interactions in TV show content.

Given a list of characters present and the scene content, identify which pairs of characters directly interact with each other. An interaction means:
- They speak to each other
- They act together or against each other
- One significantly affects the other within the scene

Do not include pairs who merely appear in the same scene without interacting, and never pair a character with themselves.

Return ONLY the interacting pairs, one per line, in the format:
Character1 | Character2`

const relationshipDetailsTemplate = `You are analyzing the relationship between "{char1}" and "{char2}" in a TV show.

CRITICAL: You must return ONLY a valid JSON object, or the word null if no meaningful relationship is evident.

Determine from the content:
1. Type (family, romantic, friendship, rivalry, professional, mentor_student, enemy, acquaintance, alliance, complicated)
2. Status (developing, established, strained, broken, reconciled, ended, unknown)
3. Description of the relationship
4. How they met (if shown)
5. Their overall dynamic
6. Key dialogue between them
7. Importance score (0.0-1.0)
8. Emotional intensity (0.0-1.0)

Return EXACTLY this JSON structure (replace values with your analysis):
{
  "type": "friendship",
  "status": "established",
  "description": "Description or null",
  "how_they_met": "How they met or null",
  "dynamic": "Dynamic description or null",
  "key_dialogue": ["Exchange 1", "Exchange 2"],
  "importance_score": 0.6,
  "emotional_intensity": 0.5
}

If the characters have no discernible relationship in this content, return null.`

const plotEventsTemplate = `You are an expert story analyst identifying plot events in TV show content.

Identify ALL significant plot events that occur in the given content. For each event, determine:

1. Title (brief, descriptive name)
2. Description (what happens)
3. Type (main_plot, subplot, character_development, world_building, mystery_clue, mystery_resolution, conflict_introduction, conflict_escalation, conflict_resolution, revelation, twist, cliffhanger, flashback, foreshadowing, callback)
4. Importance (critical, high, medium, low)
5. Characters involved
6. Plot arc (if part of a larger storyline)
7. Themes explored
8. Emotional impact (0.0-1.0)
9. Plot significance (0.0-1.0)
10. Mystery elements (if any)
11. Information revealed
12. Questions raised
13. Questions answered
14. Foreshadowing clues
15. Tags for categorization

Return as a JSON array of events. If no significant events occur, return an empty array.`

const summaryCohesionTemplate = `You are an expert TV show analyst creating comprehensive episode summaries.

You will be given a draft made of scene summaries and major plot events. Rewrite it as one detailed, engaging summary that includes:
1. What happens in the episode (main plot points)
2. Character developments and interactions
3. Important dialogue or moments
4. How this episode advances the overall story
5. Key themes explored

Make the summary informative but engaging, as if writing for fans of the show. Return only the rewritten summary.`

const contentSummaryTemplate = `You are summarizing content from a TV show. Create a concise but comprehensive summary that captures the key points, character interactions, and plot developments.`
