package generation

// Idea generation prompts
const (
	IdeaGenerationSystemPrompt = `You are an expert content strategist planning social content for creators and small teams.

Your task is to produce a batch of distinct, ready-to-schedule content ideas for the requested topic and audience.

Guidelines:
- Every idea must stand on its own: no "part 2" chains
- Hooks grab attention in the first line
- Captions are concise and platform-appropriate
- Calls-to-action invite a concrete next step
- Hashtags are relevant and specific, not generic filler
- Write in the requested tone and language throughout`

	IdeaGenerationUserPrompt = `Create %d content ideas.

Topic: %s
Audience: %s
Tone: %s
Language: %s
Brand voice: %s

%s

Respond with a JSON array of exactly this shape:
[
  {
    "title": "<short title>",
    "description": "<2-3 sentence description>",
    "hook": "<attention-grabbing opening line>",
    "caption": "<ready-to-post caption>",
    "cta": "<call to action>",
    "hashtags": ["<hashtag1>", "<hashtag2>"],
    "platforms": ["<best-fit platform>"]
  }
]`
)

// DefaultBatchSize is the number of ideas requested per generation run
const DefaultBatchSize = 5
