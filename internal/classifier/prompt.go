package classifier

import "fmt"

const systemInstruction = `You are an image source classifier. Your PRIMARY goal is to use SEARCH for anything that needs ACCURACY or SPECIFICITY.

STRONGLY PREFER "search" for:
- Diagrams, charts, graphs, infographics
- Formulas, equations, mathematical concepts
- Statistics, data visualizations, percentages
- Technical illustrations, schematics, blueprints
- Scientific concepts, biological structures, chemistry
- Real objects, products, devices, tools
- Famous people, landmarks, logos, brands
- Historical photos, events, documents
- Maps, geographic content
- Business concepts (meetings, teamwork, office)
- Medical/health imagery
- Educational content, learning materials

Use "generate" ONLY for:
- Purely abstract art with no real-world equivalent
- Fantasy/sci-fi scenes that don't exist
- Highly stylized artistic interpretations
- Metaphorical imagery where accuracy doesn't matter

DEFAULT TO "search" when uncertain. Real photos are more credible for presentations.

Respond ONLY with valid JSON:
{"decision": "search", "reason": "brief explanation"}
or
{"decision": "generate", "reason": "brief explanation"}`

const userTemplate = `Classify this image prompt:

Prompt: "%s"

Examples (most should be SEARCH):
- "pie chart showing market share" → {"decision": "search", "reason": "Data visualization needs real chart"}
- "E=mc² formula" → {"decision": "search", "reason": "Scientific formula needs accurate representation"}
- "business team meeting" → {"decision": "search", "reason": "Real workplace photo more credible"}
- "DNA double helix" → {"decision": "search", "reason": "Scientific structure needs accuracy"}
- "growth statistics graph" → {"decision": "search", "reason": "Statistical data needs real chart"}
- "laptop on desk" → {"decision": "search", "reason": "Real object, stock photo works best"}
- "Eiffel Tower" → {"decision": "search", "reason": "Real landmark, actual photos available"}
- "abstract flowing colors" → {"decision": "generate", "reason": "Pure abstract art, no real equivalent"}
- "fantasy dragon castle" → {"decision": "generate", "reason": "Fictional scene requires AI"}

Your response (JSON only):`

func userPrompt(prompt string) string {
	return fmt.Sprintf(userTemplate, prompt)
}
