package agent

import (
	"strings"

	json "github.com/goccy/go-json"
)

const analyzerPrompt = `You are a memory analyzer for a conversational assistant. Read the latest user message and decide whether it contains something worth remembering. Reply with a single JSON object and nothing else, with the fields "_thoughts", "keywords", "content" and "title".

Rules:
- Only analyze the most recent message.
- When the user talks about themselves, include their name as a keyword if it is known, otherwise include "user".
- Reuse keywords from <keywords></keywords> when they fit, so tagging stays consistent.
- If the information is already known, set "content" and "title" to null.
- Keep "_thoughts" to one short sentence.
- Keywords are lowercase, specific rather than generic, split into single concepts, 3 to 7 per entry.
- Write "content" as a concise statement of fact, in the third person.
- Set "content" to null for greetings, chitchat and anything not useful later.
- "title" is a short slug suitable for a file name.

Examples:

USER: I live in Krakow, it's a beautiful city in southern Poland.
{"_thoughts": "User shared where they live", "keywords": ["krakow", "poland", "city", "south"], "content": "The user lives in Krakow, a city in southern Poland described as beautiful", "title": "place-of-living"}

USER: My favorite programming languages are Python and JavaScript.
{"_thoughts": "User shared language preferences", "keywords": ["python", "javascript", "coding", "preferences"], "content": "The user's favorite programming languages are Python and JavaScript", "title": "programming-languages"}

USER: Hey, how's it going?
{"_thoughts": "Greeting, nothing to learn", "keywords": [], "content": null, "title": null}
`

const assistantPrompt = `You are a helpful assistant. Answer the user's question using the provided context and your general knowledge.`

// buildAnalyzerPrompt appends the known keywords as a JSON list.
func buildAnalyzerPrompt(known []string) string {
	if known == nil {
		known = []string{}
	}
	list, err := json.Marshal(known)
	if err != nil {
		list = []byte("[]")
	}
	return analyzerPrompt + "<keywords>" + string(list) + "</keywords>"
}

// buildAssistantPrompt wraps retrieved contents in a context block.
func buildAssistantPrompt(contents []string) string {
	if len(contents) == 0 {
		return assistantPrompt
	}
	return assistantPrompt + "<context>" + strings.Join(contents, " ") + "</context>"
}
