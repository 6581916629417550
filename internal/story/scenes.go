package story

import "strings"

// Scene is one narrative beat paired with its illustration cue.
type Scene struct {
	Text               string `json:"text"`
	IllustrationPrompt string `json:"illustration_prompt"`
}

// ParseScenes splits generated story text into scenes. Blocks are separated
// by "---"; blank blocks are dropped. A block is split at its last "(": the
// text before it is the scene text, with earlier parentheses kept, and the
// rest up to the last ")" is the illustration prompt. Anything after that
// ")" is dropped. An unclosed final "(" still yields a prompt running to the
// end of the block, which is how truncated model output ends. A block with
// no complete parenthesized group is all text with an empty prompt.
func ParseScenes(storyText string) []Scene {
	blocks := strings.Split(storyText, Delimiter)
	scenes := make([]Scene, 0, len(blocks))

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		scenes = append(scenes, parseBlock(block))
	}
	return scenes
}

func parseBlock(block string) Scene {
	first := strings.Index(block, "(")
	if first < 0 || strings.LastIndex(block, ")") < first {
		return Scene{Text: block}
	}

	openIdx := strings.LastIndex(block, "(")
	prompt := block[openIdx+1:]
	if closeIdx := strings.LastIndex(prompt, ")"); closeIdx >= 0 {
		prompt = prompt[:closeIdx]
	}
	return Scene{
		Text:               strings.TrimSpace(block[:openIdx]),
		IllustrationPrompt: strings.TrimSpace(prompt),
	}
}

// Texts returns the scene texts in order.
func Texts(scenes []Scene) []string {
	out := make([]string, len(scenes))
	for i, s := range scenes {
		out[i] = s.Text
	}
	return out
}

// Prompts returns the illustration prompts in order, same length as Texts.
func Prompts(scenes []Scene) []string {
	out := make([]string, len(scenes))
	for i, s := range scenes {
		out[i] = s.IllustrationPrompt
	}
	return out
}

// Narration joins the scene texts into one passage for speech synthesis.
func Narration(scenes []Scene) string {
	return strings.Join(Texts(scenes), "\n\n")
}
