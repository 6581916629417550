package story

import (
	"fmt"
	"strings"

	"github.com/apresai/storybook/internal/intake"
)

// StyleAnchor is the fixed illustration style injected into every scene
// prompt so a single character looks the same across the whole book.
const StyleAnchor = "Soft watercolor children-book illustration style. Gentle pastel color palette with soft blues, mint greens, lavender, and light peach. " +
	"Balanced neutral lighting, calm and soothing mood. No golden yellow, orange, or sepia color cast. " +
	"Round shapes, friendly, safe for children. Whimsical, soft cartoon style. Daylight white balance. " +
	"Full-bleed storybook illustration, wide cinematic composition, background extends to all edges, no border, no frame. " +
	"The main character has the same appearance across pages: round face, simple dot eyes, same hair length and style, soft outlines, consistent clothing colors. " +
	"No real or identifiable people. No text, letters, or words anywhere in the image."

// Delimiter separates scene blocks in generated story text.
const Delimiter = "---"

const systemPromptEN = `You are an artful and masterful expert specializing in children's storywriting. Write in English. Keep content warm, imaginative, and age-appropriate.`

const systemPromptZH = `你是一位擅长儿童故事创作的艺术大师。请用简体中文写作。内容要温暖、富有想象力并适合孩子的年龄。`

// TitleSystemPrompt is the system instruction for title generation.
const TitleSystemPrompt = `You are a children's storybook writer. You generate short, creative and catchy titles for children's storybooks.`

const storyPromptEN = `You are a children's storybook generator. Create a personalized, age-appropriate, multi-scene illustrated storybook from the details below.

Child name: %[1]s
Child age: %[2]s
Child interests: %[3]s
Story objective: %[4]s

SCENES:
- Write exactly %[5]d scenes, with a total word count as close to %[6]d words as possible.
- Each scene is 2-5 sentences of narrative for a %[2]s-year-old, shaped by %[3]s and working toward the objective: %[4]s.
- Begin with a captivating hook, include a gentle problem, and end with a positive resolution.
- Keep the tone warm, soothing, and encouraging. No scary or age-inappropriate content.

ILLUSTRATION PROMPTS:
- After each scene's text, add one short illustration prompt in parentheses on its own line.
- Describe only what the scene looks like. Never ask for text inside the image.
- Every illustration prompt follows this style: %[7]s
- Never depict a real or identifiable person and never mention the child's name in a prompt. Characters are fully fictional, stylized cartoons.

FORMAT (follow exactly):
- One scene per block.
- Separate blocks with a line containing only ---
- The last parenthesized text in each block is its illustration prompt.
- Do not add a story title, an introduction such as "Here is the personalized storybook for...", notes about word count, or any other commentary.

Story starts now:`

const storyPromptZH = `你是一位儿童故事书生成器。请根据以下信息，创作一个个性化、适合年龄的多场景插图故事书。

孩子名字：%[1]s
孩子年龄：%[2]s
孩子兴趣：%[3]s
故事目标：%[4]s

场景要求：
- 恰好写 %[5]d 个场景，总字数尽量接近 %[6]d 字。
- 每个场景包含2-5句适合 %[2]s 岁孩子的叙述，融入 %[3]s，并围绕故事目标：%[4]s。
- 以引人入胜的开头开始，包含一个温和的问题和积极的解决方案。
- 语气温暖、舒缓、鼓励。不包含任何可怕或不适合年龄的内容。

插图提示要求：
- 每个场景文本之后，在新的一行用括号写一个简短的插图提示。
- 只描述场景的画面，不要要求图片中出现文字。
- 每个插图提示都遵循以下风格（用英文写插图提示）：%[7]s
- 请勿描绘任何真实或可识别的人物，也不要在提示中提及孩子的名字。角色必须是完全虚构的卡通形象。

格式（必须严格遵守）：
- 每个区块一个场景。
- 区块之间用只包含 --- 的一行分隔。
- 每个区块中最后一个括号内的文字就是插图提示。
- 不要添加故事标题、类似“这是为……生成的个性化故事书”的介绍、字数说明或任何其他评论。

故事开始：`

// wordsPerScene keeps the total length proportional to the scene count.
const wordsPerScene = 25

// BuildStoryPrompt renders the story instructions for an intake and a
// target scene count.
func BuildStoryPrompt(in intake.Intake, scenes int) string {
	if scenes <= 0 {
		scenes = in.SceneCount()
	}

	tmpl := storyPromptEN
	if in.Lang() == "zh" {
		tmpl = storyPromptZH
	}

	return fmt.Sprintf(tmpl,
		orDefault(in.ChildName, "the child"),
		orDefault(in.ChildAge, "5"),
		orDefault(in.ChildInterest, "friendship"),
		orDefault(in.StoryObjective, "kindness"),
		scenes,
		scenes*wordsPerScene,
		StyleAnchor,
	)
}

// SystemPrompt returns the system instruction for story generation.
func SystemPrompt(lang string) string {
	if lang == "zh" {
		return systemPromptZH
	}
	return systemPromptEN
}

// TitlePrompt asks for exactly one title for the given story.
func TitlePrompt(story string) string {
	return fmt.Sprintf("Please generate one short catchy storybook title, remember only one title, for this story:\n\n%s\n\nOnly return the title itself and nothing else. Strip the title of any quotation marks.", strings.TrimSpace(story))
}

// CoverPrompt describes the cover illustration for a topic.
func CoverPrompt(interest string) string {
	return fmt.Sprintf("Do not include any text in the image. Design a children's storybook cover illustration related to the topic of '%s'. Do not include any text or human-like characters in the image.", orDefault(interest, "friendship"))
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}
