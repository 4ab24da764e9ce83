package answer

import (
	"strconv"
	"strings"

	"justify/internal/domain"
)

// PromptBuilder assembles the grounded answering prompt from the retrieved
// passages, the whole conversation so far and the new question.
type PromptBuilder struct {
	question string
	memory   []domain.Turn
	passages []domain.SearchResult
}

func NewPromptBuilder(question string, memory []domain.Turn, passages []domain.SearchResult) *PromptBuilder {
	return &PromptBuilder{question: question, memory: memory, passages: passages}
}

func (b *PromptBuilder) Build() string {
	var prompt strings.Builder
	b.writeTask(&prompt)
	b.writeReferenceMaterial(&prompt)
	b.writeHistory(&prompt)
	b.writeUserQuestion(&prompt)
	return prompt.String()
}

func (b *PromptBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("You answer questions about legal and government documents uploaded by the user.\n")
	prompt.WriteString("Base your answer on the reference material. Use the conversation history to resolve follow-up questions.\n")
	prompt.WriteString("If the material does not contain the answer, say so plainly.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *PromptBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	prompt.WriteString("<reference_material>\n")
	if len(b.passages) == 0 {
		prompt.WriteString("No relevant passages were found in the uploaded documents.\n")
	}
	for i, p := range b.passages {
		prompt.WriteString("[")
		prompt.WriteString(strconv.Itoa(i + 1))
		prompt.WriteString("] ")
		prompt.WriteString(p.Chunk.Provenance())
		prompt.WriteString("\n")
		prompt.WriteString(p.Chunk.Text)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("</reference_material>\n\n")
}

func (b *PromptBuilder) writeHistory(prompt *strings.Builder) {
	if len(b.memory) == 0 {
		return
	}
	prompt.WriteString("<conversation_history>\n")
	for _, turn := range b.memory {
		prompt.WriteString("User: ")
		prompt.WriteString(turn.Question)
		prompt.WriteString("\nAssistant: ")
		prompt.WriteString(turn.Answer)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</conversation_history>\n\n")
}

func (b *PromptBuilder) writeUserQuestion(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.question)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Answer:")
}
