package domain

import "strings"

// Prompt placeholders.
const (
	PlaceholderContext  = "{context}"
	PlaceholderQuestion = "{question}"
)

// DefaultChatSystemPrompt is the system instruction of a conversation turn.
const DefaultChatSystemPrompt = `You are a GDPR compliance assistant. Answer questions based on the provided context.
Use only the information from the context to answer questions. If you're unsure or the context
doesn't contain the relevant information, say so.

Context:
{context}`

// DefaultQAPrompt is the single-shot prompt of batch QA.
const DefaultQAPrompt = `Context information is below.
---------------------
{context}
---------------------
Given the context information and not prior knowledge, answer the query.
Query: {question}
Answer: `

// RenderPrompt substitutes the context and question placeholders.
func RenderPrompt(template, context, question string) string {
	return strings.NewReplacer(
		PlaceholderContext, context,
		PlaceholderQuestion, question,
	).Replace(template)
}
