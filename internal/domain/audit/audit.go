// Package audit holds the append-only record of answered questions.
package audit

import (
	"strings"
	"time"
)

// Mode identifies the flow that produced an answer.
type Mode string

// Known modes.
const (
	ModeVoiceLocal  Mode = "voice-local"
	ModeVoiceOnline Mode = "voice-online"
	ModeQwenText    Mode = "qwen-text"
)

// Answer sources.
const (
	SourceRAG = "RAG-知识库"
	SourceLLM = "LLM"
)

// Record is one question and its answer.
type Record struct {
	ID           int64
	Question     string
	Answer       string
	Mode         Mode
	AnswerSource string
	RAGUsed      bool
	RAGContext   string
	CreatedAt    time.Time
}

// NewRecord builds a record, deriving RAGUsed and AnswerSource from ragContext.
func NewRecord(question, answer string, mode Mode, ragContext string) Record {
	used := strings.TrimSpace(ragContext) != ""
	src := SourceLLM
	if used {
		src = SourceRAG
	}
	return Record{
		Question:     question,
		Answer:       answer,
		Mode:         mode,
		AnswerSource: src,
		RAGUsed:      used,
		RAGContext:   ragContext,
	}
}

// KnowledgeText renders the record as a knowledge-base entry.
func (r Record) KnowledgeText() string {
	var b strings.Builder
	b.WriteString("问：")
	b.WriteString(strings.TrimSpace(r.Question))
	if a := strings.TrimSpace(r.Answer); a != "" {
		b.WriteString("\n答：")
		b.WriteString(a)
	}
	return b.String()
}

// Page is one newest-first slice of the history.
type Page struct {
	Items []Record
	Page  int
	Size  int
	Total int64
}

// TotalPages returns the page count for Total at Size.
func (p Page) TotalPages() int64 {
	if p.Size <= 0 {
		return 0
	}
	return (p.Total + int64(p.Size) - 1) / int64(p.Size)
}
