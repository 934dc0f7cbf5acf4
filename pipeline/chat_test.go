package pipeline

import (
	"context"
	"testing"

	"papergraph/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatStoresBothTurnsWithContext(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"chat": "They both use attention."}}
	p, conn := newTestPipeline(t, llm, fakeExtractor{})

	mine := models.Node{ArticleID: 1, UserID: "u1", Title: "Mine", Goal: "my goal"}
	theirs := models.Node{ArticleID: 2, UserID: "u2", Title: "Theirs", Goal: "secret goal"}
	require.NoError(t, conn.Create(&mine).Error)
	require.NoError(t, conn.Create(&theirs).Error)

	sid := int64(5)
	reply, err := p.Chat(context.Background(), conn, "u1", ChatRequest{
		SessionID: &sid,
		Message:   "  what do they share? ",
		NodeIDs:   []int64{mine.ID, theirs.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "They both use attention.", reply.Answer.Content)
	assert.Equal(t, "what do they share?", reply.Question.Content)
	assert.Equal(t, "[1]", reply.Question.NodeIDs)

	ctxTurn := llm.calls[0].Messages[0].Content
	assert.Contains(t, ctxTurn, "my goal")
	assert.NotContains(t, ctxTurn, "secret goal")
	assert.Equal(t, "cm", llm.calls[0].Model)

	var stored []models.ChatMessage
	require.NoError(t, conn.Where("session_id = ?", sid).Order("id").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.Equal(t, models.CHAT_ROLE_USER, stored[0].Role)
	assert.Equal(t, models.CHAT_ROLE_ASSISTANT, stored[1].Role)
}

func TestChatIncludesHistory(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"chat": "ok"}}
	p, conn := newTestPipeline(t, llm, fakeExtractor{})

	_, err := p.Chat(context.Background(), conn, "u1", ChatRequest{Message: "first"})
	require.NoError(t, err)
	_, err = p.Chat(context.Background(), conn, "u1", ChatRequest{Message: "second"})
	require.NoError(t, err)

	last := llm.calls[1].Messages
	require.Len(t, last, 3)
	assert.Equal(t, "first", last[0].Content)
	assert.Equal(t, "assistant", last[1].Role)
	assert.Equal(t, "second", last[2].Content)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	p, conn := newTestPipeline(t, &scriptedLLM{}, fakeExtractor{})
	_, err := p.Chat(context.Background(), conn, "u1", ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
