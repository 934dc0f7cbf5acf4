package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"papergraph/db"
	"papergraph/models"
	"papergraph/tools"

	"github.com/jinzhu/gorm"
)

var ErrEmptyMessage = errors.New("chat: message is empty")

const chatPrompt = `You are a research assistant helping a user explore a graph of research articles.
Answer using the article summaries and relations given as context. When the context
does not contain the answer, say so plainly before offering general knowledge.
Refer to articles by their title.`

type ChatRequest struct {
	SessionID *int64  `json:"session_id"`
	Message   string  `json:"message"`
	NodeIDs   []int64 `json:"node_ids"`
	EdgeIDs   []int64 `json:"edge_ids"`
}

type ChatReply struct {
	Question models.ChatMessage `json:"question"`
	Answer   models.ChatMessage `json:"answer"`
}

// Chat answers a question from the selected nodes and edges the user owns.
// Both turns are stored only after the model answered.
func (p *Pipeline) Chat(ctx context.Context, conn *gorm.DB, userID string, req ChatRequest) (ChatReply, error) {
	var reply ChatReply
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return reply, ErrEmptyMessage
	}
	llm, err := p.completer()
	if err != nil {
		return reply, err
	}

	var nodes []models.Node
	if len(req.NodeIDs) > 0 {
		if err := conn.Where("user_id = ? AND id IN (?)", userID, req.NodeIDs).Order("id asc").Find(&nodes).Error; err != nil {
			return reply, err
		}
	}
	var edges []models.Edge
	if len(req.EdgeIDs) > 0 {
		if err := conn.Where("user_id = ? AND id IN (?)", userID, req.EdgeIDs).Order("id asc").Find(&edges).Error; err != nil {
			return reply, err
		}
	}
	history, err := p.history(conn, userID, req.SessionID)
	if err != nil {
		return reply, err
	}

	turns := make([]tools.ChatTurn, 0, len(history)+2)
	if ctxText := chatContext(nodes, edges); ctxText != "" {
		turns = append(turns, tools.ChatTurn{Role: "user", Content: ctxText})
	}
	for _, m := range history {
		turns = append(turns, tools.ChatTurn{Role: m.Role, Content: m.Content})
	}
	turns = append(turns, tools.ChatTurn{Role: "user", Content: req.Message})

	answer, err := llm.Complete(ctx, tools.CompletionRequest{
		Operation: "chat",
		Model:     p.Opts.ChatModel,
		System:    chatPrompt,
		Messages:  turns,
	})
	if err != nil {
		return reply, err
	}

	nodeIDs, _ := json.Marshal(idsOfNodes(nodes))
	edgeIDs, _ := json.Marshal(idsOfEdges(edges))
	reply.Question = models.ChatMessage{
		UserID: userID, SessionID: req.SessionID, Role: models.CHAT_ROLE_USER,
		Content: req.Message, NodeIDs: string(nodeIDs), EdgeIDs: string(edgeIDs),
	}
	reply.Answer = models.ChatMessage{
		UserID: userID, SessionID: req.SessionID, Role: models.CHAT_ROLE_ASSISTANT,
		Content: answer, NodeIDs: string(nodeIDs), EdgeIDs: string(edgeIDs),
	}
	err = db.Transaction(conn, func(tx *gorm.DB) error {
		if err := tx.Create(&reply.Question).Error; err != nil {
			return err
		}
		return tx.Create(&reply.Answer).Error
	})
	return reply, err
}

// history returns the last turns of the conversation, oldest first.
func (p *Pipeline) history(conn *gorm.DB, userID string, sessionID *int64) ([]models.ChatMessage, error) {
	if p.Opts.ChatHistory <= 0 {
		return nil, nil
	}
	q := conn.Where("user_id = ?", userID)
	if sessionID != nil {
		q = q.Where("session_id = ?", *sessionID)
	} else {
		q = q.Where("session_id IS NULL")
	}
	var msgs []models.ChatMessage
	if err := q.Order("id desc").Limit(p.Opts.ChatHistory).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func chatContext(nodes []models.Node, edges []models.Edge) string {
	if len(nodes) == 0 && len(edges) == 0 {
		return ""
	}
	titles := make(map[int64]string, len(nodes))
	var sb strings.Builder
	sb.WriteString("Context articles:\n")
	for _, n := range nodes {
		titles[n.ID] = n.Title
		fmt.Fprintf(&sb, "\n[%d] %s\n", n.ID, n.Title)
		fmt.Fprintf(&sb, "goal: %s\nmethod: %s\nbackground: %s\nfuture: %s\ngaps: %s\n",
			n.Goal, n.Method, n.Background, n.Future, n.Gaps)
	}
	if len(edges) > 0 {
		sb.WriteString("\nContext relations:\n")
		for _, e := range edges {
			from, to := titles[e.FromNodeID], titles[e.ToNodeID]
			if from == "" {
				from = fmt.Sprintf("#%d", e.FromNodeID)
			}
			if to == "" {
				to = fmt.Sprintf("#%d", e.ToNodeID)
			}
			fmt.Fprintf(&sb, "- %s %s %s", from, e.Relation, to)
			if e.Label != "" {
				fmt.Fprintf(&sb, " (%s)", e.Label)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func idsOfNodes(nodes []models.Node) []int64 {
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func idsOfEdges(edges []models.Edge) []int64 {
	ids := make([]int64, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}
