package graphdb

import "fmt"

const (
	cypherConstraint = `CREATE CONSTRAINT paper_id_unique IF NOT EXISTS FOR (p:Paper) REQUIRE p.id IS UNIQUE`
	cypherUserIndex  = `CREATE INDEX paper_user_idx IF NOT EXISTS FOR (p:Paper) ON (p.user_id)`

	cypherMergePapers = `
UNWIND $papers AS p
MERGE (n:Paper {id: p.id})
SET n += p
RETURN count(n) AS merged`

	cypherPruneUserPapers = `
MATCH (n:Paper {user_id: $user_id})
WHERE NOT n.id IN $ids
DETACH DELETE n`

	cypherMergeEdges = `
UNWIND $edges AS e
MATCH (a:Paper {id: e.from}), (b:Paper {id: e.to})
MERGE (a)-[r:RELATES {id: e.id}]->(b)
SET r.relation = e.relation, r.label = e.label, r.weight = e.weight, r.origin = e.origin, r.user_id = e.user_id
RETURN count(r) AS merged`

	cypherPruneUserEdges = `
MATCH (:Paper {user_id: $user_id})-[r:RELATES]->()
WHERE NOT r.id IN $ids
DELETE r`

	cypherDeletePaper = `
MATCH (n:Paper {id: $id})
DETACH DELETE n`

	cypherDeleteEdge = `
MATCH ()-[r:RELATES {id: $id}]->()
DELETE r`

	cypherGraphPapers = `
MATCH (n:Paper {user_id: $user_id})
RETURN n.id AS id, n.article_id AS article_id, n.title AS title, n.goal AS goal, n.method AS method,
       n.background AS background, n.future AS future, n.gaps AS gaps
ORDER BY n.id`

	cypherGraphEdges = `
MATCH (a:Paper {user_id: $user_id})-[r]->(b:Paper {user_id: $user_id})
RETURN coalesce(r.id, 0) AS id, a.id AS from_id, b.id AS to_id, type(r) AS kind,
       coalesce(r.relation, type(r)) AS relation, coalesce(r.label, '') AS label,
       coalesce(r.weight, r.score, 1.0) AS weight
ORDER BY from_id, to_id, relation`

	cypherNeighbors = `
MATCH (p:Paper {id: $id, user_id: $user_id})-[r]-(n:Paper)
RETURN n.id AS id, n.title AS title, type(r) AS kind,
       coalesce(r.relation, type(r)) AS relation, coalesce(r.weight, r.score, 1.0) AS weight,
       startNode(r) = p AS outgoing
ORDER BY weight DESC, id`
)

// Similarity is one of the fixed attribute-pair relations computed inside the
// graph database. Symmetric relations are stored once per unordered pair.
type Similarity struct {
	Type      string
	From      string
	To        string
	Symmetric bool
}

var Similarities = []Similarity{
	{Type: "SIMILAR_GOAL", From: "goal", To: "goal", Symmetric: true},
	{Type: "SIMILAR_METHOD", From: "method", To: "method", Symmetric: true},
	{Type: "SHARED_BACKGROUND", From: "background", To: "background", Symmetric: true},
	{Type: "ADDRESSES_GAP", From: "method", To: "gaps"},
	{Type: "EXTENDS_FUTURE", From: "goal", To: "future"},
}

func (s Similarity) pairFilter() string {
	if s.Symmetric {
		return "a.id < b.id"
	}
	return "a.id <> b.id"
}

func (s Similarity) clearCypher() string {
	return fmt.Sprintf(`
MATCH (:Paper {user_id: $user_id})-[r:%s]->()
DELETE r`, s.Type)
}

// scoredCypher uses APOC's Sørensen-Dice coefficient.
func (s Similarity) scoredCypher() string {
	return fmt.Sprintf(`
MATCH (a:Paper {user_id: $user_id}), (b:Paper {user_id: $user_id})
WHERE %s AND coalesce(a.%s, '') <> '' AND coalesce(b.%s, '') <> ''
WITH a, b, apoc.text.sorensenDiceSimilarity(toLower(a.%s), toLower(b.%s)) AS score
WHERE score >= $threshold
MERGE (a)-[r:%s]->(b)
SET r.score = score
RETURN count(r) AS merged`, s.pairFilter(), s.From, s.To, s.From, s.To, s.Type)
}

// containsCypher is the plugin-free variant: case-insensitive substring
// containment in either direction, scored 1.0.
func (s Similarity) containsCypher() string {
	return fmt.Sprintf(`
MATCH (a:Paper {user_id: $user_id}), (b:Paper {user_id: $user_id})
WHERE %s AND coalesce(a.%s, '') <> '' AND coalesce(b.%s, '') <> ''
  AND (toLower(a.%s) CONTAINS toLower(b.%s) OR toLower(b.%s) CONTAINS toLower(a.%s))
MERGE (a)-[r:%s]->(b)
SET r.score = 1.0
RETURN count(r) AS merged`, s.pairFilter(), s.From, s.To, s.From, s.To, s.To, s.From, s.Type)
}
