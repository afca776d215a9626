package state

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/internal/embedding"
	"github.com/quorumlabs/quorum/pkg/models"
)

// vectorContentLimit caps how much message text is stored alongside each
// embedding.
const vectorContentLimit = 500

// Document is one ranked hit from the vector index.
type Document struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	ConversationID string  `json:"conversationId"`
	MessageID      string  `json:"messageId"`
	Role           string  `json:"role"`
	Timestamp      int64   `json:"timestamp"`
	Score          float32 `json:"score"`
}

// VectorStore persists message embeddings in SQLite and answers similarity
// queries with brute-force cosine ranking.
type VectorStore struct {
	db     *DB
	engine embedding.Engine
	log    *zap.Logger
}

// NewVectorStore wraps a DB and an embedding engine.
func NewVectorStore(db *DB, engine embedding.Engine, log *zap.Logger) *VectorStore {
	return &VectorStore{db: db, engine: engine, log: log}
}

// EmbedMessage embeds and indexes one message. Callers treat this as
// fire-and-forget; a failure only means the message is absent from
// similarity search.
func (vs *VectorStore) EmbedMessage(ctx context.Context, conversationID string, msg models.Message) error {
	vec, err := vs.engine.Embed(ctx, msg.Content)
	if err != nil {
		return fmt.Errorf("embed message %s: %w", msg.ID, err)
	}

	content := msg.Content
	if len(content) > vectorContentLimit {
		content = content[:vectorContentLimit]
	}

	vs.db.mu.Lock()
	defer vs.db.mu.Unlock()

	_, err = vs.db.conn.Exec(
		`INSERT INTO message_vectors (id, conversation_id, message_id, role, content, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		models.NewID("vec"), conversationID, msg.ID, string(msg.Role), content,
		encodeFloat32s(vec), msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert vector: %w", err)
	}
	return nil
}

// SearchSimilar embeds the query and returns the top-limit most similar
// indexed messages by cosine similarity.
func (vs *VectorStore) SearchSimilar(ctx context.Context, query string, limit int) ([]Document, error) {
	queryVec, err := vs.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryNorm := norm(queryVec)
	if queryNorm == 0 {
		return nil, nil
	}

	vs.db.mu.RLock()
	defer vs.db.mu.RUnlock()

	rows, err := vs.db.conn.Query(
		`SELECT id, conversation_id, message_id, role, content, embedding, created_at FROM message_vectors`,
	)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var blob []byte
		if err := rows.Scan(&doc.ID, &doc.ConversationID, &doc.MessageID, &doc.Role, &doc.Text, &blob, &doc.Timestamp); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		vec, err := decodeFloat32s(blob)
		if err != nil {
			vs.log.Warn("skipping undecodable vector", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		doc.Score = cosine(queryVec, queryNorm, vec)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// cosine computes dot(a,b) / (|a| * |b|) given a's precomputed norm.
func cosine(a []float32, aNorm float32, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	bNorm := norm(b)
	if bNorm == 0 {
		return 0
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (aNorm * bNorm)
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

// encodeFloat32s packs a vector into a little-endian byte blob.
func encodeFloat32s(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s unpacks a little-endian byte blob into a vector.
func decodeFloat32s(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
