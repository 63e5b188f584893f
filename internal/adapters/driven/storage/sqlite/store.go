package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/manualkit/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ProductStore = (*Store)(nil)

// Store is a SQLite-backed implementation of driven.ProductStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.manualkit/data/manuals.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".manualkit", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "manuals.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Save persists a product's chunks, replacing any previous set.
func (s *Store) Save(ctx context.Context, product driven.StoredProduct) error {
	if product.ProductID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, total_pages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			total_pages = excluded.total_pages,
			updated_at = excluded.updated_at
	`, product.ProductID, product.Name, product.TotalPages, now, now)
	if err != nil {
		return fmt.Errorf("saving product: %w", err)
	}

	// Replace the chunk set wholesale; partial updates are never valid.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE product_id = ?", product.ProductID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks
			(id, product_id, position, page_number, kind, content,
			 image_data, embedding, section, safety_level, component_tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range product.Chunks {
		tagsJSON, err := json.Marshal(chunk.ComponentTags)
		if err != nil {
			return fmt.Errorf("marshalling component tags: %w", err)
		}

		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, product.ProductID, i,
			chunk.PageNumber, string(chunk.Kind), chunk.Content,
			chunk.ImageData, embeddingBlob, string(chunk.Section),
			string(chunk.SafetyLevel), string(tagsJSON)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadAll returns every persisted product with its chunks in insertion order.
func (s *Store) LoadAll(ctx context.Context) ([]driven.StoredProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, total_pages FROM products ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []driven.StoredProduct //nolint:prealloc // size unknown from query
	for rows.Next() {
		var product driven.StoredProduct
		if err := rows.Scan(&product.ProductID, &product.Name, &product.TotalPages); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	for i := range products {
		chunks, err := s.loadChunks(ctx, products[i].ProductID)
		if err != nil {
			return nil, err
		}
		products[i].Chunks = chunks
	}

	return products, nil
}

// loadChunks retrieves all chunks for a product in insertion order.
func (s *Store) loadChunks(ctx context.Context, productID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_number, kind, content, image_data, embedding,
		       section, safety_level, component_tags
		FROM chunks WHERE product_id = ?
		ORDER BY position
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var kind, safetyLevel string
		var embeddingBlob []byte
		var tagsJSON sql.NullString

		if err := rows.Scan(&chunk.ID, &chunk.PageNumber, &kind, &chunk.Content,
			&chunk.ImageData, &embeddingBlob, &chunk.Section, &safetyLevel, &tagsJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		chunk.ProductID = productID
		chunk.Kind = domain.ChunkKind(kind)
		chunk.SafetyLevel = domain.SafetyLevel(safetyLevel)
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

		if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &chunk.ComponentTags); err != nil {
				return nil, fmt.Errorf("unmarshaling component tags: %w", err)
			}
		}

		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// Delete removes a product and its chunks.
func (s *Store) Delete(ctx context.Context, productID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", productID)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveFeedback appends a feedback record.
func (s *Store) SaveFeedback(ctx context.Context, fb domain.Feedback) error {
	if fb.ID == "" || fb.ProductID == "" {
		return domain.ErrInvalidInput
	}

	issuesJSON, err := json.Marshal(fb.ReportedIssues)
	if err != nil {
		return fmt.Errorf("marshalling reported issues: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback
			(id, product_id, step_number, rating, comments, reported_issues, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, fb.ID, fb.ProductID, fb.StepNumber, fb.Rating, fb.Comments,
		string(issuesJSON), fb.SubmittedAt)

	if err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	return nil
}

// FeedbackStats aggregates stored feedback for a product. An empty
// productID aggregates across all products.
func (s *Store) FeedbackStats(ctx context.Context, productID string) (domain.FeedbackStats, error) {
	query := "SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM feedback"
	args := []any{}
	if productID != "" {
		query += " WHERE product_id = ?"
		args = append(args, productID)
	}

	var stats domain.FeedbackStats
	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&stats.TotalSubmissions, &stats.AverageRating); err != nil {
		return domain.FeedbackStats{}, fmt.Errorf("scanning feedback stats: %w", err)
	}
	return stats, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
