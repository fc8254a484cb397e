package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// Store provides movie catalog access over an embedded libsql database.
type Store struct {
	db *sql.DB
}

// NewStore creates a catalog store bound to db. The schema must already be
// migrated (see reco/db).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const movieColumns = `id, title, original_title, overview, genres, original_language,
	release_year, runtime_minutes, popularity, vote_average, vote_count`

// ItemByID fetches one movie. Returns sql.ErrNoRows when absent.
func (s *Store) ItemByID(ctx context.Context, id int) (*Movie, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	return scanMovie(row)
}

// ItemsByIDs fetches movies for the given ids, preserving the input order.
// Missing ids are silently skipped.
func (s *Store) ItemsByIDs(ctx context.Context, ids []int) ([]Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	byID := make(map[int]Movie, len(ids))
	for rows.Next() {
		m, err := scanMovieRows(rows)
		if err != nil {
			return nil, err
		}
		byID[m.ID] = *m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	ordered := make([]Movie, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered, nil
}

// ItemByTitle finds the first movie whose title contains the given text,
// case-insensitively. Returns sql.ErrNoRows when nothing matches.
func (s *Store) ItemByTitle(ctx context.Context, title string) (*Movie, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE lower(title) LIKE ? ORDER BY popularity DESC LIMIT 1`,
		"%"+strings.ToLower(title)+"%")
	return scanMovie(row)
}

// AllMovies returns the whole catalog, ordered by id. Used by the indexer's
// embedding backfill.
func (s *Store) AllMovies(ctx context.Context) ([]Movie, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	var movies []Movie
	for rows.Next() {
		m, err := scanMovieRows(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return movies, nil
}

// Count returns how many movies are in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count movies: %w", err)
	}
	return n, nil
}

// Insert adds a movie, assigning its id.
func (s *Store) Insert(ctx context.Context, m *Movie) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO movies (title, original_title, overview, genres, original_language,
			release_year, runtime_minutes, popularity, vote_average, vote_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Title, m.OriginalTitle, m.Overview, m.Genres, m.OriginalLanguage,
		m.ReleaseYear, m.RuntimeMinutes, m.Popularity, m.VoteAverage, m.VoteCount)
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = int(id)
	return nil
}

// UpsertEmbedding stores the embedding vector for a movie.
func (s *Store) UpsertEmbedding(ctx context.Context, id int, vector []float64) error {
	blob, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE movies SET embedding = ? WHERE id = ?`, blob, id)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("movie not found: %d", id)
	}
	return nil
}

// Embedding returns the stored embedding for a movie, or nil when absent.
func (s *Store) Embedding(ctx context.Context, id int) ([]float64, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT embedding FROM movies WHERE id = ?`, id).Scan(&blob)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, nil
	}
	var vector []float64
	if err := json.Unmarshal(blob, &vector); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return vector, nil
}

// EmbeddingRow is one catalog embedding, consumed by the flat index.
type EmbeddingRow struct {
	ID     int
	Vector []float64
}

// AllEmbeddings streams every stored embedding. Rows with undecodable
// vectors are skipped.
func (s *Store) AllEmbeddings(ctx context.Context) ([]EmbeddingRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM movies WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch embeddings: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingRow
	for rows.Next() {
		var id int
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var vector []float64
		if err := json.Unmarshal(blob, &vector); err != nil {
			continue
		}
		out = append(out, EmbeddingRow{ID: id, Vector: vector})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// SeedFromFile loads movies from a JSON data file into an empty catalog.
// Returns false without reading the file when the catalog already has rows.
func (s *Store) SeedFromFile(ctx context.Context, path string) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read seed file: %w", err)
	}

	var movies []Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		return false, fmt.Errorf("failed to parse seed file: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movies (title, original_title, overview, genres, original_language,
			release_year, runtime_minutes, popularity, vote_average, vote_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	for _, m := range movies {
		if _, err := stmt.ExecContext(ctx,
			m.Title, m.OriginalTitle, m.Overview, m.Genres, m.OriginalLanguage,
			m.ReleaseYear, m.RuntimeMinutes, m.Popularity, m.VoteAverage, m.VoteCount); err != nil {
			return false, fmt.Errorf("failed to seed movie %q: %w", m.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row *sql.Row) (*Movie, error)      { return scanInto(row) }
func scanMovieRows(rows *sql.Rows) (*Movie, error) { return scanInto(rows) }

func scanInto(r rowScanner) (*Movie, error) {
	var m Movie
	var originalTitle, overview, genres, lang sql.NullString
	var year, runtime sql.NullInt64
	err := r.Scan(&m.ID, &m.Title, &originalTitle, &overview, &genres, &lang,
		&year, &runtime, &m.Popularity, &m.VoteAverage, &m.VoteCount)
	if err != nil {
		return nil, err
	}
	m.OriginalTitle = originalTitle.String
	m.Overview = overview.String
	m.Genres = genres.String
	m.OriginalLanguage = lang.String
	m.ReleaseYear = int(year.Int64)
	m.RuntimeMinutes = int(runtime.Int64)
	return &m, nil
}
