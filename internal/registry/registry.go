// Package registry keeps a history of index builds in PostgreSQL. Each row
// is a manifest: build counts plus the path, size and SHA-256 of every
// artifact, so a searcher can tell whether the files it loads are the ones
// the last build produced.
package registry

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS index_builds (
	id              BIGSERIAL PRIMARY KEY,
	trace_id        TEXT        NOT NULL,
	documents       INTEGER     NOT NULL,
	terms           INTEGER     NOT NULL,
	postings        INTEGER     NOT NULL,
	duration_ms     BIGINT      NOT NULL,
	built_at        TIMESTAMPTZ NOT NULL,
	artifact_roles  TEXT[]      NOT NULL,
	artifact_paths  TEXT[]      NOT NULL,
	artifact_sizes  BIGINT[]    NOT NULL,
	artifact_sha256 TEXT[]      NOT NULL
)`

const (
	RoleDictionary = "dictionary"
	RolePostings   = "postings"
	RoleDocLengths = "doc_lengths"
)

type Artifact struct {
	Role   string `json:"role"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type Manifest struct {
	ID         int64      `json:"id"`
	TraceID    string     `json:"trace_id"`
	Documents  int        `json:"documents"`
	Terms      int        `json:"terms"`
	Postings   int        `json:"postings"`
	DurationMs int64      `json:"duration_ms"`
	BuiltAt    time.Time  `json:"built_at"`
	Artifacts  []Artifact `json:"artifacts"`
}

// NewManifest hashes the artifacts named in result.
func NewManifest(result *indexer.BuildResult) (*Manifest, error) {
	m := &Manifest{
		TraceID:    result.TraceID,
		Documents:  result.Documents,
		Terms:      result.Terms,
		Postings:   result.Postings,
		DurationMs: result.Duration.Milliseconds(),
		BuiltAt:    result.StartedAt.UTC(),
	}
	for _, a := range []struct{ role, path string }{
		{RoleDictionary, result.DictionaryFile},
		{RolePostings, result.PostingsFile},
		{RoleDocLengths, result.DocLengthsFile},
	} {
		artifact, err := HashFile(a.role, a.path)
		if err != nil {
			return nil, err
		}
		m.Artifacts = append(m.Artifacts, artifact)
	}
	return m, nil
}

func HashFile(role, path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("opening %s artifact: %w", role, err)
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Artifact{}, fmt.Errorf("hashing %s artifact: %w", role, err)
	}
	return Artifact{Role: role, Path: path, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

// CheckArtifacts re-hashes the files at paths, keyed by role, and reports
// ErrCorruptIndex for the first one that differs from the manifest.
func (m *Manifest) CheckArtifacts(paths map[string]string) error {
	for _, want := range m.Artifacts {
		path, ok := paths[want.Role]
		if !ok {
			continue
		}
		got, err := HashFile(want.Role, path)
		if err != nil {
			return err
		}
		if got.SHA256 != want.SHA256 {
			return apperrors.Newf(apperrors.ErrCorruptIndex,
				"%s %s does not match build %s (sha256 %s, recorded %s)",
				want.Role, path, m.TraceID, got.SHA256[:12], want.SHA256[:12])
		}
	}
	return nil
}

type Registry struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Registry {
	return &Registry{
		db:     db,
		logger: slog.Default().With("component", "build-registry"),
	}
}

func (r *Registry) EnsureSchema(ctx context.Context) error {
	return r.db.Migrate(ctx, schema,
		`CREATE INDEX IF NOT EXISTS index_builds_built_at ON index_builds (built_at DESC)`)
}

// RecordBuild hashes the build's artifacts and stores the manifest.
func (r *Registry) RecordBuild(ctx context.Context, result *indexer.BuildResult) error {
	m, err := NewManifest(result)
	if err != nil {
		return err
	}
	if err := r.Insert(ctx, m); err != nil {
		return err
	}
	r.logger.Info("build recorded", "id", m.ID, "trace_id", m.TraceID)
	return nil
}

func (r *Registry) Insert(ctx context.Context, m *Manifest) error {
	roles, paths, sizes, sums := splitArtifacts(m.Artifacts)
	err := r.db.DB.QueryRowContext(ctx,
		`INSERT INTO index_builds
		   (trace_id, documents, terms, postings, duration_ms, built_at,
		    artifact_roles, artifact_paths, artifact_sizes, artifact_sha256)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		m.TraceID, m.Documents, m.Terms, m.Postings, m.DurationMs, m.BuiltAt,
		pq.Array(roles), pq.Array(paths), pq.Array(sizes), pq.Array(sums),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("inserting build manifest: %w", err)
	}
	return nil
}

// Latest returns the most recent manifest, or ErrNotFound.
func (r *Registry) Latest(ctx context.Context) (*Manifest, error) {
	var (
		m                  Manifest
		roles, paths, sums []string
		sizes              []int64
	)
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT id, trace_id, documents, terms, postings, duration_ms, built_at,
		        artifact_roles, artifact_paths, artifact_sizes, artifact_sha256
		 FROM index_builds
		 ORDER BY built_at DESC, id DESC
		 LIMIT 1`,
	).Scan(&m.ID, &m.TraceID, &m.Documents, &m.Terms, &m.Postings, &m.DurationMs, &m.BuiltAt,
		pq.Array(&roles), pq.Array(&paths), pq.Array(&sizes), pq.Array(&sums))
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrNotFound, "no index builds recorded")
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest build: %w", err)
	}
	if len(paths) != len(roles) || len(sizes) != len(roles) || len(sums) != len(roles) {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "build %d has ragged artifact columns", m.ID)
	}
	for i := range roles {
		m.Artifacts = append(m.Artifacts, Artifact{Role: roles[i], Path: paths[i], Size: sizes[i], SHA256: sums[i]})
	}
	return &m, nil
}

func splitArtifacts(artifacts []Artifact) (roles, paths []string, sizes []int64, sums []string) {
	for _, a := range artifacts {
		roles = append(roles, a.Role)
		paths = append(paths, a.Path)
		sizes = append(sizes, a.Size)
		sums = append(sums, a.SHA256)
	}
	return roles, paths, sizes, sums
}
