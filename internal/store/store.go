// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists built citation networks. It is the storage
// collaborator at the core's boundary: the aggregator never depends on
// it, the CLI wires the two together. Networks land in a SQLite database
// for querying and in YAML snapshot files for downstream tooling.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/SoftHeinrich/paper-analyzer/internal/resolve"
	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

const (
	dbFile       = "networks.db"
	snapshotsDir = "snapshots"
)

// Store manages the citation network database under a data directory.
type Store struct {
	db      *sql.DB
	dataDir string
}

// NewStore opens or creates the network database at DataDir/networks.db,
// creating the schema when missing.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if cfg.DataDir == "" {
		cfg.DataDir = "networks"
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dataDir: cfg.DataDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS networks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			root_key TEXT NOT NULL UNIQUE,
			built_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			network_id INTEGER NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
			record_key TEXT NOT NULL,
			role TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			year INTEGER,
			venue TEXT,
			doi TEXT,
			source_ids TEXT,
			citation_count INTEGER,
			provenance TEXT,
			notes TEXT,
			PRIMARY KEY (network_id, record_key, role)
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			network_id INTEGER NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
			from_key TEXT NOT NULL,
			to_key TEXT NOT NULL,
			relation TEXT NOT NULL,
			provenance TEXT,
			PRIMARY KEY (network_id, from_key, to_key)
		)`,
		`CREATE TABLE IF NOT EXISTS source_errors (
			network_id INTEGER NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
			source TEXT NOT NULL,
			reason TEXT NOT NULL,
			PRIMARY KEY (network_id, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_network ON papers(network_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_network ON edges(network_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Paper roles within a stored network.
const (
	roleRoot      = "root"
	roleCitation  = "citation"
	roleReference = "reference"
)

// Save persists a network, replacing any previous build for the same root.
func (s *Store) Save(n *types.CitationNetwork) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rootKey := n.Root.Key()
	if _, err := tx.Exec(`DELETE FROM networks WHERE root_key = ?`, rootKey); err != nil {
		return fmt.Errorf("clearing previous network: %w", err)
	}

	res, err := tx.Exec(`INSERT INTO networks (root_key, built_at) VALUES (?, ?)`,
		rootKey, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting network row: %w", err)
	}
	networkID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading network id: %w", err)
	}

	if err := s.insertPaper(tx, networkID, roleRoot, &n.Root); err != nil {
		return err
	}
	for i := range n.Citations {
		if err := s.insertPaper(tx, networkID, roleCitation, &n.Citations[i]); err != nil {
			return err
		}
	}
	for i := range n.References {
		if err := s.insertPaper(tx, networkID, roleReference, &n.References[i]); err != nil {
			return err
		}
	}

	for _, e := range n.Edges {
		if _, err := tx.Exec(
			`INSERT INTO edges (network_id, from_key, to_key, relation, provenance) VALUES (?, ?, ?, ?, ?)`,
			networkID, e.From, e.To, e.Relation, strings.Join(e.Provenance, ","),
		); err != nil {
			return fmt.Errorf("inserting edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	for src, reason := range n.SourceErrors {
		if _, err := tx.Exec(
			`INSERT INTO source_errors (network_id, source, reason) VALUES (?, ?, ?)`,
			networkID, src, reason,
		); err != nil {
			return fmt.Errorf("inserting source error for %s: %w", src, err)
		}
	}

	return tx.Commit()
}

func (s *Store) insertPaper(tx *sql.Tx, networkID int64, role string, p *types.PaperRecord) error {
	sourceIDs, err := json.Marshal(p.SourceIDs)
	if err != nil {
		return fmt.Errorf("encoding source ids for %s: %w", p.Key(), err)
	}
	_, err = tx.Exec(
		`INSERT OR REPLACE INTO papers
			(network_id, record_key, role, title, authors, year, venue, doi, source_ids, citation_count, provenance, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		networkID, p.Key(), role, p.Title, strings.Join(p.Authors, "|"), p.Year, p.Venue, p.DOI,
		string(sourceIDs), p.CitationCount, strings.Join(p.Provenance, ","), strings.Join(p.Notes, "\n"),
	)
	if err != nil {
		return fmt.Errorf("inserting paper %s: %w", p.Key(), err)
	}
	return nil
}

// Load reconstructs the stored network for a root key. It returns
// sql.ErrNoRows when no build exists for that root.
func (s *Store) Load(rootKey string) (*types.CitationNetwork, error) {
	var networkID int64
	err := s.db.QueryRow(`SELECT id FROM networks WHERE root_key = ?`, rootKey).Scan(&networkID)
	if err != nil {
		return nil, err
	}

	n := &types.CitationNetwork{SourceErrors: make(map[string]string)}

	rows, err := s.db.Query(
		`SELECT record_key, role, title, authors, year, venue, doi, source_ids, citation_count, provenance, notes
		 FROM papers WHERE network_id = ? ORDER BY role, record_key`, networkID)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key, role, authors, sourceIDs, provenance, notes string
			p                                                types.PaperRecord
		)
		if err := rows.Scan(&key, &role, &p.Title, &authors, &p.Year, &p.Venue, &p.DOI,
			&sourceIDs, &p.CitationCount, &provenance, &notes); err != nil {
			return nil, fmt.Errorf("scanning paper row: %w", err)
		}
		p.NormalizedTitle = normalizedFromKey(key, p.DOI, p.Title)
		p.Authors = splitNonEmpty(authors, "|")
		p.Provenance = splitNonEmpty(provenance, ",")
		p.Notes = splitNonEmpty(notes, "\n")
		if err := json.Unmarshal([]byte(sourceIDs), &p.SourceIDs); err != nil {
			return nil, fmt.Errorf("decoding source ids for %s: %w", key, err)
		}

		switch role {
		case roleRoot:
			n.Root = p
		case roleCitation:
			n.Citations = append(n.Citations, p)
		case roleReference:
			n.References = append(n.References, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating papers: %w", err)
	}

	edgeRows, err := s.db.Query(
		`SELECT from_key, to_key, relation, provenance FROM edges WHERE network_id = ? ORDER BY from_key, to_key`, networkID)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e types.CitationEdge
		var provenance string
		if err := edgeRows.Scan(&e.From, &e.To, &e.Relation, &provenance); err != nil {
			return nil, fmt.Errorf("scanning edge row: %w", err)
		}
		e.Provenance = splitNonEmpty(provenance, ",")
		n.Edges = append(n.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}

	errRows, err := s.db.Query(
		`SELECT source, reason FROM source_errors WHERE network_id = ?`, networkID)
	if err != nil {
		return nil, fmt.Errorf("querying source errors: %w", err)
	}
	defer errRows.Close()

	for errRows.Next() {
		var src, reason string
		if err := errRows.Scan(&src, &reason); err != nil {
			return nil, fmt.Errorf("scanning source error row: %w", err)
		}
		n.SourceErrors[src] = reason
	}
	return n, errRows.Err()
}

// WriteSnapshot writes the network as a YAML file under
// DataDir/snapshots/ and returns the file path.
func (s *Store) WriteSnapshot(n *types.CitationNetwork) (string, error) {
	dir := filepath.Join(s.dataDir, snapshotsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating snapshots directory: %w", err)
	}

	path := filepath.Join(dir, snapshotSlug(n.Root.Key())+".yaml")
	data, err := yaml.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encoding network: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}

// ReadSnapshot loads a network from a YAML snapshot file.
func ReadSnapshot(path string) (*types.CitationNetwork, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var n types.CitationNetwork
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return &n, nil
}

// snapshotSlug turns a record key into a filesystem-safe filename stem.
func snapshotSlug(key string) string {
	slug := strings.NewReplacer("/", "-", ":", "-", " ", "-").Replace(key)
	if len(slug) > 120 {
		slug = slug[:120]
	}
	if slug == "" {
		slug = "network"
	}
	return slug
}

// normalizedFromKey recovers the normalized title, which is derived
// rather than stored: for title-keyed records the key already is the
// normalized title.
func normalizedFromKey(key, doi, title string) string {
	if doi == "" {
		return key
	}
	return resolve.NormalizeTitle(title)
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}
