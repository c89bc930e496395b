// mazes persists named mazes and moves them in and out as json documents.
package mazes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mazerl/grid_world"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("mazes: not found")
	ErrNoName   = errors.New("mazes: record has no name")
)

// Record is a saved maze.
type Record struct {
	ID        string
	Name      string
	Grid      grid_world.Grid
	Tier      grid_world.Tier
	CreatedAt time.Time
}

// Store keeps records by name. Saving a name that exists replaces its maze
// and tier but keeps the original id and creation time.
type Store interface {
	Save(ctx context.Context, rec Record) (Record, error)
	Load(ctx context.Context, name string) (Record, error)
	// List returns every record, oldest first.
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// stored is the on-disk and in-database shape of a record.
type stored struct {
	ID         string    `json:"id" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Maze       [][]int   `json:"maze" bson:"maze"`
	Complexity string    `json:"complexity" bson:"complexity"`
	CreatedAt  time.Time `json:"created_at" bson:"createdAt"`
}

func toStored(rec Record) stored {
	return stored{
		ID:         rec.ID,
		Name:       rec.Name,
		Maze:       rec.Grid.Matrix(),
		Complexity: rec.Tier.String(),
		CreatedAt:  rec.CreatedAt,
	}
}

func (s stored) record() (Record, error) {
	g, err := grid_world.FromMatrix(s.Maze)
	if err != nil {
		return Record{}, fmt.Errorf("mazes: %s: %w", s.Name, err)
	}
	tier, err := grid_world.ParseTier(s.Complexity)
	if err != nil {
		return Record{}, fmt.Errorf("mazes: %s: %w", s.Name, err)
	}
	return Record{
		ID:        s.ID,
		Name:      s.Name,
		Grid:      g,
		Tier:      tier,
		CreatedAt: s.CreatedAt,
	}, nil
}

// prepare checks a record before saving and fills in its id and time.
func prepare(rec Record) (Record, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return rec, ErrNoName
	}
	if err := rec.Grid.Validate(); err != nil {
		return rec, fmt.Errorf("mazes: %s: %w", rec.Name, err)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec, nil
}

// NewRecord names a maze, classifying it by its shortest path. Unsolvable
// mazes are filed as medium.
func NewRecord(name string, g grid_world.Grid) Record {
	tier, _, _ := grid_world.Measure(g)
	return Record{Name: name, Grid: g, Tier: tier}
}

// Document is the export format: the maze as rows of cell codes and its
// difficulty by name.
type Document struct {
	Maze       [][]int `json:"maze"`
	Complexity string  `json:"complexity,omitempty"`
}

// Export renders a record as an indented Document.
func Export(rec Record) ([]byte, error) {
	return json.MarshalIndent(Document{
		Maze:       rec.Grid.Matrix(),
		Complexity: rec.Tier.String(),
	}, "", "  ")
}

// Import reads a Document. The maze must be full size with exactly one start
// and one goal. A missing complexity is measured from the maze; an
// unrecognised one is an error.
func Import(name string, data []byte) (Record, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Record{}, fmt.Errorf("mazes: import: %w", err)
	}
	if doc.Maze == nil {
		return Record{}, fmt.Errorf("mazes: import: %w: no maze", grid_world.ErrDimensions)
	}
	g, err := grid_world.FromMatrix(doc.Maze)
	if err != nil {
		return Record{}, fmt.Errorf("mazes: import: %w", err)
	}
	if err = g.Validate(); err != nil {
		return Record{}, fmt.Errorf("mazes: import: %w", err)
	}

	rec := NewRecord(name, g)
	if doc.Complexity != "" {
		if rec.Tier, err = grid_world.ParseTier(doc.Complexity); err != nil {
			return Record{}, fmt.Errorf("mazes: import: %w", err)
		}
	}
	return rec, nil
}
