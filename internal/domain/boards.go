package domain

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// Board is a kanban board under a project.
type Board struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Name      string
	Position  int
	CreatedAt time.Time
}

// Column is an ordered lane on a board.
type Column struct {
	ID       uuid.UUID
	BoardID  uuid.UUID
	Name     string
	Position int
}

// Card is an ordered entry inside a column.
type Card struct {
	ID          uuid.UUID
	ColumnID    uuid.UUID
	Title       string
	Description string
	Position    int
	CreatedAt   time.Time
}

// BoardView bundles a board with its columns and cards for a single fetch.
type BoardView struct {
	Board   Board
	Columns []ColumnView
}

// ColumnView bundles a column with its ordered cards.
type ColumnView struct {
	Column Column
	Cards  []Card
}

// BoardRepository captures persistence for the kanban tree. Ownership runs
// through the project; unreachable records surface as ErrNotFound. Deletes
// cascade to children.
type BoardRepository interface {
	CreateBoard(ctx context.Context, userID uuid.UUID, board Board) error
	ListBoards(ctx context.Context, userID, projectID uuid.UUID) ([]Board, error)
	GetBoard(ctx context.Context, userID, projectID, boardID uuid.UUID) (*BoardView, error)
	UpdateBoard(ctx context.Context, userID, projectID uuid.UUID, board Board) error
	DeleteBoard(ctx context.Context, userID, projectID, boardID uuid.UUID) error

	CreateColumn(ctx context.Context, userID, projectID uuid.UUID, column Column) error
	UpdateColumn(ctx context.Context, userID, projectID uuid.UUID, column Column) error
	DeleteColumn(ctx context.Context, userID, projectID, columnID uuid.UUID) error
	ReorderColumns(ctx context.Context, userID, projectID, boardID uuid.UUID, columnIDs []uuid.UUID) error

	CreateCard(ctx context.Context, userID, projectID uuid.UUID, card Card) error
	UpdateCard(ctx context.Context, userID, projectID uuid.UUID, card Card) error
	DeleteCard(ctx context.Context, userID, projectID, cardID uuid.UUID) error
	MoveCard(ctx context.Context, userID, projectID, cardID, toColumnID uuid.UUID, position int) error
	ReorderCards(ctx context.Context, userID, projectID, columnID uuid.UUID, cardIDs []uuid.UUID) error
}

// Boards orchestrates the kanban workflows.
type Boards struct {
	repo  BoardRepository
	clock quartz.Clock
}

// NewBoards constructs a Boards service.
func NewBoards(repo BoardRepository, clock quartz.Clock) *Boards {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Boards{repo: repo, clock: clock}
}

// CreateBoard appends a board to a project.
func (b *Boards) CreateBoard(ctx context.Context, userID, projectID uuid.UUID, name string) (*Board, error) {
	board := Board{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: b.clock.Now().UTC(),
	}
	if err := b.repo.CreateBoard(ctx, userID, board); err != nil {
		return nil, err
	}
	return &board, nil
}

// ListBoards lists a project's boards in order.
func (b *Boards) ListBoards(ctx context.Context, userID, projectID uuid.UUID) ([]Board, error) {
	return b.repo.ListBoards(ctx, userID, projectID)
}

// GetBoard fetches a board with its columns and cards.
func (b *Boards) GetBoard(ctx context.Context, userID, projectID, boardID uuid.UUID) (*BoardView, error) {
	view, err := b.repo.GetBoard(ctx, userID, projectID, boardID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, ErrNotFound
	}
	return view, nil
}

// UpdateBoard renames a board.
func (b *Boards) UpdateBoard(ctx context.Context, userID, projectID, boardID uuid.UUID, name string) error {
	return b.repo.UpdateBoard(ctx, userID, projectID, Board{ID: boardID, Name: name})
}

// DeleteBoard removes a board and everything on it.
func (b *Boards) DeleteBoard(ctx context.Context, userID, projectID, boardID uuid.UUID) error {
	return b.repo.DeleteBoard(ctx, userID, projectID, boardID)
}

// CreateColumn appends a column to a board.
func (b *Boards) CreateColumn(ctx context.Context, userID, projectID, boardID uuid.UUID, name string) (*Column, error) {
	column := Column{
		ID:      uuid.New(),
		BoardID: boardID,
		Name:    name,
	}
	if err := b.repo.CreateColumn(ctx, userID, projectID, column); err != nil {
		return nil, err
	}
	return &column, nil
}

// UpdateColumn renames a column.
func (b *Boards) UpdateColumn(ctx context.Context, userID, projectID, columnID uuid.UUID, name string) error {
	return b.repo.UpdateColumn(ctx, userID, projectID, Column{ID: columnID, Name: name})
}

// DeleteColumn removes a column and its cards.
func (b *Boards) DeleteColumn(ctx context.Context, userID, projectID, columnID uuid.UUID) error {
	return b.repo.DeleteColumn(ctx, userID, projectID, columnID)
}

// ReorderColumns replaces a board's column order wholesale.
func (b *Boards) ReorderColumns(ctx context.Context, userID, projectID, boardID uuid.UUID, columnIDs []uuid.UUID) error {
	return b.repo.ReorderColumns(ctx, userID, projectID, boardID, columnIDs)
}

// CreateCard appends a card to a column.
func (b *Boards) CreateCard(ctx context.Context, userID, projectID, columnID uuid.UUID, title, description string) (*Card, error) {
	card := Card{
		ID:          uuid.New(),
		ColumnID:    columnID,
		Title:       title,
		Description: description,
		CreatedAt:   b.clock.Now().UTC(),
	}
	if err := b.repo.CreateCard(ctx, userID, projectID, card); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard rewrites a card's title and description.
func (b *Boards) UpdateCard(ctx context.Context, userID, projectID, cardID uuid.UUID, title, description string) error {
	return b.repo.UpdateCard(ctx, userID, projectID, Card{
		ID:          cardID,
		Title:       title,
		Description: description,
	})
}

// DeleteCard removes a card.
func (b *Boards) DeleteCard(ctx context.Context, userID, projectID, cardID uuid.UUID) error {
	return b.repo.DeleteCard(ctx, userID, projectID, cardID)
}

// MoveCard drops a card into a column at the given position, shifting the
// cards behind it.
func (b *Boards) MoveCard(ctx context.Context, userID, projectID, cardID, toColumnID uuid.UUID, position int) error {
	if position < 0 {
		position = 0
	}
	return b.repo.MoveCard(ctx, userID, projectID, cardID, toColumnID, position)
}

// ReorderCards replaces a column's card order wholesale.
func (b *Boards) ReorderCards(ctx context.Context, userID, projectID, columnID uuid.UUID, cardIDs []uuid.UUID) error {
	return b.repo.ReorderCards(ctx, userID, projectID, columnID, cardIDs)
}
