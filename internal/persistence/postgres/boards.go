package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
)

// CreateBoard appends a board at the end of the project's order.
func (r *Repository) CreateBoard(ctx context.Context, userID uuid.UUID, board domain.Board) error {
	const stmt = `INSERT INTO boards (board_id, project_id, name, position, created_at)
        SELECT $1, p.project_id, $2,
               COALESCE((SELECT MAX(position)+1 FROM boards WHERE project_id=p.project_id), 0),
               $3
        FROM projects p WHERE p.project_id=$4 AND p.user_id=$5`

	tag, err := r.pool.Exec(ctx, stmt, board.ID, board.Name, board.CreatedAt, board.ProjectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListBoards returns a project's boards in stored order.
func (r *Repository) ListBoards(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Board, error) {
	if err := r.requireProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	const query = `SELECT board_id, project_id, name, position, created_at
        FROM boards WHERE project_id=$1 ORDER BY position`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := make([]domain.Board, 0)
	for rows.Next() {
		var board domain.Board
		if err := rows.Scan(&board.ID, &board.ProjectID, &board.Name, &board.Position, &board.CreatedAt); err != nil {
			return nil, err
		}
		boards = append(boards, board)
	}
	return boards, rows.Err()
}

// GetBoard fetches a board with its columns and cards, nil when unreachable.
func (r *Repository) GetBoard(ctx context.Context, userID, projectID, boardID uuid.UUID) (*domain.BoardView, error) {
	const boardQuery = `SELECT b.board_id, b.project_id, b.name, b.position, b.created_at
        FROM boards b
        JOIN projects p ON p.project_id = b.project_id
        WHERE b.board_id=$1 AND p.project_id=$2 AND p.user_id=$3`

	var board domain.Board
	row := r.pool.QueryRow(ctx, boardQuery, boardID, projectID, userID)
	if err := row.Scan(&board.ID, &board.ProjectID, &board.Name, &board.Position, &board.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	const columnQuery = `SELECT column_id, board_id, name, position
        FROM board_columns WHERE board_id=$1 ORDER BY position`

	columnRows, err := r.pool.Query(ctx, columnQuery, boardID)
	if err != nil {
		return nil, err
	}
	defer columnRows.Close()

	view := &domain.BoardView{Board: board, Columns: make([]domain.ColumnView, 0)}
	columnIndex := make(map[uuid.UUID]int)
	for columnRows.Next() {
		var column domain.Column
		if err := columnRows.Scan(&column.ID, &column.BoardID, &column.Name, &column.Position); err != nil {
			return nil, err
		}
		columnIndex[column.ID] = len(view.Columns)
		view.Columns = append(view.Columns, domain.ColumnView{Column: column, Cards: make([]domain.Card, 0)})
	}
	if err := columnRows.Err(); err != nil {
		return nil, err
	}

	const cardQuery = `SELECT c.card_id, c.column_id, c.title, c.description, c.position, c.created_at
        FROM cards c
        JOIN board_columns col ON col.column_id = c.column_id
        WHERE col.board_id=$1
        ORDER BY c.column_id, c.position`

	cardRows, err := r.pool.Query(ctx, cardQuery, boardID)
	if err != nil {
		return nil, err
	}
	defer cardRows.Close()

	for cardRows.Next() {
		var card domain.Card
		if err := cardRows.Scan(&card.ID, &card.ColumnID, &card.Title, &card.Description, &card.Position, &card.CreatedAt); err != nil {
			return nil, err
		}
		if idx, ok := columnIndex[card.ColumnID]; ok {
			view.Columns[idx].Cards = append(view.Columns[idx].Cards, card)
		}
	}
	return view, cardRows.Err()
}

// UpdateBoard renames a board.
func (r *Repository) UpdateBoard(ctx context.Context, userID, projectID uuid.UUID, board domain.Board) error {
	const stmt = `UPDATE boards b SET name=$1
        FROM projects p
        WHERE b.board_id=$2 AND b.project_id=p.project_id AND p.project_id=$3 AND p.user_id=$4`

	tag, err := r.pool.Exec(ctx, stmt, board.Name, board.ID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteBoard removes a board, its columns and their cards.
func (r *Repository) DeleteBoard(ctx context.Context, userID, projectID, boardID uuid.UUID) error {
	const stmt = `DELETE FROM boards b
        USING projects p
        WHERE b.board_id=$1 AND b.project_id=p.project_id AND p.project_id=$2 AND p.user_id=$3`

	tag, err := r.pool.Exec(ctx, stmt, boardID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateColumn appends a column at the end of the board's order.
func (r *Repository) CreateColumn(ctx context.Context, userID, projectID uuid.UUID, column domain.Column) error {
	const stmt = `INSERT INTO board_columns (column_id, board_id, name, position)
        SELECT $1, b.board_id, $2,
               COALESCE((SELECT MAX(position)+1 FROM board_columns WHERE board_id=b.board_id), 0)
        FROM boards b
        JOIN projects p ON p.project_id = b.project_id
        WHERE b.board_id=$3 AND p.project_id=$4 AND p.user_id=$5`

	tag, err := r.pool.Exec(ctx, stmt, column.ID, column.Name, column.BoardID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateColumn renames a column.
func (r *Repository) UpdateColumn(ctx context.Context, userID, projectID uuid.UUID, column domain.Column) error {
	const stmt = `UPDATE board_columns col SET name=$1
        FROM boards b
        JOIN projects p ON p.project_id = b.project_id
        WHERE col.column_id=$2 AND col.board_id=b.board_id AND p.project_id=$3 AND p.user_id=$4`

	tag, err := r.pool.Exec(ctx, stmt, column.Name, column.ID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteColumn removes a column and its cards.
func (r *Repository) DeleteColumn(ctx context.Context, userID, projectID, columnID uuid.UUID) error {
	const stmt = `DELETE FROM board_columns col
        USING boards b, projects p
        WHERE col.column_id=$1 AND col.board_id=b.board_id AND b.project_id=p.project_id
          AND p.project_id=$2 AND p.user_id=$3`

	tag, err := r.pool.Exec(ctx, stmt, columnID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReorderColumns replaces the board's column order wholesale.
func (r *Repository) ReorderColumns(ctx context.Context, userID, projectID, boardID uuid.UUID, columnIDs []uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := requireBoardTx(ctx, tx, userID, projectID, boardID); err != nil {
		return err
	}

	for position, columnID := range columnIDs {
		if _, err := tx.Exec(ctx, `UPDATE board_columns SET position=$1 WHERE column_id=$2 AND board_id=$3`, position, columnID, boardID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// CreateCard appends a card at the end of the column's order.
func (r *Repository) CreateCard(ctx context.Context, userID, projectID uuid.UUID, card domain.Card) error {
	const stmt = `INSERT INTO cards (card_id, column_id, title, description, position, created_at)
        SELECT $1, col.column_id, $2, $3,
               COALESCE((SELECT MAX(position)+1 FROM cards WHERE column_id=col.column_id), 0),
               $4
        FROM board_columns col
        JOIN boards b ON b.board_id = col.board_id
        JOIN projects p ON p.project_id = b.project_id
        WHERE col.column_id=$5 AND p.project_id=$6 AND p.user_id=$7`

	tag, err := r.pool.Exec(ctx, stmt,
		card.ID, card.Title, card.Description, card.CreatedAt, card.ColumnID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateCard rewrites a card's title and description.
func (r *Repository) UpdateCard(ctx context.Context, userID, projectID uuid.UUID, card domain.Card) error {
	const stmt = `UPDATE cards c SET title=$1, description=$2
        FROM board_columns col
        JOIN boards b ON b.board_id = col.board_id
        JOIN projects p ON p.project_id = b.project_id
        WHERE c.card_id=$3 AND c.column_id=col.column_id AND p.project_id=$4 AND p.user_id=$5`

	tag, err := r.pool.Exec(ctx, stmt, card.Title, card.Description, card.ID, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteCard removes a card and closes the gap it leaves behind.
func (r *Repository) DeleteCard(ctx context.Context, userID, projectID, cardID uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	columnID, position, err := locateCardTx(ctx, tx, userID, projectID, cardID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cards WHERE card_id=$1`, cardID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE cards SET position = position - 1 WHERE column_id=$1 AND position > $2`, columnID, position); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// MoveCard lifts a card out of its column and drops it into the target
// column at the requested position, shifting neighbours in both columns.
// Same-column moves go through the same path.
func (r *Repository) MoveCard(ctx context.Context, userID, projectID, cardID, toColumnID uuid.UUID, position int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	sourceColumn, oldPosition, err := locateCardTx(ctx, tx, userID, projectID, cardID)
	if err != nil {
		return err
	}

	var sameBoard bool
	const targetQuery = `SELECT EXISTS (
        SELECT 1 FROM board_columns target
        JOIN board_columns source ON source.board_id = target.board_id
        WHERE target.column_id=$1 AND source.column_id=$2)`
	if err := tx.QueryRow(ctx, targetQuery, toColumnID, sourceColumn).Scan(&sameBoard); err != nil {
		return err
	}
	if !sameBoard {
		return domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `UPDATE cards SET position = position - 1 WHERE column_id=$1 AND position > $2`, sourceColumn, oldPosition); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM cards WHERE column_id=$1 AND card_id<>$2`, toColumnID, cardID).Scan(&count); err != nil {
		return err
	}
	if position > count {
		position = count
	}

	if _, err := tx.Exec(ctx, `UPDATE cards SET position = position + 1 WHERE column_id=$1 AND position >= $2 AND card_id<>$3`, toColumnID, position, cardID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE cards SET column_id=$1, position=$2 WHERE card_id=$3`, toColumnID, position, cardID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReorderCards replaces the column's card order wholesale.
func (r *Repository) ReorderCards(ctx context.Context, userID, projectID, columnID uuid.UUID, cardIDs []uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	const query = `SELECT EXISTS (
        SELECT 1 FROM board_columns col
        JOIN boards b ON b.board_id = col.board_id
        JOIN projects p ON p.project_id = b.project_id
        WHERE col.column_id=$1 AND p.project_id=$2 AND p.user_id=$3)`
	if err := tx.QueryRow(ctx, query, columnID, projectID, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}

	for position, cardID := range cardIDs {
		if _, err := tx.Exec(ctx, `UPDATE cards SET position=$1 WHERE card_id=$2 AND column_id=$3`, position, cardID, columnID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func locateCardTx(ctx context.Context, tx pgx.Tx, userID, projectID, cardID uuid.UUID) (uuid.UUID, int, error) {
	const query = `SELECT c.column_id, c.position
        FROM cards c
        JOIN board_columns col ON col.column_id = c.column_id
        JOIN boards b ON b.board_id = col.board_id
        JOIN projects p ON p.project_id = b.project_id
        WHERE c.card_id=$1 AND p.project_id=$2 AND p.user_id=$3`

	var columnID uuid.UUID
	var position int
	if err := tx.QueryRow(ctx, query, cardID, projectID, userID).Scan(&columnID, &position); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, 0, domain.ErrNotFound
		}
		return uuid.Nil, 0, err
	}
	return columnID, position, nil
}

func requireBoardTx(ctx context.Context, tx pgx.Tx, userID, projectID, boardID uuid.UUID) error {
	var exists bool
	const query = `SELECT EXISTS (
        SELECT 1 FROM boards b
        JOIN projects p ON p.project_id = b.project_id
        WHERE b.board_id=$1 AND p.project_id=$2 AND p.user_id=$3)`
	if err := tx.QueryRow(ctx, query, boardID, projectID, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}
