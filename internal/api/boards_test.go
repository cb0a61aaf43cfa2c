package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
)

type boardFixture struct {
	handler *Handler
	userID  uuid.UUID
	project ProjectView
	board   BoardSummaryView
}

func newBoardFixture(t *testing.T) *boardFixture {
	t.Helper()
	handler, _ := newTestHandler(t, newMemoryStore())
	userID := uuid.New()

	rr := runRoutes(t, handler, authed(httptest.NewRequest(http.MethodPost, "/api/projects",
		strings.NewReader(`{"name":"App"}`)), userID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create project: %d", rr.Code)
	}
	var project ProjectView
	if err := json.Unmarshal(rr.Body.Bytes(), &project); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	rr = runRoutes(t, handler, authed(httptest.NewRequest(http.MethodPost,
		"/api/projects/"+project.ProjectID+"/boards", strings.NewReader(`{"name":"Main"}`)), userID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create board: %d: %s", rr.Code, rr.Body.String())
	}
	var board BoardSummaryView
	if err := json.Unmarshal(rr.Body.Bytes(), &board); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return &boardFixture{handler: handler, userID: userID, project: project, board: board}
}

func (f *boardFixture) createColumn(t *testing.T, name string) ColumnDetailView {
	t.Helper()
	rr := runRoutes(t, f.handler, authed(httptest.NewRequest(http.MethodPost,
		"/api/projects/"+f.project.ProjectID+"/boards/"+f.board.BoardID+"/columns",
		strings.NewReader(`{"name":"`+name+`"}`)), f.userID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create column: %d: %s", rr.Code, rr.Body.String())
	}
	var column ColumnDetailView
	if err := json.Unmarshal(rr.Body.Bytes(), &column); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return column
}

func (f *boardFixture) createCard(t *testing.T, columnID, title string) CardView {
	t.Helper()
	rr := runRoutes(t, f.handler, authed(httptest.NewRequest(http.MethodPost,
		"/api/projects/"+f.project.ProjectID+"/columns/"+columnID+"/cards",
		strings.NewReader(`{"title":"`+title+`"}`)), f.userID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create card: %d: %s", rr.Code, rr.Body.String())
	}
	var card CardView
	if err := json.Unmarshal(rr.Body.Bytes(), &card); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return card
}

func (f *boardFixture) view(t *testing.T) BoardDetailView {
	t.Helper()
	rr := runRoutes(t, f.handler, authed(httptest.NewRequest(http.MethodGet,
		"/api/projects/"+f.project.ProjectID+"/boards/"+f.board.BoardID, nil), f.userID))
	if rr.Code != http.StatusOK {
		t.Fatalf("get board: %d: %s", rr.Code, rr.Body.String())
	}
	var detail BoardDetailView
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return detail
}

func TestBoardViewContainsColumnsAndCards(t *testing.T) {
	f := newBoardFixture(t)

	todo := f.createColumn(t, "Todo")
	done := f.createColumn(t, "Done")
	f.createCard(t, todo.ColumnID, "first")
	f.createCard(t, todo.ColumnID, "second")

	detail := f.view(t)
	if len(detail.Columns) != 2 {
		t.Fatalf("expected 2 columns got %d", len(detail.Columns))
	}
	if detail.Columns[0].ColumnID != todo.ColumnID || detail.Columns[1].ColumnID != done.ColumnID {
		t.Fatalf("columns out of order: %+v", detail.Columns)
	}
	if len(detail.Columns[0].Cards) != 2 {
		t.Fatalf("expected 2 cards got %d", len(detail.Columns[0].Cards))
	}
	if detail.Columns[0].Cards[0].Title != "first" || detail.Columns[0].Cards[1].Title != "second" {
		t.Fatalf("cards out of order: %+v", detail.Columns[0].Cards)
	}
}

func TestMoveCardAcrossColumns(t *testing.T) {
	f := newBoardFixture(t)

	todo := f.createColumn(t, "Todo")
	doing := f.createColumn(t, "Doing")
	a := f.createCard(t, todo.ColumnID, "a")
	f.createCard(t, todo.ColumnID, "b")
	f.createCard(t, doing.ColumnID, "x")

	// Position beyond the end of the target is clamped to append.
	body, _ := json.Marshal(MoveCardRequest{ColumnID: doing.ColumnID, Position: 99})
	rr := runRoutes(t, f.handler, authed(httptest.NewRequest(http.MethodPut,
		"/api/projects/"+f.project.ProjectID+"/cards/"+a.CardID+"/move",
		strings.NewReader(string(body))), f.userID))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("move: expected 204 got %d: %s", rr.Code, rr.Body.String())
	}

	detail := f.view(t)
	var todoCards, doingCards []CardView
	for _, column := range detail.Columns {
		switch column.ColumnID {
		case todo.ColumnID:
			todoCards = column.Cards
		case doing.ColumnID:
			doingCards = column.Cards
		}
	}
	if len(todoCards) != 1 || todoCards[0].Title != "b" {
		t.Fatalf("source column not compacted: %+v", todoCards)
	}
	if len(doingCards) != 2 || doingCards[1].Title != "a" {
		t.Fatalf("moved card must land last: %+v", doingCards)
	}
}

func TestReorderColumns(t *testing.T) {
	f := newBoardFixture(t)

	first := f.createColumn(t, "First")
	second := f.createColumn(t, "Second")

	body, _ := json.Marshal(OrderRequest{Order: []string{second.ColumnID, first.ColumnID}})
	rr := runRoutes(t, f.handler, authed(httptest.NewRequest(http.MethodPut,
		"/api/projects/"+f.project.ProjectID+"/boards/"+f.board.BoardID+"/columns/order",
		strings.NewReader(string(body))), f.userID))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("reorder: expected 204 got %d: %s", rr.Code, rr.Body.String())
	}

	detail := f.view(t)
	if detail.Columns[0].ColumnID != second.ColumnID {
		t.Fatalf("columns not reordered: %+v", detail.Columns)
	}
}

func TestBoardOwnershipHidesOtherUsers(t *testing.T) {
	f := newBoardFixture(t)
	stranger := uuid.New()

	rr := runRoutes(t, f.handler, authed(httptest.NewRequest(http.MethodGet,
		"/api/projects/"+f.project.ProjectID+"/boards/"+f.board.BoardID, nil), stranger))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}

	rr = runRoutes(t, f.handler, authed(httptest.NewRequest(http.MethodDelete,
		"/api/projects/"+f.project.ProjectID+"/boards/"+f.board.BoardID, nil), stranger))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

// memoryBoardRepo implements domain.BoardRepository, delegating ownership
// checks to the project repo it shares with the fixture.
type memoryBoardRepo struct {
	owner   *memoryProjectRepo
	boards  map[uuid.UUID]domain.Board
	columns map[uuid.UUID]domain.Column
	cards   map[uuid.UUID]domain.Card
}

func (m *memoryBoardRepo) init() {
	if m.boards == nil {
		m.boards = make(map[uuid.UUID]domain.Board)
		m.columns = make(map[uuid.UUID]domain.Column)
		m.cards = make(map[uuid.UUID]domain.Card)
	}
	m.owner.init()
}

func (m *memoryBoardRepo) boardOwned(userID, projectID, boardID uuid.UUID) bool {
	board, ok := m.boards[boardID]
	return ok && board.ProjectID == projectID && m.owner.owned(userID, projectID)
}

func (m *memoryBoardRepo) columnOwned(userID, projectID, columnID uuid.UUID) bool {
	column, ok := m.columns[columnID]
	return ok && m.boardOwned(userID, projectID, column.BoardID)
}

func (m *memoryBoardRepo) cardOwned(userID, projectID, cardID uuid.UUID) bool {
	card, ok := m.cards[cardID]
	return ok && m.columnOwned(userID, projectID, card.ColumnID)
}

func (m *memoryBoardRepo) columnCards(columnID uuid.UUID) []domain.Card {
	var out []domain.Card
	for _, card := range m.cards {
		if card.ColumnID == columnID {
			out = append(out, card)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memoryBoardRepo) CreateBoard(ctx context.Context, userID uuid.UUID, board domain.Board) error {
	m.init()
	if !m.owner.owned(userID, board.ProjectID) {
		return domain.ErrNotFound
	}
	for _, existing := range m.boards {
		if existing.ProjectID == board.ProjectID {
			board.Position++
		}
	}
	m.boards[board.ID] = board
	return nil
}

func (m *memoryBoardRepo) ListBoards(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Board, error) {
	m.init()
	if !m.owner.owned(userID, projectID) {
		return nil, domain.ErrNotFound
	}
	var out []domain.Board
	for _, board := range m.boards {
		if board.ProjectID == projectID {
			out = append(out, board)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memoryBoardRepo) GetBoard(ctx context.Context, userID, projectID, boardID uuid.UUID) (*domain.BoardView, error) {
	m.init()
	if !m.boardOwned(userID, projectID, boardID) {
		return nil, nil
	}

	view := &domain.BoardView{Board: m.boards[boardID]}
	var columns []domain.Column
	for _, column := range m.columns {
		if column.BoardID == boardID {
			columns = append(columns, column)
		}
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].Position < columns[j].Position })
	for _, column := range columns {
		view.Columns = append(view.Columns, domain.ColumnView{
			Column: column,
			Cards:  m.columnCards(column.ID),
		})
	}
	return view, nil
}

func (m *memoryBoardRepo) UpdateBoard(ctx context.Context, userID, projectID uuid.UUID, board domain.Board) error {
	m.init()
	if !m.boardOwned(userID, projectID, board.ID) {
		return domain.ErrNotFound
	}
	stored := m.boards[board.ID]
	stored.Name = board.Name
	m.boards[board.ID] = stored
	return nil
}

func (m *memoryBoardRepo) DeleteBoard(ctx context.Context, userID, projectID, boardID uuid.UUID) error {
	m.init()
	if !m.boardOwned(userID, projectID, boardID) {
		return domain.ErrNotFound
	}
	delete(m.boards, boardID)
	for id, column := range m.columns {
		if column.BoardID == boardID {
			delete(m.columns, id)
			for cardID, card := range m.cards {
				if card.ColumnID == id {
					delete(m.cards, cardID)
				}
			}
		}
	}
	return nil
}

func (m *memoryBoardRepo) CreateColumn(ctx context.Context, userID, projectID uuid.UUID, column domain.Column) error {
	m.init()
	if !m.boardOwned(userID, projectID, column.BoardID) {
		return domain.ErrNotFound
	}
	for _, existing := range m.columns {
		if existing.BoardID == column.BoardID {
			column.Position++
		}
	}
	m.columns[column.ID] = column
	return nil
}

func (m *memoryBoardRepo) UpdateColumn(ctx context.Context, userID, projectID uuid.UUID, column domain.Column) error {
	m.init()
	if !m.columnOwned(userID, projectID, column.ID) {
		return domain.ErrNotFound
	}
	stored := m.columns[column.ID]
	stored.Name = column.Name
	m.columns[column.ID] = stored
	return nil
}

func (m *memoryBoardRepo) DeleteColumn(ctx context.Context, userID, projectID, columnID uuid.UUID) error {
	m.init()
	if !m.columnOwned(userID, projectID, columnID) {
		return domain.ErrNotFound
	}
	delete(m.columns, columnID)
	for id, card := range m.cards {
		if card.ColumnID == columnID {
			delete(m.cards, id)
		}
	}
	return nil
}

func (m *memoryBoardRepo) ReorderColumns(ctx context.Context, userID, projectID, boardID uuid.UUID, columnIDs []uuid.UUID) error {
	m.init()
	if !m.boardOwned(userID, projectID, boardID) {
		return domain.ErrNotFound
	}
	for position, columnID := range columnIDs {
		column, ok := m.columns[columnID]
		if !ok || column.BoardID != boardID {
			continue
		}
		column.Position = position
		m.columns[columnID] = column
	}
	return nil
}

func (m *memoryBoardRepo) CreateCard(ctx context.Context, userID, projectID uuid.UUID, card domain.Card) error {
	m.init()
	if !m.columnOwned(userID, projectID, card.ColumnID) {
		return domain.ErrNotFound
	}
	card.Position = len(m.columnCards(card.ColumnID))
	m.cards[card.ID] = card
	return nil
}

func (m *memoryBoardRepo) UpdateCard(ctx context.Context, userID, projectID uuid.UUID, card domain.Card) error {
	m.init()
	if !m.cardOwned(userID, projectID, card.ID) {
		return domain.ErrNotFound
	}
	stored := m.cards[card.ID]
	stored.Title = card.Title
	stored.Description = card.Description
	m.cards[card.ID] = stored
	return nil
}

func (m *memoryBoardRepo) DeleteCard(ctx context.Context, userID, projectID, cardID uuid.UUID) error {
	m.init()
	if !m.cardOwned(userID, projectID, cardID) {
		return domain.ErrNotFound
	}
	removed := m.cards[cardID]
	delete(m.cards, cardID)
	for id, card := range m.cards {
		if card.ColumnID == removed.ColumnID && card.Position > removed.Position {
			card.Position--
			m.cards[id] = card
		}
	}
	return nil
}

func (m *memoryBoardRepo) MoveCard(ctx context.Context, userID, projectID, cardID, toColumnID uuid.UUID, position int) error {
	m.init()
	if !m.cardOwned(userID, projectID, cardID) {
		return domain.ErrNotFound
	}
	target, ok := m.columns[toColumnID]
	if !ok {
		return domain.ErrNotFound
	}
	moved := m.cards[cardID]
	source := m.columns[moved.ColumnID]
	if target.BoardID != source.BoardID {
		return domain.ErrNotFound
	}

	// Close the gap in the source column.
	for id, card := range m.cards {
		if id != cardID && card.ColumnID == moved.ColumnID && card.Position > moved.Position {
			card.Position--
			m.cards[id] = card
		}
	}

	targetCount := 0
	for id, card := range m.cards {
		if id != cardID && card.ColumnID == toColumnID {
			targetCount++
		}
	}
	if position > targetCount {
		position = targetCount
	}
	for id, card := range m.cards {
		if id != cardID && card.ColumnID == toColumnID && card.Position >= position {
			card.Position++
			m.cards[id] = card
		}
	}

	moved.ColumnID = toColumnID
	moved.Position = position
	m.cards[cardID] = moved
	return nil
}

func (m *memoryBoardRepo) ReorderCards(ctx context.Context, userID, projectID, columnID uuid.UUID, cardIDs []uuid.UUID) error {
	m.init()
	if !m.columnOwned(userID, projectID, columnID) {
		return domain.ErrNotFound
	}
	for position, cardID := range cardIDs {
		card, ok := m.cards[cardID]
		if !ok || card.ColumnID != columnID {
			continue
		}
		card.Position = position
		m.cards[cardID] = card
	}
	return nil
}
