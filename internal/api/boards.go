package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
)

func (h *Handler) registerBoardRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects/{id}/boards", h.listBoards)
	mux.HandleFunc("POST /api/projects/{id}/boards", h.createBoard)
	mux.HandleFunc("GET /api/projects/{id}/boards/{boardID}", h.getBoard)
	mux.HandleFunc("PUT /api/projects/{id}/boards/{boardID}", h.updateBoard)
	mux.HandleFunc("DELETE /api/projects/{id}/boards/{boardID}", h.deleteBoard)

	mux.HandleFunc("POST /api/projects/{id}/boards/{boardID}/columns", h.createColumn)
	mux.HandleFunc("PUT /api/projects/{id}/boards/{boardID}/columns/order", h.reorderColumns)
	mux.HandleFunc("PUT /api/projects/{id}/columns/{columnID}", h.updateColumn)
	mux.HandleFunc("DELETE /api/projects/{id}/columns/{columnID}", h.deleteColumn)

	mux.HandleFunc("POST /api/projects/{id}/columns/{columnID}/cards", h.createCard)
	mux.HandleFunc("PUT /api/projects/{id}/columns/{columnID}/cards/order", h.reorderCards)
	mux.HandleFunc("PUT /api/projects/{id}/cards/{cardID}", h.updateCard)
	mux.HandleFunc("DELETE /api/projects/{id}/cards/{cardID}", h.deleteCard)
	mux.HandleFunc("PUT /api/projects/{id}/cards/{cardID}/move", h.moveCard)
}

// BoardSummaryView exposes a board without its children.
type BoardSummaryView struct {
	BoardID   string    `json:"board_id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// BoardDetailView exposes a board with ordered columns and cards.
type BoardDetailView struct {
	BoardSummaryView
	Columns []ColumnDetailView `json:"columns"`
}

// ColumnDetailView exposes a column with its ordered cards.
type ColumnDetailView struct {
	ColumnID string     `json:"column_id"`
	Name     string     `json:"name"`
	Position int        `json:"position"`
	Cards    []CardView `json:"cards"`
}

// CardView exposes a card.
type CardView struct {
	CardID      string    `json:"card_id"`
	ColumnID    string    `json:"column_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// CardRequest is the payload for creating or updating a card.
type CardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate ensures request correctness.
func (r CardRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// MoveCardRequest relocates a card into a column at a position.
type MoveCardRequest struct {
	ColumnID string `json:"column_id"`
	Position int    `json:"position"`
}

func (h *Handler) listBoards(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	boards, err := h.boards.ListBoards(r.Context(), claims.UserID, projectID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]BoardSummaryView, 0, len(boards))
	for _, board := range boards {
		views = append(views, toBoardSummaryView(board))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createBoard(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	board, err := h.boards.CreateBoard(r.Context(), claims.UserID, projectID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBoardSummaryView(*board))
}

func (h *Handler) getBoard(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}

	view, err := h.boards.GetBoard(r.Context(), claims.UserID, projectID, boardID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	detail := BoardDetailView{
		BoardSummaryView: toBoardSummaryView(view.Board),
		Columns:          make([]ColumnDetailView, 0, len(view.Columns)),
	}
	for _, column := range view.Columns {
		cards := make([]CardView, 0, len(column.Cards))
		for _, card := range column.Cards {
			cards = append(cards, toCardView(card))
		}
		detail.Columns = append(detail.Columns, ColumnDetailView{
			ColumnID: column.Column.ID.String(),
			Name:     column.Column.Name,
			Position: column.Column.Position,
			Cards:    cards,
		})
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) updateBoard(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}

	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.boards.UpdateBoard(r.Context(), claims.UserID, projectID, boardID, req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteBoard(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}

	if err := h.boards.DeleteBoard(r.Context(), claims.UserID, projectID, boardID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createColumn(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}

	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	column, err := h.boards.CreateColumn(r.Context(), claims.UserID, projectID, boardID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ColumnDetailView{
		ColumnID: column.ID.String(),
		Name:     column.Name,
		Position: column.Position,
		Cards:    []CardView{},
	})
}

func (h *Handler) updateColumn(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "columnID")
	if !ok {
		return
	}

	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.boards.UpdateColumn(r.Context(), claims.UserID, projectID, columnID, req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteColumn(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "columnID")
	if !ok {
		return
	}

	if err := h.boards.DeleteColumn(r.Context(), claims.UserID, projectID, columnID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reorderColumns(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	ids, err := req.ids()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.boards.ReorderColumns(r.Context(), claims.UserID, projectID, boardID, ids); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createCard(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "columnID")
	if !ok {
		return
	}

	var req CardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	card, err := h.boards.CreateCard(r.Context(), claims.UserID, projectID, columnID, req.Title, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardView(*card))
}

func (h *Handler) updateCard(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}

	var req CardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.boards.UpdateCard(r.Context(), claims.UserID, projectID, cardID, req.Title, req.Description); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteCard(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}

	if err := h.boards.DeleteCard(r.Context(), claims.UserID, projectID, cardID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) moveCard(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}

	var req MoveCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	columnID, err := uuid.Parse(req.ColumnID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "column_id must be a valid id")
		return
	}

	if err := h.boards.MoveCard(r.Context(), claims.UserID, projectID, cardID, columnID, req.Position); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reorderCards(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "columnID")
	if !ok {
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	ids, err := req.ids()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.boards.ReorderCards(r.Context(), claims.UserID, projectID, columnID, ids); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toBoardSummaryView(board domain.Board) BoardSummaryView {
	return BoardSummaryView{
		BoardID:   board.ID.String(),
		ProjectID: board.ProjectID.String(),
		Name:      board.Name,
		Position:  board.Position,
		CreatedAt: board.CreatedAt,
	}
}

func toCardView(card domain.Card) CardView {
	return CardView{
		CardID:      card.ID.String(),
		ColumnID:    card.ColumnID.String(),
		Title:       card.Title,
		Description: card.Description,
		Position:    card.Position,
		CreatedAt:   card.CreatedAt,
	}
}
