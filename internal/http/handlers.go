package http

import (
	"net/http"

	"incassi/internal/services"
)

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	q, err := parseViewQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	clients, err := s.ledger.ListClients(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, err := parseViewQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.ledger.Summary(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.ledger.CreateClient(r.Context(), services.NewClientInput{
		Name:           req.Name,
		StartDate:      req.StartDate,
		ExpectedAmount: req.ExpectedAmount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleSaveClients(w http.ResponseWriter, r *http.Request) {
	var req saveClientsRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.SaveClients(r.Context(), req.clients()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	year, err := pathInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := pathInt(r, "month")
	if err != nil {
		writeError(w, r, err)
		return
	}
	clientID := r.PathValue("id")

	view, err := s.ledger.ToggleMonth(r.Context(), clientID, month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := decodeJSON(w, r, maxReconcileBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if isAsync(r) {
		id, err := s.reconciler.Enqueue(r.Context(), req.BillingText, req.BankText)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, acceptedResponse{RequestID: id})
		return
	}

	res, err := s.reconciler.Reconcile(r.Context(), req.BillingText, req.BankText)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
