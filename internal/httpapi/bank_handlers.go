package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"redconnect.org/internal/bank"
	"redconnect.org/internal/profile"
)

func (a *API) handleBanksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createBank(w, r)
	case http.MethodGet:
		a.listBanks(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleBankResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/blood-banks/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch {
	case path == "inventory":
		a.postOnly(w, r, a.putInventory)
		return
	case strings.HasPrefix(path, "inventory/"):
		id := strings.TrimPrefix(path, "inventory/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			a.bankInventory(w, r, id)
		case http.MethodPut:
			a.updateInventoryUnits(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
		return
	case path == "states/list":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listStates(w, r)
		return
	case strings.HasPrefix(path, "cities/"):
		state := strings.TrimPrefix(path, "cities/")
		if state == "" || strings.Contains(state, "/") {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listCities(w, r, state)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getBank(w, r, path)
	case http.MethodPut:
		a.updateBank(w, r, path)
	case http.MethodDelete:
		a.deleteBank(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) createBank(w http.ResponseWriter, r *http.Request) {
	var req bank.CreateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	b, err := a.banks.Create(r.Context(), req)
	if err != nil {
		handleBankError(w, r, err)
		return
	}
	a.audit(r.Context(), "bank.create", map[string]any{"bank_id": b.ID})
	w.Header().Set("Location", "/api/blood-banks/"+b.ID)
	writeJSON(w, http.StatusCreated, b)
}

func (a *API) listBanks(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parseWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	filter := bank.Filter{
		State:     q.Get("state"),
		City:      q.Get("city"),
		Category:  bank.Category(q.Get("category")),
		BloodType: profile.BloodType(q.Get("blood_type")),
		Skip:      skip,
		Limit:     limit,
	}
	banks, err := a.banks.List(r.Context(), filter)
	if err != nil {
		handleBankError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, banks)
}

func (a *API) getBank(w http.ResponseWriter, r *http.Request, id string) {
	b, err := a.banks.Get(r.Context(), id)
	if err != nil {
		handleBankError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) updateBank(w http.ResponseWriter, r *http.Request, id string) {
	var upd bank.UpdateInput
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	b, err := a.banks.Update(r.Context(), id, upd)
	if err != nil {
		handleBankError(w, r, err)
		return
	}
	a.audit(r.Context(), "bank.update", map[string]any{"bank_id": b.ID})
	writeJSON(w, http.StatusOK, b)
}

func (a *API) deleteBank(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.banks.Delete(r.Context(), id); err != nil {
		handleBankError(w, r, err)
		return
	}
	a.audit(r.Context(), "bank.delete", map[string]any{"bank_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) putInventory(w http.ResponseWriter, r *http.Request) {
	var req bank.InventoryInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := a.banks.PutInventory(r.Context(), req)
	if err != nil {
		handleBankError(w, r, err)
		return
	}
	a.audit(r.Context(), "bank.inventory.put", map[string]any{
		"bank_id":    inv.BloodBankID,
		"blood_type": string(inv.BloodType),
	})
	writeJSON(w, http.StatusCreated, inv)
}

func (a *API) bankInventory(w http.ResponseWriter, r *http.Request, bankID string) {
	rows, err := a.banks.BankInventory(r.Context(), bankID)
	if err != nil {
		handleBankError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type inventoryUnitsRequest struct {
	UnitsAvailable int `json:"units_available"`
}

func (a *API) updateInventoryUnits(w http.ResponseWriter, r *http.Request, id string) {
	var req inventoryUnitsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := a.banks.SetInventoryUnits(r.Context(), id, req.UnitsAvailable)
	if err != nil {
		handleBankError(w, r, err)
		return
	}
	a.audit(r.Context(), "bank.inventory.update", map[string]any{"inventory_id": id})
	writeJSON(w, http.StatusOK, inv)
}

func (a *API) listStates(w http.ResponseWriter, r *http.Request) {
	states, err := a.banks.States(r.Context())
	if err != nil {
		handleBankError(w, r, err)
		return
	}
	if states == nil {
		states = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": states})
}

func (a *API) listCities(w http.ResponseWriter, r *http.Request, state string) {
	cities, err := a.banks.Cities(r.Context(), state)
	if err != nil {
		handleBankError(w, r, err)
		return
	}
	if cities == nil {
		cities = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cities": cities})
}

func handleBankError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, bank.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, bank.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
