package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"towerterm/pkg/assets"
	"towerterm/pkg/liquidity"
	"towerterm/pkg/models"
)

type sourceStatusView struct {
	Name       string    `json:"name"`
	FailedRPCs []string  `json:"failed_rpcs,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type balancesResponse struct {
	Balances models.Balances    `json:"balances"`
	Sources  []sourceStatusView `json:"sources"`
}

type wsMessage struct {
	Type   string           `json:"type"`
	Source string           `json:"source,omitempty"`
	Error  string           `json:"error,omitempty"`
	Data   balancesResponse `json:"data"`
}

type poolView struct {
	models.Pool
	FeeLabel      string `json:"fee_label"`
	CanSwitchSide bool   `json:"can_switch_side"`
}

type decisionRequest struct {
	HasErrors bool `json:"has_errors"`
	IsValid   bool `json:"is_valid"`
}

type depositRequest struct {
	Pool     string            `json:"pool"`
	Side     models.Side       `json:"side"`
	Amounts  map[string]string `json:"amounts"`
	Slippage string            `json:"slippage"`
}

type depositResponse struct {
	Status  string                 `json:"status"`
	Deposit models.DepositFormData `json:"deposit"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) snapshot() balancesResponse {
	status := s.watcher.Status()
	views := make([]sourceStatusView, 0, len(status))
	for _, st := range status {
		v := sourceStatusView{Name: st.Name, FailedRPCs: st.FailedRPCs, UpdatedAt: st.UpdatedAt}
		if st.Err != nil {
			v.Error = st.Err.Error()
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return balancesResponse{Balances: s.watcher.Balances(), Sources: views}
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	list := s.cfg.Assets()
	if network := r.URL.Query().Get("network"); network != "" {
		list = nil
		found := false
		for _, src := range s.cfg.Sources {
			if src.Name != network {
				continue
			}
			found = true
			for _, a := range src.Assets {
				list = append(list, models.Asset{Symbol: a.Symbol, Denom: a.Denom, Decimals: a.Decimals, LogoURI: a.LogoURI})
			}
		}
		if !found {
			writeError(w, http.StatusNotFound, "unknown network "+network)
			return
		}
	}

	fs := assets.NewFilterState(list, s.watcher.Balances())
	fs.SetQuery(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, fs.State())
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	views := make([]poolView, 0, len(s.pools))
	for _, p := range s.pools {
		views = append(views, poolView{
			Pool:          p,
			FeeLabel:      liquidity.FeeLabel(p),
			CanSwitchSide: p.Type == models.PoolConcentrated,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, liquidity.Decide(req.HasErrors, req.IsValid))
}

func (s *Server) findPool(address string) (models.Pool, bool) {
	for _, p := range s.pools {
		if p.Address == address {
			return p, true
		}
	}
	return models.Pool{}, false
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pool, ok := s.findPool(req.Pool)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown pool "+req.Pool)
		return
	}

	form := liquidity.NewForm(pool, s.watcher.Balances())
	switch req.Side {
	case "", models.SideDouble:
	case models.SideSingle:
		if !form.CanSwitchSide() {
			writeError(w, http.StatusUnprocessableEntity, "pool only accepts double-sided deposits")
			return
		}
		if len(req.Amounts) != 1 {
			writeError(w, http.StatusUnprocessableEntity, "single-sided deposits take exactly one amount")
			return
		}
		form.SetSide(models.SideSingle)
		for denom := range req.Amounts {
			if err := form.SetSingleDenom(denom); err != nil {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
		}
	default:
		writeError(w, http.StatusUnprocessableEntity, "unknown side "+string(req.Side))
		return
	}

	for denom, v := range req.Amounts {
		if err := form.SetAmount(denom, v); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	slippage := req.Slippage
	if slippage == "" {
		slippage = s.cfg.Global.DefaultSlippage
	}
	if slippage == "" {
		slippage = liquidity.DefaultSlippage
	}
	if _, err := liquidity.NormalizeSlippage(slippage); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if errs := form.Validate(); len(errs) > 0 {
		fields := make(map[string]string, len(errs))
		for denom, err := range errs {
			fields[denom] = err.Error()
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: liquidity.LabelInsufficientBalance, Fields: fields})
		return
	}
	if !form.IsValid() {
		writeError(w, http.StatusUnprocessableEntity, "every deposit field needs a positive amount")
		return
	}

	data := form.Data(slippage)
	err := s.gate.Run(r.Context(), data, nil)
	switch {
	case errors.Is(err, liquidity.ErrSubmitInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, depositResponse{Status: "submitted", Deposit: data})
	}
}
