package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"vabboost/internal/domain"
	"vabboost/internal/pkg/logger"
	"vabboost/internal/pkg/validator"
	"vabboost/internal/repository"
)

// A rank range shows up in the service breakdown once bought this many times.
const minRankProgression = 3

// dummyHash keeps the cost of a failed lookup close to a real comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("vabboost-dummy"), bcrypt.DefaultCost)

type Service struct {
	admins adminRepo
	orders orderRepo
	tokens tokenIssuer
	now    func() time.Time
}

func NewService(admins adminRepo, orders orderRepo, tokens tokenIssuer) *Service {
	return &Service{admins: admins, orders: orders, tokens: tokens, now: time.Now}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := validator.Struct(req).Err(); err != nil {
		return nil, err
	}

	a, err := s.admins.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !a.IsActive {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(a.ID, a.Username, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	now := s.now().UTC()
	if err := s.admins.TouchLastLogin(ctx, a.ID, now); err != nil {
		logger.Logger.Warn().Err(err).Int64("admin_id", a.ID).Msg("failed to record admin login")
	}
	logger.Logger.Info().Int64("admin_id", a.ID).Str("username", a.Username).Msg("admin logged in")

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(s.tokens.TTL()),
		Username:    a.Username,
	}, nil
}

func (s *Service) ListOrders(ctx context.Context, q ListOrdersQuery) (*OrderListResponse, error) {
	f, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	items := make([]OrderListItem, 0, len(orders))
	for i := range orders {
		items = append(items, newListItem(&orders[i]))
	}
	return &OrderListResponse{
		Orders: items,
		Pagination: Pagination{
			Page:       f.Page,
			PerPage:    f.PerPage,
			Total:      total,
			TotalPages: (total + int64(f.PerPage) - 1) / int64(f.PerPage),
		},
	}, nil
}

func (s *Service) filter(q ListOrdersQuery) (repository.OrderFilter, error) {
	errs := &validator.Errors{}
	f := repository.OrderFilter{
		Search:  q.Search,
		Sort:    q.Sort,
		Order:   q.Order,
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PerPage == 0:
		f.PerPage = 20
	case f.PerPage < 10:
		f.PerPage = 10
	case f.PerPage > 100:
		f.PerPage = 100
	}

	if q.Status != "" {
		st := domain.OrderStatus(q.Status)
		if !st.Valid() {
			errs.Add("status", "unknown order status")
		}
		f.Status = st
	}
	if q.DateFrom != "" {
		t, err := parseDate(q.DateFrom, false)
		if err != nil {
			errs.Add("date_from", "must be YYYY-MM-DD or RFC3339")
		}
		f.DateFrom = t
	}
	if q.DateTo != "" {
		t, err := parseDate(q.DateTo, true)
		if err != nil {
			errs.Add("date_to", "must be YYYY-MM-DD or RFC3339")
		}
		f.DateTo = t
	}
	if f.DateFrom != nil && f.DateTo != nil && !f.DateFrom.Before(*f.DateTo) {
		errs.Add("date_to", "must be after date_from")
	}
	if err := errs.Err(); err != nil {
		return f, err
	}
	return f, nil
}

// parseDate accepts a calendar day or an RFC3339 instant. A bare day used as
// an upper bound covers the whole day.
func parseDate(v string, upper bool) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func (s *Service) GetOrder(ctx context.Context, ref string) (*OrderDetails, error) {
	o, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	history, err := s.orders.History(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return newOrderDetails(o, history), nil
}

// UpdateStatus applies an operator transition and records who made it.
func (s *Service) UpdateStatus(ctx context.Context, ref string, req UpdateStatusRequest, username string) (*OrderDetails, error) {
	if err := validator.Struct(req).Err(); err != nil {
		return nil, err
	}
	return s.setStatus(ctx, ref, domain.OrderStatus(req.Status), username, req.Comment)
}

// CancelOrder is the logical delete: the row is kept and moved to cancelled.
func (s *Service) CancelOrder(ctx context.Context, ref string, req CancelRequest, username string) (*OrderDetails, error) {
	if err := validator.Struct(req).Err(); err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(req.Reason)
	if comment == "" {
		comment = "cancelled by operator"
	}
	return s.setStatus(ctx, ref, domain.OrderCancelled, username, comment)
}

func (s *Service) setStatus(ctx context.Context, ref string, status domain.OrderStatus, username, comment string) (*OrderDetails, error) {
	o, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.AdminSetStatus(ctx, o.ID, status, username, strings.TrimSpace(comment)); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("set order status: %w", err)
	}
	logger.Logger.Info().
		Str("order_number", o.OrderNumber).
		Str("from", string(o.Status)).
		Str("to", string(status)).
		Str("admin", username).
		Msg("order status changed by operator")
	return s.GetOrder(ctx, o.OrderNumber)
}

func (s *Service) Stats(ctx context.Context) (*repository.OrderStats, error) {
	st, err := s.orders.Stats(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	return st, nil
}

// UpdateNotes replaces the operator notes on an order and logs the edit in its history.
func (s *Service) UpdateNotes(ctx context.Context, ref string, req UpdateNotesRequest, username string) (*OrderDetails, error) {
	if err := validator.Struct(req).Err(); err != nil {
		return nil, err
	}
	o, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.UpdateNotes(ctx, o.ID, strings.TrimSpace(req.Notes), username); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update notes: %w", err)
	}
	logger.Logger.Info().Str("order_number", o.OrderNumber).Str("admin", username).Msg("order notes updated")
	return s.GetOrder(ctx, o.OrderNumber)
}

// Revenue reports revenue for the current day, last seven days, calendar
// month or calendar year. An explicit start_date/end_date pair overrides period.
func (s *Service) Revenue(ctx context.Context, q RevenueQuery) (*RevenueResponse, error) {
	errs := &validator.Errors{}
	resp := &RevenueResponse{Period: q.Period, StartDate: q.StartDate, EndDate: q.EndDate}
	if resp.Period == "" {
		resp.Period = "month"
	}
	rq := repository.RevenueQuery{}

	if q.StartDate != "" || q.EndDate != "" {
		from, ferr := parseDate(q.StartDate, false)
		if ferr != nil {
			errs.Add("start_date", "must be YYYY-MM-DD or RFC3339")
		}
		to, terr := parseDate(q.EndDate, true)
		if terr != nil {
			errs.Add("end_date", "must be YYYY-MM-DD or RFC3339")
		}
		if ferr == nil && terr == nil {
			if !from.Before(*to) {
				errs.Add("end_date", "must be after start_date")
			}
			rq.From, rq.To = *from, *to
		}
	} else {
		now := s.now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		switch resp.Period {
		case "day":
			rq.From, rq.To = today, today.AddDate(0, 0, 1)
		case "week":
			rq.From, rq.To = today.AddDate(0, 0, -7), today.AddDate(0, 0, 1)
		case "month":
			rq.From = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			rq.To = rq.From.AddDate(0, 1, 0)
		case "year":
			rq.From = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
			rq.To = rq.From.AddDate(1, 0, 0)
			rq.ByMonth = true
		default:
			errs.Add("period", "must be one of day, week, month, year")
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	st, err := s.orders.RevenueStats(ctx, rq)
	if err != nil {
		return nil, fmt.Errorf("revenue stats: %w", err)
	}
	resp.From, resp.To, resp.RevenueStats = rq.From, rq.To, st
	return resp, nil
}

func (s *Service) ServiceStats(ctx context.Context) (*repository.ServiceStats, error) {
	st, err := s.orders.ServiceStats(ctx, minRankProgression)
	if err != nil {
		return nil, fmt.Errorf("service stats: %w", err)
	}
	return st, nil
}

func (s *Service) load(ctx context.Context, ref string) (*domain.Order, error) {
	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return o, nil
}
