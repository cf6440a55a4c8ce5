package admin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vabboost/internal/database"
	"vabboost/internal/domain"
	"vabboost/internal/pkg/jwt"
	"vabboost/internal/pkg/ordernumber"
	"vabboost/internal/pkg/validator"
	"vabboost/internal/repository"
)

type fixture struct {
	db     *gorm.DB
	svc    *Service
	jwt    *jwt.Service
	orders *repository.OrderRepository
	order  *domain.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewTestDB(t)
	ctx := context.Background()

	admins := repository.NewAdminRepository(db)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, admins.Create(ctx, &domain.Admin{Username: "root", PasswordHash: string(hash), IsActive: true}))
	disabled := &domain.Admin{Username: "former", PasswordHash: string(hash), IsActive: true}
	require.NoError(t, admins.Create(ctx, disabled))
	require.NoError(t, db.Model(disabled).Update("is_active", false).Error)

	orders := repository.NewOrderRepository(db, ordernumber.New("VAB"))
	o := &domain.Order{
		ServiceType: domain.ServicePlacement,
		Region:      "RU",
		ContactType: domain.ContactTelegram,
		Contact:     "@player",
		Amount:      2499,
		Currency:    "RUB",
		IPAddress:   "10.0.0.1",
		UserAgent:   "test-agent",
	}
	require.NoError(t, orders.CreateWithPayment(ctx, o, func(_ context.Context, o *domain.Order) (*domain.Payment, error) {
		return &domain.Payment{
			ExternalID:  "pay_1",
			Amount:      o.Amount,
			Currency:    o.Currency,
			Status:      domain.PaymentPending,
			GatewayData: `{"id":"pay_1","status":"pending"}`,
		}, nil
	}))

	tokens := jwt.New("admin-secret", time.Hour)
	return &fixture{
		db:     db,
		svc:    NewService(admins, orders, tokens),
		jwt:    tokens,
		orders: orders,
		order:  o,
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Login(ctx, LoginRequest{Username: "root", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	claims, err := f.jwt.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "root", claims.Username)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	_, err = f.svc.Login(ctx, LoginRequest{Username: "root", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginRequest{Username: "ghost", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginRequest{Username: "former", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, LoginRequest{})
	assert.ErrorIs(t, err, validator.ErrValidation)
}

func TestGetOrder_IncludesAuditData(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.GetOrder(context.Background(), f.order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", d.IPAddress)
	assert.Equal(t, "test-agent", d.UserAgent)
	require.NotNil(t, d.Payment)
	assert.Equal(t, "pay_1", d.Payment.ExternalID)
	assert.JSONEq(t, `{"id":"pay_1","status":"pending"}`, string(d.Payment.GatewayData))
	require.Len(t, d.History, 1)
	assert.Equal(t, domain.OrderAwaitingPayment, d.History[0].NewStatus)

	_, err = f.svc.GetOrder(context.Background(), "VAB-00000000-000000")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := f.order.OrderNumber

	d, err := f.svc.UpdateStatus(ctx, ref, UpdateStatusRequest{Status: "paid", Comment: "manual check"}, "root")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, d.Status)
	last := d.History[len(d.History)-1]
	assert.Equal(t, "root", last.ChangedBy)
	assert.Equal(t, "manual check", last.Comment)

	_, err = f.svc.UpdateStatus(ctx, ref, UpdateStatusRequest{Status: "awaiting_payment"}, "root")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, ref, UpdateStatusRequest{Status: "shipped"}, "root")
	assert.ErrorIs(t, err, validator.ErrValidation)

	d, err = f.svc.UpdateStatus(ctx, ref, UpdateStatusRequest{Status: "completed"}, "root")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, d.Status)

	_, err = f.svc.CancelOrder(ctx, ref, CancelRequest{}, "root")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.CancelOrder(ctx, f.order.OrderNumber, CancelRequest{}, "root")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, d.Status)
	assert.Equal(t, "cancelled by operator", d.History[len(d.History)-1].Comment)

	_, err = f.svc.CancelOrder(ctx, f.order.OrderNumber, CancelRequest{}, "root")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.CancelOrder(ctx, "999999", CancelRequest{}, "root")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.ListOrders(ctx, ListOrdersQuery{Status: "awaiting_payment"})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, int64(1), resp.Pagination.Total)
	assert.Equal(t, 20, resp.Pagination.PerPage)
	require.NotNil(t, resp.Orders[0].PaymentStatus)
	assert.Equal(t, domain.PaymentPending, *resp.Orders[0].PaymentStatus)

	resp, err = f.svc.ListOrders(ctx, ListOrdersQuery{Status: "paid"})
	require.NoError(t, err)
	assert.Empty(t, resp.Orders)

	_, err = f.svc.ListOrders(ctx, ListOrdersQuery{Status: "bogus", DateFrom: "yesterday"})
	var verrs *validator.Errors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("status"))
	assert.True(t, verrs.Has("date_from"))

	_, err = f.svc.ListOrders(ctx, ListOrdersQuery{DateFrom: "2026-05-02", DateTo: "2026-05-01"})
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("date_to"))
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2026-05-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseDate("2026-05-01T10:00:00Z", true)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	st, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.TotalOrders)
	assert.Zero(t, st.Revenue)
}

func TestUpdateNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.UpdateNotes(ctx, f.order.OrderNumber, UpdateNotesRequest{Notes: "  call after 18:00 "}, "root")
	require.NoError(t, err)
	assert.Equal(t, "call after 18:00", d.Notes)
	require.Len(t, d.History, 2)
	assert.Equal(t, "notes updated", d.History[1].Comment)
	assert.Equal(t, d.Status, d.History[1].NewStatus)

	_, err = f.svc.UpdateNotes(ctx, "VAB-00000000-000000", UpdateNotesRequest{Notes: "x"}, "root")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.UpdateNotes(ctx, f.order.OrderNumber, UpdateNotesRequest{Notes: strings.Repeat("n", 2001)}, "root")
	var verrs *validator.Errors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("notes"))
}

func TestRevenue_Periods(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Model(&domain.Order{}).Where("id = ?", f.order.ID).
		Update("created_at", time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)).Error)
	f.svc.now = func() time.Time { return time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC) }

	day, err := f.svc.Revenue(ctx, RevenueQuery{Period: "day"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), day.From)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), day.To)
	assert.Equal(t, int64(1), day.Summary.TotalOrders)
	require.Len(t, day.Periods, 1)
	assert.Equal(t, "2026-10-15", day.Periods[0].Period)

	week, err := f.svc.Revenue(ctx, RevenueQuery{Period: "week"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC), week.From)

	month, err := f.svc.Revenue(ctx, RevenueQuery{})
	require.NoError(t, err)
	assert.Equal(t, "month", month.Period)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), month.From)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), month.To)

	year, err := f.svc.Revenue(ctx, RevenueQuery{Period: "year"})
	require.NoError(t, err)
	require.Len(t, year.Periods, 1)
	assert.Equal(t, "2026-10", year.Periods[0].Period)
	assert.InDelta(t, 2499.0, year.Summary.TotalRevenue, 0.001)

	custom, err := f.svc.Revenue(ctx, RevenueQuery{StartDate: "2026-09-01", EndDate: "2026-09-30"})
	require.NoError(t, err)
	assert.Zero(t, custom.Summary.TotalOrders)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), custom.To)
}

func TestRevenue_InvalidQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var verrs *validator.Errors

	_, err := f.svc.Revenue(ctx, RevenueQuery{Period: "decade"})
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("period"))

	_, err = f.svc.Revenue(ctx, RevenueQuery{StartDate: "2026-09-01"})
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("end_date"))

	_, err = f.svc.Revenue(ctx, RevenueQuery{StartDate: "2026-09-10", EndDate: "2026-09-01"})
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("end_date"))
}

func TestServiceStats(t *testing.T) {
	f := newFixture(t)
	st, err := f.svc.ServiceStats(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Services, 1)
	assert.Equal(t, domain.ServicePlacement, st.Services[0].ServiceType)
	require.Len(t, st.Regions, 1)
	assert.Equal(t, "RU", st.Regions[0].Region)
	assert.Empty(t, st.Progressions)
}
