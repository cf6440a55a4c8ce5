package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vabboost/internal/database"
	"vabboost/internal/domain"
	"vabboost/internal/modules/pricing"
	"vabboost/internal/pkg/ordernumber"
	"vabboost/internal/pkg/validator"
	"vabboost/internal/pkg/yookassa"
	"vabboost/internal/repository"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePayment(ctx context.Context, req yookassa.CreatePaymentRequest) (*yookassa.Payment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*yookassa.Payment), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderAccepted(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	gateway  *MockGateway
	notifier *MockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewTestDB(t)
	gw := new(MockGateway)
	n := new(MockNotifier)
	svc := NewService(
		repository.NewOrderRepository(db, ordernumber.New("VAB")),
		gw,
		pricing.NewEngine(pricing.RegionTable{"RU": 10000, "EU": 12000}),
		n,
		Config{Currency: "RUB", MaxAmount: 100000, ReturnURL: "https://vab.test/payment/success"},
	)
	return &fixture{svc: svc, db: db, gateway: gw, notifier: n}
}

func remotePayment(id string) *yookassa.Payment {
	return &yookassa.Payment{
		ID:              id,
		Status:          "pending",
		ConfirmationURL: "https://yoomoney.test/checkout/" + id,
		IdempotencyKey:  "key-" + id,
		Raw:             []byte(`{"id":"` + id + `"}`),
	}
}

func intp(v int) *int { return &v }
func floatp(v float64) *float64 { return &v }

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("CreatePayment", mock.Anything, mock.MatchedBy(func(r yookassa.CreatePaymentRequest) bool {
		return r.Amount == 2541 && r.Currency == "RUB" && r.Metadata["order_id"] != "" &&
			r.Metadata["order_number"] != "" && r.ReceiptEmail == ""
	})).Return(remotePayment("pay_1"), nil).Once()

	resp, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ServiceType: "wins_boost",
		Wins:        intp(10),
		ContactType: "telegram",
		Contact:     " @player ",
	}, RequestMeta{IP: "1.2.3.4", UserAgent: "ua"})
	require.NoError(t, err)

	assert.Equal(t, 2541.0, resp.Order.Amount)
	assert.Equal(t, domain.OrderAwaitingPayment, resp.Order.Status)
	assert.Equal(t, "pay_1", resp.Payment.ID)
	assert.Equal(t, "https://yoomoney.test/checkout/pay_1", resp.Payment.ConfirmationURL)

	var stored domain.Order
	require.NoError(t, f.db.Preload("Payment").First(&stored, resp.Order.ID).Error)
	assert.Equal(t, "@player", stored.Contact)
	assert.Equal(t, "1.2.3.4", stored.IPAddress)
	require.NotNil(t, stored.Payment)
	assert.Equal(t, "key-pay_1", stored.Payment.IdempotencyKey)
	f.gateway.AssertExpectations(t)
	f.notifier.AssertNotCalled(t, "OrderAccepted", mock.Anything, mock.Anything)
}

func TestCreateOrder_ReturnURLCarriesOrderNumber(t *testing.T) {
	f := newFixture(t)
	var seen yookassa.CreatePaymentRequest
	f.gateway.On("CreatePayment", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { seen = args.Get(1).(yookassa.CreatePaymentRequest) }).
		Return(remotePayment("pay_1"), nil)
	f.notifier.On("OrderAccepted", mock.Anything, mock.Anything).Return(nil).Once()

	resp, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ServiceType: "placement", ContactType: "email", Contact: "a@b.test",
	}, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, "https://vab.test/payment/success?order="+resp.Order.OrderNumber, seen.ReturnURL)
	assert.Equal(t, "a@b.test", seen.ReceiptEmail)
	f.notifier.AssertExpectations(t)
}

func TestCreateOrder_GatewayFailureCancelsOrder(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("CreatePayment", mock.Anything, mock.Anything).
		Return(nil, yookassa.ErrGatewayUnavailable).Once()

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ServiceType: "placement", Amount: floatp(2499), ContactType: "telegram", Contact: "@p",
	}, RequestMeta{})

	require.ErrorIs(t, err, ErrPaymentCreationFailed)
	require.ErrorIs(t, err, yookassa.ErrGatewayUnavailable)
	var failed *PaymentFailedError
	require.ErrorAs(t, err, &failed)
	require.NotEmpty(t, failed.OrderNumber)

	var orders []domain.Order
	require.NoError(t, f.db.Find(&orders).Error)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderCancelled, orders[0].Status)
	assert.Nil(t, orders[0].PaymentID)
	assert.Equal(t, failed.OrderNumber, orders[0].OrderNumber)

	var payments int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)

	var dangling int64
	require.NoError(t, f.db.Model(&domain.Order{}).
		Where("status = ? AND payment_id IS NULL", domain.OrderAwaitingPayment).Count(&dangling).Error)
	assert.Zero(t, dangling)
}

func TestCreateOrder_ValidationReportsAllFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ServiceType: "wins_boost",
		Wins:        intp(0),
		Region:      "MARS",
		ContactType: "email",
		Contact:     "nope",
	}, RequestMeta{})

	var verrs *validator.Errors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("wins"))
	assert.True(t, verrs.Has("region"))
	assert.True(t, verrs.Has("contact"))
	f.gateway.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestCreateOrder_AmountBounds(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
	}{
		{"zero", 0},
		{"negative", -10},
		{"above bound", 500000},
		{"sub-kopeck", 10.001},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
				ServiceType: "custom", Amount: floatp(tc.amount), ContactType: "discord", Contact: "p#1",
			}, RequestMeta{})

			var verrs *validator.Errors
			require.ErrorAs(t, err, &verrs)
			assert.True(t, verrs.Has("amount"))

			var n int64
			require.NoError(t, f.db.Model(&domain.Order{}).Count(&n).Error)
			assert.Zero(t, n)
		})
	}
}

func TestCreateOrder_AmountMustMatchQuote(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ServiceType: "placement", Amount: floatp(10), ContactType: "telegram", Contact: "@p",
	}, RequestMeta{})

	var verrs *validator.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "does not match quoted price 2499")
}

func TestCreateOrder_CustomRequiresAmount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ServiceType: "custom", ContactType: "telegram", Contact: "@p",
	}, RequestMeta{})

	var verrs *validator.Errors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("amount"))
}

func TestCreateOrder_RegionAppliesMultiplier(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("CreatePayment", mock.Anything, mock.MatchedBy(func(r yookassa.CreatePaymentRequest) bool {
		return r.Amount == 2999
	})).Return(remotePayment("pay_eu"), nil).Once()

	resp, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ServiceType: "placement", Region: "eu", ContactType: "telegram", Contact: "@p",
	}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 2999.0, resp.Order.Amount)
}

func TestCreateOrder_DuplicateRemotePaymentIsInternal(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("CreatePayment", mock.Anything, mock.Anything).Return(remotePayment("pay_same"), nil)

	req := CreateOrderRequest{ServiceType: "placement", ContactType: "telegram", Contact: "@p"}
	_, err := f.svc.CreateOrder(context.Background(), req, RequestMeta{})
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(context.Background(), req, RequestMeta{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPaymentCreationFailed))

	var n int64
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestGetOrderAndStatus(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("CreatePayment", mock.Anything, mock.Anything).Return(remotePayment("pay_1"), nil)
	resp, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		ServiceType: "coaching", Hours: intp(2), ContactType: "telegram", Contact: "@p",
	}, RequestMeta{IP: "9.9.9.9"})
	require.NoError(t, err)

	v, err := f.svc.GetOrder(context.Background(), resp.Order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, 1998.0, v.Amount)
	require.NotNil(t, v.PaymentStatus)
	assert.Equal(t, domain.PaymentPending, *v.PaymentStatus)

	st, err := f.svc.GetStatus(context.Background(), resp.Order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAwaitingPayment, st.OrderStatus)

	_, err = f.svc.GetStatus(context.Background(), "VAB-00000000-000000")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = f.svc.GetOrder(context.Background(), "12345")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
