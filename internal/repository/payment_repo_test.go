package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vabboost/internal/domain"
)

func TestApplyStatus_SucceededIsIdempotent(t *testing.T) {
	orders, db := newOrderRepo(t)
	payments := NewPaymentRepository(db)
	ctx := context.Background()
	o := createOrder(t, orders, "pay_1")

	p, err := payments.GetByExternalID(ctx, "pay_1")
	require.NoError(t, err)

	res, err := payments.ApplyStatus(ctx, p.ID, domain.PaymentSucceeded, `{"event":"payment.succeeded"}`)
	require.NoError(t, err)
	assert.True(t, res.PaymentChanged)
	assert.True(t, res.OrderChanged)
	require.NotNil(t, res.Order)
	assert.Equal(t, domain.OrderPaid, res.Order.Status)

	res, err = payments.ApplyStatus(ctx, p.ID, domain.PaymentSucceeded, `{"event":"payment.succeeded"}`)
	require.NoError(t, err)
	assert.False(t, res.PaymentChanged)
	assert.False(t, res.OrderChanged)

	// A stale cancellation after success must not rewrite anything.
	res, err = payments.ApplyStatus(ctx, p.ID, domain.PaymentCanceled, `{}`)
	require.NoError(t, err)
	assert.False(t, res.PaymentChanged)

	got, err := orders.GetByRef(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
	assert.Equal(t, domain.PaymentSucceeded, got.Payment.Status)

	history, err := orders.History(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestApplyStatus_WaitingForCapture(t *testing.T) {
	orders, db := newOrderRepo(t)
	payments := NewPaymentRepository(db)
	ctx := context.Background()
	createOrder(t, orders, "pay_1")
	p, err := payments.GetByExternalID(ctx, "pay_1")
	require.NoError(t, err)

	res, err := payments.ApplyStatus(ctx, p.ID, domain.PaymentWaitingForCapture, `{}`)
	require.NoError(t, err)
	assert.True(t, res.OrderChanged)
	assert.Equal(t, domain.OrderAwaitingConfirmation, res.Order.Status)

	// pending after waiting_for_capture updates the payment but never moves the order back.
	res, err = payments.ApplyStatus(ctx, p.ID, domain.PaymentPending, `{}`)
	require.NoError(t, err)
	assert.True(t, res.PaymentChanged)
	assert.False(t, res.OrderChanged)
}

func TestApplyStatus_CancelledOrderStaysCancelled(t *testing.T) {
	orders, db := newOrderRepo(t)
	payments := NewPaymentRepository(db)
	ctx := context.Background()
	o := createOrder(t, orders, "pay_1")
	_, err := orders.AdminSetStatus(ctx, o.ID, domain.OrderCancelled, "root", "")
	require.NoError(t, err)

	p, err := payments.GetByExternalID(ctx, "pay_1")
	require.NoError(t, err)
	res, err := payments.ApplyStatus(ctx, p.ID, domain.PaymentSucceeded, `{}`)
	require.NoError(t, err)
	assert.True(t, res.PaymentChanged)
	assert.False(t, res.OrderChanged)

	got, err := orders.GetByRef(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)
}

func TestApplyStatus_ConcurrentDeliveriesMoveOrderOnce(t *testing.T) {
	orders, db := newOrderRepo(t)
	payments := NewPaymentRepository(db)
	ctx := context.Background()
	o := createOrder(t, orders, "pay_1")
	p, err := payments.GetByExternalID(ctx, "pay_1")
	require.NoError(t, err)

	const deliveries = 8
	var (
		wg             sync.WaitGroup
		orderChanged   atomic.Int32
		paymentChanged atomic.Int32
	)
	errs := make(chan error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := payments.ApplyStatus(ctx, p.ID, domain.PaymentSucceeded, `{"event":"payment.succeeded"}`)
			if err != nil {
				errs <- err
				return
			}
			if res.OrderChanged {
				orderChanged.Add(1)
			}
			if res.PaymentChanged {
				paymentChanged.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), orderChanged.Load())
	assert.Equal(t, int32(1), paymentChanged.Load())

	history, err := orders.History(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.OrderPaid, history[1].NewStatus)
}

func TestApplyStatus_UnknownStatusKeepsPayment(t *testing.T) {
	orders, db := newOrderRepo(t)
	payments := NewPaymentRepository(db)
	ctx := context.Background()
	o := createOrder(t, orders, "pay_1")
	p, err := payments.GetByExternalID(ctx, "pay_1")
	require.NoError(t, err)

	res, err := payments.ApplyStatus(ctx, p.ID, domain.PaymentStatus("refunded"), `{}`)
	require.NoError(t, err)
	assert.False(t, res.PaymentChanged)
	assert.False(t, res.OrderChanged)

	got, err := orders.GetByRef(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAwaitingPayment, got.Status)
	assert.Equal(t, domain.PaymentPending, got.Payment.Status)

	// From pending the same mapping moves the order forward to awaiting_payment.
	require.NoError(t, db.Model(&domain.Order{}).Where("id = ?", o.ID).Update("status", domain.OrderPending).Error)
	res, err = payments.ApplyStatus(ctx, p.ID, domain.PaymentStatus("refunded"), `{}`)
	require.NoError(t, err)
	assert.True(t, res.OrderChanged)
	assert.Equal(t, domain.OrderAwaitingPayment, res.Order.Status)
}

func TestGetByExternalID_NotFound(t *testing.T) {
	_, db := newOrderRepo(t)
	_, err := NewPaymentRepository(db).GetByExternalID(context.Background(), "pay_999")
	assert.ErrorIs(t, err, ErrNotFound)
}
