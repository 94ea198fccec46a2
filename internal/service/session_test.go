package service

import (
	"context"
	"testing"

	"github.com/dinein-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartQRSession_CreatesThenJoins(t *testing.T) {
	store := newMemStore()
	owner := store.addOwner("bistro")
	table := store.addTable(owner.ID, 1)
	svc := NewSessionService(store)
	ctx := context.Background()

	first, joined, err := svc.StartQRSession(ctx, table.ID, 0, "Bob")
	require.NoError(t, err)
	assert.False(t, joined)
	assert.Equal(t, enum.SessionOriginQR, first.Origin)
	assert.Equal(t, int32(1), first.PartySize)
	assert.Len(t, first.SessionToken.String, 32)
	assert.Equal(t, owner.ID, first.OwnerID)

	second, joined, err := svc.StartQRSession(ctx, table.ID, 3, "Carol")
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Equal(t, first.ID, second.ID)
}

func TestStartQRSession_UnknownTable(t *testing.T) {
	svc := NewSessionService(newMemStore())
	_, _, err := svc.StartQRSession(context.Background(), uuid.New(), 2, "")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestSeat(t *testing.T) {
	store := newMemStore()
	owner := store.addOwner("bistro")
	table := store.addTable(owner.ID, 2)
	svc := NewSessionService(store)
	ctx := context.Background()

	s, err := svc.Seat(ctx, SeatRequest{OwnerID: owner.ID, TableID: table.ID.String(), PartySize: 4})
	require.NoError(t, err)
	assert.Equal(t, enum.SessionOriginStaff, s.Origin)
	assert.Equal(t, enum.SessionStatusSeated, s.Status)
	assert.False(t, s.SessionToken.Valid)

	_, err = svc.Seat(ctx, SeatRequest{OwnerID: owner.ID, PartySize: -1})
	assert.ErrorIs(t, err, ErrInvalidPartySize)

	_, err = svc.Seat(ctx, SeatRequest{OwnerID: owner.ID, Status: "NAPPING"})
	assert.ErrorIs(t, err, ErrInvalidSessionStatus)

	_, err = svc.Seat(ctx, SeatRequest{OwnerID: uuid.New(), TableID: table.ID.String()})
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestSummary_GroupsByCategory(t *testing.T) {
	f := newBillingFixture(t, "12.50", 2)
	soup := f.store.addMenuItem(f.owner.ID, "Soup", "5.00")
	f.store.categories[soup.CategoryID] = "Starters"
	f.addOrder(t, enum.OrderStatusPending, soup, 3)
	f.addOrder(t, enum.OrderStatusCancelled, soup, 10)

	_, err := f.svc.CreateSessionPayment(context.Background(), f.paymentReq("15.00", "15.00"))
	require.NoError(t, err)

	summary, err := NewSessionService(f.store).Summary(context.Background(), f.owner.ID, f.session.ID)
	require.NoError(t, err)
	require.Len(t, summary.Categories, 2)
	assert.True(t, summary.Subtotal.Equal(dec("40.00")), "subtotal = %s", summary.Subtotal)
	assert.Equal(t, int64(5), summary.ItemCount)
	assert.True(t, summary.PaidAmount.Equal(dec("15.00")))
	assert.True(t, summary.RemainingAmount.Equal(dec("25.00")))

	for _, c := range summary.Categories {
		switch c.CategoryName {
		case "Starters":
			assert.True(t, c.Subtotal.Equal(dec("15.00")))
			assert.Equal(t, int64(3), c.ItemCount)
		case "Mains":
			assert.True(t, c.Subtotal.Equal(dec("25.00")))
		default:
			t.Errorf("unexpected category %q", c.CategoryName)
		}
	}
}

func TestCheckout(t *testing.T) {
	f := newBillingFixture(t, "10.00", 1)
	svc := NewSessionService(f.store)
	ctx := context.Background()

	done, err := svc.Checkout(ctx, f.owner.ID, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.SessionStatusCompleted, done.Status)
	assert.False(t, done.IsActive)
	assert.True(t, done.CheckOutTime.Valid)

	_, err = svc.Checkout(ctx, f.owner.ID, f.session.ID)
	assert.ErrorIs(t, err, ErrSessionCompleted)

	_, err = svc.Checkout(ctx, f.owner.ID, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	f := newBillingFixture(t, "10.00", 1)
	svc := NewSessionService(f.store)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, f.owner.ID, f.session.ID), ErrSessionHasDependents)

	empty := f.store.addSession(f.owner.ID, uuid.Nil, enum.SessionStatusSeated)
	require.NoError(t, svc.Delete(ctx, f.owner.ID, empty.ID))
	assert.ErrorIs(t, svc.Delete(ctx, f.owner.ID, empty.ID), ErrSessionNotFound)
}
