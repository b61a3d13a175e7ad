package service

import (
	"context"
	"testing"

	"orderdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCustomerDefaultsSource(t *testing.T) {
	env := newTestEnv()

	customer, err := env.customers.CreateCustomer(context.Background(), CustomerRequest{
		FullName: "Olena Shevchenko",
		Phone:    "+380501112233",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SourceOther, customer.Source)
}

func TestCreateCustomerRejectsDuplicatePhone(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer("Olena", "+380501112233")

	_, err := env.customers.CreateCustomer(context.Background(), CustomerRequest{
		FullName: "Someone Else",
		Phone:    "+380501112233",
	})

	field, _, ok := FieldMessage(err)
	require.True(t, ok)
	assert.Equal(t, "phone", field)
	assert.Len(t, env.store.customers, 1)
}

func TestCreateCustomerRejectsUnknownSource(t *testing.T) {
	env := newTestEnv()

	_, err := env.customers.CreateCustomer(context.Background(), CustomerRequest{
		FullName: "Olena",
		Phone:    "+380501112233",
		Source:   "carrier_pigeon",
	})

	field, _, ok := FieldMessage(err)
	require.True(t, ok)
	assert.Equal(t, "source", field)
}

func TestUpdateCustomerKeepsOwnPhone(t *testing.T) {
	env := newTestEnv()
	customer := env.seedCustomer("Olena", "+380501112233")

	updated, err := env.customers.UpdateCustomer(context.Background(), customer.ID.String(), CustomerRequest{
		FullName: "Olena Shevchenko",
		Phone:    "+380501112233", // unchanged
		Source:   model.SourceInstagram,
	})
	require.NoError(t, err)
	assert.Equal(t, "Olena Shevchenko", updated.FullName)
	assert.Equal(t, model.SourceInstagram, updated.Source)
}

func TestUpdateCustomerRejectsTakenPhone(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer("Olena", "+380501112233")
	other := env.seedCustomer("Taras", "+380674445566")

	_, err := env.customers.UpdateCustomer(context.Background(), other.ID.String(), CustomerRequest{
		FullName: "Taras",
		Phone:    "+380501112233",
	})

	field, _, ok := FieldMessage(err)
	require.True(t, ok)
	assert.Equal(t, "phone", field)
}

func TestDeleteCustomerProtectedWhenOrdered(t *testing.T) {
	env := newTestEnv()
	product := env.seedProduct("Hoodie", "HD-01", "200.00", "450.00", 10)
	customer := env.seedCustomer("Olena", "+380501112233")
	env.createOrder(t, CreateOrderRequest{
		CustomerID: customer.ID.String(),
		City:       "Kyiv",
		Items:      []OrderItemRequest{itemReq(product.ID, 1)},
	})

	err := env.customers.DeleteCustomer(context.Background(), customer.ID.String())
	assert.ErrorIs(t, err, ErrProtectedReference)
	assert.Len(t, env.store.customers, 1)
}

func TestDeleteCustomerWithoutOrders(t *testing.T) {
	env := newTestEnv()
	customer := env.seedCustomer("Olena", "+380501112233")

	require.NoError(t, env.customers.DeleteCustomer(context.Background(), customer.ID.String()))
	assert.Empty(t, env.store.customers)
}

func TestGetCustomerNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.customers.GetCustomer(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCustomersIncludesOrderCounts(t *testing.T) {
	env := newTestEnv()
	product := env.seedProduct("Hoodie", "HD-01", "200.00", "450.00", 10)
	buyer := env.seedCustomer("Olena", "+380501112233")
	env.seedCustomer("Taras", "+380674445566")
	env.createOrder(t, CreateOrderRequest{
		CustomerID: buyer.ID.String(),
		City:       "Kyiv",
		Items:      []OrderItemRequest{itemReq(product.ID, 1)},
	})

	customers, total, err := env.customers.ListCustomers(context.Background(), "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	counts := make(map[string]int64, len(customers))
	for _, c := range customers {
		counts[c.FullName] = c.OrdersCount
	}
	assert.Equal(t, int64(1), counts["Olena"])
	assert.Equal(t, int64(0), counts["Taras"])
}
