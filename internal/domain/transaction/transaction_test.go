package transaction

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatusForProviderCode(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusForProviderCode("00"))
	assert.Equal(t, StatusFailed, StatusForProviderCode("02"))
	assert.Equal(t, StatusPending, StatusForProviderCode("01"))
	assert.Equal(t, StatusPending, StatusForProviderCode("99"))
	assert.Equal(t, StatusPending, StatusForProviderCode(""))
}

func TestStatus_Monotonic(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusSuccess))
	assert.True(t, StatusPending.CanTransitionTo(StatusFailed))

	// Terminal states never transition away
	assert.False(t, StatusSuccess.CanTransitionTo(StatusFailed))
	assert.False(t, StatusSuccess.CanTransitionTo(StatusPending))
	assert.False(t, StatusFailed.CanTransitionTo(StatusSuccess))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
}

func TestNew_CopiesOrderAmount(t *testing.T) {
	orderID := uuid.New()
	txn := New(orderID, 2700, Metadata{Provider: "mtn", PaymentNumber: "0241234567"})

	assert.Equal(t, orderID, txn.OrderID)
	assert.Equal(t, int64(2700), txn.Amount)
	assert.Equal(t, StatusPending, txn.Status)
	assert.Equal(t, TypeMobileMoney, txn.Type)
	assert.Empty(t, txn.ProviderRef, "a new transaction has never been submitted to the provider")
}

func TestFormatReference(t *testing.T) {
	ts := time.Date(2025, time.March, 7, 9, 0, 0, 0, time.UTC)
	ref := FormatReference(ts, 7)

	assert.True(t, strings.HasPrefix(ref, "TXN2503070007"), ref)
	assert.Len(t, ref, len("TXN")+6+4+3)
}
