package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondAcquireFails(t *testing.T) {
	first, err := AcquireSingleInstance("daybook-test", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Release() })

	_, err = AcquireSingleInstance("daybook-test", first.Address())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release(), "release is idempotent")
}

func TestBadAddressIsNotReportedAsRunning(t *testing.T) {
	_, err := AcquireSingleInstance("daybook-test", "no-port-here")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyRunning)
}

func TestInstanceAddressIsStableAndInRange(t *testing.T) {
	assert.Equal(t, InstanceAddress("Daybook"), InstanceAddress("Daybook"))
	assert.NotEqual(t, instancePort("Daybook/1000"), instancePort("Daybook/1001"))
	for _, owner := range []string{"", "Daybook", "Daybook/0"} {
		port := instancePort(owner)
		assert.GreaterOrEqual(t, port, instancePortLow)
		assert.LessOrEqual(t, port, instancePortHigh)
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "day-book", slug("  Day Book "))
}

func TestNewLoginItemRequiresName(t *testing.T) {
	_, err := NewLoginItem(" ")
	assert.Error(t, err)

	item, err := NewLoginItem("Daybook")
	require.NoError(t, err)
	assert.NotEmpty(t, item.execPath)
}
