package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"storewatch/catalog"
)

func TestLogNotifier_Change(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	n.Change(catalog.ChangeEvent{
		StoreName:   "shop",
		ExternalKey: "k1",
		ItemName:    "Alpha",
		Kind:        catalog.PriceChanged,
		Currency:    "JPY",
		OldPrice:    1000,
		NewPrice:    1200,
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "price_changed", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "shop", fields["store"])
	assert.Equal(t, "JPY", fields["currency"])
	assert.Equal(t, 1000.0, fields["old_price"])
	assert.Equal(t, 1200.0, fields["new_price"])
}

func TestLogNotifier_RunFailed(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	n.RunFailed("shop", errors.New("walk aborted"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, "shop", entries[0].ContextMap()["store"])
}
