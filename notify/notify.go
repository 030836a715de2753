// Package notify renders change events and run failures for the operator.
// The engine emits structured events only; formatting lives here.
package notify

import (
	"go.uber.org/zap"

	"storewatch/catalog"
)

// Notifier receives the outcomes of store runs. Runs with zero changes
// produce no calls at all: silence is success.
type Notifier interface {
	Change(event catalog.ChangeEvent)
	RunFailed(storeName string, err error)
}

// LogNotifier renders notifications through a zap logger.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a notifier writing to the given logger.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Change logs one change event with its kind-specific payload.
func (n *LogNotifier) Change(ev catalog.ChangeEvent) {
	fields := []zap.Field{
		zap.String("store", ev.StoreName),
		zap.String("item", ev.ItemName),
		zap.String("key", ev.ExternalKey),
	}
	switch ev.Kind {
	case catalog.PriceChanged:
		fields = append(fields,
			zap.String("currency", ev.Currency),
			zap.Float64("old_price", ev.OldPrice),
			zap.Float64("new_price", ev.NewPrice))
	case catalog.RestockedOrSoldOut:
		fields = append(fields,
			zap.Bool("was_sold_out", ev.OldSoldOut),
			zap.Bool("now_sold_out", ev.NewSoldOut))
	}
	n.log.Info(string(ev.Kind), fields...)
}

// RunFailed logs an aborted run with store name and reason.
func (n *LogNotifier) RunFailed(storeName string, err error) {
	n.log.Error("store run failed",
		zap.String("store", storeName),
		zap.Error(err))
}
