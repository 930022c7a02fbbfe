package engine

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/model"
)

// PaperGateway is an execution gateway that acknowledges every order
// without touching a broker. Used when no live broker adapter is wired,
// so the engine can run against a real feed in simulation.
type PaperGateway struct{}

// NewPaperGateway creates a paper-trading gateway.
func NewPaperGateway() *PaperGateway {
	return &PaperGateway{}
}

func (g *PaperGateway) OpenPosition(_ context.Context, instrument string, side model.ContractSide, qty int64, entry, stop, target decimal.Decimal) error {
	slog.Info("paper order placed",
		"instrument", instrument,
		"side", string(side),
		"qty", qty,
		"entry", entry.String(),
		"stop", stop.String(),
		"target", target.String(),
	)
	return nil
}

func (g *PaperGateway) ClosePosition(_ context.Context, instrument string, side model.ContractSide, reason string) error {
	slog.Info("paper order closed",
		"instrument", instrument, "side", string(side), "reason", reason)
	return nil
}

func (g *PaperGateway) AdjustStop(_ context.Context, instrument string, side model.ContractSide, newStop decimal.Decimal) error {
	return nil
}
