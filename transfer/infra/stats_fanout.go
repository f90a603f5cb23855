package infra

import (
	"context"
	"errors"

	"deal-transfer/transfer/domain"
)

// StatsFanout repassa cada evento para todos os stores; stores nil são ignorados.
type StatsFanout []domain.StatsStore

func (f StatsFanout) Record(ctx context.Context, ev domain.PassEvent) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
