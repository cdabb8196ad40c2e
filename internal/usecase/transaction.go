package usecase

import (
	"context"
	"fmt"
	"log/slog"
)

// Transaction runs ordered operations across systems that share no
// transaction boundary. When one fails, the compensations of the operations
// that already succeeded run in reverse order.
type Transaction struct {
	steps  []step
	logger *slog.Logger
}

type Operation struct {
	Name string
	Fn   func(context.Context) error
}

type Compensation struct {
	Name string
	Fn   func(context.Context) error
}

type step struct {
	op   Operation
	comp *Compensation
}

func NewTransaction(logger *slog.Logger) *Transaction {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transaction{logger: logger}
}

func (t *Transaction) AddOperation(name string, fn func(context.Context) error) {
	t.steps = append(t.steps, step{op: Operation{name, fn}})
}

// AddCompensation undoes the most recently added operation.
func (t *Transaction) AddCompensation(name string, fn func(context.Context) error) {
	if len(t.steps) == 0 {
		panic("usecase: AddCompensation before AddOperation")
	}
	t.steps[len(t.steps)-1].comp = &Compensation{name, fn}
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, s := range t.steps {
		if err := s.op.Fn(ctx); err != nil {
			t.rollback(ctx, i)
			return fmt.Errorf("operation '%s' failed: %w (rolled back %d operations)", s.op.Name, err, i)
		}
	}
	return nil
}

// rollback compensates steps [0, failedAt) in reverse order. A failing
// compensation is logged and the rollback continues.
func (t *Transaction) rollback(ctx context.Context, failedAt int) {
	// the caller's context may be the reason the step failed
	ctx = context.WithoutCancel(ctx)
	for i := failedAt - 1; i >= 0; i-- {
		comp := t.steps[i].comp
		if comp == nil {
			continue
		}
		if err := comp.Fn(ctx); err != nil {
			t.logger.Error("compensation failed, manual cleanup required",
				"compensation", comp.Name, "operation", t.steps[i].op.Name, "error", err)
		}
	}
}
