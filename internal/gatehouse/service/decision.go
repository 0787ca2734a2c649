package service

import (
	"context"

	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

// Directory resolves a credential to its registered tag.
type Directory interface {
	Lookup(ctx context.Context, credential string) (store.TagRecord, bool, error)
}

// DecisionEngine classifies a scanned credential. It never writes anything;
// the only error it returns is a failed directory lookup.
type DecisionEngine struct {
	dir Directory
}

func NewDecisionEngine(dir Directory) *DecisionEngine {
	return &DecisionEngine{dir: dir}
}

// Classify matches credential exactly as given. Callers trim it first.
func (e *DecisionEngine) Classify(ctx context.Context, credential string) (string, types.Decision, error) {
	tag, ok, err := e.dir.Lookup(ctx, credential)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return types.UnknownPrincipal, types.DecisionDenied, nil
	}
	return tag.PrincipalName, types.DecisionGranted, nil
}
