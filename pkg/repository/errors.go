package repository

import (
	"context"
	"errors"

	"github.com/example/foodcourt/pkg/fault"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mongo server error codes that map onto the shared fault classes.
const (
	codeUnauthorized = 13
)

// classify maps a driver error to the shared taxonomy. NotFound is handled
// at call sites where the absent document's identity is known.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeUnauthorized {
		return fault.Permission(op, err)
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fault.Unavailable(op, err)
	}

	return err
}
