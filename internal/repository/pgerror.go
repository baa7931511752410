package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/learnhub/internal/model"
)

// translate はdatabase/sqlとlib/pqのエラーをBackendErrorに揃える。
// sql.ErrNoRowsはPGRST116、pq.ErrorはSQLSTATEをCodeに持つ。
// それ以外のエラーはopの説明付きでラップして返す。
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.NewNoRowsError("no rows returned"))
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", op, &model.BackendError{
			Code:    string(pqErr.Code),
			Message: pqErr.Message,
			Details: pqErr.Detail,
			Hint:    pqErr.Hint,
		})
	}
	return fmt.Errorf("%s: %w", op, err)
}
