package sqlite

import (
	"context"

	"github.com/filmlog/filmlog-server/database/model"
)

// GetActors returns the full actor catalog sorted by name.
func (s *SqliteRepo) GetActors(ctx context.Context) ([]model.Actor, error) {
	const query = `SELECT id, name FROM actors ORDER BY name ASC`

	actors := []model.Actor{}
	if err := s.dbReadHandle.SelectContext(ctx, &actors, query); err != nil {
		return nil, err
	}
	return actors, nil
}
