package db

import (
	"context"
	"fmt"

	"PaperSieve/internal/models"
)

// LoadSeen 读出全部已见 id，按 source 分组
func (s *SQLiteDB) LoadSeen(ctx context.Context) (map[string]map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source, paper_id FROM seen_ids")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDedupStoreCorrupted, err)
	}
	defer rows.Close()

	seen := make(map[string]map[string]struct{})
	for rows.Next() {
		var source, id string
		if err := rows.Scan(&source, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrDedupStoreCorrupted, err)
		}
		if seen[source] == nil {
			seen[source] = make(map[string]struct{})
		}
		seen[source][id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDedupStoreCorrupted, err)
	}
	return seen, nil
}

// CommitSeen 批量追加，已存在的 id 忽略
func (s *SQLiteDB) CommitSeen(ctx context.Context, source string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO seen_ids (source, paper_id, first_seen) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := nowUTC()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, source, id, now); err != nil {
			return fmt.Errorf("记录已见 id %s:%s 失败: %w", source, id, err)
		}
	}
	return tx.Commit()
}
