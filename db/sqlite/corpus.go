package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"PaperSieve/internal/models"
)

// LoadCorpus 读取上一次保存的语料快照，没有则返回 nil
func (s *SQLiteDB) LoadCorpus(ctx context.Context) (*models.CorpusSnapshot, error) {
	var snap models.CorpusSnapshot
	var collections string
	err := s.db.QueryRowContext(ctx,
		"SELECT refreshed_at, model, collections FROM corpus_meta WHERE id = 1",
	).Scan(&snap.RefreshedAt, &snap.Model, &collections)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取语料元信息失败: %w", err)
	}
	if err := json.Unmarshal([]byte(collections), &snap.Collections); err != nil {
		return nil, fmt.Errorf("语料 collections 无法解析: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT collection, item_key, title, added_at, embedding FROM corpus_items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("读取语料条目失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.CorpusItem
		var blob []byte
		if err := rows.Scan(&it.Collection, &it.ItemKey, &it.Title, &it.AddedAt, &blob); err != nil {
			return nil, err
		}
		it.Embedding = decodeVec(blob)
		snap.Items = append(snap.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ReplaceCorpus 在一个事务里清空并写入新快照，读者看不到半成品
func (s *SQLiteDB) ReplaceCorpus(ctx context.Context, snap *models.CorpusSnapshot) error {
	collections, err := json.Marshal(nonNil(snap.Collections))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM corpus_items"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO corpus_meta (id, refreshed_at, model, collections) VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		refreshed_at = excluded.refreshed_at,
		model = excluded.model,
		collections = excluded.collections
	`, snap.RefreshedAt.UTC(), snap.Model, string(collections)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO corpus_items (collection, item_key, title, added_at, embedding) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range snap.Items {
		if _, err := stmt.ExecContext(ctx, it.Collection, it.ItemKey, it.Title, it.AddedAt.UTC(), encodeVec(it.Embedding)); err != nil {
			return fmt.Errorf("写入语料条目 %s 失败: %w", it.ItemKey, err)
		}
	}
	return tx.Commit()
}
