package db

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"PaperSieve/internal/models"
)

// Upsert 写入或覆盖一条记录，向量列不受影响
func (s *SQLiteDB) Upsert(p *models.PaperRecord) (int64, error) {
	authors, err := json.Marshal(nonNil(p.Authors))
	if err != nil {
		return 0, err
	}
	categories, err := json.Marshal(nonNil(p.Categories))
	if err != nil {
		return 0, err
	}
	scores, err := json.Marshal(p.Score)
	if err != nil {
		return 0, err
	}
	recommended, err := json.Marshal(nonNil(p.Recommended))
	if err != nil {
		return 0, err
	}
	var enrichment sql.NullString
	if p.Enrichment != nil {
		b, err := json.Marshal(p.Enrichment)
		if err != nil {
			return 0, err
		}
		enrichment = sql.NullString{String: string(b), Valid: true}
	}
	var published sql.NullTime
	if !p.Published.IsZero() {
		published = sql.NullTime{Time: p.Published.UTC(), Valid: true}
	}
	status := p.AbstractStatus
	if status == "" {
		status = models.AbstractNotAttempted
	}

	query := `
	INSERT INTO papers (
		source, source_id, journal, title, authors, published, abstract,
		categories, abs_url, pdf_url, abstract_status, scores, recommended,
		enrich_status, enrichment, enrich_error, run_date, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(source, source_id) DO UPDATE SET
		journal = excluded.journal,
		title = excluded.title,
		authors = excluded.authors,
		published = excluded.published,
		abstract = excluded.abstract,
		categories = excluded.categories,
		abs_url = excluded.abs_url,
		pdf_url = excluded.pdf_url,
		abstract_status = excluded.abstract_status,
		scores = excluded.scores,
		recommended = excluded.recommended,
		enrich_status = excluded.enrich_status,
		enrichment = excluded.enrichment,
		enrich_error = excluded.enrich_error,
		run_date = excluded.run_date,
		updated_at = CURRENT_TIMESTAMP
	RETURNING id
	`

	var id int64
	err = s.db.QueryRow(query,
		p.Source, p.ID, p.Journal, p.Title, string(authors), published, p.Abstract,
		string(categories), p.AbsURL, p.PDFURL, string(status), string(scores), string(recommended),
		string(p.EnrichStatus), enrichment, p.EnrichError, p.RunDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("写入论文 %s 失败: %w", p.Key(), err)
	}
	p.RowID = id
	return id, nil
}

// SaveEmbedding 保存论文的向量表示
func (s *SQLiteDB) SaveEmbedding(source, id, model string, vec []float32) error {
	query := `
	UPDATE papers SET
		embedding = ?,
		embedding_model = ?,
		embedding_updated_at = CURRENT_TIMESTAMP
	WHERE source = ? AND source_id = ?
	`
	res, err := s.db.Exec(query, encodeVec(vec), model, source, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("论文 %s:%s 不存在", source, id)
	}
	return nil
}

func buildWhere(cond models.RecordFilter) ([]string, []interface{}) {
	var where []string
	var args []interface{}

	if len(cond.Sources) > 0 {
		placeholders := strings.Repeat("?,", len(cond.Sources))
		where = append(where, "source IN ("+placeholders[:len(placeholders)-1]+")")
		for _, src := range cond.Sources {
			args = append(args, src)
		}
	}
	if cond.DateFrom != "" {
		where = append(where, "run_date >= ?")
		args = append(args, cond.DateFrom)
	}
	if cond.DateTo != "" {
		where = append(where, "run_date <= ?")
		args = append(args, cond.DateTo)
	}
	if len(cond.Statuses) > 0 {
		placeholders := strings.Repeat("?,", len(cond.Statuses))
		where = append(where, "enrich_status IN ("+placeholders[:len(placeholders)-1]+")")
		for _, st := range cond.Statuses {
			args = append(args, string(st))
		}
	}
	return where, args
}

const selectColumns = `
	SELECT id, source, source_id, journal, title, authors, published, abstract,
		categories, abs_url, pdf_url, abstract_status, scores, recommended,
		enrich_status, enrichment, enrich_error, run_date, updated_at,
		CASE WHEN embedding_model = ? THEN embedding END
	FROM papers`

func (s *SQLiteDB) GetRecords(cond models.RecordFilter, model string) ([]*models.PaperRecord, error) {
	where, args := buildWhere(cond)
	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY run_date, source, id"
	args = append([]interface{}{model}, args...)
	if cond.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, cond.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanRecords(rows)
}

func (s *SQLiteDB) CountRecords(cond models.RecordFilter) (int, error) {
	where, args := buildWhere(cond)
	query := "SELECT COUNT(*) FROM papers"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	var count int
	err := s.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

func (s *SQLiteDB) RunDates(cond models.RecordFilter) ([]string, error) {
	where, args := buildWhere(cond)
	query := "SELECT DISTINCT run_date FROM papers"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY run_date"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *SQLiteDB) scanRecords(rows *sql.Rows) ([]*models.PaperRecord, error) {
	var records []*models.PaperRecord

	for rows.Next() {
		var p models.PaperRecord
		var authors, categories, scores, recommended string
		var abstractStatus, enrichStatus string
		var published, updated sql.NullTime
		var enrichment sql.NullString
		var embBlob []byte

		err := rows.Scan(
			&p.RowID, &p.Source, &p.ID, &p.Journal, &p.Title, &authors, &published, &p.Abstract,
			&categories, &p.AbsURL, &p.PDFURL, &abstractStatus, &scores, &recommended,
			&enrichStatus, &enrichment, &p.EnrichError, &p.RunDate, &updated,
			&embBlob,
		)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
			return nil, fmt.Errorf("论文 %s 的 authors 无法解析: %w", p.Key(), err)
		}
		if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
			return nil, fmt.Errorf("论文 %s 的 categories 无法解析: %w", p.Key(), err)
		}
		if err := json.Unmarshal([]byte(scores), &p.Score); err != nil {
			return nil, fmt.Errorf("论文 %s 的 scores 无法解析: %w", p.Key(), err)
		}
		if err := json.Unmarshal([]byte(recommended), &p.Recommended); err != nil {
			return nil, fmt.Errorf("论文 %s 的 recommended 无法解析: %w", p.Key(), err)
		}
		if enrichment.Valid {
			p.Enrichment = &models.Enrichment{}
			if err := json.Unmarshal([]byte(enrichment.String), p.Enrichment); err != nil {
				return nil, fmt.Errorf("论文 %s 的 enrichment 无法解析: %w", p.Key(), err)
			}
		}
		if published.Valid {
			p.Published = published.Time
		}
		if updated.Valid {
			p.UpdatedAt = updated.Time
		}
		p.AbstractStatus = models.AbstractStatus(abstractStatus)
		p.EnrichStatus = models.EnrichStatus(enrichStatus)
		if len(embBlob) > 0 {
			p.Embedding = decodeVec(embBlob)
		}

		records = append(records, &p)
	}

	return records, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func encodeVec(vec []float32) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

func decodeVec(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	buf := bytes.NewReader(blob)
	_ = binary.Read(buf, binary.LittleEndian, &vec)
	return vec
}

func nowUTC() time.Time { return time.Now().UTC() }
