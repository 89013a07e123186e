// Package extpostgres keeps extraction-history rows in Postgres
package extpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/gravixlayer/gravix-ocr/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, n *model.Extraction) error {
	query := `INSERT INTO extractions (extraction_uid, source_key, status, result_text, err_msg, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	return p.DB.QueryRowContext(ctx, query, n.UID, n.SourceKey, n.Status, n.Text, n.ErrMsg, n.CreatedAt, n.CreatedAt).Err()
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Extraction, error) {
	query := `SELECT extraction_uid, source_key, status, result_text, err_msg, created_at, updated_at
	FROM extractions
	WHERE extraction_uid = $1`
	var ext model.Extraction

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&ext.UID,
		&ext.SourceKey,
		&ext.Status,
		&ext.Text,
		&ext.ErrMsg,
		&ext.CreatedAt,
		&ext.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrExtractionNotFound
		default:
			return nil, err // 500
		}
	}
	return &ext, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Extraction, error) {
	query := fmt.Sprintf(`SELECT extraction_uid, status, err_msg, created_at, updated_at
	FROM extractions
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, req.Sort, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	extractions := make([]model.Extraction, 0, req.Limit)
	for rows.Next() {
		var ext model.Extraction
		if err := rows.Scan(&ext.UID,
			&ext.Status,
			&ext.ErrMsg,
			&ext.CreatedAt,
			&ext.UpdatedAt); err != nil {
			return nil, err
		}
		extractions = append(extractions, ext)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return extractions, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM extractions
	WHERE extraction_uid = $1`

	row := p.DB.QueryRowContext(ctx, query, id)
	if row.Err() != nil {
		switch {
		case errors.Is(row.Err(), sql.ErrNoRows):
			return model.ErrExtractionNotFound // 404
		default:
			return row.Err() // 500
		}
	}
	return nil
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE extractions SET status = $1, updated_at = now() WHERE extraction_uid = $2`
	row := p.DB.QueryRowContext(ctx, query, newStat, id)

	if row.Err() != nil {
		switch {
		case errors.Is(row.Err(), sql.ErrNoRows):
			return model.ErrExtractionNotFound // 404
		default:
			return row.Err() // 500
		}
	}
	return nil
}

func (p PostgresRepo) SaveResult(ctx context.Context, input *model.Extraction) error {
	query := `UPDATE extractions SET status = $1, updated_at = $2, result_text = $3, err_msg = $4 WHERE extraction_uid = $5`
	row := p.DB.QueryRowContext(ctx, query, input.Status, input.UpdatedAt, input.Text, input.ErrMsg, input.UID)

	if row.Err() != nil {
		switch {
		case errors.Is(row.Err(), sql.ErrNoRows):
			return model.ErrExtractionNotFound // 404
		default:
			return row.Err() // 500
		}
	}

	return nil
}

func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT extraction_uid
	FROM extractions
	WHERE status IN ($1, $2)
	AND updated_at < now() - interval '10 minutes'
	LIMIT $3`

	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}
