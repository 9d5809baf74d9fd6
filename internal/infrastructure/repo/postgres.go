package repo

import (
	"database/sql"
	"encoding/json"

	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/domain"
	"github.com/lib/pq"
)

// PostgresMagazineRepo stores magazines in a single table. Pages and config
// are JSON-encoded columns; the denormalized total_pages keeps list and
// status reads cheap.
type PostgresMagazineRepo struct {
	db *sql.DB
}

func NewPostgresMagazineRepo(dsn string) (*PostgresMagazineRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	r := &PostgresMagazineRepo{db: db}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresMagazineRepo) Close() error {
	return r.db.Close()
}

func (r *PostgresMagazineRepo) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS magazines (
		id TEXT PRIMARY KEY,
		share_token TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		pdf_url TEXT NOT NULL DEFAULT '',
		pdf_public_id TEXT NOT NULL DEFAULT '',
		pages TEXT NOT NULL DEFAULT '[]',
		total_pages INT NOT NULL DEFAULT 0,
		config TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS magazines_status_created_at_idx
		ON magazines (status, created_at DESC);`)
	return err
}

func (r *PostgresMagazineRepo) Put(m *domain.Magazine) error {
	pages, _ := json.Marshal(m.Pages)
	config, _ := json.Marshal(m.Config)
	_, err := r.db.Exec(`INSERT INTO magazines
		(id,share_token,name,pdf_url,pdf_public_id,pages,total_pages,config,status,error_message,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			name=$3,pdf_url=$4,pdf_public_id=$5,pages=$6,total_pages=$7,
			config=$8,status=$9,error_message=$10,updated_at=$12`,
		m.ID, m.ShareToken, m.Name, m.PdfURL, m.PdfPublicID, string(pages),
		m.TotalPages, string(config), string(m.Status), m.ErrorMessage,
		m.CreatedAt, m.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return domain.ErrDuplicate
	}
	return err
}

const magazineColumns = `id,share_token,name,pdf_url,pdf_public_id,pages,total_pages,config,status,error_message,created_at,updated_at`

func (r *PostgresMagazineRepo) Get(id string) (*domain.Magazine, bool) {
	row := r.db.QueryRow(`SELECT `+magazineColumns+` FROM magazines WHERE id=$1`, id)
	return scanMagazine(row)
}

func (r *PostgresMagazineRepo) GetByShareToken(token string) (*domain.Magazine, bool) {
	row := r.db.QueryRow(`SELECT `+magazineColumns+` FROM magazines WHERE share_token=$1`, token)
	return scanMagazine(row)
}

func (r *PostgresMagazineRepo) Delete(id string) bool {
	res, err := r.db.Exec(`DELETE FROM magazines WHERE id=$1`, id)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (r *PostgresMagazineRepo) List(status domain.Status, page, limit int) ([]domain.Magazine, int) {
	rows, err := r.db.Query(`SELECT `+magazineColumns+` FROM magazines
		WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(status), limit, (page-1)*limit)
	if err != nil {
		return nil, 0
	}
	defer rows.Close()
	out := make([]domain.Magazine, 0, limit)
	for rows.Next() {
		if m, ok := scanMagazine(rows); ok {
			out = append(out, *m)
		}
	}
	var total int
	_ = r.db.QueryRow(`SELECT COUNT(1) FROM magazines WHERE status=$1`, string(status)).Scan(&total)
	return out, total
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMagazine(row rowScanner) (*domain.Magazine, bool) {
	var m domain.Magazine
	var pages, config string
	err := row.Scan(&m.ID, &m.ShareToken, &m.Name, &m.PdfURL, &m.PdfPublicID,
		&pages, &m.TotalPages, &config, (*string)(&m.Status), &m.ErrorMessage,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, false
	}
	_ = json.Unmarshal([]byte(pages), &m.Pages)
	if m.Pages == nil {
		m.Pages = []domain.Page{}
	}
	_ = json.Unmarshal([]byte(config), &m.Config)
	return &m, true
}
