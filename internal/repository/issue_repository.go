package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// ErrVersionConflict is returned when an issue changed since it was read.
var ErrVersionConflict = errors.New("issue modified concurrently")

// IssueScope selects issues visible to a caller. Set fields are OR-ed together;
// All overrides everything else.
type IssueScope struct {
	All        bool
	CreatedBy  *string
	HandlerID  *string
	Status     *domain.IssueStatus
	Department *string
}

// IssueRepository encapsulates issue persistence.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	Update(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	List(ctx context.Context, scope IssueScope) ([]domain.Issue, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Issue, error)
	Stats(ctx context.Context) (*domain.IssueStats, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, title, description, category, severity, status, created_by, department,
               initial_authority, current_handler, assigned_chain, forwarded_history, update_logs,
               escalation_level, reopen_count, sla_deadline, resolution_image, resolution_note,
               resolution_verified, version, created_at, updated_at`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (title, description, category, severity, status, created_by, department,
            initial_authority, current_handler, assigned_chain, forwarded_history, update_logs,
            escalation_level, reopen_count, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, version, created_at, updated_at`
	normalizeTrails(issue)
	return r.pool.QueryRow(ctx, query,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Severity,
		issue.Status,
		issue.CreatedBy,
		issue.Department,
		issue.InitialAuthority,
		issue.CurrentHandler,
		issue.AssignedChain,
		issue.ForwardedHistory,
		issue.UpdateLogs,
		issue.EscalationLevel,
		issue.ReopenCount,
		issue.SLADeadline,
	).Scan(&issue.ID, &issue.Version, &issue.CreatedAt, &issue.UpdatedAt)
}

// Update persists the whole aggregate in one statement, guarded by the version column.
func (r *issueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	const query = `
        UPDATE issues SET severity=$1, status=$2, current_handler=$3, assigned_chain=$4,
            forwarded_history=$5, update_logs=$6, escalation_level=$7, reopen_count=$8,
            sla_deadline=$9, resolution_image=$10, resolution_note=$11, resolution_verified=$12,
            version=version+1, updated_at=NOW()
        WHERE id=$13 AND version=$14
        RETURNING version, updated_at`
	normalizeTrails(issue)
	err := r.pool.QueryRow(ctx, query,
		issue.Severity,
		issue.Status,
		issue.CurrentHandler,
		issue.AssignedChain,
		issue.ForwardedHistory,
		issue.UpdateLogs,
		issue.EscalationLevel,
		issue.ReopenCount,
		issue.SLADeadline,
		issue.ResolutionImage,
		issue.ResolutionNote,
		issue.ResolutionVerified,
		issue.ID,
		issue.Version,
	).Scan(&issue.Version, &issue.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	return err
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	// Malformed ids cannot exist in a uuid column.
	if _, err := uuid.Parse(id); err != nil {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	issue, err := scanIssue(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (r *issueRepository) List(ctx context.Context, scope IssueScope) ([]domain.Issue, error) {
	clauses := []string{}
	args := []any{}

	if !scope.All {
		if scope.CreatedBy != nil {
			args = append(args, *scope.CreatedBy)
			clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
		}
		if scope.HandlerID != nil {
			args = append(args, *scope.HandlerID)
			clauses = append(clauses, fmt.Sprintf("current_handler=$%d", len(args)))
		}
		if scope.Status != nil {
			args = append(args, *scope.Status)
			clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
		}
		if scope.Department != nil {
			args = append(args, *scope.Department)
			clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
		}
		if len(clauses) == 0 {
			return []domain.Issue{}, nil
		}
	}

	query := `SELECT ` + issueColumns + ` FROM issues`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " OR ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues
        WHERE status NOT IN ($1, $2) AND sla_deadline IS NOT NULL AND sla_deadline <= $3
        ORDER BY sla_deadline ASC`
	rows, err := r.pool.Query(ctx, query, domain.IssueStatusResolved, domain.IssueStatusClosed, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) Stats(ctx context.Context) (*domain.IssueStats, error) {
	stats := &domain.IssueStats{}
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issues`).Scan(&stats.TotalIssues); err != nil {
		return nil, err
	}

	var err error
	if stats.ByCategory, err = r.countBy(ctx, "category"); err != nil {
		return nil, err
	}
	if stats.BySeverity, err = r.countBy(ctx, "severity"); err != nil {
		return nil, err
	}
	if stats.ByStatus, err = r.countBy(ctx, "status"); err != nil {
		return nil, err
	}
	departments, err := r.countBy(ctx, "department")
	if err != nil {
		return nil, err
	}
	if len(departments) > 0 {
		top := departments[0]
		stats.TopDepartment = &top
	}
	return stats, nil
}

// countBy groups on a fixed, trusted column name.
func (r *issueRepository) countBy(ctx context.Context, column string) ([]domain.CountByKey, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM issues GROUP BY %s ORDER BY COUNT(*) DESC, %s ASC`, column, column, column)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.CountByKey{}
	for rows.Next() {
		var bucket domain.CountByKey
		if err := rows.Scan(&bucket.Key, &bucket.Count); err != nil {
			return nil, err
		}
		result = append(result, bucket)
	}
	return result, rows.Err()
}

func normalizeTrails(issue *domain.Issue) {
	if issue.AssignedChain == nil {
		issue.AssignedChain = []string{}
	}
	if issue.ForwardedHistory == nil {
		issue.ForwardedHistory = []domain.ForwardEntry{}
	}
	if issue.UpdateLogs == nil {
		issue.UpdateLogs = []domain.UpdateLog{}
	}
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var issue domain.Issue
	if err := row.Scan(
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Severity,
		&issue.Status,
		&issue.CreatedBy,
		&issue.Department,
		&issue.InitialAuthority,
		&issue.CurrentHandler,
		&issue.AssignedChain,
		&issue.ForwardedHistory,
		&issue.UpdateLogs,
		&issue.EscalationLevel,
		&issue.ReopenCount,
		&issue.SLADeadline,
		&issue.ResolutionImage,
		&issue.ResolutionNote,
		&issue.ResolutionVerified,
		&issue.Version,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
	result := []domain.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *issue)
	}
	return result, rows.Err()
}
